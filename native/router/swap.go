package router

import (
	"fmt"
	"math/big"

	"swaprouter/core/events"
)

// SwapAggregated routes a swap through the aggregated-route venue. Operator
// gated: the caller acts on behalf of the request's swapper. The venue's
// single entry point receives minAmountOut as both its target and minimum
// amount arguments.
func (e *Engine) SwapAggregated(caller [20]byte, req AggregatedRouteRequest) (*SwapOutcome, error) {
	if err := e.guardPaused(); err != nil {
		return nil, err
	}
	if err := e.requireOperator(caller); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	revert := e.begin()
	outcome, err := e.swapAggregatedLocked(req)
	if err != nil {
		revert()
		return nil, err
	}
	return outcome, nil
}

func (e *Engine) swapAggregatedLocked(req AggregatedRouteRequest) (*SwapOutcome, error) {
	if e.venues.Aggregated == nil {
		return nil, errNilVenue
	}
	if req.AmountIn == nil || req.AmountIn.Sign() == 0 {
		return nil, ErrZeroAmount
	}
	// The asset backend contract makes no promise about negative transfers;
	// a negative pull-in would invert into a payout from custody.
	if req.AmountIn.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative amount", ErrInvalidInput)
	}
	if req.MinAmountOut != nil && req.MinAmountOut.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative minimum amount", ErrInvalidInput)
	}
	if req.Swapper == ([20]byte{}) || req.Beneficiary == ([20]byte{}) {
		return nil, fmt.Errorf("%w: zero swapper or beneficiary", ErrInvalidInput)
	}
	if _, err := e.requireSupportedLocked(req.AssetIn); err != nil {
		return nil, err
	}
	assetIn, err := e.asset(req.AssetIn)
	if err != nil {
		return nil, err
	}
	assetOut, err := e.asset(req.AssetOut)
	if err != nil {
		return nil, err
	}
	amountIn := cloneBigInt(req.AmountIn)
	if err := e.pullIn(assetIn, req.Swapper, amountIn); err != nil {
		return nil, err
	}
	if err := assetIn.Approve(e.custody, e.venues.AggregatedAccount, amountIn); err != nil {
		return nil, fmt.Errorf("router: approve venue: %w", err)
	}
	minOut := cloneBigInt(req.MinAmountOut)
	received, err := e.measureDelta(assetOut, e.custody, func() error {
		ok, venueErr := e.venues.Aggregated.ExecuteRoute(
			req.AssetIn, amountIn, req.AssetOut,
			minOut, minOut,
			e.custody,
			req.IntegratorFeeBps, req.IntegratorFeeRecipient,
			req.Routes,
		)
		if venueErr != nil {
			return fmt.Errorf("%w: %v", ErrSwapFailed, venueErr)
		}
		if !ok {
			return ErrSwapFailed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if received.Cmp(minOut) < 0 {
		return nil, fmt.Errorf("%w: received %s below minimum %s", ErrSwapFailed, received, minOut)
	}
	return e.settleLocked(assetOut, req.AssetIn, amountIn, req.AssetOut, received, req.Beneficiary, VenueAggregated)
}

// SwapSplit routes a swap through the split-route venue. Operator gated. The
// venue pays whatever destination the params name, so the destination must be
// the router's own custody account.
func (e *Engine) SwapSplit(caller [20]byte, req SplitRouteRequest) (*SwapOutcome, error) {
	if err := e.guardPaused(); err != nil {
		return nil, err
	}
	if err := e.requireOperator(caller); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	revert := e.begin()
	outcome, err := e.swapSplitLocked(req)
	if err != nil {
		revert()
		return nil, err
	}
	return outcome, nil
}

func (e *Engine) swapSplitLocked(req SplitRouteRequest) (*SwapOutcome, error) {
	if e.venues.Split == nil {
		return nil, errNilVenue
	}
	if req.Params.AmountIn == nil || req.Params.AmountIn.Sign() == 0 {
		return nil, ErrZeroAmount
	}
	if req.Params.AmountIn.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative amount", ErrInvalidInput)
	}
	if req.Swapper == ([20]byte{}) || req.Beneficiary == ([20]byte{}) {
		return nil, fmt.Errorf("%w: zero swapper or beneficiary", ErrInvalidInput)
	}
	if req.Params.Destination != e.custody {
		return nil, fmt.Errorf("%w: split-route destination must be the custody account", ErrInvalidInput)
	}
	if _, err := e.requireSupportedLocked(req.Params.AssetIn); err != nil {
		return nil, err
	}
	assetIn, err := e.asset(req.Params.AssetIn)
	if err != nil {
		return nil, err
	}
	assetOut, err := e.asset(req.Params.AssetOut)
	if err != nil {
		return nil, err
	}
	amountIn := cloneBigInt(req.Params.AmountIn)
	if err := e.pullIn(assetIn, req.Swapper, amountIn); err != nil {
		return nil, err
	}
	if err := assetIn.Approve(e.custody, e.venues.SplitAccount, amountIn); err != nil {
		return nil, fmt.Errorf("router: approve venue: %w", err)
	}
	params := req.Params
	params.AmountIn = amountIn
	received, err := e.measureDelta(assetOut, e.custody, func() error {
		// No boolean result here: the venue's own error is the failure signal.
		return e.venues.Split.ExecuteSplitSwap(params, req.Hops)
	})
	if err != nil {
		return nil, err
	}
	if received.Sign() <= 0 {
		return nil, fmt.Errorf("%w: venue delivered nothing", ErrSwapFailed)
	}
	return e.settleLocked(assetOut, req.Params.AssetIn, amountIn, req.Params.AssetOut, received, req.Beneficiary, VenueSplit)
}

// settleLocked runs the received amount through the fee engine, releases the
// net proceeds and emits the outcome.
func (e *Engine) settleLocked(assetOut Asset, assetInID [20]byte, amountIn *big.Int, assetOutID [20]byte, received *big.Int, beneficiary [20]byte, venue string) (*SwapOutcome, error) {
	net, err := e.collectFee(assetOut, assetOutID, received)
	if err != nil {
		return nil, err
	}
	if err := e.payOut(assetOut, beneficiary, net); err != nil {
		return nil, err
	}
	outcome := &SwapOutcome{
		AssetIn:      assetInID,
		AmountIn:     cloneBigInt(amountIn),
		AssetOut:     assetOutID,
		AmountOutNet: cloneBigInt(net),
		Fee:          new(big.Int).Sub(received, net),
		Beneficiary:  beneficiary,
		Venue:        venue,
	}
	e.emit(events.SwapSuccessful{
		AssetIn:      outcome.AssetIn,
		AmountIn:     outcome.AmountIn,
		AssetOut:     outcome.AssetOut,
		AmountOutNet: outcome.AmountOutNet,
		Fee:          outcome.Fee,
		Beneficiary:  outcome.Beneficiary,
		Venue:        venue,
	})
	return outcome.Clone(), nil
}
