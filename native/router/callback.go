package router

import (
	"fmt"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// settlementContext is the value handed to the callback venue with the outer
// RequestSwap call and decoded again inside the callback. It carries the whole
// request explicitly so no settlement state lives in ambient call-stack
// variables.
type settlementContext struct {
	Token0    [20]byte
	Token1    [20]byte
	Fee       uint32
	AmountMag *big.Int
	AmountNeg bool
	IsToken1  bool
	Swapper   [20]byte
	Recipient [20]byte
}

func (c *settlementContext) poolKey() PoolKey {
	return PoolKey{Token0: c.Token0, Token1: c.Token1, Fee: c.Fee}
}

func (c *settlementContext) signedAmount() *big.Int {
	amount := cloneBigInt(c.AmountMag)
	if c.AmountNeg {
		amount.Neg(amount)
	}
	return amount
}

// settlementResult is the serialized raw pool delta pair returned to the
// outer call so the venue core can finalise its own accounting.
type settlementResult struct {
	Mag0 *big.Int
	Neg0 bool
	Mag1 *big.Int
	Neg1 bool
}

func encodeSettlementResult(delta0, delta1 *big.Int) ([]byte, error) {
	res := settlementResult{
		Mag0: new(big.Int).Abs(delta0),
		Neg0: delta0.Sign() < 0,
		Mag1: new(big.Int).Abs(delta1),
		Neg1: delta1.Sign() < 0,
	}
	return rlp.EncodeToBytes(&res)
}

// settlementRequest tracks one in-flight callback swap. It exists only
// between the outer RequestSwap invocation and its return, and is consumed by
// exactly one callback.
type settlementRequest struct {
	id      uint64
	ctxHash ethcommon.Hash
	settled bool
	outcome *SwapOutcome
}

// SwapCallback routes a swap through the callback-settlement venue on behalf
// of a third-party swapper. Operator gated.
func (e *Engine) SwapCallback(caller [20]byte, req CallbackRequest) (*SwapOutcome, error) {
	if err := e.guardPaused(); err != nil {
		return nil, err
	}
	if err := e.requireOperator(caller); err != nil {
		return nil, err
	}
	if req.Swapper == ([20]byte{}) {
		return nil, fmt.Errorf("%w: zero swapper", ErrInvalidInput)
	}
	return e.swapCallback(req, req.Swapper, req.Swapper)
}

// SwapCallbackManual routes a callback-settlement swap where the caller swaps
// for themself. Intentionally permissionless: the caller is the economic
// party at risk, so the operator gate is relaxed.
func (e *Engine) SwapCallbackManual(caller [20]byte, req CallbackRequest) (*SwapOutcome, error) {
	if err := e.guardPaused(); err != nil {
		return nil, err
	}
	if caller == ([20]byte{}) {
		return nil, fmt.Errorf("%w: zero caller", ErrInvalidInput)
	}
	return e.swapCallback(req, caller, caller)
}

func (e *Engine) swapCallback(req CallbackRequest, swapper, recipient [20]byte) (*SwapOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	revert := e.begin()
	outcome, err := e.swapCallbackLocked(req, swapper, recipient)
	if err != nil {
		revert()
		return nil, err
	}
	return outcome, nil
}

func (e *Engine) swapCallbackLocked(req CallbackRequest, swapper, recipient [20]byte) (*SwapOutcome, error) {
	if e.venues.Callback == nil {
		return nil, errNilVenue
	}
	if req.Amount == nil || req.Amount.Sign() == 0 {
		return nil, ErrZeroAmount
	}
	assetInID := req.InputAsset()
	if _, err := e.requireSupportedLocked(assetInID); err != nil {
		return nil, err
	}
	assetIn, err := e.asset(assetInID)
	if err != nil {
		return nil, err
	}
	magnitude := new(big.Int).Abs(req.Amount)
	if err := e.pullIn(assetIn, swapper, magnitude); err != nil {
		return nil, err
	}

	ctx := settlementContext{
		Token0:    req.Pool.Token0,
		Token1:    req.Pool.Token1,
		Fee:       req.Pool.Fee,
		AmountMag: magnitude,
		AmountNeg: req.Amount.Sign() < 0,
		IsToken1:  req.IsToken1,
		Swapper:   swapper,
		Recipient: recipient,
	}
	encoded, err := rlp.EncodeToBytes(&ctx)
	if err != nil {
		return nil, fmt.Errorf("router: encode settlement context: %w", err)
	}

	request := &settlementRequest{ctxHash: ethcrypto.Keccak256Hash(encoded)}
	e.inflightMu.Lock()
	e.nextRequestID++
	request.id = e.nextRequestID
	e.inflight = request
	e.inflightMu.Unlock()
	defer func() {
		e.inflightMu.Lock()
		e.inflight = nil
		e.inflightMu.Unlock()
	}()

	// The venue re-enters through OnSettlementRequired before this call
	// returns; all settlement happens there.
	if _, err := e.venues.Callback.RequestSwap(e, request.id, encoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSwapFailed, err)
	}
	if !request.settled || request.outcome == nil {
		return nil, fmt.Errorf("%w: venue returned without settling", ErrSwapFailed)
	}
	return request.outcome.Clone(), nil
}

// OnSettlementRequired is the reentrant settlement entry point invoked by the
// callback venue core mid-swap. It authenticates the caller, decodes the
// context encoded into the outer call, executes the pool-level swap, settles
// both legs against the venue core, collects the fee, pays the recipient, and
// returns the serialized raw delta pair.
func (e *Engine) OnSettlementRequired(caller [20]byte, id uint64, context []byte) ([]byte, error) {
	request, err := e.takeInflight(caller, id, context)
	if err != nil {
		return nil, err
	}

	var ctx settlementContext
	if err := rlp.DecodeBytes(context, &ctx); err != nil {
		return nil, fmt.Errorf("router: decode settlement context: %w", err)
	}

	delta0, delta1, err := e.venues.Callback.PoolSwap(ctx.poolKey(), ctx.signedAmount(), ctx.IsToken1)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSwapFailed, err)
	}
	if delta0 == nil || delta1 == nil {
		return nil, fmt.Errorf("%w: venue returned nil delta", ErrSwapFailed)
	}
	// Sign convention: a negative delta is owed to the core (the asset
	// sold), a positive delta is owed by the core (the asset bought).
	if delta0.Sign()*delta1.Sign() >= 0 {
		return nil, fmt.Errorf("%w: delta pair %s/%s has no in/out split", ErrSwapFailed, delta0, delta1)
	}

	assetInID, assetOutID := ctx.Token0, ctx.Token1
	owed, due := delta0, delta1
	if delta0.Sign() > 0 {
		assetInID, assetOutID = ctx.Token1, ctx.Token0
		owed, due = delta1, delta0
	}
	assetIn, err := e.asset(assetInID)
	if err != nil {
		return nil, err
	}
	assetOut, err := e.asset(assetOutID)
	if err != nil {
		return nil, err
	}

	amountIn := new(big.Int).Abs(owed)
	if err := e.payOut(assetIn, e.venues.CallbackAccount, amountIn); err != nil {
		return nil, err
	}
	received, err := e.measureDelta(assetOut, e.custody, func() error {
		if err := assetOut.TransferFrom(e.venues.CallbackAccount, e.custody, due); err != nil {
			return fmt.Errorf("router: pull from venue core: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	outcome, err := e.settleLocked(assetOut, assetInID, amountIn, assetOutID, received, ctx.Recipient, VenueCallback)
	if err != nil {
		return nil, err
	}
	request.settled = true
	request.outcome = outcome

	return encodeSettlementResult(delta0, delta1)
}

// takeInflight authenticates a settlement callback against the in-flight
// request: the caller must be the configured venue core, the id must match,
// the context must hash to the value recorded when the outer call was made,
// and the request must not have been settled already.
func (e *Engine) takeInflight(caller [20]byte, id uint64, context []byte) (*settlementRequest, error) {
	e.inflightMu.Lock()
	defer e.inflightMu.Unlock()
	if caller != e.venues.CallbackAccount || e.venues.CallbackAccount == ([20]byte{}) {
		return nil, fmt.Errorf("%w: caller %x is not the venue core", ErrReentrancyViolation, caller)
	}
	request := e.inflight
	if request == nil {
		return nil, fmt.Errorf("%w: no in-flight settlement", ErrReentrancyViolation)
	}
	if request.id != id {
		return nil, fmt.Errorf("%w: unknown settlement id %d", ErrReentrancyViolation, id)
	}
	if request.settled {
		return nil, fmt.Errorf("%w: settlement %d already executed", ErrReentrancyViolation, id)
	}
	if ethcrypto.Keccak256Hash(context) != request.ctxHash {
		return nil, fmt.Errorf("%w: settlement context mismatch", ErrReentrancyViolation)
	}
	return request, nil
}
