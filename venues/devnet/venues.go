package devnet

import (
	"fmt"
	"math/big"

	"swaprouter/native/router"
)

type ratePair struct {
	assetIn  [20]byte
	assetOut [20]byte
}

// RateTable fixes devnet exchange rates between asset pairs.
type RateTable struct {
	rates map[ratePair]*big.Rat
}

// NewRateTable constructs an empty rate table.
func NewRateTable() *RateTable {
	return &RateTable{rates: make(map[ratePair]*big.Rat)}
}

// SetRate fixes the assetIn -> assetOut conversion rate.
func (r *RateTable) SetRate(assetIn, assetOut [20]byte, numerator, denominator int64) {
	r.rates[ratePair{assetIn, assetOut}] = big.NewRat(numerator, denominator)
}

// Convert applies the configured rate, truncating toward zero.
func (r *RateTable) Convert(assetIn, assetOut [20]byte, amount *big.Int) (*big.Int, error) {
	rate, ok := r.rates[ratePair{assetIn, assetOut}]
	if !ok {
		return nil, fmt.Errorf("devnet: no rate for pair %x -> %x", assetIn, assetOut)
	}
	out := new(big.Int).Mul(amount, rate.Num())
	return out.Div(out, rate.Denom()), nil
}

// AggregatedVenue executes a whole route in one call against its own
// reserves at a fixed rate. It honours the minimum-amount argument by
// reporting failure when the rate cannot satisfy it.
type AggregatedVenue struct {
	ledger  *Ledger
	rates   *RateTable
	account [20]byte
}

// NewAggregatedVenue constructs the venue trading from the supplied reserve
// account.
func NewAggregatedVenue(ledger *Ledger, rates *RateTable, account [20]byte) *AggregatedVenue {
	return &AggregatedVenue{ledger: ledger, rates: rates, account: account}
}

// Account returns the venue's reserve account.
func (v *AggregatedVenue) Account() [20]byte { return v.account }

// ExecuteRoute implements router.AggregatedRouteVenue.
func (v *AggregatedVenue) ExecuteRoute(assetIn [20]byte, amountIn *big.Int, assetOut [20]byte, amountTarget, minAmountOut *big.Int, beneficiary [20]byte, integratorFeeBps uint16, integratorFeeRecipient [20]byte, routes []router.RouteHop) (bool, error) {
	out, err := v.rates.Convert(assetIn, assetOut, amountIn)
	if err != nil {
		return false, err
	}
	if minAmountOut != nil && out.Cmp(minAmountOut) < 0 {
		return false, nil
	}
	if err := v.ledger.spendAllowance(assetIn, beneficiary, v.account, amountIn); err != nil {
		return false, err
	}
	outToken, err := v.ledger.Asset(assetOut)
	if err != nil {
		return false, err
	}
	if err := outToken.Transfer(v.account, beneficiary, out); err != nil {
		return false, err
	}
	return true, nil
}

// SplitVenue executes multi-hop swaps against its reserves, paying proceeds
// to whatever destination the params name.
type SplitVenue struct {
	ledger  *Ledger
	rates   *RateTable
	account [20]byte
}

// NewSplitVenue constructs the venue trading from the supplied reserve
// account.
func NewSplitVenue(ledger *Ledger, rates *RateTable, account [20]byte) *SplitVenue {
	return &SplitVenue{ledger: ledger, rates: rates, account: account}
}

// Account returns the venue's reserve account.
func (v *SplitVenue) Account() [20]byte { return v.account }

// ExecuteSplitSwap implements router.SplitRouteVenue.
func (v *SplitVenue) ExecuteSplitSwap(params router.RouteParams, hops []router.SwapLeg) error {
	out, err := v.rates.Convert(params.AssetIn, params.AssetOut, params.AmountIn)
	if err != nil {
		return err
	}
	if err := v.ledger.spendAllowance(params.AssetIn, params.Destination, v.account, params.AmountIn); err != nil {
		return err
	}
	outToken, err := v.ledger.Asset(params.AssetOut)
	if err != nil {
		return err
	}
	return outToken.Transfer(v.account, params.Destination, out)
}

// CallbackVenue models the shared AMM core: RequestSwap re-enters the
// client's settlement callback before returning, and PoolSwap quotes the
// signed delta pair against the rate table.
type CallbackVenue struct {
	ledger  *Ledger
	rates   *RateTable
	account [20]byte
	custody [20]byte
}

// NewCallbackVenue constructs the venue core. The custody account is granted
// pull allowances for bought legs during PoolSwap.
func NewCallbackVenue(ledger *Ledger, rates *RateTable, account, custody [20]byte) *CallbackVenue {
	return &CallbackVenue{ledger: ledger, rates: rates, account: account, custody: custody}
}

// Account returns the venue core account.
func (v *CallbackVenue) Account() [20]byte { return v.account }

// RequestSwap implements router.CallbackSettlementVenue. The settlement
// callback runs before this call returns; its result payload carries the raw
// pool deltas the core uses to finalise accounting.
func (v *CallbackVenue) RequestSwap(client router.SettlementClient, id uint64, context []byte) ([]byte, error) {
	return client.OnSettlementRequired(v.account, id, context)
}

// PoolSwap implements router.CallbackSettlementVenue. The sold leg comes
// back negative, the bought leg positive.
func (v *CallbackVenue) PoolSwap(key router.PoolKey, amount *big.Int, isToken1 bool) (*big.Int, *big.Int, error) {
	if amount == nil || amount.Sign() == 0 {
		return nil, nil, fmt.Errorf("devnet: zero pool amount")
	}
	assetIn, assetOut := key.Token0, key.Token1
	if isToken1 {
		assetIn, assetOut = key.Token1, key.Token0
	}
	in := new(big.Int).Abs(amount)
	out, err := v.rates.Convert(assetIn, assetOut, in)
	if err != nil {
		return nil, nil, err
	}
	outToken, err := v.ledger.Asset(assetOut)
	if err != nil {
		return nil, nil, err
	}
	if balance, _ := outToken.BalanceOf(v.account); balance.Cmp(out) < 0 {
		return nil, nil, fmt.Errorf("devnet: pool reserves exhausted")
	}
	if err := outToken.Approve(v.account, v.custody, out); err != nil {
		return nil, nil, err
	}
	neg := new(big.Int).Neg(in)
	if isToken1 {
		return out, neg, nil
	}
	return neg, out, nil
}
