package router

import (
	"fmt"
	"math/big"
)

var (
	bpsDivisor   = big.NewInt(10_000)
	fixedDivisor = big.NewInt(100)
)

// computeFee evaluates the active fee policy against the gross output
// amount. Fixed policies charge Bps hundredths of a whole unit of the output
// asset regardless of swap size; percentage policies charge Bps basis points
// of the gross amount.
func (e *Engine) computeFee(asset Asset, gross *big.Int, policy FeePolicy) (*big.Int, error) {
	switch policy.Kind {
	case FeePolicyFixed:
		decimals, err := asset.Decimals()
		if err != nil {
			return nil, fmt.Errorf("router: asset decimals: %w", err)
		}
		if decimals == 0 {
			return nil, ErrInvalidDecimals
		}
		unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
		fee := new(big.Int).Mul(big.NewInt(int64(policy.Bps)), unit)
		return fee.Div(fee, fixedDivisor), nil
	case FeePolicyPercentage:
		fee := new(big.Int).Mul(gross, big.NewInt(int64(policy.Bps)))
		return fee.Div(fee, bpsDivisor), nil
	default:
		return nil, fmt.Errorf("%w: unknown fee policy kind %d", ErrInvalidInput, policy.Kind)
	}
}

// collectFee computes the fee for the gross amount, transfers it from custody
// to the fees collector, and returns the net amount. A fee exceeding the
// gross amount aborts the swap; the percentage ceiling and policy validation
// are expected to prevent it, not runtime clamping.
func (e *Engine) collectFee(asset Asset, assetID [20]byte, gross *big.Int) (*big.Int, error) {
	policy := e.policy
	fee, err := e.computeFee(asset, gross, policy)
	if err != nil {
		return nil, err
	}
	if fee.Cmp(gross) > 0 {
		return nil, fmt.Errorf("router: fee %s exceeds gross amount %s for asset %x", fee, gross, assetID)
	}
	if fee.Sign() > 0 {
		if err := asset.Transfer(e.custody, e.collector, fee); err != nil {
			return nil, fmt.Errorf("router: collect fee: %w", err)
		}
	}
	return new(big.Int).Sub(gross, fee), nil
}
