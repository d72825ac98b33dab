package router

import (
	"fmt"
	"math/big"
)

// ValueInUSD returns the USD value of the supplied amount of the asset,
// computed as price * amount / 10^decimals from the oracle's median price.
// Read-only. Assets without a registered feed fail fast rather than querying
// the oracle with a zero feed id.
func (e *Engine) ValueInUSD(asset [20]byte, amount *big.Int) (*big.Int, error) {
	if e.oracle == nil {
		return nil, errNilOracle
	}
	e.mu.Lock()
	feed, err := e.requireSupportedLocked(asset)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	price, decimals, err := e.oracle.GetMedianPrice(feed)
	if err != nil {
		return nil, fmt.Errorf("router: oracle query: %w", err)
	}
	if price == nil {
		return nil, fmt.Errorf("router: oracle returned nil price")
	}
	value := new(big.Int).Mul(price, cloneBigInt(amount))
	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return value.Div(value, divisor), nil
}
