package router

import "math/big"

// Venue labels recorded on swap outcomes and audit rows.
const (
	VenueAggregated = "aggregated"
	VenueSplit      = "split"
	VenueCallback   = "callback"
)

// FeePolicyKind discriminates the two supported fee computation strategies.
type FeePolicyKind uint8

const (
	// FeePolicyFixed charges a size-independent fee expressed in hundredths
	// of a whole unit of the output asset.
	FeePolicyFixed FeePolicyKind = iota
	// FeePolicyPercentage charges a basis-point share of the gross proceeds.
	FeePolicyPercentage
)

// MaxPercentageFeeBps caps percentage policies at 3%.
const MaxPercentageFeeBps = 300

// FeePolicy is the tagged fee configuration. For Fixed policies Bps holds the
// hundredths-of-a-unit amount; for Percentage policies it holds basis points.
type FeePolicy struct {
	Kind FeePolicyKind
	Bps  uint16
}

// String returns the policy kind label used in events and config.
func (p FeePolicy) String() string {
	if p.Kind == FeePolicyPercentage {
		return "percentage"
	}
	return "fixed"
}

// RouteHop names one hop of an aggregated route: the pool to trade through
// and the asset that leaves it.
type RouteHop struct {
	Pool     [20]byte
	AssetOut [20]byte
}

// AggregatedRouteRequest describes a swap dispatched through the aggregated
// route venue.
type AggregatedRouteRequest struct {
	Swapper                [20]byte
	AssetIn                [20]byte
	AmountIn               *big.Int
	AssetOut               [20]byte
	MinAmountOut           *big.Int
	Beneficiary            [20]byte
	IntegratorFeeBps       uint16
	IntegratorFeeRecipient [20]byte
	Routes                 []RouteHop
}

// RouteParams carries the shared parameters of a split-route swap. The venue
// pays proceeds directly to Destination, so callers must name the router's
// custody account.
type RouteParams struct {
	AssetIn     [20]byte
	AmountIn    *big.Int
	AssetOut    [20]byte
	Destination [20]byte
}

// SwapLeg describes one hop of a split-route swap.
type SwapLeg struct {
	Pool     [20]byte
	AssetIn  [20]byte
	AssetOut [20]byte
}

// SplitRouteRequest describes a swap dispatched through the split-route
// venue.
type SplitRouteRequest struct {
	Swapper     [20]byte
	Params      RouteParams
	Hops        []SwapLeg
	Beneficiary [20]byte
}

// PoolKey identifies an AMM pool on the callback-settlement venue by its
// asset pair and fee tier.
type PoolKey struct {
	Token0 [20]byte
	Token1 [20]byte
	Fee    uint32
}

// CallbackRequest describes a swap settled through the reentrant callback
// venue. Amount is signed; its magnitude is the input size and its sign
// passes through to the pool-level swap. IsToken1 selects which side of the
// pool is the input asset. Swapper is only consulted on the operator-gated
// entry point; the manual entry point swaps for the caller.
type CallbackRequest struct {
	Pool     PoolKey
	Amount   *big.Int
	IsToken1 bool
	Swapper  [20]byte
}

// InputAsset resolves the pool side selected by the IsToken1 flag.
func (r CallbackRequest) InputAsset() [20]byte {
	if r.IsToken1 {
		return r.Pool.Token1
	}
	return r.Pool.Token0
}

// OutputAsset resolves the pool side opposite the input.
func (r CallbackRequest) OutputAsset() [20]byte {
	if r.IsToken1 {
		return r.Pool.Token0
	}
	return r.Pool.Token1
}

// SwapOutcome is the immutable record of a completed swap and the basis for
// the emitted event. Fee is the amount of the output asset routed to the
// fees collector; AmountOutNet + Fee equals the gross venue proceeds.
type SwapOutcome struct {
	AssetIn      [20]byte
	AmountIn     *big.Int
	AssetOut     [20]byte
	AmountOutNet *big.Int
	Fee          *big.Int
	Beneficiary  [20]byte
	Venue        string
}

// Clone returns a deep copy so callers cannot mutate shared big.Int values.
func (o *SwapOutcome) Clone() *SwapOutcome {
	if o == nil {
		return nil
	}
	clone := *o
	if o.AmountIn != nil {
		clone.AmountIn = new(big.Int).Set(o.AmountIn)
	}
	if o.AmountOutNet != nil {
		clone.AmountOutNet = new(big.Int).Set(o.AmountOutNet)
	}
	if o.Fee != nil {
		clone.Fee = new(big.Int).Set(o.Fee)
	}
	return &clone
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
