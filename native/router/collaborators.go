package router

import "math/big"

// Asset is the fungible-asset capability consumed for every asset the router
// moves. Transfers name both accounts explicitly; TransferFrom additionally
// requires that the source account has approved the router's custody account
// for at least the transferred amount.
type Asset interface {
	Decimals() (uint8, error)
	BalanceOf(account [20]byte) (*big.Int, error)
	Allowance(owner, spender [20]byte) (*big.Int, error)
	Transfer(from, to [20]byte, amount *big.Int) error
	TransferFrom(from, to [20]byte, amount *big.Int) error
	Approve(owner, spender [20]byte, amount *big.Int) error
}

// AssetSource resolves asset capabilities by address. Backends holding real
// value must also implement SnapshotState: a failed swap can only roll back
// its escrowed pull-in through Snapshot/RevertToSnapshot, and without that
// capability funds pulled before a venue failure stay stranded in custody.
type AssetSource interface {
	Asset(id [20]byte) (Asset, error)
}

// SnapshotState is implemented by asset backends that support transactional
// rollback. Every swap entry point snapshots on entry and reverts all custody
// mutations on failure.
type SnapshotState interface {
	Snapshot() int
	RevertToSnapshot(id int)
}

// AccessAuthority gates privileged operations. Mutation of the operator set
// is owner-gated by the implementation.
type AccessAuthority interface {
	IsOwner(caller [20]byte) bool
	IsOperator(caller [20]byte) bool
	AddOperator(operator [20]byte) error
	RemoveOperator(operator [20]byte) error
}

// PriceOracle serves median prices for registered feed ids.
type PriceOracle interface {
	GetMedianPrice(feedID [32]byte) (price *big.Int, decimals uint32, err error)
}

// AggregatedRouteVenue executes a whole route in a single call and reports
// success as a boolean. Proceeds land in the beneficiary account it is given.
type AggregatedRouteVenue interface {
	ExecuteRoute(assetIn [20]byte, amountIn *big.Int, assetOut [20]byte, amountTarget, minAmountOut *big.Int, beneficiary [20]byte, integratorFeeBps uint16, integratorFeeRecipient [20]byte, routes []RouteHop) (bool, error)
}

// SplitRouteVenue executes a multi-hop swap. It has no boolean result;
// failure surfaces as its own error.
type SplitRouteVenue interface {
	ExecuteSplitSwap(params RouteParams, hops []SwapLeg) error
}

// SettlementClient is the callback surface this router exposes to the
// callback-settlement venue. The venue invokes it before RequestSwap returns.
type SettlementClient interface {
	OnSettlementRequired(caller [20]byte, id uint64, context []byte) ([]byte, error)
}

// CallbackSettlementVenue settles swaps through a reentrant callback: the
// outer RequestSwap call hands control to the venue core, which calls back
// into the client before returning. PoolSwap executes the pool-level trade
// and returns the signed delta pair; it is only meaningful inside the
// callback.
type CallbackSettlementVenue interface {
	RequestSwap(client SettlementClient, id uint64, context []byte) ([]byte, error)
	PoolSwap(key PoolKey, amount *big.Int, isToken1 bool) (delta0, delta1 *big.Int, err error)
}

// VenueSet binds the three venue capabilities together with the account each
// one spends approvals from or calls back as.
type VenueSet struct {
	Aggregated        AggregatedRouteVenue
	AggregatedAccount [20]byte
	Split             SplitRouteVenue
	SplitAccount      [20]byte
	Callback          CallbackSettlementVenue
	CallbackAccount   [20]byte
}
