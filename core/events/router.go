package events

import (
	"math/big"
	"strconv"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

const (
	// TypeSwapSuccessful is emitted once per settled swap, whichever venue
	// executed it.
	TypeSwapSuccessful = "router.swap.successful"
	// TypeFeePolicyChanged is emitted when the owner replaces the fee policy.
	TypeFeePolicyChanged = "router.policy.updated"
	// TypeAssetRegistered is emitted when an asset joins the allow-list.
	TypeAssetRegistered = "router.asset.registered"
	// TypeAssetDeregistered is emitted when an asset leaves the allow-list.
	TypeAssetDeregistered = "router.asset.removed"
	// TypeOperatorAdded is emitted when the owner authorises an operator.
	TypeOperatorAdded = "router.operator.added"
	// TypeOperatorRemoved is emitted when the owner revokes an operator.
	TypeOperatorRemoved = "router.operator.removed"
	// TypePauseChanged is emitted when the owner pauses or resumes swaps.
	TypePauseChanged = "router.pause.changed"
)

func addressString(addr [20]byte) string {
	return ethcommon.BytesToAddress(addr[:]).Hex()
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// SwapSuccessful records the settled legs of a completed swap. Fee is
// denominated in the output asset.
type SwapSuccessful struct {
	AssetIn      [20]byte
	AmountIn     *big.Int
	AssetOut     [20]byte
	AmountOutNet *big.Int
	Fee          *big.Int
	Beneficiary  [20]byte
	Venue        string
}

// EventType implements the Event interface.
func (SwapSuccessful) EventType() string { return TypeSwapSuccessful }

// Attributes implements the Event interface.
func (e SwapSuccessful) Attributes() map[string]string {
	return map[string]string{
		"assetIn":      addressString(e.AssetIn),
		"amountIn":     amountString(e.AmountIn),
		"assetOut":     addressString(e.AssetOut),
		"amountOutNet": amountString(e.AmountOutNet),
		"fee":          amountString(e.Fee),
		"beneficiary":  addressString(e.Beneficiary),
		"venue":        e.Venue,
	}
}

// FeePolicyChanged records the replacement fee policy.
type FeePolicyChanged struct {
	Kind string
	Bps  uint16
}

// EventType implements the Event interface.
func (FeePolicyChanged) EventType() string { return TypeFeePolicyChanged }

// Attributes implements the Event interface.
func (e FeePolicyChanged) Attributes() map[string]string {
	return map[string]string{
		"kind": e.Kind,
		"bps":  strconv.FormatUint(uint64(e.Bps), 10),
	}
}

// AssetRegistered records a new allow-listed asset and its price feed.
type AssetRegistered struct {
	Asset  [20]byte
	FeedID [32]byte
}

// EventType implements the Event interface.
func (AssetRegistered) EventType() string { return TypeAssetRegistered }

// Attributes implements the Event interface.
func (e AssetRegistered) Attributes() map[string]string {
	return map[string]string{
		"asset": addressString(e.Asset),
		"feed":  ethcommon.BytesToHash(e.FeedID[:]).Hex(),
	}
}

// AssetDeregistered records removal of an asset from the allow-list.
type AssetDeregistered struct {
	Asset [20]byte
}

// EventType implements the Event interface.
func (AssetDeregistered) EventType() string { return TypeAssetDeregistered }

// Attributes implements the Event interface.
func (e AssetDeregistered) Attributes() map[string]string {
	return map[string]string{"asset": addressString(e.Asset)}
}

// OperatorAdded records a newly authorised operator account.
type OperatorAdded struct {
	Operator [20]byte
}

// EventType implements the Event interface.
func (OperatorAdded) EventType() string { return TypeOperatorAdded }

// Attributes implements the Event interface.
func (e OperatorAdded) Attributes() map[string]string {
	return map[string]string{"operator": addressString(e.Operator)}
}

// OperatorRemoved records a revoked operator account.
type OperatorRemoved struct {
	Operator [20]byte
}

// EventType implements the Event interface.
func (OperatorRemoved) EventType() string { return TypeOperatorRemoved }

// Attributes implements the Event interface.
func (e OperatorRemoved) Attributes() map[string]string {
	return map[string]string{"operator": addressString(e.Operator)}
}

// PauseChanged records a pause-state transition for the swap entry points.
type PauseChanged struct {
	Paused bool
}

// EventType implements the Event interface.
func (PauseChanged) EventType() string { return TypePauseChanged }

// Attributes implements the Event interface.
func (e PauseChanged) Attributes() map[string]string {
	return map[string]string{"paused": strconv.FormatBool(e.Paused)}
}
