package router

import (
	"errors"
	"fmt"
	"sync"

	"swaprouter/core/events"
	nativecommon "swaprouter/native/common"
)

const pauseModule = "router"

var (
	errNilState     = errors.New("router: asset state not configured")
	errNilAuthority = errors.New("router: access authority not configured")
	errNilOracle    = errors.New("router: price oracle not configured")
	errNilVenue     = errors.New("router: venue not configured")
)

// ErrPaused is returned by swap entry points while the router is paused.
var ErrPaused = nativecommon.ErrModulePaused

// Engine orchestrates swap validation, escrow, venue dispatch, fee
// collection, and settlement. All operations serialise on an internal mutex;
// the only reentrant path is the settlement callback, which executes inside
// an in-flight swap and therefore inside the outer operation's critical
// section.
type Engine struct {
	mu sync.Mutex

	state     AssetSource
	authority AccessAuthority
	oracle    PriceOracle
	venues    VenueSet
	emitter   events.Emitter
	pauses    *nativecommon.PauseSet

	custody   [20]byte
	collector [20]byte
	policy    FeePolicy

	// asset address -> price feed id; zero feed id means unsupported.
	assets map[[20]byte][32]byte

	inflightMu    sync.Mutex
	inflight      *settlementRequest
	nextRequestID uint64
}

// NewEngine creates a router engine bound to the supplied custody account,
// with a no-op emitter and a Fixed zero fee policy. Collaborators are wired
// through the setters.
func NewEngine(custody [20]byte) *Engine {
	return &Engine{
		custody: custody,
		emitter: events.NoopEmitter{},
		pauses:  nativecommon.NewPauseSet(),
		assets:  make(map[[20]byte][32]byte),
	}
}

// SetState configures the asset backend used for custody accounting.
func (e *Engine) SetState(state AssetSource) { e.state = state }

// SetAuthority configures the access-control collaborator.
func (e *Engine) SetAuthority(authority AccessAuthority) { e.authority = authority }

// SetOracle configures the price oracle used by USD valuation queries.
func (e *Engine) SetOracle(oracle PriceOracle) { e.oracle = oracle }

// SetVenues configures the three venue capabilities.
func (e *Engine) SetVenues(venues VenueSet) { e.venues = venues }

// SetFeesCollector configures the account receiving collected fees.
func (e *Engine) SetFeesCollector(collector [20]byte) { e.collector = collector }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Custody returns the router's own custody account.
func (e *Engine) Custody() [20]byte { return e.custody }

func (e *Engine) emit(ev events.Event) {
	if e == nil || e.emitter == nil || ev == nil {
		return
	}
	e.emitter.Emit(ev)
}

func (e *Engine) requireOwner(caller [20]byte) error {
	if e.authority == nil {
		return errNilAuthority
	}
	if !e.authority.IsOwner(caller) {
		return ErrUnauthorizedCaller
	}
	return nil
}

func (e *Engine) requireOperator(caller [20]byte) error {
	if e.authority == nil {
		return errNilAuthority
	}
	if !e.authority.IsOperator(caller) {
		return ErrUnauthorizedCaller
	}
	return nil
}

// begin opens a rollback scope when the asset backend supports snapshots.
// The returned function reverts every custody mutation made since the call.
// begin opens a rollback scope for one swap. Backends that do not implement
// SnapshotState get a no-op revert and forfeit the all-or-nothing guarantee;
// see the AssetSource contract.
func (e *Engine) begin() func() {
	if snap, ok := e.state.(SnapshotState); ok {
		id := snap.Snapshot()
		return func() { snap.RevertToSnapshot(id) }
	}
	return func() {}
}

func (e *Engine) asset(id [20]byte) (Asset, error) {
	if e.state == nil {
		return nil, errNilState
	}
	asset, err := e.state.Asset(id)
	if err != nil {
		return nil, fmt.Errorf("router: resolve asset %x: %w", id, err)
	}
	return asset, nil
}

// SetFeePolicy replaces the fee policy. Percentage policies above the 3%
// ceiling are rejected.
func (e *Engine) SetFeePolicy(caller [20]byte, policy FeePolicy) error {
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if policy.Kind == FeePolicyPercentage && policy.Bps > MaxPercentageFeeBps {
		return fmt.Errorf("%w: percentage fee %d bps exceeds ceiling %d", ErrInvalidInput, policy.Bps, MaxPercentageFeeBps)
	}
	e.mu.Lock()
	e.policy = policy
	e.mu.Unlock()
	e.emit(events.FeePolicyChanged{Kind: policy.String(), Bps: policy.Bps})
	return nil
}

// FeePolicy returns the active fee policy.
func (e *Engine) FeePolicy() FeePolicy {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.policy
}

// RegisterAsset adds an asset to the allow-list with its price feed id.
func (e *Engine) RegisterAsset(caller [20]byte, asset [20]byte, feedID [32]byte) error {
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registerAssetLocked(asset, feedID)
}

// RegisterAssets adds a batch of assets with pairwise feed ids. Mismatched
// array lengths are rejected before any mutation.
func (e *Engine) RegisterAssets(caller [20]byte, assets [][20]byte, feedIDs [][32]byte) error {
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if len(assets) != len(feedIDs) {
		return fmt.Errorf("%w: %d assets with %d feed ids", ErrInvalidInput, len(assets), len(feedIDs))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range assets {
		if err := e.registerAssetLocked(assets[i], feedIDs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) registerAssetLocked(asset [20]byte, feedID [32]byte) error {
	if feedID == ([32]byte{}) {
		return fmt.Errorf("%w: empty feed id", ErrInvalidInput)
	}
	if _, ok := e.assets[asset]; ok {
		return ErrAlreadySupported
	}
	e.assets[asset] = feedID
	e.emit(events.AssetRegistered{Asset: asset, FeedID: feedID})
	return nil
}

// DeregisterAsset removes an asset from the allow-list.
func (e *Engine) DeregisterAsset(caller [20]byte, asset [20]byte) error {
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.assets[asset]; !ok {
		return ErrNotSupported
	}
	delete(e.assets, asset)
	e.emit(events.AssetDeregistered{Asset: asset})
	return nil
}

// IsSupported reports whether the asset is allow-listed and returns its feed
// id when it is.
func (e *Engine) IsSupported(asset [20]byte) (bool, [32]byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	feed, ok := e.assets[asset]
	return ok, feed
}

func (e *Engine) requireSupportedLocked(asset [20]byte) ([32]byte, error) {
	feed, ok := e.assets[asset]
	if !ok {
		return [32]byte{}, fmt.Errorf("%w: %x", ErrUnsupportedAsset, asset)
	}
	return feed, nil
}

// AddOperator authorises an operator account. Owner-gated.
func (e *Engine) AddOperator(caller [20]byte, operator [20]byte) error {
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if err := e.authority.AddOperator(operator); err != nil {
		return err
	}
	e.emit(events.OperatorAdded{Operator: operator})
	return nil
}

// RemoveOperator revokes an operator account. Owner-gated.
func (e *Engine) RemoveOperator(caller [20]byte, operator [20]byte) error {
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if err := e.authority.RemoveOperator(operator); err != nil {
		return err
	}
	e.emit(events.OperatorRemoved{Operator: operator})
	return nil
}

// SetPaused pauses or resumes the swap entry points. Owner-gated.
// Administrative operations remain available while paused.
func (e *Engine) SetPaused(caller [20]byte, paused bool) error {
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	e.pauses.SetPaused(pauseModule, paused)
	e.emit(events.PauseChanged{Paused: paused})
	return nil
}

// Paused reports whether the swap entry points are paused.
func (e *Engine) Paused() bool {
	return e.pauses.IsPaused(pauseModule)
}

func (e *Engine) guardPaused() error {
	return nativecommon.Guard(e.pauses, pauseModule)
}
