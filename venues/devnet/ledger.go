// Package devnet provides an in-memory asset backend, a static price oracle,
// and toy implementations of the three venue protocols. It backs local runs
// of swaprouterd and end-to-end tests; production deployments substitute real
// venue adapters.
package devnet

import (
	"fmt"
	"math/big"

	"swaprouter/native/router"
)

type token struct {
	decimals   uint8
	balances   map[[20]byte]*big.Int
	allowances map[[20]byte]map[[20]byte]*big.Int
}

func newToken(decimals uint8) *token {
	return &token{
		decimals:   decimals,
		balances:   make(map[[20]byte]*big.Int),
		allowances: make(map[[20]byte]map[[20]byte]*big.Int),
	}
}

func (t *token) balance(account [20]byte) *big.Int {
	if bal, ok := t.balances[account]; ok {
		return bal
	}
	return big.NewInt(0)
}

func (t *token) clone() *token {
	clone := newToken(t.decimals)
	for account, bal := range t.balances {
		clone.balances[account] = new(big.Int).Set(bal)
	}
	for owner, grants := range t.allowances {
		clone.allowances[owner] = make(map[[20]byte]*big.Int, len(grants))
		for spender, amt := range grants {
			clone.allowances[owner][spender] = new(big.Int).Set(amt)
		}
	}
	return clone
}

// Decimals implements router.Asset.
func (t *token) Decimals() (uint8, error) { return t.decimals, nil }

// BalanceOf implements router.Asset.
func (t *token) BalanceOf(account [20]byte) (*big.Int, error) {
	return new(big.Int).Set(t.balance(account)), nil
}

// Allowance implements router.Asset.
func (t *token) Allowance(owner, spender [20]byte) (*big.Int, error) {
	if granted, ok := t.allowances[owner][spender]; ok {
		return new(big.Int).Set(granted), nil
	}
	return big.NewInt(0), nil
}

// Transfer implements router.Asset.
func (t *token) Transfer(from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("devnet: invalid transfer amount")
	}
	if t.balance(from).Cmp(amount) < 0 {
		return fmt.Errorf("devnet: balance too low")
	}
	t.balances[from] = new(big.Int).Sub(t.balance(from), amount)
	t.balances[to] = new(big.Int).Add(t.balance(to), amount)
	return nil
}

// TransferFrom implements router.Asset. The allowance consumed is the one the
// source account granted to the destination.
func (t *token) TransferFrom(from, to [20]byte, amount *big.Int) error {
	granted, ok := t.allowances[from][to]
	if !ok || granted.Cmp(amount) < 0 {
		return fmt.Errorf("devnet: allowance too low")
	}
	if err := t.Transfer(from, to, amount); err != nil {
		return err
	}
	t.allowances[from][to] = new(big.Int).Sub(granted, amount)
	return nil
}

// Approve implements router.Asset.
func (t *token) Approve(owner, spender [20]byte, amount *big.Int) error {
	if t.allowances[owner] == nil {
		t.allowances[owner] = make(map[[20]byte]*big.Int)
	}
	t.allowances[owner][spender] = new(big.Int).Set(amount)
	return nil
}

// Ledger is the in-memory asset backend. It satisfies router.AssetSource and
// the optional snapshot interface, so engine operations roll back cleanly.
type Ledger struct {
	tokens    map[[20]byte]*token
	snapshots []map[[20]byte]*token
}

// NewLedger constructs an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{tokens: make(map[[20]byte]*token)}
}

// CreateAsset registers a new token with the supplied decimals.
func (l *Ledger) CreateAsset(id [20]byte, decimals uint8) error {
	if _, ok := l.tokens[id]; ok {
		return fmt.Errorf("devnet: asset %x exists", id)
	}
	l.tokens[id] = newToken(decimals)
	return nil
}

// Mint credits an account with new supply.
func (l *Ledger) Mint(asset, account [20]byte, amount *big.Int) error {
	token, ok := l.tokens[asset]
	if !ok {
		return fmt.Errorf("devnet: unknown asset %x", asset)
	}
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("devnet: invalid mint amount")
	}
	token.balances[account] = new(big.Int).Add(token.balance(account), amount)
	return nil
}

// Asset implements router.AssetSource.
func (l *Ledger) Asset(id [20]byte) (router.Asset, error) {
	token, ok := l.tokens[id]
	if !ok {
		return nil, fmt.Errorf("devnet: unknown asset %x", id)
	}
	return token, nil
}

// Snapshot implements router.SnapshotState.
func (l *Ledger) Snapshot() int {
	copied := make(map[[20]byte]*token, len(l.tokens))
	for id, tok := range l.tokens {
		copied[id] = tok.clone()
	}
	l.snapshots = append(l.snapshots, copied)
	return len(l.snapshots) - 1
}

// RevertToSnapshot implements router.SnapshotState.
func (l *Ledger) RevertToSnapshot(id int) {
	if id < 0 || id >= len(l.snapshots) {
		return
	}
	l.tokens = l.snapshots[id]
	l.snapshots = l.snapshots[:id]
}

func (l *Ledger) spendAllowance(asset [20]byte, owner, spender [20]byte, amount *big.Int) error {
	token, ok := l.tokens[asset]
	if !ok {
		return fmt.Errorf("devnet: unknown asset %x", asset)
	}
	granted, ok := token.allowances[owner][spender]
	if !ok || granted.Cmp(amount) < 0 {
		return fmt.Errorf("devnet: allowance too low")
	}
	token.allowances[owner][spender] = new(big.Int).Sub(granted, amount)
	return token.Transfer(owner, spender, amount)
}

// StaticOracle serves fixed median prices per feed id.
type StaticOracle struct {
	prices map[[32]byte]OraclePrice
}

// OraclePrice is one configured price point.
type OraclePrice struct {
	Price    *big.Int
	Decimals uint32
}

// NewStaticOracle constructs an empty oracle.
func NewStaticOracle() *StaticOracle {
	return &StaticOracle{prices: make(map[[32]byte]OraclePrice)}
}

// SetPrice configures the median price for a feed.
func (o *StaticOracle) SetPrice(feedID [32]byte, price *big.Int, decimals uint32) {
	o.prices[feedID] = OraclePrice{Price: new(big.Int).Set(price), Decimals: decimals}
}

// GetMedianPrice implements router.PriceOracle.
func (o *StaticOracle) GetMedianPrice(feedID [32]byte) (*big.Int, uint32, error) {
	entry, ok := o.prices[feedID]
	if !ok {
		return nil, 0, fmt.Errorf("devnet: no price for feed %x", feedID)
	}
	return new(big.Int).Set(entry.Price), entry.Decimals, nil
}
