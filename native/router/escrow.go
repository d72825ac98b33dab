package router

import (
	"fmt"
	"math/big"
)

// pullIn moves amount of the asset from the swapper into custody. Balance and
// allowance are checked up front so the precondition failures surface as
// typed errors rather than whatever the asset backend reports.
func (e *Engine) pullIn(asset Asset, from [20]byte, amount *big.Int) error {
	balance, err := asset.BalanceOf(from)
	if err != nil {
		return fmt.Errorf("router: balance of swapper: %w", err)
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, balance, amount)
	}
	allowance, err := asset.Allowance(from, e.custody)
	if err != nil {
		return fmt.Errorf("router: allowance of swapper: %w", err)
	}
	if allowance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientAllowance, allowance, amount)
	}
	if err := asset.TransferFrom(from, e.custody, amount); err != nil {
		return fmt.Errorf("router: pull in: %w", err)
	}
	return nil
}

// measureDelta snapshots the account's balance of the asset, runs the action,
// and returns the signed balance change. This is the canonical measure of
// every amount received from a venue; venue-reported figures are never
// trusted. The action may re-enter the engine's own entry points before
// returning (callback settlement).
func (e *Engine) measureDelta(asset Asset, account [20]byte, action func() error) (*big.Int, error) {
	pre, err := asset.BalanceOf(account)
	if err != nil {
		return nil, fmt.Errorf("router: pre-snapshot: %w", err)
	}
	pre = cloneBigInt(pre)
	if err := action(); err != nil {
		return nil, err
	}
	post, err := asset.BalanceOf(account)
	if err != nil {
		return nil, fmt.Errorf("router: post-snapshot: %w", err)
	}
	return new(big.Int).Sub(post, pre), nil
}

// payOut releases custody funds to the recipient.
func (e *Engine) payOut(asset Asset, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if err := asset.Transfer(e.custody, to, amount); err != nil {
		return fmt.Errorf("router: pay out: %w", err)
	}
	return nil
}
