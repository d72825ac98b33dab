package router

import "sync"

// Authority is the default AccessAuthority: a single owner plus a mutable
// operator set. Deployments with an external access-control system can
// substitute their own implementation.
type Authority struct {
	mu        sync.RWMutex
	owner     [20]byte
	operators map[[20]byte]struct{}
}

// NewAuthority constructs an authority owned by the supplied account.
func NewAuthority(owner [20]byte) *Authority {
	return &Authority{
		owner:     owner,
		operators: make(map[[20]byte]struct{}),
	}
}

// IsOwner implements AccessAuthority.
func (a *Authority) IsOwner(caller [20]byte) bool {
	if a == nil {
		return false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return caller == a.owner && caller != ([20]byte{})
}

// IsOperator implements AccessAuthority.
func (a *Authority) IsOperator(caller [20]byte) bool {
	if a == nil {
		return false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.operators[caller]
	return ok
}

// AddOperator authorises a new operator. Adding an existing operator fails.
func (a *Authority) AddOperator(operator [20]byte) error {
	if a == nil {
		return ErrUnauthorizedCaller
	}
	if operator == ([20]byte{}) {
		return ErrInvalidInput
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.operators[operator]; ok {
		return ErrOperatorExists
	}
	a.operators[operator] = struct{}{}
	return nil
}

// RemoveOperator revokes an operator. Removing an absent operator fails.
func (a *Authority) RemoveOperator(operator [20]byte) error {
	if a == nil {
		return ErrUnauthorizedCaller
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.operators[operator]; !ok {
		return ErrOperatorMissing
	}
	delete(a.operators, operator)
	return nil
}
