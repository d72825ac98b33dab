package router

import "errors"

var (
	// ErrUnauthorizedCaller indicates the caller lacks the role required by
	// the invoked operation.
	ErrUnauthorizedCaller = errors.New("router: unauthorized caller")
	// ErrUnsupportedAsset indicates the asset is absent from the allow-list.
	ErrUnsupportedAsset = errors.New("router: unsupported asset")
	// ErrZeroAmount indicates the requested swap amount is zero.
	ErrZeroAmount = errors.New("router: zero amount")
	// ErrInsufficientBalance indicates the swapper cannot cover the pull-in.
	ErrInsufficientBalance = errors.New("router: insufficient balance")
	// ErrInsufficientAllowance indicates the swapper's approval to the router
	// does not cover the pull-in.
	ErrInsufficientAllowance = errors.New("router: insufficient allowance")
	// ErrSwapFailed indicates the venue reported failure or delivered less
	// than the caller's minimum.
	ErrSwapFailed = errors.New("router: swap failed")
	// ErrInvalidInput indicates a malformed administrative request.
	ErrInvalidInput = errors.New("router: invalid input")
	// ErrAlreadySupported indicates the asset is already registered.
	ErrAlreadySupported = errors.New("router: asset already supported")
	// ErrNotSupported indicates the asset is not currently registered.
	ErrNotSupported = errors.New("router: asset not supported")
	// ErrInvalidDecimals indicates the output asset reports zero decimals.
	ErrInvalidDecimals = errors.New("router: invalid asset decimals")
	// ErrReentrancyViolation indicates a settlement callback arrived from an
	// unrecognised caller or outside an in-flight request.
	ErrReentrancyViolation = errors.New("router: reentrancy violation")
	// ErrOperatorExists indicates the operator is already authorised.
	ErrOperatorExists = errors.New("router: operator already authorized")
	// ErrOperatorMissing indicates the operator is not currently authorised.
	ErrOperatorMissing = errors.New("router: operator not authorized")
)
