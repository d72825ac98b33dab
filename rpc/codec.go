package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"

	nativecommon "swaprouter/native/common"
	"swaprouter/native/router"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// engineError maps engine sentinel failures onto HTTP statuses. Unknown
// errors surface as 500 without leaking internals.
func engineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, nativecommon.ErrModulePaused):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, router.ErrUnauthorizedCaller):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, router.ErrNotSupported), errors.Is(err, router.ErrOperatorMissing):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, router.ErrAlreadySupported), errors.Is(err, router.ErrOperatorExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, router.ErrZeroAmount),
		errors.Is(err, router.ErrInvalidInput),
		errors.Is(err, router.ErrInvalidDecimals),
		errors.Is(err, router.ErrUnsupportedAsset):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, router.ErrInsufficientBalance),
		errors.Is(err, router.ErrInsufficientAllowance),
		errors.Is(err, router.ErrSwapFailed),
		errors.Is(err, router.ErrReentrancyViolation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseAddress(raw string) ([20]byte, error) {
	raw = strings.TrimSpace(raw)
	if !ethcommon.IsHexAddress(raw) {
		return [20]byte{}, fmt.Errorf("invalid address %q", raw)
	}
	return ethcommon.HexToAddress(raw), nil
}

func parseFeed(raw string) ([32]byte, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	decoded, err := hex.DecodeString(raw)
	if err != nil || len(decoded) != 32 {
		return [32]byte{}, fmt.Errorf("feed id must be 32 bytes of hex")
	}
	var feed [32]byte
	copy(feed[:], decoded)
	return feed, nil
}

// parseAmount accepts a non-negative decimal string. Amounts ride as strings
// so callers keep full integer precision.
func parseAmount(raw string) (*big.Int, error) {
	value, err := parseSignedAmount(raw)
	if err != nil {
		return nil, err
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return value, nil
}

// parseSignedAmount admits negative values for the callback venue's signed
// amount convention.
func parseSignedAmount(raw string) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("amount required")
	}
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	return value, nil
}

func formatAddress(addr [20]byte) string {
	return ethcommon.Address(addr).Hex()
}

func hexEncode(b []byte) string {
	return hex.EncodeToString(b)
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

type outcomePayload struct {
	RequestID    string `json:"request_id,omitempty"`
	Venue        string `json:"venue"`
	AssetIn      string `json:"asset_in"`
	AmountIn     string `json:"amount_in"`
	AssetOut     string `json:"asset_out"`
	AmountOutNet string `json:"amount_out_net"`
	Beneficiary  string `json:"beneficiary"`
}

func outcomeResponse(requestID string, outcome *router.SwapOutcome) outcomePayload {
	return outcomePayload{
		RequestID:    requestID,
		Venue:        outcome.Venue,
		AssetIn:      formatAddress(outcome.AssetIn),
		AmountIn:     amountString(outcome.AmountIn),
		AssetOut:     formatAddress(outcome.AssetOut),
		AmountOutNet: amountString(outcome.AmountOutNet),
		Beneficiary:  formatAddress(outcome.Beneficiary),
	}
}
