package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"lendbridge/crypto"
	"lendbridge/native/bridge"
	nativecommon "lendbridge/native/common"
	"lendbridge/native/oracle"
	"lendbridge/native/pool"
	"lendbridge/native/token"
)

const requestBodyLimit = 1 << 20 // 1 MiB

func decodeRequest(r *http.Request, out interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, requestBodyLimit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

func parseAddress(value string) (crypto.Address, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return crypto.Address{}, errors.New("address required")
	}
	return crypto.DecodeAddress(trimmed)
}

func parseAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, errors.New("amount required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("malformed amount %q", value)
	}
	return amount, nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeEngineError maps engine sentinel errors onto HTTP statuses. Unknown
// errors surface as 500 without leaking internals.
func writeEngineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, nativecommon.ErrModulePaused):
		status = http.StatusServiceUnavailable
	case errors.Is(err, oracle.ErrUnauthorized),
		errors.Is(err, pool.ErrUnauthorized),
		errors.Is(err, bridge.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, oracle.ErrInvalidInput),
		errors.Is(err, pool.ErrInvalidInput),
		errors.Is(err, bridge.ErrInvalidInput),
		errors.Is(err, token.ErrInvalidAmount),
		errors.Is(err, bridge.ErrInvalidProof):
		status = http.StatusBadRequest
	case errors.Is(err, oracle.ErrTooSoon):
		status = http.StatusTooManyRequests
	case errors.Is(err, oracle.ErrPriceInactive),
		errors.Is(err, pool.ErrEmptyPosition),
		errors.Is(err, bridge.ErrNoActiveOffer),
		errors.Is(err, bridge.ErrNoActiveRequest):
		status = http.StatusNotFound
	case errors.Is(err, pool.ErrPositionLocked),
		errors.Is(err, pool.ErrAlreadyLocked),
		errors.Is(err, pool.ErrNotLocked),
		errors.Is(err, bridge.ErrAlreadyExists),
		errors.Is(err, bridge.ErrAlreadyVerified),
		errors.Is(err, bridge.ErrAmountMismatch),
		errors.Is(err, bridge.ErrInvalidState),
		errors.Is(err, bridge.ErrNoOverlap):
		status = http.StatusConflict
	case errors.Is(err, pool.ErrInsufficientFunds),
		errors.Is(err, pool.ErrInsufficientCollateral),
		errors.Is(err, bridge.ErrInsufficientBalance),
		errors.Is(err, token.ErrInsufficientBalance),
		errors.Is(err, token.ErrInsufficientAllowance):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, pool.ErrTransferFailed):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
