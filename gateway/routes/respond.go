package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"prizepool/crypto"
	"prizepool/native/lottery"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	var br badRequestError
	if errors.As(err, &br) {
		return http.StatusBadRequest
	}
	switch {
	case errors.Is(err, lottery.ErrDrawNotFound):
		return http.StatusNotFound
	case errors.Is(err, lottery.ErrInvalidAmount),
		errors.Is(err, lottery.ErrZeroAddress),
		errors.Is(err, lottery.ErrSelfTransfer),
		errors.Is(err, lottery.ErrFeeTooHigh),
		errors.Is(err, lottery.ErrMaxStakeTooLow),
		errors.Is(err, lottery.ErrNoRandomWords):
		return http.StatusBadRequest
	case errors.Is(err, lottery.ErrInsufficientBalance),
		errors.Is(err, lottery.ErrMaxStakeExceeded):
		return http.StatusUnprocessableEntity
	case errors.Is(err, lottery.ErrAwardInProgress),
		errors.Is(err, lottery.ErrNoAwardInProgress),
		errors.Is(err, lottery.ErrEpochNotEnded),
		errors.Is(err, lottery.ErrEpochEnded),
		errors.Is(err, lottery.ErrDrawFinalized),
		errors.Is(err, lottery.ErrRequestMismatch),
		errors.Is(err, lottery.ErrGracePeriodActive):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type badRequestError struct{ msg string }

func (e badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return badRequestError{msg: fmt.Sprintf(format, args...)}
}

func decodeBody(r *http.Request, into any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(into); err != nil {
		return badRequest("decode request: %v", err)
	}
	return nil
}

func parseAddress(raw string) ([20]byte, error) {
	var addr [20]byte
	decoded, err := crypto.DecodeAddress(raw)
	if err != nil {
		return addr, badRequest("address %q: %v", raw, err)
	}
	if decoded.Prefix() != crypto.PoolPrefix {
		return addr, badRequest("address %q: prefix %q is not a pool address", raw, decoded.Prefix())
	}
	copy(addr[:], decoded.Bytes())
	return addr, nil
}

func parseAmount(raw string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, badRequest("amount %q is not a decimal integer", raw)
	}
	return amount, nil
}

func encodeAddress(addr [20]byte) string {
	return crypto.NewAddress(crypto.PoolPrefix, addr[:]).String()
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
