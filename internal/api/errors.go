package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"custody-capital-go/internal/models"
	"custody-capital-go/internal/store"

	"go.uber.org/zap"
)

type errorMapping struct {
	err    error
	code   string
	status int
}

var errorMappings = []errorMapping{
	{store.ErrNotFound, "not_found", http.StatusNotFound},
	{store.ErrUnauthorized, "unauthorized", http.StatusForbidden},
	{store.ErrParse, "parse_error", http.StatusBadRequest},
	{store.ErrBelowMinimum, "below_minimum", http.StatusUnprocessableEntity},
	{store.ErrInsufficientBalance, "insufficient_balance", http.StatusUnprocessableEntity},
	{store.ErrNothingToWithdraw, "nothing_to_withdraw", http.StatusUnprocessableEntity},
	{store.ErrAssetMismatch, "asset_mismatch", http.StatusUnprocessableEntity},
	{store.ErrDivisionByZero, "division_by_zero", http.StatusUnprocessableEntity},
	{store.ErrAmountOverflow, "amount_overflow", http.StatusUnprocessableEntity},
	{store.ErrInsufficientComputeBudget, "insufficient_compute_budget", http.StatusUnprocessableEntity},
	{store.ErrCapacityExceeded, "capacity_exceeded", http.StatusConflict},
	{store.ErrAlreadyWithdrawn, "already_withdrawn", http.StatusConflict},
	{store.ErrNotWithdrawn, "not_withdrawn", http.StatusConflict},
	{store.ErrMaturityGate, "not_matured", http.StatusConflict},
}

// classify maps an error onto an API code and HTTP status.
func classify(err error) (string, int) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.code, m.status
		}
	}
	return "internal_error", http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Warn("Failed to encode response", zap.Error(err))
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, err error) {
	code, status := classify(err)
	if status == http.StatusInternalServerError {
		zap.L().Error("Request failed", zap.Error(err))
	}
	writeJSON(w, status, models.ErrorResponse{
		Code:    code,
		Message: err.Error(),
		Time:    time.Now().UTC(),
	})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, models.ErrorResponse{
		Code:    "bad_request",
		Message: message,
		Time:    time.Now().UTC(),
	})
}
