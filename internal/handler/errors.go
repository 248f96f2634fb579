package handler

import (
	"errors"
	"net/http"

	"github.com/mcardozo/papertrade/internal/domain"
)

// mapDomainError maps service errors to HTTP responses. The error kinds are
// the ones the trade orchestrator and account service surface; anything
// unrecognised becomes a 500 without leaking internals.
func mapDomainError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		WriteError(w, http.StatusNotFound, "account_not_found", err.Error())
	case errors.Is(err, domain.ErrAccountAlreadyExists):
		WriteError(w, http.StatusConflict, "account_already_exists", err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		WriteError(w, http.StatusTooManyRequests, "rate_limited", err.Error())
	case errors.Is(err, domain.ErrDuplicateInProgress):
		WriteError(w, http.StatusConflict, "duplicate_in_progress", err.Error())
	case errors.Is(err, domain.ErrTradeTooLarge):
		WriteError(w, http.StatusUnprocessableEntity, "trade_too_large", err.Error())
	case errors.Is(err, domain.ErrDailyLimitExceeded):
		WriteError(w, http.StatusTooManyRequests, "daily_limit_exceeded", err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds):
		WriteError(w, http.StatusConflict, "insufficient_funds", err.Error())
	case errors.Is(err, domain.ErrInsufficientShares):
		WriteError(w, http.StatusConflict, "insufficient_shares", err.Error())
	case errors.Is(err, domain.ErrQuoteUnavailable):
		WriteError(w, http.StatusBadGateway, "quote_unavailable", err.Error())
	case errors.Is(err, domain.ErrPersistenceFailure):
		WriteError(w, http.StatusInternalServerError, "persistence_failure",
			"The trade could not be committed; no changes were made. Safe to retry.")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
