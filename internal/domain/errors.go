package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrAccountAlreadyExists = errors.New("account_already_exists")
	ErrAccountNotFound      = errors.New("account_not_found")
	ErrHoldingNotFound      = errors.New("holding_not_found")
	ErrInsufficientFunds    = errors.New("insufficient_funds")
	ErrInsufficientShares   = errors.New("insufficient_shares")
	ErrRateLimited          = errors.New("rate_limited")
	ErrDuplicateInProgress  = errors.New("duplicate_in_progress")
	ErrTradeTooLarge        = errors.New("trade_too_large")
	ErrDailyLimitExceeded   = errors.New("daily_limit_exceeded")
	ErrQuoteUnavailable     = errors.New("quote_unavailable")
	ErrPersistenceFailure   = errors.New("persistence_failure")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
