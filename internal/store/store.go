// Package store persists accounts, holdings, and transaction records. Two
// implementations exist: a thread-safe in-memory store and a SQLite-backed
// store. Both commit a trade's cash update, holding upsert/delete, and
// transaction append as a single atomic unit.
package store

import (
	"context"

	"github.com/mcardozo/papertrade/internal/domain"
)

// TradeStore is the persistence contract consumed by the trade and account
// services.
type TradeStore interface {
	// CreateAccount inserts a new account. Returns
	// domain.ErrAccountAlreadyExists if the user already has one.
	CreateAccount(ctx context.Context, a *domain.Account) error

	// GetAccount retrieves an account by user ID. Returns
	// domain.ErrAccountNotFound if it does not exist.
	GetAccount(ctx context.Context, userID string) (*domain.Account, error)

	// GetHolding retrieves the holding for (user, symbol). Returns
	// domain.ErrHoldingNotFound if the user holds no shares of the symbol.
	GetHolding(ctx context.Context, userID, symbol string) (*domain.Holding, error)

	// ListHoldings returns all holdings for a user, sorted by symbol.
	ListHoldings(ctx context.Context, userID string) ([]*domain.Holding, error)

	// ListTransactions returns a user's transactions in reverse
	// chronological order (newest first).
	ListTransactions(ctx context.Context, userID string) ([]*domain.Transaction, error)

	// ApplyTrade commits the mutation atomically: the new cash balance, the
	// holding upsert or removal, and the transaction append land together
	// or not at all. Returns domain.ErrAccountNotFound if the account does
	// not exist.
	ApplyTrade(ctx context.Context, m *domain.TradeMutation) error
}
