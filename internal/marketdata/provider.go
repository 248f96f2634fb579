// Package marketdata supplies live price quotes for trade execution and
// portfolio valuation.
package marketdata

import (
	"context"

	"github.com/mcardozo/papertrade/internal/domain"
)

// Provider abstracts the market-data collaborator. Implementations must
// never return a zero or stale price as a success: a quote that cannot be
// produced is an error, which the trade orchestrator refuses to execute on.
type Provider interface {
	// GetQuote returns the current price for a symbol, or an error wrapping
	// domain.ErrQuoteUnavailable when no valid price can be supplied.
	GetQuote(ctx context.Context, symbol string) (*domain.Quote, error)
}
