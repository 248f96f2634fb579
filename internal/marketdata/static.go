package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mcardozo/papertrade/internal/domain"
)

// Compile-time interface check.
var _ Provider = (*StaticProvider)(nil)

// StaticProvider serves quotes from an in-memory price table. Used in
// simulation mode and in tests, where prices are set explicitly rather than
// fetched from an upstream feed.
type StaticProvider struct {
	mu     sync.RWMutex
	prices map[string]float64
}

// NewStaticProvider creates a provider seeded with the given prices. A nil
// seed map is allowed.
func NewStaticProvider(seed map[string]float64) *StaticProvider {
	prices := make(map[string]float64, len(seed))
	for symbol, price := range seed {
		prices[symbol] = price
	}
	return &StaticProvider{prices: prices}
}

// SetPrice sets or updates the price for a symbol. Safe for concurrent use.
func (p *StaticProvider) SetPrice(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[symbol] = price
}

// GetQuote returns the table price for symbol.
func (p *StaticProvider) GetQuote(_ context.Context, symbol string) (*domain.Quote, error) {
	p.mu.RLock()
	price, ok := p.prices[symbol]
	p.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: no price for %s", domain.ErrQuoteUnavailable, symbol)
	}
	if !domain.ValidPrice(price) {
		return nil, fmt.Errorf("%w: invalid price %v for %s", domain.ErrQuoteUnavailable, price, symbol)
	}
	return &domain.Quote{Symbol: symbol, Price: price, AsOf: time.Now()}, nil
}
