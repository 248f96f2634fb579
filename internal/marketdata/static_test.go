package marketdata

import (
	"context"
	"errors"
	"testing"

	"github.com/mcardozo/papertrade/internal/domain"
)

func TestStaticProvider_GetQuote(t *testing.T) {
	p := NewStaticProvider(map[string]float64{"AAPL": 178.50})

	q, err := p.GetQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("GetQuote: %v", err)
	}
	if q.Symbol != "AAPL" || q.Price != 178.50 {
		t.Errorf("quote = %+v, want AAPL at 178.50", q)
	}
}

func TestStaticProvider_UnknownSymbol(t *testing.T) {
	p := NewStaticProvider(nil)

	_, err := p.GetQuote(context.Background(), "NOPE")
	if !errors.Is(err, domain.ErrQuoteUnavailable) {
		t.Errorf("error = %v, want ErrQuoteUnavailable", err)
	}
}

func TestStaticProvider_InvalidPriceRejected(t *testing.T) {
	p := NewStaticProvider(map[string]float64{"BAD": 0})

	_, err := p.GetQuote(context.Background(), "BAD")
	if !errors.Is(err, domain.ErrQuoteUnavailable) {
		t.Errorf("error = %v, want ErrQuoteUnavailable for zero price", err)
	}
}

func TestStaticProvider_SetPrice(t *testing.T) {
	p := NewStaticProvider(map[string]float64{"AAPL": 178.50})
	p.SetPrice("AAPL", 180.25)

	q, err := p.GetQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("GetQuote: %v", err)
	}
	if q.Price != 180.25 {
		t.Errorf("price = %v, want updated 180.25", q.Price)
	}
}
