package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mcardozo/papertrade/internal/domain"
)

func TestOpen_DefaultStartingCash(t *testing.T) {
	env := newTestEnv(t)

	a, err := env.accounts.Open(context.Background(), OpenAccountRequest{UserID: "u1"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if a.Cash != 10000 || a.StartingCash != 10000 {
		t.Errorf("account = %+v, want default starting cash 10000", a)
	}
}

func TestOpen_ExplicitStartingCashRounded(t *testing.T) {
	env := newTestEnv(t)

	a, err := env.accounts.Open(context.Background(), OpenAccountRequest{UserID: "u1", StartingCash: 5000.005})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if a.Cash != 5000.01 {
		t.Errorf("cash = %v, want 5000.01 after currency rounding", a.Cash)
	}
}

func TestOpen_DuplicateUser(t *testing.T) {
	env := newTestEnv(t)
	env.openAccount(t, "u1")

	_, err := env.accounts.Open(context.Background(), OpenAccountRequest{UserID: "u1"})
	if !errors.Is(err, domain.ErrAccountAlreadyExists) {
		t.Errorf("error = %v, want ErrAccountAlreadyExists", err)
	}
}

func TestOpen_InvalidRequests(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		req  OpenAccountRequest
	}{
		{"empty user id", OpenAccountRequest{UserID: ""}},
		{"user id with spaces", OpenAccountRequest{UserID: "bad user"}},
		{"user id too long", OpenAccountRequest{UserID: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"}},
		{"negative starting cash", OpenAccountRequest{UserID: "u1", StartingCash: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.accounts.Open(context.Background(), tt.req)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("error = %v, want ValidationError", err)
			}
		})
	}
}

func TestGet_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.accounts.Get(context.Background(), "nobody")
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("error = %v, want ErrAccountNotFound", err)
	}
}

func TestGetPortfolio_ValuesPositionsAgainstQuotes(t *testing.T) {
	env := newTestEnv(t)
	env.openAccount(t, "u1")
	ctx := context.Background()

	if _, err := env.trades.ExecuteTrade(ctx, TradeRequest{UserID: "u1", Symbol: "AAPL", Side: domain.TradeSideBuy, Quantity: 10}); err != nil {
		t.Fatalf("buy: %v", err)
	}

	env.quotes.SetPrice("AAPL", 170.00)
	p, err := env.accounts.GetPortfolio(ctx, "u1")
	if err != nil {
		t.Fatalf("GetPortfolio: %v", err)
	}
	if p.Cash != 8500.00 {
		t.Errorf("cash = %v, want 8500.00", p.Cash)
	}
	if len(p.Positions) != 1 {
		t.Fatalf("got %d positions, want 1", len(p.Positions))
	}

	pos := p.Positions[0]
	if pos.Symbol != "AAPL" || pos.Quantity != 10 || pos.CostBasis != 1500.00 {
		t.Errorf("position = %+v", pos)
	}
	if pos.CurrentPrice == nil || *pos.CurrentPrice != 170.00 {
		t.Errorf("current price = %v, want 170.00", pos.CurrentPrice)
	}
	if pos.MarketValue == nil || *pos.MarketValue != 1700.00 {
		t.Errorf("market value = %v, want 1700.00", pos.MarketValue)
	}
	if pos.UnrealizedGain == nil || *pos.UnrealizedGain != 200.00 {
		t.Errorf("unrealized gain = %v, want 200.00", pos.UnrealizedGain)
	}
}

func TestGetPortfolio_MissingQuoteLeavesMarketFieldsNil(t *testing.T) {
	env := newTestEnv(t)
	env.openAccount(t, "u1")
	ctx := context.Background()

	env.quotes.SetPrice("DLST", 50.00)
	if _, err := env.trades.ExecuteTrade(ctx, TradeRequest{UserID: "u1", Symbol: "DLST", Side: domain.TradeSideBuy, Quantity: 2}); err != nil {
		t.Fatalf("buy: %v", err)
	}

	// The symbol drops off the feed after the buy.
	env.quotes.SetPrice("DLST", 0)
	p, err := env.accounts.GetPortfolio(ctx, "u1")
	if err != nil {
		t.Fatalf("GetPortfolio: %v", err)
	}

	pos := p.Positions[0]
	if pos.CurrentPrice != nil || pos.MarketValue != nil || pos.UnrealizedGain != nil {
		t.Errorf("market fields should be nil without a quote: %+v", pos)
	}
	if pos.CostBasis != 100.00 {
		t.Errorf("cost basis = %v, want 100.00 (independent of quotes)", pos.CostBasis)
	}
}

func TestGetPortfolio_UnknownAccount(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.accounts.GetPortfolio(context.Background(), "nobody")
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("error = %v, want ErrAccountNotFound", err)
	}
}

func TestListTransactions_UnknownAccount(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.accounts.ListTransactions(context.Background(), "nobody")
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("error = %v, want ErrAccountNotFound", err)
	}
}

func TestListTransactions_OrderedNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	env.openAccount(t, "u1")
	ctx := context.Background()

	for q := int64(1); q <= 3; q++ {
		env.now = env.now.Add(3 * time.Second)
		if _, err := env.trades.ExecuteTrade(ctx, TradeRequest{UserID: "u1", Symbol: "AAPL", Side: domain.TradeSideBuy, Quantity: q}); err != nil {
			t.Fatalf("trade %d: %v", q, err)
		}
	}

	txns, err := env.accounts.ListTransactions(ctx, "u1")
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txns) != 3 {
		t.Fatalf("got %d transactions, want 3", len(txns))
	}
	if txns[0].Quantity != 3 || txns[2].Quantity != 1 {
		t.Errorf("transactions not newest first: quantities %d, %d, %d", txns[0].Quantity, txns[1].Quantity, txns[2].Quantity)
	}
}
