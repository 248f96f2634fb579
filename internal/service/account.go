package service

import (
	"context"
	"regexp"
	"time"

	"github.com/mcardozo/papertrade/internal/domain"
	"github.com/mcardozo/papertrade/internal/marketdata"
	"github.com/mcardozo/papertrade/internal/store"
)

var userIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// OpenAccountRequest represents the input for account creation. A zero
// StartingCash means "use the configured default".
type OpenAccountRequest struct {
	UserID       string
	StartingCash float64
}

// PortfolioPosition is a single holding enriched with live market data.
// MarketValue and UnrealizedGain are nil when no quote is available.
type PortfolioPosition struct {
	Symbol         string
	Quantity       int64
	AverageCost    float64
	CostBasis      float64
	CurrentPrice   *float64
	MarketValue    *float64
	UnrealizedGain *float64
}

// Portfolio is the response for the portfolio endpoint.
type Portfolio struct {
	UserID    string
	Cash      float64
	Positions []PortfolioPosition
	AsOf      time.Time
}

// AccountService handles account opening and read paths: balance,
// portfolio, and transaction history.
type AccountService struct {
	store               store.TradeStore
	quotes              marketdata.Provider
	defaultStartingCash float64
}

// NewAccountService creates an AccountService with the given dependencies.
func NewAccountService(st store.TradeStore, quotes marketdata.Provider, defaultStartingCash float64) *AccountService {
	return &AccountService{
		store:               st,
		quotes:              quotes,
		defaultStartingCash: defaultStartingCash,
	}
}

// Open validates the request and creates an account. The starting balance
// is currency-rounded and immutable after creation.
func (s *AccountService) Open(ctx context.Context, req OpenAccountRequest) (*domain.Account, error) {
	if !userIDRegex.MatchString(req.UserID) {
		return nil, &domain.ValidationError{Message: "user_id must match ^[a-zA-Z0-9_-]{1,64}$"}
	}
	if req.StartingCash < 0 {
		return nil, &domain.ValidationError{Message: "starting_cash must be >= 0"}
	}

	cash := req.StartingCash
	if cash == 0 {
		cash = s.defaultStartingCash
	}
	cash = domain.RoundCurrency(cash)

	account := &domain.Account{
		UserID:       req.UserID,
		Cash:         cash,
		StartingCash: cash,
		CreatedAt:    time.Now(),
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Get retrieves the account for userID.
func (s *AccountService) Get(ctx context.Context, userID string) (*domain.Account, error) {
	return s.store.GetAccount(ctx, userID)
}

// GetPortfolio returns the account's cash and holdings, each valued against
// a live quote when one is available. A missing quote leaves the position's
// market fields nil rather than substituting a stale price.
func (s *AccountService) GetPortfolio(ctx context.Context, userID string) (*Portfolio, error) {
	account, err := s.store.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	holdings, err := s.store.ListHoldings(ctx, userID)
	if err != nil {
		return nil, err
	}

	positions := make([]PortfolioPosition, 0, len(holdings))
	for _, h := range holdings {
		pos := PortfolioPosition{
			Symbol:      h.Symbol,
			Quantity:    h.Quantity,
			AverageCost: h.AverageCost,
			CostBasis:   h.CostBasis(),
		}
		if quote, err := s.quotes.GetQuote(ctx, h.Symbol); err == nil {
			price := quote.Price
			value := domain.TotalCost(price, h.Quantity)
			gain := domain.RoundCurrency(value - pos.CostBasis)
			pos.CurrentPrice = &price
			pos.MarketValue = &value
			pos.UnrealizedGain = &gain
		}
		positions = append(positions, pos)
	}

	return &Portfolio{
		UserID:    userID,
		Cash:      account.Cash,
		Positions: positions,
		AsOf:      time.Now(),
	}, nil
}

// ListTransactions returns the account's transaction history, newest first.
func (s *AccountService) ListTransactions(ctx context.Context, userID string) ([]*domain.Transaction, error) {
	if _, err := s.store.GetAccount(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.ListTransactions(ctx, userID)
}
