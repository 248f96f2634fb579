package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcardozo/papertrade/internal/domain"
	"github.com/mcardozo/papertrade/internal/guard"
	"github.com/mcardozo/papertrade/internal/marketdata"
	"github.com/mcardozo/papertrade/internal/store"
)

var tradeSymbolRegex = regexp.MustCompile(`^[A-Z]{1,10}$`)

// TradeRequest represents the input for trade execution. The user ID comes
// from the auth layer, never from the request body.
type TradeRequest struct {
	UserID   string
	Symbol   string
	Side     domain.TradeSide
	Quantity int64
}

// TradeService orchestrates trade execution: it composes the rate limiter,
// idempotency guard, daily quota, and value cap with the account/holding
// mutation, using a live quote from the market-data provider. A per-account
// lock enforces at most one trade in flight per account, so the read →
// compute → ApplyTrade sequence cannot lose updates.
type TradeService struct {
	store   store.TradeStore
	quotes  marketdata.Provider
	idem    *guard.Idempotency
	limiter *guard.Limiter
	quota   *guard.DailyQuota
	cap     *guard.ValueCap
	logger  *slog.Logger

	lockMu       sync.Mutex
	accountLocks map[string]*sync.Mutex

	now func() time.Time
}

// NewTradeService creates a TradeService wired with the given dependencies.
func NewTradeService(
	st store.TradeStore,
	quotes marketdata.Provider,
	idem *guard.Idempotency,
	limiter *guard.Limiter,
	quota *guard.DailyQuota,
	valueCap *guard.ValueCap,
	logger *slog.Logger,
) *TradeService {
	return &TradeService{
		store:        st,
		quotes:       quotes,
		idem:         idem,
		limiter:      limiter,
		quota:        quota,
		cap:          valueCap,
		logger:       logger,
		accountLocks: make(map[string]*sync.Mutex),
		now:          time.Now,
	}
}

// ExecuteTrade validates the request, runs the guard chain, and executes a
// BUY or SELL against the user's account. Every failure path leaves the
// account unchanged and resolves the idempotency entry, so no trade is ever
// left permanently pending.
func (s *TradeService) ExecuteTrade(ctx context.Context, req TradeRequest) (*domain.TradeResult, error) {
	// Validate the request shape before consuming any guard budget.
	if !tradeSymbolRegex.MatchString(req.Symbol) {
		return nil, &domain.ValidationError{Message: "symbol must match ^[A-Z]{1,10}$"}
	}
	if req.Side != domain.TradeSideBuy && req.Side != domain.TradeSideSell {
		return nil, &domain.ValidationError{Message: "side must be 'BUY' or 'SELL'"}
	}
	if !domain.ValidQuantity(req.Quantity) {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("quantity must be an integer between %d and %d", domain.MinQuantity, domain.MaxQuantity),
		}
	}

	now := s.now()

	if !s.limiter.Allow(req.UserID, now) {
		return nil, domain.ErrRateLimited
	}

	// Quote fetch happens after the rate limiter so rejected callers don't
	// consume upstream quota.
	quote, err := s.quotes.GetQuote(ctx, req.Symbol)
	if err != nil {
		return nil, err
	}
	if !domain.ValidPrice(quote.Price) {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("price %v for %s is outside the tradable range", quote.Price, req.Symbol),
		}
	}

	// Atomic duplicate check-and-claim. From here on the key must be
	// resolved before returning.
	key := s.idem.Fingerprint(req.UserID, req.Symbol, req.Side, req.Quantity, now)
	switch res := s.idem.Acquire(key, now); res.State {
	case guard.StatePending:
		return nil, domain.ErrDuplicateInProgress
	case guard.StateCompleted:
		return res.Result, nil
	}

	result, err := s.execute(ctx, req, quote.Price, now)
	if err != nil {
		s.idem.MarkFailed(key)
		return nil, err
	}

	s.quota.Increment(req.UserID, now)
	s.idem.MarkCompleted(key, result)

	s.logger.Info("trade executed",
		slog.String("user_id", req.UserID),
		slog.String("symbol", req.Symbol),
		slog.String("side", string(req.Side)),
		slog.Int64("quantity", req.Quantity),
		slog.Float64("price", quote.Price),
		slog.Float64("total", result.Transaction.Total),
	)

	return result, nil
}

// execute performs the value/quota checks and the account mutation under the
// per-account lock. The caller owns the idempotency key and resolves it
// based on the returned error.
func (s *TradeService) execute(ctx context.Context, req TradeRequest, price float64, now time.Time) (*domain.TradeResult, error) {
	total := domain.TotalCost(price, req.Quantity)

	if allowed, maxAllowed := s.cap.CheckLimit(total); !allowed {
		return nil, fmt.Errorf("%w: total %.2f exceeds per-trade maximum %.2f", domain.ErrTradeTooLarge, total, maxAllowed)
	}
	if allowed, _ := s.quota.CheckLimit(req.UserID, now); !allowed {
		return nil, domain.ErrDailyLimitExceeded
	}

	unlock := s.lockAccount(req.UserID)
	defer unlock()

	account, err := s.store.GetAccount(ctx, req.UserID)
	if err != nil {
		return nil, s.wrapStoreErr(err)
	}

	var (
		newCash      float64
		upsert       *domain.Holding
		removeSymbol string
	)

	switch req.Side {
	case domain.TradeSideBuy:
		if total > account.Cash {
			return nil, fmt.Errorf("%w: need %.2f, have %.2f", domain.ErrInsufficientFunds, total, account.Cash)
		}
		newCash = domain.RoundCurrency(account.Cash - total)

		holding, err := s.store.GetHolding(ctx, req.UserID, req.Symbol)
		switch {
		case errors.Is(err, domain.ErrHoldingNotFound):
			upsert = &domain.Holding{
				UserID:      req.UserID,
				Symbol:      req.Symbol,
				Quantity:    req.Quantity,
				AverageCost: domain.RoundAverageCost(price),
			}
		case err != nil:
			return nil, s.wrapStoreErr(err)
		default:
			holding.AverageCost = domain.NewAverageCost(holding.Quantity, holding.AverageCost, req.Quantity, price)
			holding.Quantity += req.Quantity
			upsert = holding
		}

	case domain.TradeSideSell:
		holding, err := s.store.GetHolding(ctx, req.UserID, req.Symbol)
		if errors.Is(err, domain.ErrHoldingNotFound) {
			return nil, fmt.Errorf("%w: no position in %s", domain.ErrInsufficientShares, req.Symbol)
		}
		if err != nil {
			return nil, s.wrapStoreErr(err)
		}
		if holding.Quantity < req.Quantity {
			return nil, fmt.Errorf("%w: have %d, selling %d", domain.ErrInsufficientShares, holding.Quantity, req.Quantity)
		}
		newCash = domain.RoundCurrency(account.Cash + total)

		// Average cost is not recomputed on sell; the cost basis of the
		// remaining shares is unchanged.
		if holding.Quantity == req.Quantity {
			removeSymbol = req.Symbol
		} else {
			holding.Quantity -= req.Quantity
			upsert = holding
		}
	}

	txn := &domain.Transaction{
		TxID:       uuid.New().String(),
		UserID:     req.UserID,
		Symbol:     req.Symbol,
		Side:       req.Side,
		Quantity:   req.Quantity,
		Price:      price,
		Total:      total,
		ExecutedAt: now,
	}

	mutation := &domain.TradeMutation{
		UserID:       req.UserID,
		NewCash:      newCash,
		Holding:      upsert,
		RemoveSymbol: removeSymbol,
		Transaction:  txn,
	}
	if err := s.store.ApplyTrade(ctx, mutation); err != nil {
		return nil, s.wrapStoreErr(err)
	}

	var snapshot *domain.Holding
	if upsert != nil {
		cp := *upsert
		snapshot = &cp
	}
	return &domain.TradeResult{
		NewCash:     newCash,
		Holding:     snapshot,
		Transaction: txn,
	}, nil
}

// lockAccount acquires the per-account mutex, creating it on first use, and
// returns the unlock function.
func (s *TradeService) lockAccount(userID string) func() {
	s.lockMu.Lock()
	mu, ok := s.accountLocks[userID]
	if !ok {
		mu = &sync.Mutex{}
		s.accountLocks[userID] = mu
	}
	s.lockMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// wrapStoreErr passes domain sentinels through and wraps everything else as
// a persistence failure, which permits a client retry.
func (s *TradeService) wrapStoreErr(err error) error {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrHoldingNotFound):
		return err
	default:
		return fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err)
	}
}
