package store

import (
	"context"
	"sort"
	"sync"

	"github.com/mcardozo/papertrade/internal/domain"
)

// Compile-time interface check.
var _ TradeStore = (*MemoryStore)(nil)

// MemoryStore is a thread-safe in-memory TradeStore. A single write lock
// makes ApplyTrade atomic: the cash update, holding upsert/delete, and
// transaction append are visible together or not at all. Not durable across
// restarts.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
	holdings map[string]map[string]*domain.Holding // user_id → symbol → holding
	txns     map[string][]*domain.Transaction      // user_id → chronological
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*domain.Account),
		holdings: make(map[string]map[string]*domain.Holding),
		txns:     make(map[string][]*domain.Transaction),
	}
}

// CreateAccount inserts a new account.
func (s *MemoryStore) CreateAccount(_ context.Context, a *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[a.UserID]; exists {
		return domain.ErrAccountAlreadyExists
	}
	cp := *a
	s.accounts[a.UserID] = &cp
	return nil
}

// GetAccount retrieves an account by user ID.
func (s *MemoryStore) GetAccount(_ context.Context, userID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[userID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

// GetHolding retrieves the holding for (user, symbol).
func (s *MemoryStore) GetHolding(_ context.Context, userID, symbol string) (*domain.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.holdings[userID][symbol]
	if !ok {
		return nil, domain.ErrHoldingNotFound
	}
	cp := *h
	return &cp, nil
}

// ListHoldings returns all holdings for a user, sorted by symbol.
func (s *MemoryStore) ListHoldings(_ context.Context, userID string) ([]*domain.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Holding, 0, len(s.holdings[userID]))
	for _, h := range s.holdings[userID] {
		cp := *h
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Symbol < result[j].Symbol
	})
	return result, nil
}

// ListTransactions returns a user's transactions newest first.
func (s *MemoryStore) ListTransactions(_ context.Context, userID string) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txns := s.txns[userID]
	result := make([]*domain.Transaction, 0, len(txns))
	for i := len(txns) - 1; i >= 0; i-- {
		cp := *txns[i]
		result = append(result, &cp)
	}
	return result, nil
}

// ApplyTrade commits the mutation under the store's write lock.
func (s *MemoryStore) ApplyTrade(_ context.Context, m *domain.TradeMutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[m.UserID]
	if !ok {
		return domain.ErrAccountNotFound
	}

	a.Cash = m.NewCash

	if m.Holding != nil {
		if s.holdings[m.UserID] == nil {
			s.holdings[m.UserID] = make(map[string]*domain.Holding)
		}
		cp := *m.Holding
		s.holdings[m.UserID][m.Holding.Symbol] = &cp
	}
	if m.RemoveSymbol != "" {
		delete(s.holdings[m.UserID], m.RemoveSymbol)
	}

	if m.Transaction != nil {
		cp := *m.Transaction
		s.txns[m.UserID] = append(s.txns[m.UserID], &cp)
	}

	return nil
}
