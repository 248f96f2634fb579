package domain

import "time"

// Account represents a user's simulated trading account.
type Account struct {
	UserID       string
	Cash         float64 // currency-rounded, never negative
	StartingCash float64 // immutable after creation
	CreatedAt    time.Time
}

// Holding represents an account's position in a single symbol. Quantity is
// always > 0 while the holding exists; a position sold down to zero shares
// is deleted, not retained.
type Holding struct {
	UserID      string
	Symbol      string
	Quantity    int64
	AverageCost float64 // 4-decimal precision
}

// CostBasis returns the currency-rounded total amount paid for the position.
func (h *Holding) CostBasis() float64 {
	return RoundCurrency(float64(h.Quantity) * h.AverageCost)
}
