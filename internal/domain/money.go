package domain

import "math"

// Monetary values are float64 dollars rounded through these helpers at
// well-defined precision boundaries: cash and trade totals at 2 decimal
// places, per-share average cost at 4. math.Round gives
// round-half-away-from-zero semantics on the scaled value.

const (
	// MaxPrice is a sanity ceiling against bad upstream quote data.
	MaxPrice = 1_000_000.0

	// MinQuantity and MaxQuantity bound the share count of a single trade.
	MinQuantity int64 = 1
	MaxQuantity int64 = 10_000
)

// RoundCurrency rounds a dollar amount to 2 decimal places.
func RoundCurrency(x float64) float64 {
	return math.Round(x*100) / 100
}

// RoundAverageCost rounds a per-share cost to 4 decimal places. The extra
// precision matters because the average compounds over many partial fills.
func RoundAverageCost(x float64) float64 {
	return math.Round(x*10000) / 10000
}

// TotalCost computes the currency-rounded total for quantity shares at price.
func TotalCost(price float64, quantity int64) float64 {
	return RoundCurrency(price * float64(quantity))
}

// NewAverageCost computes the weighted-average cost per share after adding
// newQty shares at newPrice to an existing position. Callers must guarantee
// existingQty+newQty > 0.
func NewAverageCost(existingQty int64, existingAvgCost float64, newQty int64, newPrice float64) float64 {
	totalShares := float64(existingQty + newQty)
	totalCost := float64(existingQty)*existingAvgCost + float64(newQty)*newPrice
	return RoundAverageCost(totalCost / totalShares)
}

// ValidPrice reports whether p is usable as an execution price: finite,
// strictly positive, and at most MaxPrice.
func ValidPrice(p float64) bool {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return false
	}
	return p > 0 && p <= MaxPrice
}

// ValidQuantity reports whether q is a tradable share count.
func ValidQuantity(q int64) bool {
	return q >= MinQuantity && q <= MaxQuantity
}
