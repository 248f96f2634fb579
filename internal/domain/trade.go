package domain

import "time"

// TradeSide indicates whether a trade buys or sells shares.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// Transaction is the immutable record of an executed trade. Records are
// append-only and never mutated after creation.
type Transaction struct {
	TxID       string
	UserID     string
	Symbol     string
	Side       TradeSide
	Quantity   int64
	Price      float64
	Total      float64
	ExecutedAt time.Time
}

// Quote is a live price for a symbol supplied by the market-data provider.
type Quote struct {
	Symbol string
	Price  float64
	AsOf   time.Time
}

// TradeResult is the outcome of a successfully executed trade. Holding is
// nil when a sell closed the position entirely.
type TradeResult struct {
	NewCash     float64
	Holding     *Holding
	Transaction *Transaction
}

// TradeMutation is the atomic unit of work a trade commits against the
// store: the new cash balance, the holding upsert or removal, and the
// transaction append. ApplyTrade applies all three or none.
type TradeMutation struct {
	UserID       string
	NewCash      float64
	Holding      *Holding // upsert when non-nil
	RemoveSymbol string   // delete the holding for this symbol when non-empty
	Transaction  *Transaction
}
