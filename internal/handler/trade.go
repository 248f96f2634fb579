package handler

import (
	"net/http"
	"time"

	"github.com/mcardozo/papertrade/internal/domain"
	"github.com/mcardozo/papertrade/internal/service"
)

// TradeHandler handles HTTP requests for trade execution.
type TradeHandler struct {
	tradeSvc *service.TradeService
}

// NewTradeHandler creates a new TradeHandler.
func NewTradeHandler(tradeSvc *service.TradeService) *TradeHandler {
	return &TradeHandler{tradeSvc: tradeSvc}
}

// executeTradeRequest is the JSON request body for POST /trades.
type executeTradeRequest struct {
	Symbol   string `json:"symbol"`
	Side     string `json:"side"`
	Quantity int64  `json:"quantity"`
}

// tradeResultResponse is the JSON response for a successful trade.
type tradeResultResponse struct {
	Success     bool                `json:"success"`
	NewCash     float64             `json:"new_cash"`
	Holding     *holdingResponse    `json:"holding"` // null when the position was closed
	Transaction transactionResponse `json:"transaction"`
}

// holdingResponse is a holding snapshot in JSON responses.
type holdingResponse struct {
	Symbol      string  `json:"symbol"`
	Quantity    int64   `json:"quantity"`
	AverageCost float64 `json:"average_cost"`
}

// transactionResponse is a transaction record in JSON responses.
type transactionResponse struct {
	TxID       string  `json:"tx_id"`
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Quantity   int64   `json:"quantity"`
	Price      float64 `json:"price"`
	Total      float64 `json:"total"`
	ExecutedAt string  `json:"executed_at"`
}

// Execute handles POST /trades.
func (h *TradeHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req executeTradeRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := h.tradeSvc.ExecuteTrade(r.Context(), service.TradeRequest{
		UserID:   userID(r),
		Symbol:   req.Symbol,
		Side:     domain.TradeSide(req.Side),
		Quantity: req.Quantity,
	})
	if err != nil {
		mapDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildTradeResult(result))
}

func buildTradeResult(res *domain.TradeResult) tradeResultResponse {
	resp := tradeResultResponse{
		Success:     true,
		NewCash:     res.NewCash,
		Transaction: buildTransaction(res.Transaction),
	}
	if res.Holding != nil {
		resp.Holding = &holdingResponse{
			Symbol:      res.Holding.Symbol,
			Quantity:    res.Holding.Quantity,
			AverageCost: res.Holding.AverageCost,
		}
	}
	return resp
}

func buildTransaction(t *domain.Transaction) transactionResponse {
	return transactionResponse{
		TxID:       t.TxID,
		Symbol:     t.Symbol,
		Side:       string(t.Side),
		Quantity:   t.Quantity,
		Price:      t.Price,
		Total:      t.Total,
		ExecutedAt: t.ExecutedAt.UTC().Format(time.RFC3339),
	}
}
