package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mcardozo/papertrade/internal/marketdata"
)

// QuoteHandler exposes the market-data collaborator over HTTP.
type QuoteHandler struct {
	quotes marketdata.Provider
}

// NewQuoteHandler creates a new QuoteHandler.
func NewQuoteHandler(quotes marketdata.Provider) *QuoteHandler {
	return &QuoteHandler{quotes: quotes}
}

// quoteResponse is the JSON response for GET /quotes/{symbol}.
type quoteResponse struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	AsOf   string  `json:"as_of"`
}

// GetQuote handles GET /quotes/{symbol}.
func (h *QuoteHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	quote, err := h.quotes.GetQuote(r.Context(), symbol)
	if err != nil {
		mapDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, quoteResponse{
		Symbol: quote.Symbol,
		Price:  quote.Price,
		AsOf:   quote.AsOf.UTC().Format(time.RFC3339),
	})
}
