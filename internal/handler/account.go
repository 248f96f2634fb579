package handler

import (
	"net/http"
	"time"

	"github.com/mcardozo/papertrade/internal/service"
)

// AccountHandler handles HTTP requests for account endpoints.
type AccountHandler struct {
	accountSvc *service.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountSvc *service.AccountService) *AccountHandler {
	return &AccountHandler{accountSvc: accountSvc}
}

// openAccountRequest is the JSON request body for POST /accounts. The body
// may be empty, in which case the configured default starting cash is used.
type openAccountRequest struct {
	StartingCash float64 `json:"starting_cash"`
}

// accountResponse is the JSON response for account creation and balance.
type accountResponse struct {
	UserID       string  `json:"user_id"`
	Cash         float64 `json:"cash"`
	StartingCash float64 `json:"starting_cash"`
	CreatedAt    string  `json:"created_at"`
}

// portfolioResponse is the JSON response for GET /accounts/portfolio.
type portfolioResponse struct {
	UserID    string             `json:"user_id"`
	Cash      float64            `json:"cash"`
	Positions []positionResponse `json:"positions"`
	AsOf      string             `json:"as_of"`
}

// positionResponse is a single valued position in the portfolio response.
type positionResponse struct {
	Symbol         string   `json:"symbol"`
	Quantity       int64    `json:"quantity"`
	AverageCost    float64  `json:"average_cost"`
	CostBasis      float64  `json:"cost_basis"`
	CurrentPrice   *float64 `json:"current_price"`
	MarketValue    *float64 `json:"market_value"`
	UnrealizedGain *float64 `json:"unrealized_gain"`
}

// Open handles POST /accounts.
func (h *AccountHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req openAccountRequest
	if r.ContentLength != 0 {
		if err := ParseJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
	}

	account, err := h.accountSvc.Open(r.Context(), service.OpenAccountRequest{
		UserID:       userID(r),
		StartingCash: req.StartingCash,
	})
	if err != nil {
		mapDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, accountResponse{
		UserID:       account.UserID,
		Cash:         account.Cash,
		StartingCash: account.StartingCash,
		CreatedAt:    account.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// GetBalance handles GET /accounts/balance.
func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	account, err := h.accountSvc.Get(r.Context(), userID(r))
	if err != nil {
		mapDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, accountResponse{
		UserID:       account.UserID,
		Cash:         account.Cash,
		StartingCash: account.StartingCash,
		CreatedAt:    account.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// GetPortfolio handles GET /accounts/portfolio.
func (h *AccountHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	portfolio, err := h.accountSvc.GetPortfolio(r.Context(), userID(r))
	if err != nil {
		mapDomainError(w, err)
		return
	}

	positions := make([]positionResponse, len(portfolio.Positions))
	for i, p := range portfolio.Positions {
		positions[i] = positionResponse{
			Symbol:         p.Symbol,
			Quantity:       p.Quantity,
			AverageCost:    p.AverageCost,
			CostBasis:      p.CostBasis,
			CurrentPrice:   p.CurrentPrice,
			MarketValue:    p.MarketValue,
			UnrealizedGain: p.UnrealizedGain,
		}
	}

	WriteJSON(w, http.StatusOK, portfolioResponse{
		UserID:    portfolio.UserID,
		Cash:      portfolio.Cash,
		Positions: positions,
		AsOf:      portfolio.AsOf.UTC().Format(time.RFC3339),
	})
}

// ListTransactions handles GET /accounts/transactions.
func (h *AccountHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := h.accountSvc.ListTransactions(r.Context(), userID(r))
	if err != nil {
		mapDomainError(w, err)
		return
	}

	result := make([]transactionResponse, len(txns))
	for i, t := range txns {
		result[i] = buildTransaction(t)
	}

	WriteJSON(w, http.StatusOK, map[string]any{"transactions": result})
}
