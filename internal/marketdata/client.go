package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mcardozo/papertrade/internal/domain"
)

// Compile-time interface check.
var _ Provider = (*Client)(nil)

// Client fetches quotes from an HTTP market-data API exposing a
// finnhub-style endpoint: GET {base}/quote?symbol=X returning
// {"c": <current price>, "t": <unix seconds>}.
type Client struct {
	http *resty.Client
}

// NewClient creates a quote client for the given base URL. apiKey, when
// non-empty, is sent as the "token" query parameter on every request.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)
	if apiKey != "" {
		c.SetQueryParam("token", apiKey)
	}
	return &Client{http: c}
}

// quoteResponse mirrors the upstream quote payload.
type quoteResponse struct {
	Current   float64 `json:"c"`
	Timestamp int64   `json:"t"`
}

// GetQuote fetches the current price for symbol. Transport failures,
// non-2xx responses, and out-of-range prices all surface as
// domain.ErrQuoteUnavailable; a bad upstream price is never passed through.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	var qr quoteResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&qr).
		Get("/quote")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrQuoteUnavailable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: upstream status %d for %s", domain.ErrQuoteUnavailable, resp.StatusCode(), symbol)
	}
	if !domain.ValidPrice(qr.Current) {
		return nil, fmt.Errorf("%w: invalid price %v for %s", domain.ErrQuoteUnavailable, qr.Current, symbol)
	}

	asOf := time.Now()
	if qr.Timestamp > 0 {
		asOf = time.Unix(qr.Timestamp, 0)
	}
	return &domain.Quote{Symbol: symbol, Price: qr.Current, AsOf: asOf}, nil
}
