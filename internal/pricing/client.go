// Package pricing is the HTTP client for the quote provider. The engine consults it
// before contract creation; it never participates in a state-mutating transaction.
package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/thinhlal/mutrapro-system-sub005/internal/service"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type quoteRequest struct {
	RequestType string            `json:"request_type"`
	Parameters  map[string]string `json:"parameters"`
}

type quoteResponse struct {
	TotalPrice int64  `json:"total_price"`
	Currency   string `json:"currency"`
	Breakdown  []struct {
		Label  string `json:"label"`
		Amount int64  `json:"amount"`
	} `json:"breakdown"`
}

// Quote requests a price breakdown for a service request.
func (c *Client) Quote(ctx context.Context, requestType string, params map[string]string) (service.Quote, error) {
	if c == nil || c.baseURL == "" {
		return service.Quote{}, fmt.Errorf("pricing client not configured")
	}

	body, err := json.Marshal(quoteRequest{RequestType: requestType, Parameters: params})
	if err != nil {
		return service.Quote{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/quotes", bytes.NewReader(body))
	if err != nil {
		return service.Quote{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return service.Quote{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return service.Quote{}, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return service.Quote{}, fmt.Errorf("decode response: %w", err)
	}
	return service.Quote{TotalPrice: result.TotalPrice, Currency: result.Currency}, nil
}
