// Package payments integrates the hosted checkout provider. The API service
// creates checkout sessions for pending donations; the provider reports
// settlement back through the signed webhook handled in internal/http.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("payments: api key is required")

// Options configures the checkout client.
type Options struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         zerolog.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the payment provider's checkout API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// CheckoutRequest captures the inputs for one hosted checkout session.
type CheckoutRequest struct {
	DonationID string
	Amount     decimal.Decimal
	Currency   string
	ReturnURL  string
}

// CheckoutSession is the provider's session handle. ProviderRef ties the
// later webhook back to the donation.
type CheckoutSession struct {
	ProviderRef string
	CheckoutURL string
}

type checkoutPayload struct {
	Reference string `json:"reference"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	ReturnURL string `json:"return_url,omitempty"`
}

type checkoutResponse struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"checkout_url"`
	Message     string `json:"message"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: httpClient,
		logger:     opts.Logger,
	}
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c != nil && c.apiKey != "" && c.baseURL != ""
}

// CreateCheckout opens a hosted checkout session for a pending donation.
func (c *Client) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	if req.DonationID == "" {
		return nil, errors.New("payments: donation id is required")
	}
	if !req.Amount.IsPositive() {
		return nil, errors.New("payments: amount must be positive")
	}

	payload := checkoutPayload{
		Reference: req.DonationID,
		Amount:    req.Amount.String(),
		Currency:  req.Currency,
		ReturnURL: req.ReturnURL,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("payments: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/checkouts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("payments: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("payments: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("payments: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var detail checkoutResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Message != "" {
			return nil, fmt.Errorf("payments: %s", detail.Message)
		}
		return nil, fmt.Errorf("payments: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded checkoutResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("payments: decode response: %w", err)
	}
	if decoded.ID == "" || decoded.CheckoutURL == "" {
		return nil, errors.New("payments: incomplete checkout session")
	}

	c.logger.Debug().
		Str("donation_id", req.DonationID).
		Str("provider_ref", decoded.ID).
		Msg("payments: checkout session created")
	return &CheckoutSession{ProviderRef: decoded.ID, CheckoutURL: decoded.CheckoutURL}, nil
}
