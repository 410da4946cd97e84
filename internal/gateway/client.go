// Package gateway wraps the payment provider: a REST client for creating
// payment orders and refunds, and the HMAC signature helpers used to verify
// client-side payments and inbound webhooks.
package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"artstop/internal/apperrors"
	"artstop/internal/config"
)

// Order is a payment intent created on the gateway.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"` // smallest currency unit
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Refund is a refund issued on the gateway.
type Refund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

// Client is the outbound surface of the payment gateway.
type Client interface {
	// CreateOrder creates a remote payment intent for the given amount in
	// the smallest currency unit.
	CreateOrder(amount int64, currency, receipt string, notes map[string]string) (*Order, error)
	// Refund refunds an amount against a captured payment.
	Refund(paymentID string, amount int64, notes map[string]string) (*Refund, error)
}

// RESTClient talks to a Razorpay-style REST API with basic auth.
type RESTClient struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
}

// NewRESTClient builds a client from the gateway configuration.
func NewRESTClient(cfg config.Gateway) *RESTClient {
	return &RESTClient{
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		baseURL:   cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateOrder POSTs to /v1/orders.
func (c *RESTClient) CreateOrder(amount int64, currency, receipt string, notes map[string]string) (*Order, error) {
	payload := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
		"notes":    notes,
	}
	var order Order
	if err := c.post("/v1/orders", payload, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Refund POSTs to /v1/payments/{id}/refund.
func (c *RESTClient) Refund(paymentID string, amount int64, notes map[string]string) (*Refund, error) {
	payload := map[string]interface{}{
		"amount": amount,
		"notes":  notes,
	}
	var refund Refund
	if err := c.post(fmt.Sprintf("/v1/payments/%s/refund", paymentID), payload, &refund); err != nil {
		return nil, err
	}
	return &refund, nil
}

func (c *RESTClient) post(path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal gateway request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Upstream(err, "payment gateway unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Gateway error bodies are JSON; surface the status only.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return apperrors.Upstream(nil, "payment gateway returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Upstream(err, "failed to decode gateway response")
	}
	return nil
}
