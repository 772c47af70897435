package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Order is the gateway-side order a checkout widget completes against.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Config holds gateway credentials and tuning.
type Config struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Currency  string
	Timeout   time.Duration
}

// Gateway is a thin client for the hosted checkout provider. Orders are
// created server-side; the widget returns (orderID, paymentID, signature)
// which VerifySignature checks before a subscription is activated.
type Gateway struct {
	cfg    Config
	client *http.Client
}

// NewGateway constructs a gateway client.
func NewGateway(cfg Config) *Gateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	return &Gateway{cfg: cfg, client: &http.Client{Timeout: timeout}}
}

// CreateOrder registers a new order for the given amount in rupees.
// The gateway wire format counts in the minor unit (paise).
func (g *Gateway) CreateOrder(ctx context.Context, amountRupees int64, receipt string) (*Order, error) {
	if amountRupees <= 0 {
		return nil, fmt.Errorf("order amount must be positive")
	}
	payload, err := json.Marshal(map[string]interface{}{
		"amount":   amountRupees * 100,
		"currency": g.cfg.Currency,
		"receipt":  receipt,
	})
	if err != nil {
		return nil, fmt.Errorf("encode order payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.cfg.KeyID, g.cfg.KeySecret)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("create order: gateway returned %d", resp.StatusCode)
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("decode order response: %w", err)
	}
	return &order, nil
}

// VerifySignature checks the checkout callback signature:
// HMAC-SHA256(orderID + "|" + paymentID) keyed with the gateway secret.
func (g *Gateway) VerifySignature(orderID, paymentID, signature string) bool {
	if orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(g.cfg.KeySecret))
	_, _ = mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
