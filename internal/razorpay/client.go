// AngelaMos | 2026
// client.go

package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/saathi-labs/companion-api/internal/config"
	"github.com/saathi-labs/companion-api/internal/core"
	"github.com/saathi-labs/companion-api/internal/metrics"
)

const MinAmountPaise int64 = 100

var ErrAmountTooSmall = errors.New("amount must be at least 100 paise")

type OrderRequest struct {
	AmountPaise int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// APIError is a non-2xx reply from the gateway.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("razorpay: status=%d code=%s: %s", e.StatusCode, e.Code, e.Description)
}

type Client struct {
	keyID      string
	keySecret  string
	baseURL    string
	currency   string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg config.RazorpayConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		keyID:      cfg.KeyID,
		keySecret:  cfg.KeySecret,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		currency:   cfg.Currency,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// KeyID is the publishable key the checkout widget needs.
func (c *Client) KeyID() string {
	return c.keyID
}

func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (_ *Order, err error) {
	if req.AmountPaise < MinAmountPaise {
		return nil, ErrAmountTooSmall
	}

	currency := req.Currency
	if currency == "" {
		currency = c.currency
	}

	ctx, span := core.StartSpan(ctx, "razorpay.create_order",
		attribute.Int64("razorpay.amount", req.AmountPaise),
		attribute.String("razorpay.currency", currency),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.ObserveProvider("razorpay", "create_order", start, err)
		if err != nil {
			core.SetSpanError(span, err)
		}
	}()

	payload := map[string]any{
		"amount":          req.AmountPaise,
		"currency":        currency,
		"receipt":         req.Receipt,
		"payment_capture": 1,
	}
	if len(req.Notes) > 0 {
		payload["notes"] = req.Notes
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal order: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/orders",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	httpReq.SetBasicAuth(c.keyID, c.keySecret)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("post order: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := decodeAPIError(resp.StatusCode, raw)
		c.logger.Error("razorpay order creation failed",
			"status", resp.StatusCode,
			"code", apiErr.Code,
			"description", apiErr.Description,
		)
		return nil, apiErr
	}

	var order Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	if order.ID == "" {
		return nil, errors.New("razorpay: empty order id")
	}

	c.logger.Info("razorpay order created",
		"order_id", order.ID,
		"amount", order.Amount,
		"currency", order.Currency,
	)

	return &order, nil
}

// VerifySignature checks the checkout callback signature, a hex
// HMAC-SHA256 of "orderID|paymentID" keyed with the account secret.
func (c *Client) VerifySignature(orderID, paymentID, signature string) bool {
	return VerifySignature(c.keySecret, orderID, paymentID, signature)
}

func VerifySignature(secret, orderID, paymentID, signature string) bool {
	if secret == "" || orderID == "" || paymentID == "" || signature == "" {
		return false
	}

	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	return hmac.Equal(got, sign(secret, orderID, paymentID))
}

// Sign produces the signature the gateway would send for an order and
// payment pair.
func Sign(secret, orderID, paymentID string) string {
	return hex.EncodeToString(sign(secret, orderID, paymentID))
}

func sign(secret, orderID, paymentID string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return mac.Sum(nil)
}

func decodeAPIError(status int, raw []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var body struct {
		Error struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		apiErr.Code = body.Error.Code
		apiErr.Description = body.Error.Description
	}
	if apiErr.Description == "" {
		apiErr.Description = http.StatusText(status)
	}

	return apiErr
}
