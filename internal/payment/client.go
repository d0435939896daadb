package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/orders"
)

const (
	DefaultCheckoutURL = "https://pay.flitt.com/api/checkout/url"
	defaultCurrency    = "GEL"
	defaultTimeout     = 15 * time.Second
	maxResponseBytes   = 1 << 20
)

var ErrGatewayRequestFailed = errors.New("payment gateway request failed")

type Config struct {
	CheckoutURL string
	MerchantID  string
	SecretKey   string
	Currency    string
	// APIURL is the public base URL of this service, ending in a slash. The
	// gateway uses it for the browser return and the server callback.
	APIURL  string
	Timeout time.Duration
}

// Client issues signed checkout requests to the payment gateway. It holds no
// per-order state.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

func NewClient(cfg Config, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, &orders.ConfigurationError{Key: "PAYMENT_SECRET_KEY", Reason: "not configured"}
	}
	if !strings.HasSuffix(cfg.APIURL, "/") {
		return nil, &orders.ConfigurationError{Key: "API_URL", Reason: "must end with /"}
	}
	if cfg.CheckoutURL == "" {
		cfg.CheckoutURL = DefaultCheckoutURL
	}
	if cfg.Currency == "" {
		cfg.Currency = defaultCurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{cfg: cfg, http: httpClient, logger: logger.Named("payment")}, nil
}

type checkoutParams struct {
	Amount            int64  `json:"amount"`
	Currency          string `json:"currency"`
	Lang              string `json:"lang"`
	MerchantID        string `json:"merchant_id,omitempty"`
	OrderDesc         string `json:"order_desc"`
	OrderID           string `json:"order_id"`
	ResponseURL       string `json:"response_url"`
	ServerCallbackURL string `json:"server_callback_url"`
	Signature         string `json:"signature"`
}

func (p checkoutParams) signatureFields() map[string]string {
	return map[string]string{
		"amount":              strconv.FormatInt(p.Amount, 10),
		"currency":            p.Currency,
		"lang":                p.Lang,
		"merchant_id":         p.MerchantID,
		"order_desc":          p.OrderDesc,
		"order_id":            p.OrderID,
		"response_url":        p.ResponseURL,
		"server_callback_url": p.ServerCallbackURL,
	}
}

type checkoutRequest struct {
	Request checkoutParams `json:"request"`
}

// checkoutResponse reads the fields the client acts on out of the decoded
// gateway reply. The full reply is kept for the caller.
type checkoutResponse map[string]any

func (r checkoutResponse) field(name string) any {
	inner, _ := r["response"].(map[string]any)
	return inner[name]
}

func (r checkoutResponse) text(name string) string {
	value, _ := r.field(name).(string)
	return value
}

// Link is a created checkout session.
type Link struct {
	RedirectURL string         `json:"checkoutUrl"`
	Raw         map[string]any `json:"response"`
}

// CreatePaymentLink asks the gateway for a checkout URL covering the order
// total. It never changes the order.
func (c *Client) CreatePaymentLink(ctx context.Context, order models.Order, locale models.Locale) (*Link, error) {
	params := c.buildParams(order, locale)
	params.Signature = Sign(c.cfg.SecretKey, params.signatureFields())

	body, err := json.Marshal(checkoutRequest{Request: params})
	if err != nil {
		return nil, fmt.Errorf("encode checkout request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.CheckoutURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build checkout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	log := c.logger.With(zap.String("order_id", params.OrderID), zap.Int64("amount", params.Amount))

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("checkout request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGatewayRequestFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		log.Warn("checkout response unreadable", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGatewayRequestFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("checkout rejected", zap.Int("http_status", resp.StatusCode), zap.ByteString("body", raw))
		return nil, fmt.Errorf("%w: http status %d", ErrGatewayRequestFailed, resp.StatusCode)
	}

	var parsed checkoutResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		log.Warn("checkout response malformed", zap.Error(err))
		return nil, fmt.Errorf("%w: decode response: %v", ErrGatewayRequestFailed, err)
	}

	status, checkoutURL := parsed.text("response_status"), parsed.text("checkout_url")
	if status != "success" || checkoutURL == "" {
		log.Warn("checkout not successful",
			zap.String("response_status", status),
			zap.String("error_message", parsed.text("error_message")),
			zap.Any("error_code", parsed.field("error_code")),
		)
		return nil, fmt.Errorf("%w: response status %q", ErrGatewayRequestFailed, status)
	}

	log.Info("checkout link created")
	return &Link{RedirectURL: checkoutURL, Raw: parsed}, nil
}

// VerifyCallback checks callback fields against the configured secret.
func (c *Client) VerifyCallback(fields map[string]string) error {
	return VerifyCallback(c.cfg.SecretKey, fields)
}

func (c *Client) buildParams(order models.Order, locale models.Locale) checkoutParams {
	return checkoutParams{
		Amount:            order.TotalMinorUnits(),
		Currency:          c.cfg.Currency,
		Lang:              string(locale),
		MerchantID:        c.cfg.MerchantID,
		OrderDesc:         "Order " + order.UUID,
		OrderID:           order.ID.Hex(),
		ResponseURL:       c.cfg.APIURL + "orders/return?locale=" + url.QueryEscape(string(locale)),
		ServerCallbackURL: c.cfg.APIURL + "orders/callback",
	}
}
