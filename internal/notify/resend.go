package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"storefront/internal/models"
)

const resendEndpoint = "https://api.resend.com/emails"

type ResendConfig struct {
	APIKey    string
	From      string
	TestEmail string
	// Production disables the TestEmail recipient override.
	Production bool
	FrontURL   string
	Endpoint   string
}

// Resend delivers order emails through the Resend HTTP API.
type Resend struct {
	cfg    ResendConfig
	http   *http.Client
	logger *zap.Logger
}

func NewResend(cfg ResendConfig, httpClient *http.Client, logger *zap.Logger) *Resend {
	if cfg.Endpoint == "" {
		cfg.Endpoint = resendEndpoint
	}
	if cfg.From == "" {
		cfg.From = "onboarding@resend.dev"
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Resend{cfg: cfg, http: httpClient, logger: logger.Named("resend")}
}

var statusLabels = map[models.OrderStatus]models.LocalizedText{
	models.StatusPending:   {KA: "მოლოდინში", EN: "Pending"},
	models.StatusPaid:      {KA: "გადახდილი", EN: "Paid"},
	models.StatusFailed:    {KA: "წარუმატებელი", EN: "Failed"},
	models.StatusShipped:   {KA: "გაგზავნილი", EN: "Shipped"},
	models.StatusDelivered: {KA: "მიწოდებული", EN: "Delivered"},
	models.StatusCancelled: {KA: "გაუქმებული", EN: "Cancelled"},
}

func (r *Resend) SendOrderPaid(ctx context.Context, to string, locale models.Locale, order models.Order) error {
	subject := models.LocalizedText{KA: "გადახდა წარმატებულია", EN: "Payment successful"}.In(locale)
	return r.send(ctx, to, subject, r.orderSummary(locale, order, ""))
}

func (r *Resend) SendOrderStatusChanged(ctx context.Context, recipient string, locale models.Locale, order models.Order, from, to models.OrderStatus) error {
	subject := models.LocalizedText{KA: "შეკვეთის სტატუსი განახლდა", EN: "Order status updated"}.In(locale)
	line := fmt.Sprintf("%s &rarr; %s", html.EscapeString(statusLabels[from].In(locale)), html.EscapeString(statusLabels[to].In(locale)))
	return r.send(ctx, recipient, subject, r.orderSummary(locale, order, line))
}

func (r *Resend) orderSummary(locale models.Locale, order models.Order, statusLine string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(order.UUID))
	if statusLine != "" {
		fmt.Fprintf(&b, "<p>%s</p>", statusLine)
	}
	b.WriteString("<ul>")
	for _, item := range order.Items {
		fmt.Fprintf(&b, "<li>%s &times; %d: %.2f</li>", html.EscapeString(item.Name.In(locale)), item.Quantity, item.LineTotal)
	}
	b.WriteString("</ul>")
	fmt.Fprintf(&b, "<p>%.2f + %.2f = <strong>%.2f</strong></p>", order.Subtotal, order.DeliveryPrice, order.Total)
	if r.cfg.FrontURL != "" {
		link := fmt.Sprintf("%s%s/payment-status?orderId=%s", r.cfg.FrontURL, locale, order.ID.Hex())
		fmt.Fprintf(&b, `<p><a href="%s">%s</a></p>`, html.EscapeString(link),
			html.EscapeString(models.LocalizedText{KA: "შეკვეთის დეტალები", EN: "Order details"}.In(locale)))
	}
	return b.String()
}

type resendEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (r *Resend) send(ctx context.Context, to, subject, body string) error {
	if r.cfg.APIKey == "" {
		r.logger.Warn("RESEND_EMAIL_KEY is not configured, email not sent")
		return nil
	}

	recipient := to
	if !r.cfg.Production && r.cfg.TestEmail != "" {
		recipient = r.cfg.TestEmail
	}

	payload, err := json.Marshal(resendEmail{From: r.cfg.From, To: []string{recipient}, Subject: subject, HTML: body})
	if err != nil {
		return fmt.Errorf("encode email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("resend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}
	return nil
}
