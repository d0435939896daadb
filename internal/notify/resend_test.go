package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront/internal/models"
)

func paidOrder() models.Order {
	return models.Order{
		ID:            primitive.NewObjectID(),
		UUID:          "ORD-20260101-ABC123",
		Subtotal:      100,
		DeliveryPrice: 10,
		Total:         110,
		Items: []models.OrderItem{
			{Name: models.LocalizedText{KA: "ბურღი", EN: "Drill"}, Quantity: 2, UnitPrice: 50, LineTotal: 100},
		},
	}
}

func TestResendRedirectsToTestRecipientOutsideProduction(t *testing.T) {
	var got resendEmail
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode email: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	resend := NewResend(ResendConfig{
		APIKey:    "re_key",
		TestEmail: "qa@example.com",
		FrontURL:  "https://shop.example.com/",
		Endpoint:  server.URL,
	}, nil, zap.NewNop())

	if err := resend.SendOrderPaid(context.Background(), "buyer@example.com", models.LocaleEN, paidOrder()); err != nil {
		t.Fatalf("SendOrderPaid returned error: %v", err)
	}
	if auth != "Bearer re_key" {
		t.Fatalf("unexpected authorization header %q", auth)
	}
	if len(got.To) != 1 || got.To[0] != "qa@example.com" {
		t.Fatalf("expected test recipient, got %v", got.To)
	}
	if got.Subject != "Payment successful" {
		t.Fatalf("unexpected subject %q", got.Subject)
	}
	if !strings.Contains(got.HTML, "Drill") || !strings.Contains(got.HTML, "https://shop.example.com/en/payment-status?orderId=") {
		t.Fatalf("unexpected body %s", got.HTML)
	}
}

func TestResendStatusChangedLocalized(t *testing.T) {
	var got resendEmail
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer server.Close()

	resend := NewResend(ResendConfig{APIKey: "re_key", Production: true, TestEmail: "qa@example.com", Endpoint: server.URL}, nil, zap.NewNop())
	if err := resend.SendOrderStatusChanged(context.Background(), "buyer@example.com", models.LocaleKA, paidOrder(), models.StatusPaid, models.StatusShipped); err != nil {
		t.Fatalf("SendOrderStatusChanged returned error: %v", err)
	}
	if got.To[0] != "buyer@example.com" {
		t.Fatalf("expected real recipient in production, got %v", got.To)
	}
	if got.Subject != "შეკვეთის სტატუსი განახლდა" || !strings.Contains(got.HTML, "გაგზავნილი") {
		t.Fatalf("unexpected email %+v", got)
	}
}

func TestResendReportsProviderErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid from address", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	resend := NewResend(ResendConfig{APIKey: "re_key", Endpoint: server.URL}, nil, zap.NewNop())
	if err := resend.SendOrderPaid(context.Background(), "buyer@example.com", models.LocaleKA, paidOrder()); err == nil {
		t.Fatal("expected provider error to be returned")
	}
}

func TestResendWithoutKeySendsNothing(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	resend := NewResend(ResendConfig{Endpoint: server.URL}, nil, zap.NewNop())
	if err := resend.SendOrderPaid(context.Background(), "buyer@example.com", models.LocaleKA, paidOrder()); err != nil {
		t.Fatalf("expected nil error without key, got %v", err)
	}
	if called {
		t.Fatal("expected no request without api key")
	}
}
