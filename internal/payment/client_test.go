package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/orders"
)

func testOrder() models.Order {
	return models.Order{
		ID:     primitive.NewObjectID(),
		UUID:   "ORD-20260101-ABC123",
		Total:  110,
		Status: models.StatusPending,
	}
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	client, err := NewClient(Config{
		CheckoutURL: url,
		MerchantID:  "1549901",
		SecretKey:   "test",
		APIURL:      "https://api.example.com/",
		Timeout:     time.Second,
	}, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return client
}

func TestNewClientRequiresSecret(t *testing.T) {
	_, err := NewClient(Config{APIURL: "https://api.example.com/"}, nil, zap.NewNop())
	var cfgErr *orders.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestCreatePaymentLinkSendsSignedRequest(t *testing.T) {
	order := testOrder()
	var received checkoutRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":{"response_status":"success","checkout_url":"https://pay.example.com/checkout?token=abc"}}`))
	}))
	defer server.Close()

	link, err := newTestClient(t, server.URL).CreatePaymentLink(context.Background(), order, models.LocaleEN)
	if err != nil {
		t.Fatalf("CreatePaymentLink returned error: %v", err)
	}
	if link.RedirectURL != "https://pay.example.com/checkout?token=abc" {
		t.Fatalf("unexpected redirect url %q", link.RedirectURL)
	}
	if link.Raw["response"] == nil {
		t.Fatal("expected raw gateway response to be kept")
	}

	req := received.Request
	if req.Amount != 11000 || req.Currency != "GEL" || req.Lang != "en" || req.OrderID != order.ID.Hex() {
		t.Fatalf("unexpected request params: %+v", req)
	}
	if req.ResponseURL != "https://api.example.com/orders/return?locale=en" {
		t.Fatalf("unexpected response url %q", req.ResponseURL)
	}
	if req.ServerCallbackURL != "https://api.example.com/orders/callback" {
		t.Fatalf("unexpected callback url %q", req.ServerCallbackURL)
	}
	if want := Sign("test", req.signatureFields()); req.Signature != want {
		t.Fatalf("expected signature %s, got %s", want, req.Signature)
	}
}

func TestCreatePaymentLinkGatewayFailures(t *testing.T) {
	tests := map[string]http.HandlerFunc{
		"http error": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "secret internals", http.StatusInternalServerError)
		},
		"failure status": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"response":{"response_status":"failure","error_message":"Invalid signature","error_code":1014}}`))
		},
		"malformed": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		},
		"not an object": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`["success"]`))
		},
		"response not an object": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"response":"success"}`))
		},
		"checkout url wrong type": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"response":{"response_status":"success","checkout_url":42}}`))
		},
		"timeout": func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(1500 * time.Millisecond)
		},
	}
	for name, handler := range tests {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(handler)
			defer server.Close()

			order := testOrder()
			_, err := newTestClient(t, server.URL).CreatePaymentLink(context.Background(), order, models.LocaleKA)
			if !errors.Is(err, ErrGatewayRequestFailed) {
				t.Fatalf("expected ErrGatewayRequestFailed, got %v", err)
			}
			if order.Status != models.StatusPending {
				t.Fatalf("expected order to stay pending, got %s", order.Status)
			}
		})
	}
}
