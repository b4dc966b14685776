package paystack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/farmyapp/farmyapp-backend/pkg/config"
	pkgerrors "github.com/farmyapp/farmyapp-backend/pkg/errors"
	"github.com/farmyapp/farmyapp-backend/pkg/logger"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logg := logger.New(logger.Options{Level: zerolog.ErrorLevel})
	c, err := NewClient(config.PaystackConfig{
		SecretKey: "sk_test_secret",
		BaseURL:   srv.URL,
		Timeout:   5 * time.Second,
	}, logg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c, srv
}

func TestNewClientRequiresSecret(t *testing.T) {
	logg := logger.New(logger.Options{Level: zerolog.ErrorLevel})
	if _, err := NewClient(config.PaystackConfig{}, logg); err == nil {
		t.Fatal("expected secret key error")
	}
}

func TestInitializeTransaction(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/initialize" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_secret" {
			t.Fatalf("unexpected auth header %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		// 1500.00 naira should be sent as 150000 kobo.
		if got := body["amount"].(float64); got != 150000 {
			t.Fatalf("expected 150000 kobo, got %v", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Authorization URL created",
			"data": map[string]any{
				"authorization_url": "https://checkout.paystack.com/abc",
				"access_code":       "abc",
				"reference":         "ref-123",
			},
		})
	}))

	res, err := c.InitializeTransaction(context.Background(), "buyer@farmyapp.com", decimal.NewFromInt(1500))
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if res.Reference != "ref-123" {
		t.Fatalf("unexpected reference %q", res.Reference)
	}
	if res.AuthorizationURL != "https://checkout.paystack.com/abc" {
		t.Fatalf("unexpected authorization url %q", res.AuthorizationURL)
	}
}

func TestVerifyTransaction(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/verify/ref-123" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Verification successful",
			"data": map[string]any{
				"status":    "success",
				"reference": "ref-123",
				"amount":    150000,
			},
		})
	}))

	res, err := c.VerifyTransaction(context.Background(), "ref-123")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Status != "success" {
		t.Fatalf("unexpected status %q", res.Status)
	}
	if !res.Amount.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("expected 1500.00, got %s", res.Amount)
	}
}

func TestInitiateTransferFailure(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"status":  false,
			"message": "insufficient balance",
		})
	}))

	_, err := c.InitiateTransfer(context.Background(), "RCP_x", decimal.NewFromInt(50), "payout")
	if err == nil {
		t.Fatal("expected transfer error")
	}
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodePayoutFailed {
		t.Fatalf("expected payout failed code, got %v", err)
	}
}

func TestKoboConversionRounds(t *testing.T) {
	amount := decimal.RequireFromString("19.99")
	if got := toKobo(amount); got != 1999 {
		t.Fatalf("expected 1999, got %d", got)
	}
	if got := fromKobo(1999); !got.Equal(amount) {
		t.Fatalf("expected 19.99, got %s", got)
	}
}
