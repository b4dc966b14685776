package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/farmyapp/farmyapp-backend/pkg/config"
	pkgerrors "github.com/farmyapp/farmyapp-backend/pkg/errors"
	"github.com/farmyapp/farmyapp-backend/pkg/logger"
)

var (
	errSecretKeyRequired = errors.New("paystack secret key is required")
	errLoggerRequired    = errors.New("paystack logger is required")
)

var koboPerUnit = decimal.NewFromInt(100)

// Client exposes the Paystack primitives the platform uses: hosted checkout
// initialization, charge verification and balance transfers for payouts.
type Client struct {
	httpClient  *http.Client
	secretKey   string
	baseURL     string
	callbackURL string
	logger      *logger.Logger
}

// InitializeResult is the hosted checkout handle returned by Paystack.
type InitializeResult struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// VerifyResult is the settled state of a charge.
type VerifyResult struct {
	Status    string
	Reference string
	Amount    decimal.Decimal
}

// TransferResult is the state of an initiated balance transfer.
type TransferResult struct {
	TransferCode string
	Status       string
}

type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// NewClient validates credentials and returns a Paystack wrapper with a
// bounded HTTP client.
func NewClient(cfg config.PaystackConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	secret := strings.TrimSpace(cfg.SecretKey)
	if secret == "" {
		return nil, errSecretKeyRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.paystack.co"
	}
	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		secretKey:   secret,
		baseURL:     baseURL,
		callbackURL: strings.TrimSpace(cfg.CallbackURL),
		logger:      logg,
	}, nil
}

// InitializeTransaction opens a hosted checkout for the given amount and
// returns the redirect URL plus the reference used to verify later.
func (c *Client) InitializeTransaction(ctx context.Context, email string, amount decimal.Decimal) (*InitializeResult, error) {
	if strings.TrimSpace(email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if amount.IsNegative() || amount.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	payload := map[string]any{
		"email":  email,
		"amount": toKobo(amount),
	}
	if c.callbackURL != "" {
		payload["callback_url"] = c.callbackURL
	}

	c.log(ctx, "request", "initialize_transaction", map[string]any{"amount": amount.StringFixed(2)})

	var data struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	}
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", payload, &data); err != nil {
		c.log(ctx, "error", "initialize_transaction", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "initialize_transaction", map[string]any{"reference": data.Reference})
	return &InitializeResult{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Reference:        data.Reference,
	}, nil
}

// VerifyTransaction resolves the final state of a charge by reference.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*VerifyResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}

	c.log(ctx, "request", "verify_transaction", map[string]any{"reference": reference})

	var data struct {
		Status    string `json:"status"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
	}
	if err := c.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil, &data); err != nil {
		c.log(ctx, "error", "verify_transaction", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "verify_transaction", map[string]any{"reference": data.Reference, "status": data.Status})
	return &VerifyResult{
		Status:    data.Status,
		Reference: data.Reference,
		Amount:    fromKobo(data.Amount),
	}, nil
}

// InitiateTransfer moves funds from the platform balance to a stored
// transfer recipient. Used by wallet withdrawals.
func (c *Client) InitiateTransfer(ctx context.Context, recipientCode string, amount decimal.Decimal, reason string) (*TransferResult, error) {
	recipientCode = strings.TrimSpace(recipientCode)
	if recipientCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient code is required")
	}
	if amount.IsNegative() || amount.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	payload := map[string]any{
		"source":    "balance",
		"amount":    toKobo(amount),
		"recipient": recipientCode,
		"reason":    reason,
	}

	c.log(ctx, "request", "initiate_transfer", map[string]any{"amount": amount.StringFixed(2)})

	var data struct {
		TransferCode string `json:"transfer_code"`
		Status       string `json:"status"`
	}
	if err := c.do(ctx, http.MethodPost, "/transfer", payload, &data); err != nil {
		c.log(ctx, "error", "initiate_transfer", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "initiate_transfer", map[string]any{"transfer_code": data.TransferCode, "status": data.Status})
	return &TransferResult{TransferCode: data.TransferCode, Status: data.Status}, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding paystack request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building paystack request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "paystack request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading paystack response")
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding paystack response")
	}
	if resp.StatusCode >= http.StatusBadRequest || !envelope.Status {
		message := envelope.Message
		if message == "" {
			message = fmt.Sprintf("paystack returned status %d", resp.StatusCode)
		}
		return pkgerrors.New(pkgerrors.CodePayoutFailed, message)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding paystack payload")
		}
	}
	return nil
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("paystack %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("paystack %s", phase))
	}
}

// toKobo converts naira to Paystack's integer subunit.
func toKobo(amount decimal.Decimal) int64 {
	return amount.Mul(koboPerUnit).Round(0).IntPart()
}

func fromKobo(amount int64) decimal.Decimal {
	return decimal.NewFromInt(amount).Div(koboPerUnit)
}
