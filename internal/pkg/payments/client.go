package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tradiehq/TradieHQ/internal/pkg/env"
)

const defaultStripeAPIBaseURL = "https://api.stripe.com/v1"

// Intent status values reported by the provider.
const (
	IntentStatusSucceeded            = "succeeded"
	IntentStatusRequiresConfirmation = "requires_confirmation"
	IntentStatusRequiresAction       = "requires_action"
	IntentStatusProcessing           = "processing"
)

// Provider is the payment-provider surface the escrow engine depends on.
type Provider interface {
	CreateIntent(ctx context.Context, params CreateIntentParams) (*Intent, error)
	GetIntent(ctx context.Context, id string) (*Intent, error)
	CreateTransfer(ctx context.Context, params TransferParams) (*Transfer, error)
}

// CreateIntentParams describes a payment-intent creation request. AmountCents
// is the gross charge in the provider's minor unit.
type CreateIntentParams struct {
	AmountCents   int64
	Currency      string
	CustomerID    string
	PaymentMethod string // optional saved method; confirmed off-session when set
}

// Intent is the subset of the provider payment-intent the engine consumes.
type Intent struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// TransferParams describes a payout transfer to a connected account.
type TransferParams struct {
	AmountCents   int64
	Currency      string
	Destination   string
	TransferGroup string
}

// Transfer is the subset of the provider transfer object the engine consumes.
type Transfer struct {
	ID          string `json:"id"`
	Amount      int64  `json:"amount"`
	Destination string `json:"destination"`
}

// Client talks to the Stripe HTTP API using form-encoded requests.
type Client struct {
	SecretKey  string
	APIBaseURL string

	HTTPClient *http.Client
}

func NewClientFromEnv() *Client {
	return &Client{
		SecretKey:  strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		APIBaseURL: strings.TrimSpace(env.GetEnv("STRIPE_API_BASE_URL", defaultStripeAPIBaseURL)),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ToCents converts a major-unit amount to the provider's minor unit.
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CreateIntent creates a payment intent for the given customer. When a saved
// payment method is supplied the intent is confirmed off-session immediately;
// otherwise automatic payment methods are enabled and the caller's browser
// completes confirmation with the returned client secret.
func (c *Client) CreateIntent(ctx context.Context, params CreateIntentParams) (*Intent, error) {
	if params.AmountCents <= 0 {
		return nil, errors.New("amount must be positive")
	}
	if params.CustomerID == "" {
		return nil, errors.New("customer id is required")
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(params.AmountCents, 10))
	form.Set("currency", strings.ToLower(params.Currency))
	form.Set("customer", params.CustomerID)
	if params.PaymentMethod != "" {
		form.Set("payment_method", params.PaymentMethod)
		form.Set("off_session", "true")
		form.Set("confirm", "true")
	} else {
		form.Set("automatic_payment_methods[enabled]", "true")
	}

	var out Intent
	if err := c.do(ctx, http.MethodPost, "/payment_intents", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetIntent retrieves a payment intent by id.
func (c *Client) GetIntent(ctx context.Context, id string) (*Intent, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("intent id is required")
	}

	var out Intent
	if err := c.do(ctx, http.MethodGet, "/payment_intents/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTransfer issues a transfer to a connected payout account.
func (c *Client) CreateTransfer(ctx context.Context, params TransferParams) (*Transfer, error) {
	if params.AmountCents <= 0 {
		return nil, errors.New("amount must be positive")
	}
	if params.Destination == "" {
		return nil, errors.New("destination account is required")
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(params.AmountCents, 10))
	form.Set("currency", strings.ToLower(params.Currency))
	form.Set("destination", params.Destination)
	if params.TransferGroup != "" {
		form.Set("transfer_group", params.TransferGroup)
	}

	var out Transfer
	if err := c.do(ctx, http.MethodPost, "/transfers", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("STRIPE_SECRET_KEY is not configured")
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.APIBaseURL, "/")+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("stripe request %s %s failed: status=%d body=%s", method, path, resp.StatusCode, string(raw))
	}

	return json.Unmarshal(raw, out)
}
