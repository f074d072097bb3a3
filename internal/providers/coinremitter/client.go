package coinremitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lumenchat/billing-backend/pkg/config"
	"github.com/lumenchat/billing-backend/pkg/enums"
	pkgerrors "github.com/lumenchat/billing-backend/pkg/errors"
)

const (
	defaultBaseURL             = "https://coinremitter.com/api/v3"
	defaultTimeout             = 5 * time.Second
	responseBodyLimit    int64 = 1 << 16
	errorSnippetLimit    int64 = 1024
	contentTypeFormValue       = "application/x-www-form-urlencoded"
)

// Invoice status codes as documented by the provider.
const (
	StatusCodePending   = 0
	StatusCodePaid      = 1
	StatusCodeOverPaid  = 2
	StatusCodeExpired   = 3
	StatusCodeUnderPaid = 4
	StatusCodeCancelled = 5
)

// MapStatusCode converts the provider's numeric invoice status onto the
// shared payment lifecycle.
func MapStatusCode(code int) enums.PaymentLifecycle {
	switch code {
	case StatusCodePaid, StatusCodeOverPaid:
		return enums.PaymentLifecycleCompleted
	case StatusCodePending, StatusCodeUnderPaid:
		return enums.PaymentLifecyclePending
	case StatusCodeExpired, StatusCodeCancelled:
		return enums.PaymentLifecycleExpired
	default:
		return enums.PaymentLifecycleFailed
	}
}

// Client calls the invoice provider's read/create API. The read path is the
// sole authenticity mechanism for this provider's webhooks, so every call
// carries a bounded timeout and failures are treated as verification
// failures, never as implicit success.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	password   string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the invoice provider client from configuration.
func NewClient(cfg config.CoinremitterConfig, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("coinremitter api key is required")
	}
	if strings.TrimSpace(cfg.Password) == "" {
		return nil, fmt.Errorf("coinremitter password is required")
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		password:   cfg.Password,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Invoice is the provider's authoritative view of an invoice.
type Invoice struct {
	InvoiceID   string
	OrderID     string
	Status      string
	StatusCode  int
	TotalAmount map[string]string
	PaidAmount  map[string]string
	USDAmount   decimal.Decimal
	CustomData1 string
	CustomData2 string
	URL         string
}

// GetInvoice re-fetches an invoice from the provider. Any failure here means
// the webhook's claim could not be verified.
func (c *Client) GetInvoice(ctx context.Context, invoiceID string) (*Invoice, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "coinremitter client not configured")
	}
	if strings.TrimSpace(invoiceID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id is required")
	}

	form := c.authForm()
	form.Set("invoice_id", invoiceID)

	return c.postInvoice(ctx, "get-invoice", form)
}

// CreateInvoiceParams describes a new invoice request made at checkout time.
type CreateInvoiceParams struct {
	Amount      decimal.Decimal
	Currency    string
	Description string
	CustomData1 string
	CustomData2 string
	ExpireTime  time.Duration
}

// CreateInvoice opens a new invoice with the provider and returns its hosted
// payment URL.
func (c *Client) CreateInvoice(ctx context.Context, params CreateInvoiceParams) (*Invoice, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "coinremitter client not configured")
	}
	if params.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice amount must be positive")
	}

	form := c.authForm()
	form.Set("amount", params.Amount.String())
	if params.Currency != "" {
		form.Set("currency", params.Currency)
	}
	if params.Description != "" {
		form.Set("description", params.Description)
	}
	if params.CustomData1 != "" {
		form.Set("custom_data1", params.CustomData1)
	}
	if params.CustomData2 != "" {
		form.Set("custom_data2", params.CustomData2)
	}
	if params.ExpireTime > 0 {
		form.Set("expire_time", fmt.Sprintf("%d", int(params.ExpireTime.Minutes())))
	}

	return c.postInvoice(ctx, "create-invoice", form)
}

func (c *Client) authForm() url.Values {
	form := url.Values{}
	form.Set("api_key", c.apiKey)
	form.Set("password", c.password)
	return form
}

func (c *Client) postInvoice(ctx context.Context, path string, form url.Values) (*Invoice, error) {
	endpoint := c.buildURL(path)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build invoice request")
	}
	httpReq.Header.Set("Content-Type", contentTypeFormValue)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invoice provider unreachable")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorSnippetLimit))
		return nil, pkgerrors.Wrap(
			pkgerrors.CodeUnauthorized,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"invoice request rejected",
		)
	}

	var apiResp struct {
		Flag int    `json:"flag"`
		Msg  string `json:"msg"`
		Data struct {
			InvoiceID   string            `json:"invoice_id"`
			OrderID     string            `json:"order_id"`
			Status      string            `json:"status"`
			StatusCode  json.Number       `json:"status_code"`
			TotalAmount map[string]string `json:"total_amount"`
			PaidAmount  map[string]string `json:"paid_amount"`
			USDAmount   json.Number       `json:"usd_amount"`
			CustomData1 string            `json:"custom_data1"`
			CustomData2 string            `json:"custom_data2"`
			URL         string            `json:"url"`
		} `json:"data"`
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, responseBodyLimit))
	dec.UseNumber()
	if err := dec.Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode invoice response")
	}

	// flag!=1 is the provider's application-level failure signal
	if apiResp.Flag != 1 {
		return nil, pkgerrors.New(
			pkgerrors.CodeUnauthorized,
			fmt.Sprintf("invoice lookup failed: %s", apiResp.Msg),
		)
	}

	statusCode, err := apiResp.Data.StatusCode.Int64()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invoice status code is not numeric")
	}

	invoice := &Invoice{
		InvoiceID:   apiResp.Data.InvoiceID,
		OrderID:     apiResp.Data.OrderID,
		Status:      apiResp.Data.Status,
		StatusCode:  int(statusCode),
		TotalAmount: apiResp.Data.TotalAmount,
		PaidAmount:  apiResp.Data.PaidAmount,
		CustomData1: apiResp.Data.CustomData1,
		CustomData2: apiResp.Data.CustomData2,
		URL:         apiResp.Data.URL,
	}
	if raw := apiResp.Data.USDAmount.String(); raw != "" {
		if amount, err := decimal.NewFromString(raw); err == nil {
			invoice.USDAmount = amount
		}
	}
	return invoice, nil
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}
