// Package cryptocloud talks to the CryptoCloud payment processor.
package cryptocloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.cryptocloud.plus"

var ErrNotConfigured = errors.New("CryptoCloud API key not configured")

// APIError is returned when the processor rejects a request or answers with a
// non-success status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("cryptocloud: status %d: %s", e.StatusCode, e.Message)
	}
	return "cryptocloud: " + e.Message
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type InvoiceRequest struct {
	Amount    float64           `json:"amount"`
	Currency  string            `json:"currency"`
	OrderID   string            `json:"order_id"`
	AddFields map[string]string `json:"add_fields,omitempty"`
}

type Invoice struct {
	UUID    string  `json:"uuid"`
	Address string  `json:"address"`
	Tag     *string `json:"tag"`
}

type invoiceResponse struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result"`
}

// CreateInvoice opens an invoice and returns the deposit address the processor
// assigned to it.
func (c *Client) CreateInvoice(ctx context.Context, req InvoiceRequest) (Invoice, error) {
	if c.apiKey == "" {
		return Invoice{}, ErrNotConfigured
	}
	body, err := json.Marshal(req)
	if err != nil {
		return Invoice{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/invoice/create", bytes.NewReader(body))
	if err != nil {
		return Invoice{}, err
	}
	httpReq.Header.Set("Authorization", "Token "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Invoice{}, &APIError{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Invoice{}, &APIError{StatusCode: resp.StatusCode, Message: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Invoice{}, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}

	var decoded invoiceResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Invoice{}, &APIError{StatusCode: resp.StatusCode, Message: "malformed response"}
	}
	if decoded.Status != "success" {
		return Invoice{}, &APIError{StatusCode: resp.StatusCode, Message: "failed to create CryptoCloud invoice"}
	}
	var invoice Invoice
	if err := json.Unmarshal(decoded.Result, &invoice); err != nil || invoice.UUID == "" || strings.TrimSpace(invoice.Address) == "" {
		return Invoice{}, &APIError{StatusCode: resp.StatusCode, Message: "invoice result missing"}
	}
	return invoice, nil
}
