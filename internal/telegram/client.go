// Package telegram holds the Bot API client and the bot's webhook replies.
package telegram

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

const DefaultAPIURL = "https://api.telegram.org"

var ErrNotConfigured = errors.New("bot token not configured")

// APIError carries the Bot API's own description of a failed call.
type APIError struct {
	Method      string
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: status %d: %s", e.Method, e.StatusCode, e.Description)
}

type Client struct {
	httpClient *http.Client
	apiURL     string
	token      string
}

func NewClient(apiURL, token string) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiURL:     strings.TrimRight(apiURL, "/"),
		token:      token,
	}
}

func (c *Client) Configured() bool {
	return c.token != ""
}

func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (Message, error) {
	var msg Message
	err := call(ctx, c, "sendMessage", req, &msg)
	return msg, err
}

func (c *Client) SendInvoice(ctx context.Context, req SendInvoiceRequest) (Message, error) {
	var msg Message
	err := call(ctx, c, "sendInvoice", req, &msg)
	return msg, err
}

func call[T any](ctx context.Context, c *Client, method string, payload any, out *T) error {
	if c.token == "" {
		return ErrNotConfigured
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.apiURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Method: method, Description: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &APIError{Method: method, StatusCode: resp.StatusCode, Description: err.Error()}
	}
	var decoded apiResponse[T]
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return &APIError{Method: method, StatusCode: resp.StatusCode, Description: strings.TrimSpace(string(raw))}
	}
	if resp.StatusCode != http.StatusOK || !decoded.Ok {
		return &APIError{Method: method, StatusCode: resp.StatusCode, Description: decoded.Description}
	}
	*out = decoded.Result
	return nil
}
