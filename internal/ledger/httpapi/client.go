// Package httpapi talks to the budget server's REST API
// (POST and GET /api/transaction).
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"budget/internal/core"
	"budget/internal/ledger"
	"budget/internal/trace"
)

const transactionPath = "/api/transaction"

// Max bytes read from an error response body.
const maxErrorBody = 4 << 10

type Client struct {
	baseURL *url.URL
	http    *http.Client
}

var _ ledger.Ledger = (*Client)(nil)

// New returns a client for the server at baseURL. A nil httpClient uses a
// client with the given timeout.
func New(baseURL string, timeout time.Duration, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse ledger url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid ledger url scheme %q: must be http or https", u.Scheme)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout, Transport: trace.NewTransport(nil)}
	}
	return &Client{baseURL: u, http: httpClient}, nil
}

// wireTransaction is the JSON shape the server stores and returns.
type wireTransaction struct {
	Name  string    `json:"name"`
	Value flexInt   `json:"value"`
	Date  time.Time `json:"date"`
}

// flexInt accepts both 12 and "12"; form submissions store the value as text.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		*f = flexInt(v)
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("decode value %s: %w", b, err)
	}
	*f = flexInt(v)
	return nil
}

// errorBody is the validation failure the server answers with.
type errorBody struct {
	Errors  json.RawMessage `json:"errors"`
	Message string          `json:"message"`
}

// Append posts t to the server.
func (c *Client) Append(ctx context.Context, t core.Transaction) error {
	body, err := json.Marshal(wireTransaction{Name: t.Name, Value: flexInt(t.Value), Date: t.Date.UTC()})
	if err != nil {
		return fmt.Errorf("marshal transaction: %w", err)
	}

	ctx, requestID := trace.Ensure(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build append request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(trace.HeaderRequestID, requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return ledger.Unavailable("append", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	switch {
	case resp.StatusCode >= 500:
		return ledger.Unavailable("append", fmt.Errorf("server returned %s", resp.Status))
	case resp.StatusCode >= 400:
		return ledger.Rejected("append", rejectionReason(resp.Status, raw))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return ledger.Unavailable("append", fmt.Errorf("unexpected status %s", resp.Status))
	}

	// The server reports validation errors with a 200 and an "errors" field.
	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil && len(eb.Errors) > 0 && string(eb.Errors) != "null" {
		return ledger.Rejected("append", rejectionReason(resp.Status, raw))
	}

	slog.DebugContext(ctx, "Transaction appended to remote ledger",
		"id", t.ID(),
		"request_id", requestID)
	return nil
}

// List fetches all transactions, newest first as served.
func (c *Client) List(ctx context.Context) ([]core.Transaction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(), nil)
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, ledger.Unavailable("list", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ledger.Unavailable("list", fmt.Errorf("server returned %s", resp.Status))
	}

	var wire []wireTransaction
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, ledger.Unavailable("list", fmt.Errorf("decode transactions: %w", err))
	}

	out := make([]core.Transaction, 0, len(wire))
	for _, w := range wire {
		out = append(out, core.Transaction{Name: w.Name, Value: int64(w.Value), Date: w.Date.UTC()})
	}
	return out, nil
}

func (c *Client) endpoint() string {
	return c.baseURL.JoinPath(transactionPath).String()
}

func rejectionReason(status string, body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Message != "" {
		return eb.Message
	}
	reason := strings.TrimSpace(string(body))
	if reason == "" {
		return status
	}
	return reason
}

// IsRejection reports whether err is a server-side validation rejection
// rather than a connectivity problem.
func IsRejection(err error) bool {
	return errors.Is(err, ledger.ErrRejected)
}
