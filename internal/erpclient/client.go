// Package erpclient talks to the ERP REST backend on behalf of a session.
package erpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/erp-reports/backend-go/internal/domain"
	"github.com/andresuchdata/erp-reports/backend-go/internal/session"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const maxErrorBody = 1 << 20

// ListResult is a decoded list response.
type ListResult struct {
	Items []domain.Row
	// Total is the backend's total-count metadata, -1 when absent.
	Total int
}

type Client struct {
	baseURL string
	timeout time.Duration
	base    http.RoundTripper
}

// New creates a client for the backend at baseURL. Every request gets its own
// deadline of timeout; a nil transport uses http.DefaultTransport.
func New(baseURL string, timeout time.Duration, transport http.RoundTripper) *Client {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		base:    transport,
	}
}

// httpClient authenticates every request with the snapshot's bearer token.
func (c *Client) httpClient(snap session.Snapshot) *http.Client {
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: snap.TokenSource(),
			Base:   c.base,
		},
	}
}

// List issues one GET to a list endpoint and extracts the named payload field.
func (c *Client) List(ctx context.Context, snap session.Snapshot, path string, query url.Values, payloadField string) (*ListResult, error) {
	body, err := c.do(ctx, snap, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	return decodeList(body, payloadField)
}

// Get fetches a single entity.
func (c *Client) Get(ctx context.Context, snap session.Snapshot, path string) (domain.Row, error) {
	body, err := c.do(ctx, snap, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeEntity(body)
}

// Send performs a create/update/delete call and returns the decoded entity, if any.
func (c *Client) Send(ctx context.Context, snap session.Snapshot, method, path string, payload any) (domain.Row, error) {
	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	body, err := c.do(ctx, snap, method, path, nil, reader)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return domain.Row{}, nil
	}
	return decodeEntity(body)
}

func (c *Client) do(ctx context.Context, snap session.Snapshot, method, path string, query url.Values, body io.Reader) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient(snap).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("backend call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &domain.APIError{Status: resp.StatusCode, Message: ErrorMessage(raw)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return raw, nil
}

// ErrorMessage extracts the "message" field of an error body, falling back to
// a generic message when it is missing.
func ErrorMessage(body []byte) string {
	var payload struct {
		Message any `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.FallbackErrorMessage
	}
	switch m := payload.Message.(type) {
	case string:
		if strings.TrimSpace(m) != "" {
			return m
		}
	case []any:
		parts := make([]string, 0, len(m))
		for _, p := range m {
			if s, ok := p.(string); ok && s != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "; ")
		}
	}
	return domain.FallbackErrorMessage
}

var totalFields = []string{"total", "totalCount", "totalItems", "count"}

func decodeList(body []byte, payloadField string) (*ListResult, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []domain.Row
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode list response: %w", err)
		}
		return &ListResult{Items: nonNil(items), Total: -1}, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("decode list response: %w", err)
	}

	result := &ListResult{Total: -1}
	if raw, ok := envelope[payloadField]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &result.Items); err != nil {
			return nil, fmt.Errorf("decode %q payload: %w", payloadField, err)
		}
	}
	result.Items = nonNil(result.Items)

	for _, field := range totalFields {
		raw, ok := envelope[field]
		if !ok {
			continue
		}
		if n, ok := parseCount(raw); ok {
			result.Total = n
			break
		}
	}
	return result, nil
}

func decodeEntity(body []byte) (domain.Row, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode entity response: %w", err)
	}
	// Entities come back either bare or wrapped in "data".
	if raw, ok := envelope["data"]; ok && len(bytes.TrimSpace(raw)) > 0 && bytes.TrimSpace(raw)[0] == '{' {
		var row domain.Row
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, fmt.Errorf("decode entity data: %w", err)
		}
		return row, nil
	}
	var row domain.Row
	if err := json.Unmarshal(body, &row); err != nil {
		return nil, fmt.Errorf("decode entity response: %w", err)
	}
	return row, nil
}

func parseCount(raw json.RawMessage) (int, bool) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if v, err := n.Int64(); err == nil {
			return int(v), true
		}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.Atoi(s); err == nil {
			return v, true
		}
	}
	return 0, false
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

func nonNil(items []domain.Row) []domain.Row {
	if items == nil {
		return []domain.Row{}
	}
	return items
}
