// Package client talks to the fbgrab server and the public backend on
// behalf of the terminal client.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/iconidentify/fbgrab/internal/domain"
	"github.com/iconidentify/fbgrab/internal/session"
)

const (
	defaultUserAgent = "fbgrab-cli/1.0"
	maxErrorBody     = 64 << 10
)

// Ensure Client implements the session collaborators at compile time.
var (
	_ session.Processor = (*Client)(nil)
	_ session.Fetcher   = (*Client)(nil)
)

// Client submits URLs to the server and fetches downloads.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	sessionID string
}

// NewClient builds a Client for the server at serverURL. sessionID is sent
// as X-Request-ID on every request so server logs can be correlated.
func NewClient(serverURL, sessionID string) (*Client, error) {
	base, err := parseBaseURL(serverURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		// No timeout: processing and downloads take as long as the backend needs.
		http:      &http.Client{},
		userAgent: defaultUserAgent,
		sessionID: sessionID,
	}, nil
}

// ProcessVideo posts sourceURL to POST /api/process. Backend failures come
// back as an unsuccessful result; only transport and protocol problems are
// returned as errors.
func (c *Client) ProcessVideo(ctx context.Context, sourceURL string) (domain.ProcessingResult, error) {
	if c == nil {
		return domain.ProcessingResult{}, fmt.Errorf("client is nil")
	}

	body, err := json.Marshal(map[string]string{"url": sourceURL})
	if err != nil {
		return domain.ProcessingResult{}, fmt.Errorf("marshal request: %w", err)
	}

	reqURL := c.baseURL.ResolveReference(&url.URL{Path: "/api/process"})
	req, err := c.newRequest(ctx, http.MethodPost, reqURL.String(), bytes.NewReader(body))
	if err != nil {
		return domain.ProcessingResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.ProcessingResult{}, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.ProcessingResult{}, decodeError(resp)
	}

	var result domain.ProcessingResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.ProcessingResult{}, fmt.Errorf("decode response: %w", errors.Join(domain.ErrInvalidResponse, err))
	}
	return result, nil
}

// Fetch opens downloadURL for streaming. The caller closes the body.
func (c *Client) Fetch(ctx context.Context, downloadURL string) (io.ReadCloser, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}

	req, err := c.newRequest(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer func() { _ = resp.Body.Close() }()
		return nil, decodeError(resp)
	}
	return resp.Body, nil
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if c.sessionID != "" {
		req.Header.Set("X-Request-ID", c.sessionID)
	}
	return req, nil
}

// errorPayload covers the error shapes of the server ("error") and the
// backend ("message", or FastAPI's "detail").
type errorPayload struct {
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail"`
}

func (p errorPayload) text() string {
	switch {
	case p.Error != "":
		return p.Error
	case p.Message != "":
		return p.Message
	}
	var detail string
	if len(p.Detail) > 0 && json.Unmarshal(p.Detail, &detail) == nil {
		return detail
	}
	return ""
}

func decodeError(resp *http.Response) error {
	var payload errorPayload
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if len(data) > 0 {
		_ = json.Unmarshal(data, &payload)
	}
	return domain.NewUpstreamError(resp.StatusCode, payload.text())
}

func parseBaseURL(serverURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(serverURL)
	if trimmed == "" {
		return nil, fmt.Errorf("server url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse server url %q: %w", serverURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("server url %q has no host", serverURL)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
