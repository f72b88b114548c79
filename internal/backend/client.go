package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/iconidentify/fbgrab/internal/config"
	"github.com/iconidentify/fbgrab/internal/domain"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Ensure Client implements API at compile time.
var _ API = (*Client)(nil)

// Client implements API over HTTP.
type Client struct {
	baseURL string
	// client is used for JSON requests
	client *http.Client
	// streamClient is used for downloads and never sets an overall timeout
	streamClient *http.Client
	userAgent    string
	logger       *slog.Logger
}

// NewClient creates a backend client from configuration.
func NewClient(cfg config.BackendConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		streamClient: &http.Client{},
		userAgent:    cfg.UserAgent,
		logger:       slog.Default(),
	}
}

// SetLogger sets the logger used for upstream diagnostics.
func (c *Client) SetLogger(logger *slog.Logger) {
	c.logger = logger
}

// ProcessVideo posts the source URL to /api/process-video.
// Non-success statuses are returned as *domain.UpstreamError carrying the
// backend's message; undecodable bodies wrap domain.ErrInvalidResponse.
func (c *Client) ProcessVideo(ctx context.Context, sourceURL string) (*ProcessResponse, error) {
	body, err := json.Marshal(map[string]string{"url": sourceURL})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/process-video", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		msg, err := decodeError(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("status %d: %w", resp.StatusCode, err)
		}
		return nil, domain.NewUpstreamError(resp.StatusCode, msg)
	}

	var out ProcessResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidResponse, err)
	}
	return &out, nil
}

// Download opens GET /api/download/{id}. An empty formatID means "best".
func (c *Client) Download(ctx context.Context, downloadID, sourceURL, formatID string) (*Stream, error) {
	if formatID == "" {
		formatID = domain.DefaultFormatID
	}
	path := domain.DownloadPath(downloadID, sourceURL, formatID)

	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	if !isSuccess(resp.StatusCode) {
		defer resp.Body.Close()
		// An unreadable error body still yields the upstream status.
		msg, _ := decodeError(resp.Body)
		c.logger.Warn("backend download failed",
			"download_id", downloadID,
			"status", resp.StatusCode,
			"message", msg,
		)
		return nil, domain.NewUpstreamError(resp.StatusCode, msg)
	}

	return &Stream{
		Body:          resp.Body,
		ContentLength: resp.ContentLength,
		ContentType:   resp.Header.Get("Content-Type"),
	}, nil
}

// Thumbnail fetches GET /api/thumbnail/{id}. The error body of a failed
// request is not inspected.
func (c *Client) Thumbnail(ctx context.Context, downloadID string) (json.RawMessage, error) {
	req, err := c.newRequest(ctx, http.MethodGet, domain.ThumbnailPath(downloadID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return nil, domain.NewUpstreamError(resp.StatusCode, "")
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if !json.Valid(data) {
		return nil, domain.ErrInvalidResponse
	}
	return json.RawMessage(data), nil
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	if !isSuccess(resp.StatusCode) {
		return domain.NewUpstreamError(resp.StatusCode, "")
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, */*;q=0.8")
	req.Header.Set("X-Request-ID", requestID(ctx))
	return req, nil
}

// requestID propagates the inbound request id, or mints one for calls
// that did not originate from an HTTP request.
func requestID(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// decodeError reads a backend error body and returns its message, which
// may be empty when the body is JSON without one.
func decodeError(r io.Reader) (string, error) {
	var body errorBody
	if err := json.NewDecoder(io.LimitReader(r, maxErrorBody)).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidResponse, err)
	}
	return body.text(), nil
}
