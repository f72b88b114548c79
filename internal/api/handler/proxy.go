package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/fbgrab/internal/backend"
	"github.com/iconidentify/fbgrab/internal/domain"
)

// Proxy error messages.
const (
	msgURLRequired       = "Video URL is required"
	msgInvalidDownloadID = "Invalid download ID"
	msgDownloadFailed    = "Failed to download video"
	msgThumbnailFailed   = "Failed to fetch thumbnail"
)

// ResourceFetcher opens backend resources by download id.
type ResourceFetcher interface {
	Download(ctx context.Context, downloadID, sourceURL, formatID string) (*backend.Stream, error)
	Thumbnail(ctx context.Context, downloadID string) (json.RawMessage, error)
}

// ProxyHandler relays downloads and thumbnails from the backend.
// It keeps no state and never retries.
type ProxyHandler struct {
	backend ResourceFetcher
	logger  *slog.Logger
}

// NewProxyHandler creates a new proxy handler.
func NewProxyHandler(fetcher ResourceFetcher, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		backend: fetcher,
		logger:  logger,
	}
}

// Download handles GET /api/download/{id}?url=&format_id=
// The body is always advertised as an MP4 attachment, whatever the
// backend's own content type.
func (h *ProxyHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := downloadID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidDownloadID)
		return
	}

	videoURL := r.URL.Query().Get("url")
	if videoURL == "" {
		writeError(w, http.StatusBadRequest, msgURLRequired)
		return
	}

	formatID := r.URL.Query().Get("format_id")
	if formatID == "" {
		formatID = domain.DefaultFormatID
	}

	stream, err := h.backend.Download(r.Context(), id, videoURL, formatID)
	if err != nil {
		if ue, ok := domain.AsUpstream(err); ok {
			msg := ue.Message
			if msg == "" {
				msg = msgDownloadFailed
			}
			writeError(w, ue.StatusCode, msg)
			return
		}
		h.logger.Error("error downloading video", "download_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, msgDownloadFailed)
		return
	}
	defer stream.Body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.mp4"`, id))
	if stream.ContentLength >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(stream.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)

	n, err := io.Copy(w, stream.Body)
	if err != nil {
		// Headers are already sent; the client sees a truncated body.
		h.logger.Warn("download relay interrupted",
			"download_id", id,
			"bytes", n,
			"error", err,
		)
		return
	}

	h.logger.Info("download relayed", "download_id", id, "format_id", formatID, "bytes", n)
}

// downloadID returns the decoded {id} path segment. chi hands out the raw
// segment when the path carries escapes, so "a%2Fb" must be decoded before
// it is validated.
func downloadID(r *http.Request) (string, error) {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		return "", domain.ErrInvalidDownloadID
	}
	if err := domain.ValidateDownloadID(id); err != nil {
		return "", err
	}
	return id, nil
}

// Thumbnail handles GET /api/thumbnail/{id}
func (h *ProxyHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	id, err := downloadID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidDownloadID)
		return
	}

	data, err := h.backend.Thumbnail(r.Context(), id)
	if err != nil {
		if ue, ok := domain.AsUpstream(err); ok {
			writeError(w, ue.StatusCode, msgThumbnailFailed)
			return
		}
		h.logger.Error("error fetching thumbnail", "download_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, msgThumbnailFailed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
