package backend

import (
	"context"
	"encoding/json"
	"io"

	"github.com/iconidentify/fbgrab/internal/domain"
)

// API is the subset of the processing backend this service talks to.
type API interface {
	// ProcessVideo asks the backend to extract metadata for a source URL.
	ProcessVideo(ctx context.Context, sourceURL string) (*ProcessResponse, error)

	// Download opens the encoded video for a processed id.
	// Caller is responsible for closing the returned body.
	Download(ctx context.Context, downloadID, sourceURL, formatID string) (*Stream, error)

	// Thumbnail fetches the JSON thumbnail document for a processed id.
	Thumbnail(ctx context.Context, downloadID string) (json.RawMessage, error)

	// Health checks that the backend answers its health endpoint.
	Health(ctx context.Context) error
}

// ProcessResponse is the backend's answer to POST /api/process-video.
type ProcessResponse struct {
	Success      bool                 `json:"success"`
	Message      string               `json:"message"`
	DownloadID   string               `json:"download_id"`
	ThumbnailURL string               `json:"thumbnail_url"`
	Title        string               `json:"title"`
	Duration     *float64             `json:"duration,omitempty"`
	Formats      []domain.VideoFormat `json:"formats"`
}

// Stream is an open download body.
type Stream struct {
	Body          io.ReadCloser
	ContentLength int64
	ContentType   string
}

// errorBody is the error shape the backend uses. FastAPI reports
// HTTPException text in "detail"; hand-written handlers use "message".
type errorBody struct {
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail"`
}

func (e errorBody) text() string {
	if e.Message != "" {
		return e.Message
	}
	var detail string
	if len(e.Detail) > 0 && json.Unmarshal(e.Detail, &detail) == nil {
		return detail
	}
	return ""
}
