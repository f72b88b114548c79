package domain

import (
	"errors"
	"fmt"
)

// Domain errors.
var (
	// ErrEmptyURL is returned when a submission carries no URL.
	ErrEmptyURL = errors.New("video URL is empty")

	// ErrInvalidURL is returned when the URL does not point at a supported host.
	ErrInvalidURL = errors.New("not a Facebook video URL")

	// ErrInvalidDownloadID is returned for ids that are not a single path segment.
	ErrInvalidDownloadID = errors.New("invalid download ID")

	// ErrUpstreamStatus is returned when the backend answers with a non-success status.
	ErrUpstreamStatus = errors.New("backend returned an error status")

	// ErrInvalidResponse is returned when the backend body cannot be decoded.
	ErrInvalidResponse = errors.New("invalid backend response")

	// ErrNotReady is returned when an action needs a processed video and none is loaded.
	ErrNotReady = errors.New("no processed video")

	// ErrDownloadInProgress is returned when a download is started while one is running.
	ErrDownloadInProgress = errors.New("download already in progress")

	// ErrUnknownFormat is returned when selecting a format the backend did not offer.
	ErrUnknownFormat = errors.New("unknown format")
)

// UpstreamError carries the status and message reported by the backend.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend status %d", e.StatusCode)
}

func (e *UpstreamError) Unwrap() error {
	return ErrUpstreamStatus
}

// NewUpstreamError creates a new UpstreamError.
func NewUpstreamError(status int, message string) *UpstreamError {
	return &UpstreamError{
		StatusCode: status,
		Message:    message,
	}
}

// AsUpstream extracts an UpstreamError from err's chain.
func AsUpstream(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
