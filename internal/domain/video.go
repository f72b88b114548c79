package domain

import (
	"errors"
	"net/url"
	"strings"
	"time"
	"unicode"
)

// User-facing messages shared by the server and the session controller.
const (
	MsgEnterURL       = "Please enter a Facebook video URL"
	MsgInvalidURL     = "Please enter a valid Facebook video URL"
	MsgProcessed      = "Video processed successfully!"
	MsgProcessFailed  = "Failed to process video"
	MsgProcessRetry   = "Failed to process video. Please try again."
	MsgUnexpected     = "An unexpected error occurred. Please try again."
	MsgDownloadFailed = "Download failed. Please try again."

	DefaultTitle    = "Facebook Video"
	DefaultFormatID = "best"
)

// Hosts accepted by ValidateURL.
var recognizedHosts = []string{"facebook.com", "fb.com"}

// VideoFormat is one encoding the backend offers for a processed video.
type VideoFormat struct {
	FormatID   string `json:"format_id"`
	Resolution string `json:"resolution"`
	Ext        string `json:"ext"`
	Filesize   *int64 `json:"filesize,omitempty"`
	FormatNote string `json:"format_note"`
}

// ProcessingResult is the outcome of a single processing request.
// Failures are carried in Success/Message, never as Go errors.
type ProcessingResult struct {
	Success      bool          `json:"success"`
	DownloadID   string        `json:"downloadId,omitempty"`
	ThumbnailURL string        `json:"thumbnailUrl,omitempty"`
	DownloadURL  string        `json:"downloadUrl,omitempty"`
	Title        string        `json:"title,omitempty"`
	Formats      []VideoFormat `json:"formats,omitempty"`
	Message      string        `json:"message"`
}

// Failure builds an unsuccessful result.
func Failure(message string) ProcessingResult {
	return ProcessingResult{Success: false, Message: message}
}

// RecentVideo is a processed video shown on the home page.
type RecentVideo struct {
	DownloadID   string
	Title        string
	ThumbnailURL string
	ProcessedAt  time.Time
}

// ValidateURL checks a submitted URL the same way the form does:
// it must be non-blank and mention a recognized host.
func ValidateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return ErrEmptyURL
	}
	for _, host := range recognizedHosts {
		if strings.Contains(raw, host) {
			return nil
		}
	}
	return ErrInvalidURL
}

// ValidationMessage maps a ValidateURL error to the text shown to users.
func ValidationMessage(err error) string {
	if errors.Is(err, ErrEmptyURL) {
		return MsgEnterURL
	}
	return MsgInvalidURL
}

// ValidateDownloadID rejects ids that could escape a single path segment
// or break out of a quoted header parameter.
func ValidateDownloadID(id string) error {
	if id == "" || strings.Contains(id, "..") || strings.ContainsAny(id, `/\"`) {
		return ErrInvalidDownloadID
	}
	if strings.IndexFunc(id, unicode.IsControl) >= 0 {
		return ErrInvalidDownloadID
	}
	return nil
}

// ThumbnailPath returns the local thumbnail proxy path for a download id.
func ThumbnailPath(downloadID string) string {
	return "/api/thumbnail/" + url.PathEscape(downloadID)
}

// DownloadPath returns the download proxy path for a processed video.
// formatID is omitted from the query when empty.
func DownloadPath(downloadID, sourceURL, formatID string) string {
	var b strings.Builder
	b.WriteString("/api/download/")
	b.WriteString(url.PathEscape(downloadID))
	b.WriteString("?url=")
	b.WriteString(url.QueryEscape(sourceURL))
	if formatID != "" {
		b.WriteString("&format_id=")
		b.WriteString(url.QueryEscape(formatID))
	}
	return b.String()
}

// DownloadURL joins a base URL with DownloadPath.
func DownloadURL(baseURL, downloadID, sourceURL, formatID string) string {
	return strings.TrimRight(baseURL, "/") + DownloadPath(downloadID, sourceURL, formatID)
}
