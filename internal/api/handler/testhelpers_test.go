package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/iconidentify/fbgrab/internal/backend"
	"github.com/iconidentify/fbgrab/internal/domain"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockProcessor is a test implementation of Processor.
type mockProcessor struct {
	result domain.ProcessingResult
	urls   []string
}

func (m *mockProcessor) ProcessVideo(ctx context.Context, sourceURL string) domain.ProcessingResult {
	m.urls = append(m.urls, sourceURL)
	return m.result
}

// downloadCall records the arguments of a Download call.
type downloadCall struct {
	id, url, formatID string
}

// mockFetcher is a test implementation of ResourceFetcher.
type mockFetcher struct {
	mu sync.Mutex

	content     []byte
	contentType string
	downloadErr error
	downloads   []downloadCall

	thumbnail    json.RawMessage
	thumbnailErr error
	thumbnails   []string
}

func (m *mockFetcher) Download(ctx context.Context, downloadID, sourceURL, formatID string) (*backend.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.downloads = append(m.downloads, downloadCall{downloadID, sourceURL, formatID})
	if m.downloadErr != nil {
		return nil, m.downloadErr
	}
	return &backend.Stream{
		Body:          io.NopCloser(bytes.NewReader(m.content)),
		ContentLength: int64(len(m.content)),
		ContentType:   m.contentType,
	}, nil
}

func (m *mockFetcher) Thumbnail(ctx context.Context, downloadID string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.thumbnails = append(m.thumbnails, downloadID)
	if m.thumbnailErr != nil {
		return nil, m.thumbnailErr
	}
	return m.thumbnail, nil
}

// mockPinger is a test implementation of BackendPinger.
type mockPinger struct {
	err error
}

func (m *mockPinger) Health(ctx context.Context) error {
	return m.err
}
