package session

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/iconidentify/fbgrab/internal/domain"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockProcessor is a test implementation of Processor. Results are keyed by
// URL; a URL with a gate blocks until the gate is closed.
type mockProcessor struct {
	mu      sync.Mutex
	results map[string]domain.ProcessingResult
	errs    map[string]error
	gates   map[string]chan struct{}
	calls   []string
}

func newMockProcessor() *mockProcessor {
	return &mockProcessor{
		results: make(map[string]domain.ProcessingResult),
		errs:    make(map[string]error),
		gates:   make(map[string]chan struct{}),
	}
}

func (m *mockProcessor) ProcessVideo(ctx context.Context, sourceURL string) (domain.ProcessingResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, sourceURL)
	gate := m.gates[sourceURL]
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.ProcessingResult{}, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs[sourceURL]; err != nil {
		return domain.ProcessingResult{}, err
	}
	return m.results[sourceURL], nil
}

func (m *mockProcessor) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// mockFetcher is a test implementation of Fetcher.
type mockFetcher struct {
	mu      sync.Mutex
	content []byte
	err     error
	gate    chan struct{}
	urls    []string

	// ignoreCancel makes Fetch wait for the gate even after ctx is done.
	ignoreCancel bool
}

func (m *mockFetcher) Fetch(ctx context.Context, downloadURL string) (io.ReadCloser, error) {
	m.mu.Lock()
	m.urls = append(m.urls, downloadURL)
	gate := m.gate
	m.mu.Unlock()

	switch {
	case gate != nil && m.ignoreCancel:
		<-gate
	case gate != nil:
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.err != nil {
		return nil, m.err
	}
	return io.NopCloser(bytes.NewReader(m.content)), nil
}

func (m *mockFetcher) fetchedURLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.urls...)
}

// mockSaver is a test implementation of Saver that keeps files in memory.
type mockSaver struct {
	mu    sync.Mutex
	err   error
	files map[string][]byte
}

func newMockSaver() *mockSaver {
	return &mockSaver{files: make(map[string][]byte)}
}

func (m *mockSaver) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if m.err != nil {
		return "", m.err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = data
	return "/downloads/" + name, nil
}

func (m *mockSaver) fileCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

func (m *mockSaver) file(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	return data, ok
}

// recorder collects every snapshot published by a machine.
type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) record(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) snapshot() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func sampleResult(id string) domain.ProcessingResult {
	return domain.ProcessingResult{
		Success:      true,
		DownloadID:   id,
		ThumbnailURL: "https://cdn.example/" + id + ".jpg",
		DownloadURL:  "/api/download/" + id,
		Title:        "Clip " + id,
		Formats: []domain.VideoFormat{
			{FormatID: "hd", Resolution: "1280x720", Ext: "mp4", FormatNote: "720p"},
			{FormatID: "sd", Resolution: "640x360", Ext: "mp4", FormatNote: "360p"},
		},
		Message: domain.MsgProcessed,
	}
}
