package tui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/iconidentify/fbgrab/internal/domain"
	"github.com/iconidentify/fbgrab/internal/session"
)

type stubProcessor struct{}

func (stubProcessor) ProcessVideo(ctx context.Context, sourceURL string) (domain.ProcessingResult, error) {
	return domain.ProcessingResult{
		Success:    true,
		DownloadID: "abc",
		Title:      "Clip",
		Formats:    []domain.VideoFormat{{FormatID: "hd", Ext: "mp4"}},
		Message:    domain.MsgProcessed,
	}, nil
}

type stubFetcher struct{}

func (stubFetcher) Fetch(ctx context.Context, downloadURL string) (io.ReadCloser, error) {
	return nil, errors.New("not used")
}

type stubSaver struct{}

func (stubSaver) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	return "", errors.New("not used")
}

func newTestApp(t *testing.T) (*App, *session.Machine) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := session.NewMachine(session.Config{}, stubProcessor{}, stubFetcher{}, stubSaver{}, logger)
	a := NewApp(m, logger)

	screen := tcell.NewSimulationScreen("UTF-8")
	a.app.SetScreen(screen)
	return a, m
}

func TestApp_SubmitBeforeRun(t *testing.T) {
	const videoURL = "https://www.facebook.com/watch?v=123"
	a, m := newTestApp(t)

	returned := make(chan struct{})
	go func() {
		a.Submit(videoURL)
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("Submit blocked before Run")
	}

	if got := a.urlInput.GetText(); got != videoURL {
		t.Errorf("url field = %q, want %q", got, videoURL)
	}

	runErr := make(chan error, 1)
	go func() { runErr <- a.Run() }()

	// Focus moves to the formats table on the event loop once the
	// submission has succeeded.
	deadline := time.Now().Add(2 * time.Second)
	for a.app.GetFocus() != a.formatsTable {
		if time.Now().After(deadline) {
			t.Fatalf("formats table never focused; status = %q", m.State().Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if s := m.State(); s.Status != session.StatusSuccess || s.URL != videoURL {
		t.Errorf("state = %+v", s)
	}

	a.Stop()
	select {
	case err := <-runErr:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}
