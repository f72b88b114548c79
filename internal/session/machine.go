// Package session drives one user's submit → select → download flow.
package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/iconidentify/fbgrab/internal/domain"
)

// errSuperseded is returned by a download overtaken by Submit or Reset.
var errSuperseded = errors.New("download superseded")

// Status is the top-level state of a session.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// State is a snapshot of a session. Callers always receive copies.
type State struct {
	Status           Status
	Message          string
	URL              string
	DownloadID       string
	ThumbnailURL     string
	Title            string
	Formats          []domain.VideoFormat
	SelectedFormatID string
	IsDownloading    bool
	DownloadProgress int
	SavedPath        string
}

func (s State) clone() State {
	if s.Formats != nil {
		s.Formats = append([]domain.VideoFormat(nil), s.Formats...)
	}
	return s
}

// Processor submits a URL for processing.
type Processor interface {
	ProcessVideo(ctx context.Context, sourceURL string) (domain.ProcessingResult, error)
}

// Fetcher opens the byte stream behind a download URL.
type Fetcher interface {
	Fetch(ctx context.Context, downloadURL string) (io.ReadCloser, error)
}

// Saver offers a byte stream to the user as a named file and returns
// where it ended up. A failed save leaves nothing behind.
type Saver interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// Config holds the machine's tunables.
type Config struct {
	PublicBaseURL string
	RampInterval  time.Duration
	RampStep      int
	RampCap       int
	ResetDelay    time.Duration
}

func (c *Config) applyDefaults() {
	if c.RampInterval <= 0 {
		c.RampInterval = 500 * time.Millisecond
	}
	if c.RampStep <= 0 {
		c.RampStep = 10
	}
	if c.RampCap <= 0 || c.RampCap > 100 {
		c.RampCap = 90
	}
	if c.ResetDelay < 0 {
		c.ResetDelay = 0
	}
}

// Machine is the submission state machine. It is safe for concurrent use;
// Submit and StartDownload block and may be run on their own goroutines.
//
// Every Submit, StartDownload and Reset starts a new generation. A
// completion belonging to an older generation is dropped.
type Machine struct {
	cfg       Config
	processor Processor
	fetcher   Fetcher
	saver     Saver
	logger    *slog.Logger

	mu             sync.Mutex
	state          State
	gen            uint64
	resetTimer     *time.Timer
	cancelDownload context.CancelFunc
	onChange       func(State)

	// notifyMu keeps observer calls in transition order.
	notifyMu sync.Mutex
}

// NewMachine creates an idle machine.
func NewMachine(cfg Config, processor Processor, fetcher Fetcher, saver Saver, logger *slog.Logger) *Machine {
	cfg.applyDefaults()
	return &Machine{
		cfg:       cfg,
		processor: processor,
		fetcher:   fetcher,
		saver:     saver,
		logger:    logger,
		state:     State{Status: StatusIdle},
	}
}

// OnChange registers fn to be called with a snapshot after every applied
// transition, in transition order. fn runs synchronously and must not call
// back into the machine; hand the snapshot off instead.
func (m *Machine) OnChange(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// State returns a snapshot of the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// Submit validates rawURL and, if it passes, runs one processing request.
// Invalid input never reaches the processor. The returned snapshot is the
// state after this submission settled, or the newer state if another
// call superseded it.
func (m *Machine) Submit(ctx context.Context, rawURL string) State {
	sourceURL := strings.TrimSpace(rawURL)

	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.stopResetLocked()
	m.abortDownloadLocked()

	if err := domain.ValidateURL(sourceURL); err != nil {
		m.state = State{
			Status:  StatusError,
			Message: domain.ValidationMessage(err),
			URL:     sourceURL,
		}
		return m.commitLocked()
	}

	m.state = State{
		Status: StatusLoading,
		URL:    sourceURL,
	}
	m.commitLocked()

	result, err := m.processor.ProcessVideo(ctx, sourceURL)

	m.mu.Lock()
	if gen != m.gen {
		m.logger.Debug("discarding stale processing result", "url", sourceURL)
		snap := m.state.clone()
		m.mu.Unlock()
		return snap
	}

	switch {
	case err != nil:
		m.logger.Error("processing request failed", "url", sourceURL, "error", err)
		m.state.Status = StatusError
		m.state.Message = domain.MsgUnexpected

	case !result.Success:
		m.state.Status = StatusError
		m.state.Message = result.Message
		if m.state.Message == "" {
			m.state.Message = domain.MsgProcessRetry
		}

	default:
		title := result.Title
		if title == "" {
			title = domain.DefaultTitle
		}
		m.state.Status = StatusSuccess
		m.state.Message = domain.MsgProcessed
		m.state.DownloadID = result.DownloadID
		m.state.ThumbnailURL = result.ThumbnailURL
		m.state.Title = title
		m.state.Formats = append([]domain.VideoFormat(nil), result.Formats...)
		if len(result.Formats) > 0 {
			m.state.SelectedFormatID = result.Formats[0].FormatID
		}
		m.logger.Info("video processed",
			"download_id", result.DownloadID,
			"title", title,
			"formats", len(result.Formats),
		)
	}

	return m.commitLocked()
}

// SelectFormat chooses the format used by the next download. Selecting
// the current format is a no-op.
func (m *Machine) SelectFormat(formatID string) error {
	m.mu.Lock()

	if m.state.Status != StatusSuccess {
		m.mu.Unlock()
		return domain.ErrNotReady
	}
	if m.state.SelectedFormatID == formatID {
		m.mu.Unlock()
		return nil
	}
	if len(m.state.Formats) > 0 && !hasFormat(m.state.Formats, formatID) {
		m.mu.Unlock()
		return domain.ErrUnknownFormat
	}

	m.state.SelectedFormatID = formatID
	m.commitLocked()
	return nil
}

func hasFormat(formats []domain.VideoFormat, formatID string) bool {
	for _, f := range formats {
		if f.FormatID == formatID {
			return true
		}
	}
	return false
}

// StartDownload fetches the selected format and hands it to the saver.
// Progress ramps cosmetically while the transfer runs and jumps to 100
// once the file is saved. It blocks until the transfer settles.
func (m *Machine) StartDownload(ctx context.Context) error {
	m.mu.Lock()

	if m.state.Status != StatusSuccess {
		m.mu.Unlock()
		return domain.ErrNotReady
	}
	if m.state.IsDownloading {
		m.mu.Unlock()
		return domain.ErrDownloadInProgress
	}

	m.gen++
	gen := m.gen
	m.stopResetLocked()

	downloadURL := domain.DownloadURL(m.cfg.PublicBaseURL, m.state.DownloadID, m.state.URL, m.state.SelectedFormatID)
	name := m.state.Title + ".mp4"
	downloadID := m.state.DownloadID

	ctx, cancel := context.WithCancel(ctx)
	m.cancelDownload = cancel

	m.state.IsDownloading = true
	m.state.DownloadProgress = 0
	m.state.SavedPath = ""
	m.commitLocked()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.ramp(ctx, gen)
	}()

	path, err := m.transfer(ctx, gen, downloadURL, name)

	cancel()
	wg.Wait()

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		m.logger.Debug("discarding stale download result", "download_id", downloadID)
		return err
	}
	m.cancelDownload = nil

	if err != nil {
		m.logger.Error("download failed", "download_id", downloadID, "error", err)
		m.state.Status = StatusError
		m.state.Message = domain.MsgDownloadFailed
		m.state.IsDownloading = false
		m.state.DownloadProgress = 0
		m.commitLocked()
		return err
	}

	m.logger.Info("download saved", "download_id", downloadID, "path", path)
	m.state.DownloadProgress = 100
	m.state.SavedPath = path
	m.resetTimer = time.AfterFunc(m.cfg.ResetDelay, func() {
		m.finishDownload(gen)
	})
	m.commitLocked()
	return nil
}

// transfer fetches downloadURL and saves it as name. Nothing is saved once
// gen has been superseded.
func (m *Machine) transfer(ctx context.Context, gen uint64, downloadURL, name string) (string, error) {
	body, err := m.fetcher.Fetch(ctx, downloadURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	if !m.isCurrent(gen) {
		return "", errSuperseded
	}
	return m.saver.Save(ctx, name, body)
}

func (m *Machine) isCurrent(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen == m.gen
}

// ramp advances progress until ctx is cancelled.
func (m *Machine) ramp(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(m.cfg.RampInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.advance(gen)
		}
	}
}

func (m *Machine) advance(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || !m.state.IsDownloading || m.state.DownloadProgress >= m.cfg.RampCap {
		m.mu.Unlock()
		return
	}

	m.state.DownloadProgress = min(m.state.DownloadProgress+m.cfg.RampStep, m.cfg.RampCap)
	m.commitLocked()
}

func (m *Machine) finishDownload(gen uint64) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}

	m.resetTimer = nil
	m.state.IsDownloading = false
	m.state.DownloadProgress = 0
	m.commitLocked()
}

// Reset returns the machine to idle and drops any in-flight completion.
func (m *Machine) Reset() {
	m.mu.Lock()
	m.gen++
	m.stopResetLocked()
	m.abortDownloadLocked()
	m.state = State{Status: StatusIdle}
	m.commitLocked()
}

// abortDownloadLocked cancels the transfer of a running download.
func (m *Machine) abortDownloadLocked() {
	if m.cancelDownload != nil {
		m.cancelDownload()
		m.cancelDownload = nil
	}
}

func (m *Machine) stopResetLocked() {
	if m.resetTimer != nil {
		m.resetTimer.Stop()
		m.resetTimer = nil
	}
}

// commitLocked publishes the current state to the observer and releases mu.
// It must be called with mu held.
func (m *Machine) commitLocked() State {
	snap := m.state.clone()
	fn := m.onChange

	m.notifyMu.Lock()
	m.mu.Unlock()
	defer m.notifyMu.Unlock()

	if fn != nil {
		fn(snap.clone())
	}
	return snap
}
