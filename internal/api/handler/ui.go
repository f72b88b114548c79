package handler

import (
	"bytes"
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/iconidentify/fbgrab/internal/domain"
	"github.com/iconidentify/fbgrab/internal/repository"
	"github.com/iconidentify/fbgrab/pkg/ui"
)

// homePath is the cache key of the rendered home page.
const homePath = "/"

var indexTemplate = template.Must(template.New("index").Funcs(template.FuncMap{
	"humanTime": humanize.Time,
}).Parse(string(ui.IndexHTML)))

// UIHandler serves the web UI. The rendered home page is cached until
// Invalidate is called for its path.
type UIHandler struct {
	recents repository.RecentRepository
	logger  *slog.Logger

	mu    sync.Mutex
	cache map[string][]byte
}

// NewUIHandler creates a new UI handler.
func NewUIHandler(recents repository.RecentRepository, logger *slog.Logger) *UIHandler {
	return &UIHandler{
		recents: recents,
		logger:  logger,
		cache:   make(map[string][]byte),
	}
}

// indexData is the template input for the home page.
type indexData struct {
	Recent      []domain.RecentVideo
	HelpPhrases []string
	HelpText    string
}

// Index serves the home page.
func (h *UIHandler) Index(w http.ResponseWriter, r *http.Request) {
	page, err := h.page(r.Context(), homePath)
	if err != nil {
		h.logger.Error("render home page", "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

// Invalidate drops the cached rendering of path.
func (h *UIHandler) Invalidate(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.cache[path]; ok {
		delete(h.cache, path)
		h.logger.Debug("page cache invalidated", "path", path)
	}
}

// page returns the cached rendering of path, rendering it on a miss.
func (h *UIHandler) page(ctx context.Context, path string) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if page, ok := h.cache[path]; ok {
		return page, nil
	}

	data := indexData{
		HelpPhrases: domain.HelpPhrases,
		HelpText:    domain.HelpText,
	}
	if h.recents != nil {
		recent, err := h.recents.List(ctx)
		if err != nil {
			return nil, err
		}
		data.Recent = recent
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}

	page := buf.Bytes()
	h.cache[path] = page
	return page, nil
}
