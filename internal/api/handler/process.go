package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/iconidentify/fbgrab/internal/domain"
)

// maxProcessBody bounds the size of a process request.
const maxProcessBody = 16 << 10

// Processor runs one processing request to completion.
type Processor interface {
	ProcessVideo(ctx context.Context, sourceURL string) domain.ProcessingResult
}

// ProcessHandler exposes the gateway to browsers and terminal clients.
type ProcessHandler struct {
	processor Processor
	logger    *slog.Logger
}

// NewProcessHandler creates a new process handler.
func NewProcessHandler(processor Processor, logger *slog.Logger) *ProcessHandler {
	return &ProcessHandler{
		processor: processor,
		logger:    logger,
	}
}

// ProcessRequest is the JSON request body for POST /api/process.
type ProcessRequest struct {
	URL string `json:"url"`
}

// Process handles POST /api/process. Backend failures are reported inside
// the result with status 200; only an undecodable request is a 400.
func (h *ProcessHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxProcessBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := h.processor.ProcessVideo(r.Context(), req.URL)
	if !result.Success {
		h.logger.Info("process request failed", "url", req.URL, "message", result.Message)
	}

	writeJSON(w, http.StatusOK, result)
}
