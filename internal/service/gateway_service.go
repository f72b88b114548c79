package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/iconidentify/fbgrab/internal/backend"
	"github.com/iconidentify/fbgrab/internal/domain"
	"github.com/iconidentify/fbgrab/internal/repository"
)

// HomePath is the route refreshed after a video is processed.
const HomePath = "/"

// VideoProcessor submits a source URL to the processing backend.
type VideoProcessor interface {
	ProcessVideo(ctx context.Context, sourceURL string) (*backend.ProcessResponse, error)
}

// Invalidator drops cached renderings of a route.
type Invalidator interface {
	Invalidate(path string)
}

// GatewayService turns backend processing calls into ProcessingResults.
type GatewayService struct {
	backend     VideoProcessor
	recents     repository.RecentRepository
	invalidator Invalidator
	logger      *slog.Logger
	now         func() time.Time
}

// NewGatewayService creates a new gateway service. recents and invalidator
// may be nil.
func NewGatewayService(
	processor VideoProcessor,
	recents repository.RecentRepository,
	invalidator Invalidator,
	logger *slog.Logger,
) *GatewayService {
	return &GatewayService{
		backend:     processor,
		recents:     recents,
		invalidator: invalidator,
		logger:      logger,
		now:         time.Now,
	}
}

// ProcessVideo sends one processing request and normalizes the outcome.
// It never returns an error: every failure becomes an unsuccessful result.
func (s *GatewayService) ProcessVideo(ctx context.Context, sourceURL string) domain.ProcessingResult {
	resp, err := s.backend.ProcessVideo(ctx, sourceURL)
	if err != nil {
		if ue, ok := domain.AsUpstream(err); ok {
			s.logger.Warn("backend rejected video",
				"url", sourceURL,
				"status", ue.StatusCode,
				"message", ue.Message,
			)
			if ue.Message != "" {
				return domain.Failure(ue.Message)
			}
			return domain.Failure(domain.MsgProcessFailed)
		}

		s.logger.Error("error processing video", "url", sourceURL, "error", err)
		return domain.Failure(domain.MsgProcessRetry)
	}

	thumbnail := resp.ThumbnailURL
	if thumbnail == "" {
		thumbnail = domain.ThumbnailPath(resp.DownloadID)
	}

	result := domain.ProcessingResult{
		Success:      true,
		DownloadID:   resp.DownloadID,
		ThumbnailURL: thumbnail,
		DownloadURL:  domain.DownloadPath(resp.DownloadID, sourceURL, ""),
		Title:        resp.Title,
		Formats:      resp.Formats,
		Message:      domain.MsgProcessed,
	}

	s.logger.Info("video processed",
		"download_id", resp.DownloadID,
		"title", resp.Title,
		"formats", len(resp.Formats),
	)

	s.revalidateHome(ctx, result)
	return result
}

// revalidateHome records the video and drops the cached home page so the
// next render shows it.
func (s *GatewayService) revalidateHome(ctx context.Context, result domain.ProcessingResult) {
	if s.recents != nil {
		title := result.Title
		if title == "" {
			title = domain.DefaultTitle
		}
		err := s.recents.Add(ctx, domain.RecentVideo{
			DownloadID:   result.DownloadID,
			Title:        title,
			ThumbnailURL: result.ThumbnailURL,
			ProcessedAt:  s.now(),
		})
		if err != nil {
			s.logger.Warn("failed to record recent video", "download_id", result.DownloadID, "error", err)
		}
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(HomePath)
	}
}
