package repository

import (
	"context"

	"github.com/iconidentify/fbgrab/internal/domain"
)

// RecentRepository keeps the most recently processed videos.
type RecentRepository interface {
	// Add records a processed video, replacing an older entry with the same id.
	Add(ctx context.Context, video domain.RecentVideo) error

	// List returns recent videos, newest first.
	List(ctx context.Context) ([]domain.RecentVideo, error)

	// Len returns the number of recorded videos.
	Len(ctx context.Context) (int, error)
}
