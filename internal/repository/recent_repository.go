package repository

import (
	"context"
	"sync"

	"github.com/iconidentify/fbgrab/internal/domain"
)

// InMemoryRecentRepository implements RecentRepository as a bounded list.
// Nothing is persisted; the list lives as long as the process.
type InMemoryRecentRepository struct {
	mu       sync.RWMutex
	capacity int
	videos   []domain.RecentVideo // newest first
}

// NewInMemoryRecentRepository creates a repository holding at most capacity videos.
func NewInMemoryRecentRepository(capacity int) *InMemoryRecentRepository {
	if capacity <= 0 {
		capacity = 10
	}
	return &InMemoryRecentRepository{
		capacity: capacity,
		videos:   make([]domain.RecentVideo, 0, capacity),
	}
}

// Add records a processed video at the front of the list.
func (r *InMemoryRecentRepository) Add(ctx context.Context, video domain.RecentVideo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Drop any previous entry for the same id
	for i, v := range r.videos {
		if v.DownloadID == video.DownloadID {
			r.videos = append(r.videos[:i], r.videos[i+1:]...)
			break
		}
	}

	r.videos = append([]domain.RecentVideo{video}, r.videos...)
	if len(r.videos) > r.capacity {
		r.videos = r.videos[:r.capacity]
	}

	return nil
}

// List returns a copy of the recent videos, newest first.
func (r *InMemoryRecentRepository) List(ctx context.Context) ([]domain.RecentVideo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.RecentVideo, len(r.videos))
	copy(out, r.videos)
	return out, nil
}

// Len returns the number of recorded videos.
func (r *InMemoryRecentRepository) Len(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.videos), nil
}
