package memstore

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count int
	start time.Time
}

// RateLimitRepository is an in-memory fixed-window counter store. Like
// the Redis implementation it resets when the truncated window start
// moves, but state lives in a map guarded by a mutex.
type RateLimitRepository struct {
	mu      sync.Mutex
	windows map[string]*window

	nowFn func() time.Time
}

func NewRateLimitRepository() *RateLimitRepository {
	return &RateLimitRepository{windows: make(map[string]*window), nowFn: time.Now}
}

func (r *RateLimitRepository) IncrementWindow(_ context.Context, clientKey string, winDur time.Duration, keyPrefix string, _ time.Duration) (int, time.Time, error) {
	now := r.nowFn()
	windowStart := now.Truncate(winDur)
	key := keyPrefix + ":" + clientKey

	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.windows[key]
	if !ok || w.start.Before(windowStart) {
		w = &window{start: windowStart}
		r.windows[key] = w
	}
	w.count++
	return w.count, w.start, nil
}

// Cleanup drops windows older than keep. Redis expires keys passively;
// here a caller has to do it.
func (r *RateLimitRepository) Cleanup(keep time.Duration) {
	cutoff := r.nowFn().Add(-keep)
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, w := range r.windows {
		if w.start.Before(cutoff) {
			delete(r.windows, key)
		}
	}
}
