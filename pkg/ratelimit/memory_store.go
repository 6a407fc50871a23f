package ratelimit

import (
	"context"
	"sync"
	"time"
)

// window tracks the fixed-window counter state for one key.
type window struct {
	count   int64
	startAt time.Time
	dur     time.Duration
}

// MemoryStore implements Store with in-process counters. Suitable for
// single-instance deployments; multi-instance ones want RedisStore so the
// limit holds across replicas.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window

	sweepInterval time.Duration
	stopSweep     chan struct{}
	closeOnce     sync.Once
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithSweepInterval sets how often expired windows are removed.
// Set to 0 to disable the background sweep.
func WithSweepInterval(interval time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.sweepInterval = interval
	}
}

// NewMemoryStore creates an in-memory counter store. A background sweep
// removes windows old enough that no live request could still hit them,
// keeping memory bounded against one-off client IPs.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		windows:       make(map[string]*window),
		sweepInterval: 5 * time.Minute,
		stopSweep:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(ms)
	}

	if ms.sweepInterval > 0 {
		go ms.sweep()
	}

	return ms
}

func (ms *MemoryStore) Increment(ctx context.Context, key string, windowDur time.Duration) (int64, time.Time, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	w, exists := ms.windows[key]
	if !exists || now.Sub(w.startAt) >= windowDur {
		w = &window{startAt: now, dur: windowDur}
		ms.windows[key] = w
	}

	w.count++
	return w.count, w.startAt.Add(windowDur), nil
}

func (ms *MemoryStore) Reset(ctx context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.windows, key)
	return nil
}

func (ms *MemoryStore) sweep() {
	ticker := time.NewTicker(ms.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ms.removeExpired()
		case <-ms.stopSweep:
			return
		}
	}
}

// removeExpired drops windows older than twice their own duration. Any
// window that old has long since reset, so removal never revives capacity
// for an active key.
func (ms *MemoryStore) removeExpired() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	for key, w := range ms.windows {
		if now.Sub(w.startAt) > 2*w.dur {
			delete(ms.windows, key)
		}
	}
}

// Close stops the sweep goroutine. Safe to call multiple times.
func (ms *MemoryStore) Close() {
	ms.closeOnce.Do(func() {
		close(ms.stopSweep)
	})
}
