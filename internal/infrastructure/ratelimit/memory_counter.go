package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int64
	resetAt time.Time
}

// MemoryCounter implements Counter with an in-process map.
// Counts are not shared between instances.
type MemoryCounter struct {
	mu        sync.Mutex
	windows   map[string]*window
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// MemoryCounterOption configures a MemoryCounter
type MemoryCounterOption func(*MemoryCounter)

// WithClock replaces the time source
func WithClock(now func() time.Time) MemoryCounterOption {
	return func(c *MemoryCounter) {
		c.now = now
	}
}

// NewMemoryCounter creates a counter and starts a goroutine that drops
// expired windows every cleanupEvery. A zero interval disables cleanup.
func NewMemoryCounter(cleanupEvery time.Duration, opts ...MemoryCounterOption) *MemoryCounter {
	c := &MemoryCounter{
		windows:  make(map[string]*window),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	if cleanupEvery > 0 {
		c.wg.Add(1)
		go c.cleanupLoop(cleanupEvery)
	}
	return c
}

// Incr implements Counter
func (c *MemoryCounter) Incr(_ context.Context, key string, d time.Duration) (int64, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	w, ok := c.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(d)}
		c.windows[key] = w
	}
	w.count++
	return w.count, w.resetAt, nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (c *MemoryCounter) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

func (c *MemoryCounter) cleanupLoop(every time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *MemoryCounter) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, w := range c.windows {
		if !now.Before(w.resetAt) {
			delete(c.windows, key)
		}
	}
}

// Size returns the number of live windows
func (c *MemoryCounter) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.windows)
}

var _ Counter = (*MemoryCounter)(nil)
