package cache

import (
	"context"
	"sync"
	"time"
)

// sweepInterval is how often expired entries are evicted in the background
const sweepInterval = time.Minute

// MemoryCache is a process-local Cache with per-entry expiry
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	opts    Options
	now     func() time.Time
	stop    context.CancelFunc
}

type entry struct {
	body      []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewMemory creates a MemoryCache and starts its background sweeper
func NewMemory(opts Options) *MemoryCache {
	ctx, cancel := context.WithCancel(context.Background())
	m := &MemoryCache{
		entries: make(map[string]entry),
		opts:    opts,
		now:     time.Now,
		stop:    cancel,
	}
	go m.sweep(ctx, sweepInterval)
	return m
}

// Get returns a copy of the stored body
func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	e, ok := m.entries[m.opts.Prefix+key]
	m.mu.RUnlock()

	if !ok || e.expired(m.now()) {
		return nil, ErrMiss
	}
	return append([]byte(nil), e.body...), nil
}

// Set stores a copy of body
func (m *MemoryCache) Set(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e := entry{body: append([]byte(nil), body...)}
	if ttl = m.opts.ttl(ttl); ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[m.opts.Prefix+key] = e
	m.mu.Unlock()
	return nil
}

// Delete removes key
func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.entries, m.opts.Prefix+key)
	m.mu.Unlock()
	return nil
}

// Clear removes every entry
func (m *MemoryCache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.entries = make(map[string]entry)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included until swept
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close stops the background sweeper
func (m *MemoryCache) Close() error {
	if m.stop != nil {
		m.stop()
	}
	return nil
}

func (m *MemoryCache) sweep(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.evictExpired()
		}
	}
}

func (m *MemoryCache) evictExpired() {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, k)
		}
	}
}
