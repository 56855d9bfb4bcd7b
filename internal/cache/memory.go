package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/af-corp/docai-gateway/internal/types"
)

// MemoryStore is a bounded in-process store. Lookups do not refresh recency,
// so eviction removes the least recently inserted entry. Expired entries are
// removed lazily when touched.
type MemoryStore struct {
	mu         sync.Mutex
	entries    *simplelru.LRU[string, Entry]
	maxEntries int
	now        func() time.Time

	evictions atomic.Int64
}

// NewMemoryStore creates a store holding at most maxEntries live entries.
func NewMemoryStore(maxEntries int, opts ...Option) (*MemoryStore, error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("cache max entries must be positive, got %d", maxEntries)
	}
	l, err := simplelru.NewLRU[string, Entry](maxEntries, nil)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	o := buildOptions(opts)
	return &MemoryStore{entries: l, maxEntries: maxEntries, now: o.now}, nil
}

func (s *MemoryStore) Get(_ context.Context, fingerprint string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries.Peek(fingerprint)
	if !ok {
		return Entry{}, false
	}
	if e.Expired(s.now()) {
		s.entries.Remove(fingerprint)
		return Entry{}, false
	}
	return e, true
}

func (s *MemoryStore) Put(_ context.Context, fingerprint string, payload []byte, origin types.Provenance, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	// An overwrite counts as a fresh insertion.
	s.entries.Remove(fingerprint)
	if s.entries.Len() >= s.maxEntries {
		s.purgeExpiredLocked(now)
	}
	if evicted := s.entries.Add(fingerprint, newEntry(fingerprint, payload, origin, now, ttl)); evicted {
		s.evictions.Add(1)
	}
}

// Len returns the number of live entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpiredLocked(s.now())
	return s.entries.Len()
}

// MaxEntries returns the configured bound.
func (s *MemoryStore) MaxEntries() int { return s.maxEntries }

// Evictions returns how many live entries were dropped to make room.
func (s *MemoryStore) Evictions() int64 { return s.evictions.Load() }

// Must be called with mu held.
func (s *MemoryStore) purgeExpiredLocked(now time.Time) {
	for _, k := range s.entries.Keys() {
		if e, ok := s.entries.Peek(k); ok && e.Expired(now) {
			s.entries.Remove(k)
		}
	}
}
