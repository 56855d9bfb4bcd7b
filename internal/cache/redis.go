package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/af-corp/docai-gateway/internal/types"
)

const redisKeyPrefix = "docai:cache:"

// RedisStore shares results between gateway replicas. If rdb is nil every
// lookup misses and every write is dropped. Redis errors are logged and
// treated as misses.
type RedisStore struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisStore(rdb *redis.Client, opts ...Option) *RedisStore {
	o := buildOptions(opts)
	return &RedisStore{rdb: rdb, now: o.now}
}

func (s *RedisStore) Get(ctx context.Context, fingerprint string) (Entry, bool) {
	if s.rdb == nil {
		return Entry{}, false
	}
	data, err := s.rdb.Get(ctx, redisKeyPrefix+fingerprint).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("redis cache get failed", "fingerprint", fingerprint, "error", err)
		}
		return Entry{}, false
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		slog.Warn("redis cache entry unreadable", "fingerprint", fingerprint, "error", err)
		return Entry{}, false
	}
	if e.Expired(s.now()) {
		return Entry{}, false
	}
	return e, true
}

func (s *RedisStore) Put(ctx context.Context, fingerprint string, payload []byte, origin types.Provenance, ttl time.Duration) {
	if s.rdb == nil {
		return
	}
	key := redisKeyPrefix + fingerprint
	if ttl <= 0 {
		// Redis treats a zero expiration as "keep forever".
		if err := s.rdb.Del(ctx, key).Err(); err != nil {
			slog.Warn("redis cache delete failed", "fingerprint", fingerprint, "error", err)
		}
		return
	}
	data, err := json.Marshal(newEntry(fingerprint, payload, origin, s.now(), ttl))
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		slog.Warn("redis cache put failed", "fingerprint", fingerprint, "error", err)
	}
}

// Layered checks the bounded local store before the shared tier and writes
// through to both. Shared hits are copied into the local store for their
// remaining lifetime.
type Layered struct {
	local  *MemoryStore
	shared *RedisStore
}

func NewLayered(local *MemoryStore, shared *RedisStore) *Layered {
	return &Layered{local: local, shared: shared}
}

func (l *Layered) Get(ctx context.Context, fingerprint string) (Entry, bool) {
	if e, ok := l.local.Get(ctx, fingerprint); ok {
		return e, true
	}
	e, ok := l.shared.Get(ctx, fingerprint)
	if !ok {
		return Entry{}, false
	}
	l.local.Put(ctx, fingerprint, e.Payload, e.Origin, e.ExpiresAt.Sub(l.local.now()))
	return e, true
}

func (l *Layered) Put(ctx context.Context, fingerprint string, payload []byte, origin types.Provenance, ttl time.Duration) {
	l.local.Put(ctx, fingerprint, payload, origin, ttl)
	l.shared.Put(ctx, fingerprint, payload, origin, ttl)
}

// Len reports the local entry count; the shared tier is bounded by Redis
// eviction policy instead.
func (l *Layered) Len() int { return l.local.Len() }
