package ratelimit

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisWindow shares one sliding window between gateway replicas using a
// Redis sorted set. When Redis is absent or failing it delegates to an
// in-process Window with the same limit rather than failing open.
//
// Replicas that fall back locally during a Redis outage each admit up to the
// limit, so the fleet can overshoot until Redis returns.
type RedisWindow struct {
	rdb   *redis.Client
	key   string
	limit atomic.Int64
	span  time.Duration
	local *Window
	now   func() time.Time

	// id and seq make sorted set members unique across replicas.
	id  string
	seq atomic.Uint64
}

// NewRedisWindow creates a shared limiter for the named bucket.
func NewRedisWindow(rdb *redis.Client, name string, limit int, opts ...Option) *RedisWindow {
	local := NewWindow(limit, opts...)
	var b [6]byte
	_, _ = rand.Read(b[:])
	rw := &RedisWindow{
		rdb:   rdb,
		key:   fmt.Sprintf("docai:rl:%s", name),
		span:  local.span,
		local: local,
		now:   local.now,
		id:    hex.EncodeToString(b[:]),
	}
	rw.limit.Store(int64(limit))
	return rw
}

// slidingWindowScript atomically: removes expired entries, counts, adds current if under limit.
// KEYS[1] = sorted set key
// ARGV[1] = window start (unix micro)
// ARGV[2] = now (unix micro), used as the score
// ARGV[3] = limit
// ARGV[4] = TTL seconds for the key
// ARGV[5] = member, unique per admission
// Returns: [current_count, 1=allowed/0=denied]
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local window_start = tonumber(ARGV[1])
local now = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])
local member = ARGV[5]

redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, member)
    redis.call('EXPIRE', key, ttl)
    return {count + 1, 1}
end

redis.call('EXPIRE', key, ttl)
return {count, 0}
`)

func (rw *RedisWindow) TryAdmit(ctx context.Context) bool {
	if rw.rdb == nil {
		return rw.local.TryAdmit(ctx)
	}

	now := rw.now()
	windowStart := now.Add(-rw.span).UnixMicro()
	ttlSecs := int64(rw.span.Seconds()) + 1
	member := fmt.Sprintf("%d:%s:%d", now.UnixMicro(), rw.id, rw.seq.Add(1))

	result, err := slidingWindowScript.Run(ctx, rw.rdb, []string{rw.key},
		windowStart, now.UnixMicro(), rw.limit.Load(), ttlSecs, member,
	).Int64Slice()
	if err != nil || len(result) < 2 {
		slog.Warn("redis rate limit check failed, using local window", "key", rw.key, "error", err)
		return rw.local.TryAdmit(ctx)
	}
	return result[1] == 1
}

func (rw *RedisWindow) Usage(ctx context.Context) Usage {
	if rw.rdb == nil {
		return rw.local.Usage(ctx)
	}

	limit := int(rw.limit.Load())
	windowStart := rw.now().Add(-rw.span).UnixMicro()
	count, err := rw.rdb.ZCount(ctx, rw.key, "("+strconv.FormatInt(windowStart, 10), "+inf").Result()
	if err != nil {
		return rw.local.Usage(ctx)
	}
	return Usage{
		RequestsInWindow: int(count),
		Limit:            limit,
		Remaining:        max(limit-int(count), 0),
	}
}

func (rw *RedisWindow) SetLimit(limit int) {
	rw.limit.Store(int64(limit))
	rw.local.SetLimit(limit)
}
