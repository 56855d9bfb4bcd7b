package optimizer

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/af-corp/docai-gateway/internal/audit"
	"github.com/af-corp/docai-gateway/internal/ratelimit"
	"github.com/af-corp/docai-gateway/internal/remote"
	"github.com/af-corp/docai-gateway/internal/types"
)

type counters struct {
	requests        atomic.Int64
	cacheHits       atomic.Int64
	remoteCalls     atomic.Int64
	remoteSuccesses atomic.Int64
	authFailures    atomic.Int64

	fallbacks map[types.Provenance]*atomic.Int64

	mu         sync.Mutex
	byCategory map[remote.Category]int64
}

func (c *counters) init() {
	c.fallbacks = map[types.Provenance]*atomic.Int64{
		types.ProvenanceFallbackRateLimited: {},
		types.ProvenanceFallbackError:       {},
		types.ProvenanceFallbackDisabled:    {},
		types.ProvenanceFallbackGuarded:     {},
	}
	c.byCategory = make(map[remote.Category]int64)
}

func (c *counters) fallback(reason types.Provenance) {
	if n, ok := c.fallbacks[reason]; ok {
		n.Add(1)
	}
}

func (c *counters) failure(category remote.Category) {
	c.mu.Lock()
	c.byCategory[category]++
	c.mu.Unlock()
}

// Snapshot is a point-in-time view of the optimizer for diagnostics.
type Snapshot struct {
	RateLimit       ratelimit.Usage  `json:"rate_limit"`
	CacheEntries    int              `json:"cache_entries"`
	Requests        int64            `json:"requests"`
	CacheHits       int64            `json:"cache_hits"`
	RemoteCalls     int64            `json:"remote_calls"`
	RemoteSuccesses int64            `json:"remote_successes"`
	Fallbacks       map[string]int64 `json:"fallbacks"`
	RemoteFailures  map[string]int64 `json:"remote_failures"`
	AuthFailures    int64            `json:"auth_failures"`
	RecentFailures  []audit.Failure  `json:"recent_failures"`
}

// Snapshot reports usage and counters. CacheEntries is -1 when the store
// cannot report its size.
func (o *Optimizer) Snapshot(ctx context.Context) Snapshot {
	s := Snapshot{
		RateLimit:       o.limiter.Usage(ctx),
		CacheEntries:    -1,
		Requests:        o.stats.requests.Load(),
		CacheHits:       o.stats.cacheHits.Load(),
		RemoteCalls:     o.stats.remoteCalls.Load(),
		RemoteSuccesses: o.stats.remoteSuccesses.Load(),
		Fallbacks:       make(map[string]int64, len(o.stats.fallbacks)),
		RemoteFailures:  make(map[string]int64),
		AuthFailures:    o.stats.authFailures.Load(),
		RecentFailures:  o.failures.Recent(),
	}
	if sized, ok := o.store.(interface{ Len() int }); ok {
		s.CacheEntries = sized.Len()
	}
	for reason, n := range o.stats.fallbacks {
		s.Fallbacks[string(reason)] = n.Load()
	}

	o.stats.mu.Lock()
	for category, n := range o.stats.byCategory {
		s.RemoteFailures[string(category)] = n
	}
	o.stats.mu.Unlock()
	return s
}
