// Package optimizer is the entry point application code calls for every
// model-backed operation. It serves cached results, keeps remote traffic
// inside the rate window and falls back to local heuristics whenever the
// remote model cannot or should not answer. Every result says where it
// came from.
package optimizer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/af-corp/docai-gateway/internal/audit"
	"github.com/af-corp/docai-gateway/internal/cache"
	"github.com/af-corp/docai-gateway/internal/config"
	"github.com/af-corp/docai-gateway/internal/fallback"
	"github.com/af-corp/docai-gateway/internal/guard"
	"github.com/af-corp/docai-gateway/internal/ratelimit"
	"github.com/af-corp/docai-gateway/internal/remote"
	"github.com/af-corp/docai-gateway/internal/router/adapters"
	"github.com/af-corp/docai-gateway/internal/telemetry"
	"github.com/af-corp/docai-gateway/internal/types"
)

// Remote is the model client the optimizer guards. *remote.Client
// implements it.
type Remote interface {
	Configured(capability adapters.Capability) bool
	Analyze(ctx context.Context, text string) (remote.Analysis, error)
	Translate(ctx context.Context, text, targetLang string) (string, error)
	DetectLanguage(ctx context.Context, text string) (types.LanguageScores, error)
	Ask(ctx context.Context, document, question, answerLang string) (string, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Result carries a value and its provenance. Origin is the provenance of
// the computation that produced the value: for cache hits it differs from
// Provenance, otherwise the two are equal.
type Result[T any] struct {
	Value      T                `json:"value"`
	Provenance types.Provenance `json:"provenance"`
	Origin     types.Provenance `json:"origin"`
}

type Option func(*Optimizer)

// WithConfig supplies the optimizer settings. Without it the defaults
// from config.DefaultConfig apply.
func WithConfig(cfg func() config.OptimizerConfig) Option {
	return func(o *Optimizer) { o.cfg = cfg }
}

// WithGuard keeps inputs containing credentials away from the remote model.
func WithGuard(scanner *guard.Scanner, enabled func() bool) Option {
	return func(o *Optimizer) {
		o.guard = scanner
		o.guardEnabled = enabled
	}
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *Optimizer) { o.metrics = m }
}

// WithAuditRecorder adds a sink for remote failures next to the in-memory ring.
func WithAuditRecorder(r audit.Recorder) Option {
	return func(o *Optimizer) { o.recorder = r }
}

func WithClock(now func() time.Time) Option {
	return func(o *Optimizer) { o.now = now }
}

// Optimizer owns its store, limiter and remote client. It is safe for
// concurrent use.
type Optimizer struct {
	store   cache.Store
	limiter ratelimit.Admitter
	remote  Remote

	cfg          func() config.OptimizerConfig
	guard        *guard.Scanner
	guardEnabled func() bool
	metrics      *telemetry.Metrics
	recorder     audit.Recorder
	failures     *audit.Ring
	now          func() time.Time

	stats counters
}

func New(store cache.Store, limiter ratelimit.Admitter, client Remote, opts ...Option) *Optimizer {
	o := &Optimizer{
		store:   store,
		limiter: limiter,
		remote:  client,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.cfg == nil {
		defaults := config.DefaultConfig().Optimizer
		o.cfg = func() config.OptimizerConfig { return defaults }
	}
	if o.guardEnabled == nil {
		o.guardEnabled = func() bool { return o.guard != nil }
	}
	o.failures = audit.NewRing(o.cfg().AuditRingSize)
	o.stats.init()
	return o
}

// task describes one operation run through the cache, limiter, remote and
// fallback stages.
type task[T any] struct {
	op         string
	capability adapters.Capability
	content    string
	params     map[string]string
	// outbound lists every text the remote call would send.
	outbound []string
	remote   func(ctx context.Context) (T, error)
	// fallback receives the remote error when there was one.
	fallback func(remoteErr error) (T, error)
}

func run[T any](ctx context.Context, o *Optimizer, t task[T]) (Result[T], error) {
	o.stats.requests.Add(1)
	if strings.TrimSpace(t.content) == "" {
		return Result[T]{}, fallback.ErrFallbackExhausted
	}

	fp := cache.Fingerprint(t.op, t.content, t.params)
	if entry, ok := o.store.Get(ctx, fp); ok {
		var v T
		err := json.Unmarshal(entry.Payload, &v)
		if err == nil {
			o.stats.cacheHits.Add(1)
			o.recordCache(t.op, true)
			return finish(o, t.op, Result[T]{Value: v, Provenance: types.ProvenanceCached, Origin: entry.Origin}), nil
		}
		slog.Warn("discarding undecodable cache entry", "operation", t.op, "fingerprint", fp, "error", err)
	}
	o.recordCache(t.op, false)

	if reason, skip := o.skipRemote(t.op, t.capability, t.outbound); skip {
		return fallbackResult(ctx, o, t, fp, reason, nil)
	}

	if !o.limiter.TryAdmit(ctx) {
		slog.Info("rate window full, using fallback", "operation", t.op)
		return fallbackResult(ctx, o, t, fp, types.ProvenanceFallbackRateLimited, nil)
	}

	o.stats.remoteCalls.Add(1)
	start := o.now()
	v, err := t.remote(ctx)
	elapsed := o.now().Sub(start)
	if err != nil {
		o.recordFailure(ctx, t.op, err, elapsed)
		return fallbackResult(ctx, o, t, fp, types.ProvenanceFallbackError, err)
	}
	o.stats.remoteSuccesses.Add(1)
	if o.metrics != nil {
		o.metrics.RecordRemote(t.op, "", elapsed)
	}

	return save(ctx, o, t.op, fp, v, types.ProvenanceRemote, o.cfg().CacheTTL), nil
}

func fallbackResult[T any](ctx context.Context, o *Optimizer, t task[T], fp string, reason types.Provenance, remoteErr error) (Result[T], error) {
	v, err := t.fallback(remoteErr)
	if err != nil {
		return Result[T]{}, err
	}
	o.stats.fallback(reason)
	return save(ctx, o, t.op, fp, v, reason, o.cfg().FallbackCacheTTL), nil
}

// save caches v and returns it as a fresh result. Values that cannot be
// encoded are returned uncached.
func save[T any](ctx context.Context, o *Optimizer, op, fp string, v T, origin types.Provenance, ttl time.Duration) Result[T] {
	payload, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to encode result for cache", "operation", op, "error", err)
	} else {
		o.store.Put(ctx, fp, payload, origin, ttl)
	}
	return finish(o, op, Result[T]{Value: v, Provenance: origin, Origin: origin})
}

func finish[T any](o *Optimizer, op string, r Result[T]) Result[T] {
	if o.metrics != nil {
		o.metrics.RecordResult(op, string(r.Provenance))
	}
	return r
}

// skipRemote decides whether the remote model must not be called at all.
// Skipped calls do not consume rate window capacity.
func (o *Optimizer) skipRemote(op string, capability adapters.Capability, outbound []string) (types.Provenance, bool) {
	if !o.cfg().RemoteEnabled || o.remote == nil || !o.remote.Configured(capability) {
		return types.ProvenanceFallbackDisabled, true
	}
	if o.guard != nil && o.guardEnabled() {
		if blocked, names := o.guard.Blocks(outbound...); blocked {
			slog.Warn("input carries credentials, keeping it local", "operation", op, "patterns", names)
			if o.metrics != nil {
				o.metrics.RecordGuardBlock(op)
			}
			return types.ProvenanceFallbackGuarded, true
		}
	}
	return "", false
}

func (o *Optimizer) recordCache(op string, hit bool) {
	if o.metrics != nil {
		o.metrics.RecordCacheLookup(op, hit)
	}
}

func (o *Optimizer) recordFailure(ctx context.Context, op string, err error, elapsed time.Duration) {
	category := remote.CategoryOf(err)
	o.stats.failure(category)

	f := audit.Failure{
		At:        o.now(),
		Operation: op,
		Category:  string(category),
		Duration:  elapsed,
		Message:   err.Error(),
		Retryable: remote.Retryable(err),
	}
	var re *remote.Error
	var te *remote.TimeoutError
	switch {
	case errors.As(err, &re):
		f.Provider, f.Status = re.Provider, re.Status
	case errors.As(err, &te):
		f.Provider = te.Provider
	}

	if category == remote.CategoryAuth {
		o.stats.authFailures.Add(1)
		slog.Error("remote model rejected credentials, check provider configuration",
			"operation", op, "provider", f.Provider, "status", f.Status, "error", err)
	} else {
		slog.Warn("remote call failed, using fallback",
			"operation", op, "provider", f.Provider, "category", category, "retryable", f.Retryable, "duration_ms", elapsed.Milliseconds(), "error", err)
	}

	if o.metrics != nil {
		o.metrics.RecordRemote(op, string(category), elapsed)
	}
	o.failures.Record(ctx, f)
	if o.recorder != nil {
		o.recorder.Record(ctx, f)
	}
}
