package cache

import (
	"context"
	"time"

	"github.com/af-corp/docai-gateway/internal/types"
)

// Entry is one cached result. ExpiresAt is never before CreatedAt.
type Entry struct {
	Fingerprint string           `json:"fingerprint"`
	Payload     []byte           `json:"payload"`
	Origin      types.Provenance `json:"origin"`
	CreatedAt   time.Time        `json:"created_at"`
	ExpiresAt   time.Time        `json:"expires_at"`
}

// Expired reports whether the entry is invalid at now.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Store maps fingerprints to results. Absence is reported through the
// boolean, never as an error.
type Store interface {
	Get(ctx context.Context, fingerprint string) (Entry, bool)
	Put(ctx context.Context, fingerprint string, payload []byte, origin types.Provenance, ttl time.Duration)
}

// Option configures a store.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source. Tests use it to expire entries
// without sleeping.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func newEntry(fingerprint string, payload []byte, origin types.Provenance, now time.Time, ttl time.Duration) Entry {
	if ttl < 0 {
		ttl = 0
	}
	data := make([]byte, len(payload))
	copy(data, payload)
	return Entry{
		Fingerprint: fingerprint,
		Payload:     data,
		Origin:      origin,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
}
