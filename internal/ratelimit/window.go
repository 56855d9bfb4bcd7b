package ratelimit

import (
	"context"
	"sync"
	"time"
)

// DefaultWindow is the trailing span over which admissions are counted.
const DefaultWindow = time.Minute

// Usage is a read-only view of a limiter.
type Usage struct {
	RequestsInWindow int       `json:"requests_in_window"`
	Limit            int       `json:"limit"`
	Remaining        int       `json:"remaining"`
	ResetAt          time.Time `json:"reset_at,omitempty"`
}

// Admitter decides whether an outbound remote call may proceed. A denial is
// a normal false return.
type Admitter interface {
	TryAdmit(ctx context.Context) bool
	Usage(ctx context.Context) Usage
	SetLimit(limit int)
}

// Option configures a Window.
type Option func(*Window)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(w *Window) { w.now = now }
}

// WithSpan overrides the window length (default one minute).
func WithSpan(d time.Duration) Option {
	return func(w *Window) { w.span = d }
}

// Window is an in-process sliding-window limiter. It keeps the admission
// instants of the trailing span in order; the check and the record happen
// under one lock so two callers cannot both take the last slot.
type Window struct {
	mu         sync.Mutex
	timestamps []time.Time
	limit      int
	span       time.Duration
	now        func() time.Time
}

// NewWindow creates a limiter admitting at most limit calls per span.
// A limit of zero or less denies every call.
func NewWindow(limit int, opts ...Option) *Window {
	w := &Window{limit: limit, span: DefaultWindow, now: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Window) TryAdmit(_ context.Context) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.pruneLocked(now)
	if len(w.timestamps) >= w.limit {
		return false
	}
	w.timestamps = append(w.timestamps, now)
	return true
}

func (w *Window) Usage(_ context.Context) Usage {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.pruneLocked(now)
	u := Usage{
		RequestsInWindow: len(w.timestamps),
		Limit:            w.limit,
		Remaining:        max(w.limit-len(w.timestamps), 0),
	}
	if len(w.timestamps) > 0 {
		u.ResetAt = w.timestamps[0].Add(w.span)
	}
	return u
}

// SetLimit changes the limit. Admissions already recorded stay counted.
func (w *Window) SetLimit(limit int) {
	w.mu.Lock()
	w.limit = limit
	w.mu.Unlock()
}

// pruneLocked drops instants that fell out of the trailing span.
// Must be called with mu held.
func (w *Window) pruneLocked(now time.Time) {
	cutoff := now.Add(-w.span)
	i := 0
	for i < len(w.timestamps) && !w.timestamps[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return
	}
	n := copy(w.timestamps, w.timestamps[i:])
	w.timestamps = w.timestamps[:n]
}
