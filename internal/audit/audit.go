// Package audit keeps a record of remote model failures: a bounded ring for
// diagnostics and an optional PostgreSQL table for later analysis.
package audit

import (
	"context"
	"sync"
	"time"
)

// Failure is one failed remote call.
type Failure struct {
	At        time.Time     `json:"at"`
	Operation string        `json:"operation"`
	Provider  string        `json:"provider,omitempty"`
	Category  string        `json:"category"`
	Status    int           `json:"status,omitempty"`
	Duration  time.Duration `json:"duration"`
	Message   string        `json:"message"`
	// Retryable is false for failures that need a configuration change,
	// such as rejected credentials, or for replies that could not be parsed.
	Retryable bool          `json:"retryable"`
}

// Recorder accepts failure records. Implementations must not block the
// caller for long and must not return errors; persistence problems are
// logged.
type Recorder interface {
	Record(ctx context.Context, f Failure)
}

// Ring keeps the most recent failures in memory.
type Ring struct {
	mu    sync.Mutex
	buf   []Failure
	next  int
	full  bool
	total int64
}

func NewRing(size int) *Ring {
	if size < 1 {
		size = 1
	}
	return &Ring{buf: make([]Failure, size)}
}

func (r *Ring) Record(_ context.Context, f Failure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = f
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
	r.total++
}

// Recent returns the retained failures, newest first.
func (r *Ring) Recent() []Failure {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.next
	if r.full {
		n = len(r.buf)
	}
	out := make([]Failure, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, r.buf[(r.next-i+len(r.buf))%len(r.buf)])
	}
	return out
}

// Total counts every failure ever recorded, including overwritten ones.
func (r *Ring) Total() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// Multi fans a record out to several recorders. Nil entries are skipped.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, f Failure) {
	for _, r := range m {
		if r != nil {
			r.Record(ctx, f)
		}
	}
}
