package audit

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgconn"
)

// execer is the slice of pgxpool.Pool the sink needs.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const insertFailure = `INSERT INTO remote_failures
	(occurred_at, operation, provider, category, status_code, duration_ms, message, retryable)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// maxMessage bounds what ends up in the table; provider error bodies can be large.
const maxMessage = 1024

// PGSink writes failures to the remote_failures table. Writes happen in
// the background so a slow database never delays a fallback response.
type PGSink struct {
	db      execer
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewPGSink(db execer, timeout time.Duration) *PGSink {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &PGSink{db: db, timeout: timeout}
}

func (s *PGSink) Record(ctx context.Context, f Failure) {
	msg := clipMessage(f.Message, maxMessage)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		_, err := s.db.Exec(writeCtx, insertFailure,
			f.At.UTC(), f.Operation, f.Provider, f.Category, f.Status, f.Duration.Milliseconds(), msg, f.Retryable)
		if err != nil {
			slog.Warn("failed to persist remote failure", "error", err, "operation", f.Operation, "category", f.Category)
		}
	}()
}

// clipMessage returns valid UTF-8 of at most limit bytes. The cut backs up
// to a rune boundary since TEXT columns refuse broken sequences.
func clipMessage(s string, limit int) string {
	s = strings.ToValidUTF8(s, "")
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Wait blocks until in-flight writes finish. Call it before closing the pool.
func (s *PGSink) Wait() {
	s.wg.Wait()
}
