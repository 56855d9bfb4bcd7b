package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestWindow_AdmitsExactlyLimit(t *testing.T) {
	clock := newFakeClock()
	w := NewWindow(5, WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if !w.TryAdmit(ctx) {
			t.Fatalf("expected admission %d to succeed", i+1)
		}
		clock.Advance(time.Second)
	}
	if w.TryAdmit(ctx) {
		t.Fatal("expected 6th admission within the window to be denied")
	}
}

func TestWindow_ResetsAfterWindowElapses(t *testing.T) {
	clock := newFakeClock()
	w := NewWindow(3, WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		w.TryAdmit(ctx)
	}
	if w.TryAdmit(ctx) {
		t.Fatal("expected denial at limit")
	}

	clock.Advance(time.Minute)
	for i := 0; i < 3; i++ {
		if !w.TryAdmit(ctx) {
			t.Fatalf("expected admission %d after window elapsed", i+1)
		}
	}
}

func TestWindow_SlidesInsteadOfResettingAtBoundary(t *testing.T) {
	clock := newFakeClock()
	w := NewWindow(2, WithClock(clock.Now))
	ctx := context.Background()

	w.TryAdmit(ctx) // t=0
	clock.Advance(50 * time.Second)
	w.TryAdmit(ctx) // t=50

	clock.Advance(15 * time.Second) // t=65: first slot expired, second still counted
	if !w.TryAdmit(ctx) {
		t.Fatal("expected one slot to free up after the first admission aged out")
	}
	if w.TryAdmit(ctx) {
		t.Fatal("expected denial: t=50 and t=65 are both inside the window")
	}
}

func TestWindow_DeniedCallsAreNotRecorded(t *testing.T) {
	clock := newFakeClock()
	w := NewWindow(1, WithClock(clock.Now))
	ctx := context.Background()

	w.TryAdmit(ctx)
	for i := 0; i < 10; i++ {
		w.TryAdmit(ctx)
	}
	if u := w.Usage(ctx); u.RequestsInWindow != 1 {
		t.Errorf("expected 1 recorded request, got %d", u.RequestsInWindow)
	}
}

func TestWindow_Usage(t *testing.T) {
	clock := newFakeClock()
	w := NewWindow(50, WithClock(clock.Now))
	ctx := context.Background()

	start := clock.Now()
	for i := 0; i < 3; i++ {
		w.TryAdmit(ctx)
	}
	u := w.Usage(ctx)
	if u.RequestsInWindow != 3 || u.Limit != 50 || u.Remaining != 47 {
		t.Errorf("unexpected usage: %+v", u)
	}
	if !u.ResetAt.Equal(start.Add(time.Minute)) {
		t.Errorf("expected reset at %v, got %v", start.Add(time.Minute), u.ResetAt)
	}
}

func TestWindow_ZeroLimitDeniesAll(t *testing.T) {
	w := NewWindow(0)
	if w.TryAdmit(context.Background()) {
		t.Error("expected zero limit to deny")
	}
	if u := w.Usage(context.Background()); u.Remaining != 0 {
		t.Errorf("expected remaining 0, got %d", u.Remaining)
	}
}

func TestWindow_SetLimit(t *testing.T) {
	clock := newFakeClock()
	w := NewWindow(1, WithClock(clock.Now))
	ctx := context.Background()

	w.TryAdmit(ctx)
	if w.TryAdmit(ctx) {
		t.Fatal("expected denial at limit 1")
	}
	w.SetLimit(2)
	if !w.TryAdmit(ctx) {
		t.Fatal("expected admission after raising the limit")
	}
}

func TestWindow_ConcurrentCallersNeverOverAdmit(t *testing.T) {
	w := NewWindow(25)
	ctx := context.Background()

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if w.TryAdmit(ctx) {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	if admitted.Load() != 25 {
		t.Errorf("expected exactly 25 admissions, got %d", admitted.Load())
	}
}

func TestRedisWindow_NilRedisUsesLocalWindow(t *testing.T) {
	clock := newFakeClock()
	rw := NewRedisWindow(nil, "remote", 2, WithClock(clock.Now))
	ctx := context.Background()

	if !rw.TryAdmit(ctx) || !rw.TryAdmit(ctx) {
		t.Fatal("expected first two admissions to pass")
	}
	if rw.TryAdmit(ctx) {
		t.Fatal("expected local window to enforce the limit without redis")
	}
	if u := rw.Usage(ctx); u.RequestsInWindow != 2 || u.Remaining != 0 {
		t.Errorf("unexpected usage: %+v", u)
	}
}

func TestRedisWindow_SetLimitPropagatesToLocal(t *testing.T) {
	rw := NewRedisWindow(nil, "remote", 1)
	rw.SetLimit(3)
	if u := rw.Usage(context.Background()); u.Limit != 3 {
		t.Errorf("expected limit 3, got %d", u.Limit)
	}
}
