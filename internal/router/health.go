package router

import (
	"sync"
	"time"
)

// HealthTracker manages circuit breakers for all providers.
type HealthTracker struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker

	failureThreshold      int
	recoveryProbeInterval time.Duration
	now                   func() time.Time
}

func NewHealthTracker(failureThreshold int, recoveryProbeInterval time.Duration) *HealthTracker {
	return &HealthTracker{
		breakers:              make(map[string]*CircuitBreaker),
		failureThreshold:      failureThreshold,
		recoveryProbeInterval: recoveryProbeInterval,
		now:                   time.Now,
	}
}

// WithClock makes every breaker created afterwards read time from now.
func (ht *HealthTracker) WithClock(now func() time.Time) *HealthTracker {
	ht.mu.Lock()
	ht.now = now
	ht.mu.Unlock()
	return ht
}

// breaker returns (or lazily creates) the circuit breaker for a provider.
func (ht *HealthTracker) breaker(provider string) *CircuitBreaker {
	ht.mu.RLock()
	cb, ok := ht.breakers[provider]
	ht.mu.RUnlock()
	if ok {
		return cb
	}

	ht.mu.Lock()
	defer ht.mu.Unlock()
	if cb, ok := ht.breakers[provider]; ok {
		return cb
	}
	cb = NewCircuitBreaker(ht.failureThreshold, ht.recoveryProbeInterval)
	cb.now = ht.now
	ht.breakers[provider] = cb
	return cb
}

func (ht *HealthTracker) IsAvailable(provider string) bool {
	return ht.breaker(provider).Allow()
}

func (ht *HealthTracker) RecordSuccess(provider string) {
	ht.breaker(provider).RecordSuccess()
}

func (ht *HealthTracker) RecordFailure(provider string) {
	ht.breaker(provider).RecordFailure()
}

// Snapshot returns the status of every provider seen so far.
func (ht *HealthTracker) Snapshot() map[string]BreakerStatus {
	ht.mu.RLock()
	defer ht.mu.RUnlock()
	out := make(map[string]BreakerStatus, len(ht.breakers))
	for name, cb := range ht.breakers {
		out[name] = cb.Status()
	}
	return out
}
