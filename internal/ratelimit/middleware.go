package ratelimit

import (
	"net/http"
	"strconv"
	"time"
)

const (
	headerRateLimitRequests          = "X-RateLimit-Limit-Requests"
	headerRateLimitRemainingRequests = "X-RateLimit-Remaining-Requests"
	headerRateLimitReset             = "X-RateLimit-Reset-Requests"
)

// Middleware returns chi middleware that reports the outbound model budget
// on every response. It never rejects: throttled work is served by local
// heuristics further down the stack.
func Middleware(limiter Admitter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := limiter.Usage(r.Context())
			w.Header().Set(headerRateLimitRequests, strconv.Itoa(u.Limit))
			w.Header().Set(headerRateLimitRemainingRequests, strconv.Itoa(u.Remaining))
			if !u.ResetAt.IsZero() {
				w.Header().Set(headerRateLimitReset, u.ResetAt.UTC().Format(time.RFC3339))
			}
			next.ServeHTTP(w, r)
		})
	}
}
