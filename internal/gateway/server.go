package gateway

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/af-corp/docai-gateway/internal/ratelimit"
)

// RouterConfig carries what NewRouter needs besides the handler.
type RouterConfig struct {
	Version     string
	Limiter     ratelimit.Admitter
	Metrics     http.Handler
	MetricsPath string
}

// NewRouter mounts the API. Rate limit headers describe the remote model
// window; requests are never rejected by it.
func NewRouter(h *Handler, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)

	r.Get("/health", HealthHandler(cfg.Version))
	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, cfg.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		if cfg.Limiter != nil {
			r.Use(ratelimit.Middleware(cfg.Limiter))
		}
		r.Post("/analyze", h.Analyze)
		r.Post("/translate", h.Translate)
		r.Post("/detect-language", h.DetectLanguage)
		r.Post("/embed", h.Embed)
		r.Post("/ask", h.Ask)
		r.Get("/diagnostics", h.Diagnostics)
	})
	return r
}

// RequestIDMiddleware propagates X-Request-ID or generates one.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", reqID)
		ctx := context.WithValue(r.Context(), requestIDKey, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func generateRequestID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("req_%d_%s", time.Now().UnixMilli(), hex.EncodeToString(b))
}
