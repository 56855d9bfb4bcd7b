package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/af-corp/docai-gateway/internal/cache"
	"github.com/af-corp/docai-gateway/internal/config"
	"github.com/af-corp/docai-gateway/internal/optimizer"
	"github.com/af-corp/docai-gateway/internal/ratelimit"
	"github.com/af-corp/docai-gateway/internal/remote"
	"github.com/af-corp/docai-gateway/internal/review"
	"github.com/af-corp/docai-gateway/internal/router"
	"github.com/af-corp/docai-gateway/internal/router/adapters"
	"github.com/af-corp/docai-gateway/internal/telemetry"
	"github.com/af-corp/docai-gateway/internal/types"
)

const contractDoc = "Service Agreement between the parties. This contract is confidential. " +
	"The vendor shall deliver maintenance services and invoices are due within thirty days."

// stubRemote succeeds for translate and fails everything else.
type stubRemote struct{}

func (stubRemote) Configured(adapters.Capability) bool { return true }

func (stubRemote) Analyze(context.Context, string) (remote.Analysis, error) {
	return remote.Analysis{}, &remote.Error{Op: "analyze", Category: remote.CategoryServer, Status: 500}
}

func (stubRemote) Translate(_ context.Context, text, lang string) (string, error) {
	return "<" + lang + ">" + text, nil
}

func (stubRemote) DetectLanguage(context.Context, string) (types.LanguageScores, error) {
	return nil, errors.New("unreachable")
}

func (stubRemote) Ask(context.Context, string, string, string) (string, error) {
	return "", &remote.TimeoutError{Op: "ask", After: time.Second}
}

func (stubRemote) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, nil
}

type testServer struct {
	router  http.Handler
	limiter *ratelimit.Window
}

func newTestServer(t *testing.T, maxBody int64) testServer {
	t.Helper()
	store, err := cache.NewMemoryStore(50)
	if err != nil {
		t.Fatal(err)
	}
	limiter := ratelimit.NewWindow(10)
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)
	opt := optimizer.New(store, limiter, stubRemote{}, optimizer.WithMetrics(metrics))

	reviewer := review.NewEvaluator(func() config.ReviewConfig {
		return config.ReviewConfig{Enabled: true, EvaluationTimeout: time.Second, QuarantineConfidence: 0.3}
	})
	if err := reviewer.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	h := NewHandler(opt, reviewer, router.NewHealthTracker(3, time.Minute), func() int64 { return maxBody })
	return testServer{
		router: NewRouter(h, RouterConfig{
			Version: "test",
			Limiter: limiter,
			Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		}),
		limiter: limiter,
	}
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dest); err != nil {
		t.Fatalf("failed to decode %q: %v", w.Body.String(), err)
	}
}

func TestTranslate_Remote(t *testing.T) {
	s := newTestServer(t, 1<<20)
	w := post(t, s.router, "/v1/translate", `{"text":"Hello","target_lang":"ML"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp response[string]
	decodeBody(t, w, &resp)
	if resp.Result != "<ml>Hello" || resp.Provenance != types.ProvenanceRemote {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.RequestID == "" || w.Header().Get("X-Request-ID") != resp.RequestID {
		t.Errorf("request id not propagated: %q vs %q", resp.RequestID, w.Header().Get("X-Request-ID"))
	}
	if w.Header().Get("X-RateLimit-Limit-Requests") != "10" {
		t.Errorf("expected rate limit header, got %q", w.Header().Get("X-RateLimit-Limit-Requests"))
	}
}

func TestTranslate_MissingTarget(t *testing.T) {
	s := newTestServer(t, 1<<20)
	w := post(t, s.router, "/v1/translate", `{"text":"Hello"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAnalyze_FallbackIsReviewed(t *testing.T) {
	s := newTestServer(t, 1<<20)
	w := post(t, s.router, "/v1/analyze", `{"text":"`+contractDoc+`"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp analyzeResponse
	decodeBody(t, w, &resp)
	if resp.Provenance != types.ProvenanceFallbackError {
		t.Errorf("expected fallback_error, got %s", resp.Provenance)
	}
	if resp.Result.DocumentKind != types.KindContract || resp.Result.Sensitivity != types.SensitivityConfidential {
		t.Errorf("unexpected classification %s/%s", resp.Result.DocumentKind, resp.Result.Sensitivity)
	}
	if resp.Review == nil || resp.Review.Status != review.StatusQuarantined {
		t.Errorf("expected heuristic confidential analysis to be quarantined, got %+v", resp.Review)
	}
}

func TestAnalyze_CachedKeepsOriginForReview(t *testing.T) {
	s := newTestServer(t, 1<<20)
	post(t, s.router, "/v1/analyze", `{"text":"`+contractDoc+`"}`)
	w := post(t, s.router, "/v1/analyze", `{"text":"`+contractDoc+`"}`)

	var resp analyzeResponse
	decodeBody(t, w, &resp)
	if resp.Provenance != types.ProvenanceCached || resp.Origin != types.ProvenanceFallbackError {
		t.Errorf("expected cached/fallback_error, got %s/%s", resp.Provenance, resp.Origin)
	}
	if resp.Review == nil || resp.Review.Status != review.StatusQuarantined {
		t.Errorf("expected cached heuristic analysis to stay quarantined, got %+v", resp.Review)
	}
}

func TestAsk_TimeoutFallsBack(t *testing.T) {
	s := newTestServer(t, 1<<20)
	w := post(t, s.router, "/v1/ask", `{"document":"`+contractDoc+`","question":"When are invoices due?"}`)

	var resp response[string]
	decodeBody(t, w, &resp)
	if resp.Provenance != types.ProvenanceFallbackError || resp.Result == "" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestEmbedAndDetect(t *testing.T) {
	s := newTestServer(t, 1<<20)

	w := post(t, s.router, "/v1/embed", `{"text":"maintenance schedule"}`)
	var emb response[[]float32]
	decodeBody(t, w, &emb)
	if emb.Provenance != types.ProvenanceRemote || len(emb.Result) != 2 {
		t.Errorf("unexpected embed response %+v", emb)
	}

	w = post(t, s.router, "/v1/detect-language", `{"text":"Der Vertrag ist gültig und die Zahlung ist fällig"}`)
	var det response[types.LanguageScores]
	decodeBody(t, w, &det)
	if det.Provenance != types.ProvenanceFallbackError {
		t.Errorf("expected fallback_error, got %s", det.Provenance)
	}
	if top, _ := det.Result.Top(); top != "de" {
		t.Errorf("expected German, got %v", det.Result)
	}
}

func TestEmptyInput(t *testing.T) {
	s := newTestServer(t, 1<<20)
	w := post(t, s.router, "/v1/embed", `{"text":"   "}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", w.Code)
	}
}

func TestInvalidJSON(t *testing.T) {
	s := newTestServer(t, 1<<20)
	w := post(t, s.router, "/v1/analyze", `{"text":`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestBodyTooLarge(t *testing.T) {
	s := newTestServer(t, 64)
	w := post(t, s.router, "/v1/analyze", `{"text":"`+strings.Repeat("a", 200)+`"}`)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", w.Code)
	}
}

func TestDiagnostics(t *testing.T) {
	s := newTestServer(t, 1<<20)
	post(t, s.router, "/v1/translate", `{"text":"Hello","target_lang":"ml"}`)
	post(t, s.router, "/v1/translate", `{"text":"Hello","target_lang":"ml"}`)

	req := httptest.NewRequest(http.MethodGet, "/v1/diagnostics", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var d struct {
		Requests  int64 `json:"requests"`
		CacheHits int64 `json:"cache_hits"`
		RateLimit struct {
			RequestsInWindow int `json:"requests_in_window"`
		} `json:"rate_limit"`
	}
	decodeBody(t, w, &d)
	if d.Requests != 2 || d.CacheHits != 1 || d.RateLimit.RequestsInWindow != 1 {
		t.Errorf("unexpected diagnostics %s", w.Body.String())
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, 1<<20)
	post(t, s.router, "/v1/translate", `{"text":"Hello","target_lang":"ml"}`)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "healthy") {
		t.Errorf("unexpected health response %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), `docai_results_total{operation="translate",provenance="remote"} 1`) {
		t.Errorf("expected result metric, got:\n%s", w.Body.String())
	}
}

func TestRequestIDPropagated(t *testing.T) {
	s := newTestServer(t, 1<<20)
	req := httptest.NewRequest(http.MethodPost, "/v1/embed", strings.NewReader(`{"text":"x"}`))
	req.Header.Set("X-Request-ID", "req_fixed")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") != "req_fixed" {
		t.Errorf("expected propagated request id, got %q", w.Header().Get("X-Request-ID"))
	}
	var resp response[[]float32]
	decodeBody(t, w, &resp)
	if resp.RequestID != "req_fixed" {
		t.Errorf("expected request id in body, got %q", resp.RequestID)
	}
}

func TestRequestIDMiddleware_StoresIDInContext(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" || !strings.HasPrefix(seen, "req_") {
		t.Fatalf("expected generated request id in context, got %q", seen)
	}
	if w.Header().Get("X-Request-ID") != seen {
		t.Errorf("header %q does not match context id %q", w.Header().Get("X-Request-ID"), seen)
	}
	if RequestIDFromContext(context.Background()) != "" {
		t.Error("expected empty id outside the middleware")
	}
}
