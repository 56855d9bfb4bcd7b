package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/af-corp/docai-gateway/internal/config"
	"github.com/af-corp/docai-gateway/internal/router"
	"github.com/af-corp/docai-gateway/internal/router/adapters"
)

type chatRequest struct {
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// fakeProvider serves an OpenAI-compatible API whose chat replies come from reply.
type fakeProvider struct {
	*httptest.Server
	calls      atomic.Int64
	lastPrompt atomic.Value
}

func newFakeProvider(t *testing.T, status int, reply string, delay time.Duration) *fakeProvider {
	t.Helper()
	fp := &fakeProvider{}
	fp.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fp.calls.Add(1)
		if delay > 0 {
			time.Sleep(delay)
		}
		if r.URL.Path == "/embeddings" {
			fmt.Fprint(w, `{"data":[{"index":0,"embedding":[0.5,0.5]}]}`)
			return
		}
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if n := len(req.Messages); n > 0 {
			fp.lastPrompt.Store(req.Messages[n-1].Content)
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			fmt.Fprint(w, `{"error":{"message":"nope"}}`)
			return
		}
		content, _ := json.Marshal(reply)
		fmt.Fprintf(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":%s}}]}`, content)
	}))
	t.Cleanup(fp.Close)
	return fp
}

func newTestClient(t *testing.T, fp *fakeProvider, timeout time.Duration) (*Client, *router.HealthTracker) {
	t.Helper()
	registry := router.NewRegistry()
	registry.Register("deepseek", adapters.NewOpenAIAdapter(config.ProviderConfig{BaseURL: fp.URL, APIKey: "k"}, fp.Client()))
	health := router.NewHealthTracker(2, time.Minute)
	routes := &config.RoutesConfig{Routes: map[string]config.RouteSet{
		"chat":  {Primary: config.ProviderRoute{Provider: "deepseek", Model: "deepseek-chat"}},
		"embed": {Primary: config.ProviderRoute{Provider: "deepseek", Model: "embed"}},
	}}
	settings := Settings{Timeout: timeout, AnalysisBudget: 4000, ChatBudget: 3000, SecondaryLanguage: "ml"}
	c := NewClient(registry, health,
		func() *config.RoutesConfig { return routes },
		func() Settings { return settings },
	)
	return c, health
}

func TestClient_AnalyzeParsesFencedJSON(t *testing.T) {
	reply := "```json\n" + `{
  "summary_primary": "A supply contract between Acme and the city.",
  "summary_secondary": "ഒരു കരാർ",
  "document_kind": "Contract",
  "sensitivity": "HIGH",
  "recommended_roles": {"roles": ["finance", "LEADERSHIP"], "confidence": 0.9, "reasoning": "payment terms"},
  "tags": ["contract", "procurement", "Contract"],
  "retention_days": 2555,
  "key_entities": ["Acme"],
  "primary_language": "en-US"
}` + "\n```"
	fp := newFakeProvider(t, http.StatusOK, reply, 0)
	c, _ := newTestClient(t, fp, time.Second)

	a, err := c.Analyze(context.Background(), "This agreement is made between Acme and the city.")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	r := a.Result
	if r.DocumentKind != "contract" || r.Sensitivity != "high" {
		t.Errorf("unexpected kind/sensitivity %s/%s", r.DocumentKind, r.Sensitivity)
	}
	if !a.ConfidenceReported || r.RecommendedRoles.Confidence != 0.9 {
		t.Errorf("expected reported confidence 0.9, got %v/%g", a.ConfidenceReported, r.RecommendedRoles.Confidence)
	}
	if len(r.RecommendedRoles.Roles) != 2 || r.RecommendedRoles.Roles[0] != "FINANCE" {
		t.Errorf("unexpected roles %v", r.RecommendedRoles.Roles)
	}
	if len(r.Tags) != 2 {
		t.Errorf("expected case-insensitive tag dedupe, got %v", r.Tags)
	}
	if r.RetentionDays == nil || *r.RetentionDays != 2555 {
		t.Error("expected retention 2555")
	}
	if r.PrimaryLanguage != "en" {
		t.Errorf("expected canonical language en, got %s", r.PrimaryLanguage)
	}
}

func TestClient_AnalyzeMissingConfidence(t *testing.T) {
	fp := newFakeProvider(t, http.StatusOK, `{"summary_primary":"s","recommended_roles":{"roles":["HR"]}}`, 0)
	c, _ := newTestClient(t, fp, time.Second)

	a, err := c.Analyze(context.Background(), "text")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if a.ConfidenceReported {
		t.Error("expected missing confidence to be reported as absent")
	}
}

func TestClient_AnalyzeMalformedSalvagesSummary(t *testing.T) {
	fp := newFakeProvider(t, http.StatusOK, `{"summary_primary": "Quarterly budget report for \"Ops\".", "summary_secondary": "trunc`, 0)
	c, _ := newTestClient(t, fp, time.Second)

	_, err := c.Analyze(context.Background(), "text")
	var re *Error
	if !errors.As(err, &re) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if re.Category != CategoryMalformed {
		t.Errorf("expected malformed, got %s", re.Category)
	}
	if re.Salvaged != `Quarterly budget report for "Ops".` {
		t.Errorf("unexpected salvaged text %q", re.Salvaged)
	}
	if re.Retryable() {
		t.Error("malformed responses should not be retryable")
	}
}

func TestClient_AnalyzeTruncatesOnRuneBoundary(t *testing.T) {
	fp := newFakeProvider(t, http.StatusOK, `{"summary_primary":"s"}`, 0)
	c, _ := newTestClient(t, fp, time.Second)

	text := strings.Repeat("ക", 5000)
	if _, err := c.Analyze(context.Background(), text); err != nil {
		t.Fatal(err)
	}
	prompt, _ := fp.lastPrompt.Load().(string)
	if !utf8.ValidString(prompt) {
		t.Fatal("prompt is not valid UTF-8")
	}
	if n := utf8.RuneCountInString(prompt); n != 4000 {
		t.Errorf("expected 4000 runes, got %d", n)
	}
}

func TestClient_DetectLanguage(t *testing.T) {
	fp := newFakeProvider(t, http.StatusOK, `{"EN": 0.7, "ml-IN": 0.3}`, 0)
	c, _ := newTestClient(t, fp, time.Second)

	scores, err := c.DetectLanguage(context.Background(), "hello")
	if err != nil {
		t.Fatalf("DetectLanguage failed: %v", err)
	}
	if scores["en"] != 0.7 || scores["ml"] != 0.3 {
		t.Errorf("unexpected scores %v", scores)
	}
}

func TestClient_DetectLanguageSalvage(t *testing.T) {
	fp := newFakeProvider(t, http.StatusOK, `Sure! "en": 0.92, "hi": 0.05 and that's it`, 0)
	c, _ := newTestClient(t, fp, time.Second)

	scores, err := c.DetectLanguage(context.Background(), "hello")
	if err != nil {
		t.Fatalf("expected salvage to succeed, got %v", err)
	}
	if scores["en"] != 0.92 || scores["hi"] != 0.05 {
		t.Errorf("unexpected salvaged scores %v", scores)
	}
}

func TestClient_DetectLanguageUnsalvageable(t *testing.T) {
	fp := newFakeProvider(t, http.StatusOK, `I cannot tell.`, 0)
	c, _ := newTestClient(t, fp, time.Second)

	_, err := c.DetectLanguage(context.Background(), "hello")
	if CategoryOf(err) != CategoryMalformed {
		t.Errorf("expected malformed, got %v", err)
	}
}

func TestClient_Translate(t *testing.T) {
	fp := newFakeProvider(t, http.StatusOK, `"നമസ്കാരം"`, 0)
	c, _ := newTestClient(t, fp, time.Second)

	out, err := c.Translate(context.Background(), "Hello", "ml")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if out != "നമസ്കാരം" {
		t.Errorf("expected quotes stripped, got %q", out)
	}
}

func TestClient_AskEmptyReplyIsMalformed(t *testing.T) {
	fp := newFakeProvider(t, http.StatusOK, "   ", 0)
	c, _ := newTestClient(t, fp, time.Second)

	_, err := c.Ask(context.Background(), "doc", "question?", "en")
	if CategoryOf(err) != CategoryMalformed {
		t.Errorf("expected malformed, got %v", err)
	}
}

func TestClient_Timeout(t *testing.T) {
	fp := newFakeProvider(t, http.StatusOK, "late", 300*time.Millisecond)
	c, _ := newTestClient(t, fp, 50*time.Millisecond)

	_, err := c.Translate(context.Background(), "Hello", "ml")
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TimeoutError, got %v", err)
	}
	if te.After != 50*time.Millisecond || !te.Retryable() {
		t.Errorf("unexpected timeout error %+v", te)
	}
}

func TestClient_IgnoresCallerCancellation(t *testing.T) {
	fp := newFakeProvider(t, http.StatusOK, "ok", 20*time.Millisecond)
	c, _ := newTestClient(t, fp, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := c.Translate(ctx, "Hello", "ml")
	if err != nil {
		t.Fatalf("expected call to complete despite cancelled caller, got %v", err)
	}
	if out != "ok" {
		t.Errorf("unexpected reply %q", out)
	}
}

func TestClient_StatusCategories(t *testing.T) {
	tests := []struct {
		status    int
		category  Category
		retryable bool
	}{
		{http.StatusTooManyRequests, CategoryQuota, true},
		{http.StatusPaymentRequired, CategoryQuota, true},
		{http.StatusUnauthorized, CategoryAuth, false},
		{http.StatusForbidden, CategoryAuth, false},
		{http.StatusBadGateway, CategoryServer, true},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			fp := newFakeProvider(t, tt.status, "", 0)
			c, _ := newTestClient(t, fp, time.Second)

			_, err := c.Translate(context.Background(), "Hello", "ml")
			var re *Error
			if !errors.As(err, &re) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if re.Category != tt.category || re.Status != tt.status {
				t.Errorf("got %s/%d, want %s/%d", re.Category, re.Status, tt.category, tt.status)
			}
			if re.Retryable() != tt.retryable {
				t.Errorf("Retryable() = %v, want %v", re.Retryable(), tt.retryable)
			}
		})
	}
}

func TestClient_OpenCircuitMakesProviderUnavailable(t *testing.T) {
	fp := newFakeProvider(t, http.StatusServiceUnavailable, "", 0)
	c, _ := newTestClient(t, fp, time.Second)
	ctx := context.Background()

	c.Translate(ctx, "a", "ml")
	c.Translate(ctx, "b", "ml")
	before := fp.calls.Load()

	_, err := c.Translate(ctx, "c", "ml")
	if CategoryOf(err) != CategoryUnavailable {
		t.Fatalf("expected unavailable once the circuit is open, got %v", err)
	}
	if fp.calls.Load() != before {
		t.Error("expected no upstream call while the circuit is open")
	}
}

func TestClient_MalformedDoesNotTripCircuit(t *testing.T) {
	fp := newFakeProvider(t, http.StatusOK, "no json here", 0)
	c, health := newTestClient(t, fp, time.Second)

	for i := 0; i < 5; i++ {
		c.Analyze(context.Background(), "text")
	}
	if !health.IsAvailable("deepseek") {
		t.Error("expected provider to stay available after malformed replies")
	}
}

func TestClient_Embed(t *testing.T) {
	fp := newFakeProvider(t, http.StatusOK, "", 0)
	c, _ := newTestClient(t, fp, time.Second)

	vec, err := c.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vec) != 2 {
		t.Errorf("unexpected vector %v", vec)
	}
}

func TestClient_Configured(t *testing.T) {
	fp := newFakeProvider(t, http.StatusOK, "", 0)
	c, _ := newTestClient(t, fp, time.Second)
	if !c.Configured(adapters.CapabilityChat) {
		t.Error("expected chat to be configured")
	}

	empty := NewClient(router.NewRegistry(), router.NewHealthTracker(1, time.Minute),
		func() *config.RoutesConfig { return nil },
		func() Settings { return Settings{} },
	)
	if empty.Configured(adapters.CapabilityChat) {
		t.Error("expected no configured chat without routes")
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"timeout", &TimeoutError{Op: "ask", After: time.Second}, true},
		{"wrapped server error", fmt.Errorf("call: %w", &Error{Category: CategoryServer}), true},
		{"auth", &Error{Category: CategoryAuth}, false},
		{"malformed", &Error{Category: CategoryMalformed}, false},
		{"foreign error", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable() = %v, want %v", got, tt.want)
			}
		})
	}
}
