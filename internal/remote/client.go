package remote

import (
	"context"
	"log/slog"
	"time"

	"github.com/af-corp/docai-gateway/internal/config"
	"github.com/af-corp/docai-gateway/internal/lang"
	"github.com/af-corp/docai-gateway/internal/router"
	"github.com/af-corp/docai-gateway/internal/router/adapters"
	"github.com/af-corp/docai-gateway/internal/types"
)

// Settings are the per-call limits of the client.
type Settings struct {
	Timeout           time.Duration
	AnalysisBudget    int
	ChatBudget        int
	SecondaryLanguage string
}

// SettingsFromConfig reads client settings from the optimizer block.
func SettingsFromConfig(o config.OptimizerConfig) Settings {
	return Settings{
		Timeout:           o.RemoteTimeout,
		AnalysisBudget:    o.AnalysisTextBudgetChars,
		ChatBudget:        o.ChatTextBudgetChars,
		SecondaryLanguage: o.SecondaryLanguage,
	}
}

// Client makes one attempt per call against the first healthy provider
// routed for the capability. Calls are detached from the caller's
// cancellation and bounded by Settings.Timeout instead, so a result that
// arrives is always complete.
type Client struct {
	registry *router.Registry
	health   *router.HealthTracker
	routes   func() *config.RoutesConfig
	settings func() Settings
}

func NewClient(registry *router.Registry, health *router.HealthTracker, routes func() *config.RoutesConfig, settings func() Settings) *Client {
	return &Client{
		registry: registry,
		health:   health,
		routes:   routes,
		settings: settings,
	}
}

// Configured reports whether any registered provider is routed for the
// capability, regardless of its current health.
func (c *Client) Configured(capability adapters.Capability) bool {
	rc := c.routes()
	if rc == nil {
		return false
	}
	set, ok := rc.Routes[string(capability)]
	if !ok {
		return false
	}
	for _, candidate := range set.Candidates() {
		if a, ok := c.registry.Get(candidate.Provider); ok && a.Supports(capability) {
			return true
		}
	}
	return false
}

func (c *Client) Analyze(ctx context.Context, text string) (Analysis, error) {
	s := c.settings()
	raw, provider, err := c.complete(ctx, "analyze", adapters.CompletionRequest{
		System:    analysisSystem(lang.Name(s.SecondaryLanguage)),
		Prompt:    c.budgeted("analyze", text, s.AnalysisBudget),
		MaxTokens: 1500,
		JSON:      true,
	})
	if err != nil {
		return Analysis{}, err
	}

	switch r := parseAnalysis(raw).(type) {
	case parsed[Analysis]:
		return r.value, nil
	case parseFailure:
		return Analysis{}, &Error{
			Op:       "analyze",
			Provider: provider,
			Category: CategoryMalformed,
			Salvaged: salvageSummary(r.raw),
			Err:      r.err,
		}
	}
	panic("unreachable")
}

func (c *Client) Translate(ctx context.Context, text, targetLang string) (string, error) {
	s := c.settings()
	raw, provider, err := c.complete(ctx, "translate", adapters.CompletionRequest{
		System:    translateSystem(lang.Name(targetLang)),
		Prompt:    c.budgeted("translate", text, s.ChatBudget),
		MaxTokens: 2000,
	})
	if err != nil {
		return "", err
	}
	return plainTextOrError("translate", provider, raw)
}

func (c *Client) DetectLanguage(ctx context.Context, text string) (types.LanguageScores, error) {
	s := c.settings()
	raw, provider, err := c.complete(ctx, "detect_language", adapters.CompletionRequest{
		System:    detectSystemPrompt,
		Prompt:    c.budgeted("detect_language", text, s.ChatBudget),
		MaxTokens: 200,
		JSON:      true,
	})
	if err != nil {
		return nil, err
	}

	switch r := parseLanguageScores(raw).(type) {
	case parsed[types.LanguageScores]:
		return r.value, nil
	case parseFailure:
		if scores := salvageLanguageScores(r.raw); len(scores) > 0 {
			slog.Warn("salvaged language scores from malformed reply", "provider", provider)
			return scores, nil
		}
		return nil, &Error{Op: "detect_language", Provider: provider, Category: CategoryMalformed, Err: r.err}
	}
	panic("unreachable")
}

func (c *Client) Ask(ctx context.Context, document, question, answerLang string) (string, error) {
	s := c.settings()
	raw, provider, err := c.complete(ctx, "ask", adapters.CompletionRequest{
		System:    askSystem(lang.Name(answerLang)),
		Prompt:    askPrompt(c.budgeted("ask", document, s.ChatBudget), question),
		MaxTokens: 800,
	})
	if err != nil {
		return "", err
	}
	return plainTextOrError("ask", provider, raw)
}

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	s := c.settings()
	route, err := router.ResolveRoute(c.routes(), c.registry, c.health, adapters.CapabilityEmbed)
	if err != nil {
		return nil, classify("embed", "", s.Timeout, err)
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.Timeout)
	defer cancel()

	vec, err := route.Adapter.Embed(callCtx, route.Model, c.budgeted("embed", text, s.AnalysisBudget))
	if err != nil {
		return nil, c.fail("embed", route.Name, s.Timeout, err)
	}
	c.health.RecordSuccess(route.Name)
	return vec, nil
}

// complete resolves a chat route and runs one completion on it.
func (c *Client) complete(ctx context.Context, op string, req adapters.CompletionRequest) (string, string, error) {
	s := c.settings()
	route, err := router.ResolveRoute(c.routes(), c.registry, c.health, adapters.CapabilityChat)
	if err != nil {
		return "", "", classify(op, "", s.Timeout, err)
	}
	req.Model = route.Model

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.Timeout)
	defer cancel()

	start := time.Now()
	raw, err := route.Adapter.Complete(callCtx, req)
	if err != nil {
		return "", route.Name, c.fail(op, route.Name, s.Timeout, err)
	}
	c.health.RecordSuccess(route.Name)

	slog.Debug("remote call completed",
		"operation", op,
		"provider", route.Name,
		"model", route.Model,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return raw, route.Name, nil
}

func (c *Client) fail(op, provider string, timeout time.Duration, err error) error {
	classified := classify(op, provider, timeout, err)
	if countsAgainstProvider(classified) {
		c.health.RecordFailure(provider)
	} else {
		c.health.RecordSuccess(provider)
	}
	return classified
}

func (c *Client) budgeted(op, text string, budget int) string {
	if n := runeLen(text); n > budget {
		slog.Debug("truncating remote input", "operation", op, "runes", n, "budget", budget)
		return Truncate(text, budget)
	}
	return text
}

func plainTextOrError(op, provider, raw string) (string, error) {
	switch r := parsePlainText(raw).(type) {
	case parsed[string]:
		return r.value, nil
	case parseFailure:
		return "", &Error{Op: op, Provider: provider, Category: CategoryMalformed, Err: r.err}
	}
	panic("unreachable")
}
