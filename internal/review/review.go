// Package review decides whether an analysed document can go live or must
// wait for manual review. The decision is a Rego policy evaluated with OPA.
package review

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/af-corp/docai-gateway/internal/config"
	"github.com/af-corp/docai-gateway/internal/types"
)

//go:embed review.rego
var defaultPolicy string

const query = "data.docai.review.decision"

type Status string

const (
	StatusActive      Status = "ACTIVE"
	StatusQuarantined Status = "QUARANTINED"
)

// Input is the document the policy sees.
type Input struct {
	// Source is the provenance that produced the analysis; for cache hits
	// it is the original producer, not "cached".
	Source               string   `json:"source"`
	Confidence           float64  `json:"confidence"`
	Sensitivity          string   `json:"sensitivity"`
	DocumentKind         string   `json:"document_kind"`
	Roles                []string `json:"roles"`
	QuarantineConfidence float64  `json:"quarantine_confidence"`
}

// Verdict is the outcome of a review.
type Verdict struct {
	Status  Status   `json:"status"`
	Reasons []string `json:"reasons,omitempty"`
}

// Evaluator holds a prepared policy query. It is safe for concurrent use
// and can be reloaded.
type Evaluator struct {
	mu       sync.RWMutex
	prepared *rego.PreparedEvalQuery
	cfg      func() config.ReviewConfig
}

// NewEvaluator creates an evaluator. Call Load to compile policies.
func NewEvaluator(cfg func() config.ReviewConfig) *Evaluator {
	return &Evaluator{cfg: cfg}
}

func (e *Evaluator) Enabled() bool { return e.cfg().Enabled }

// Load compiles the policies in the configured bundle directory, or the
// built-in policy when no directory is set.
func (e *Evaluator) Load(ctx context.Context) error {
	cfg := e.cfg()
	if cfg.BundlePath == "" {
		return e.LoadFromModules(ctx, map[string]string{"review.rego": defaultPolicy})
	}

	modules, err := LoadRegoFiles(cfg.BundlePath)
	if err != nil {
		return fmt.Errorf("load rego files: %w", err)
	}
	if len(modules) == 0 {
		slog.Warn("no rego files found, using built-in review policy", "path", cfg.BundlePath)
		modules = map[string]string{"review.rego": defaultPolicy}
	}
	if err := e.LoadFromModules(ctx, modules); err != nil {
		return err
	}
	slog.Info("review policies loaded", "modules", len(modules), "path", cfg.BundlePath)
	return nil
}

// LoadFromModules compiles policies from module sources.
func (e *Evaluator) LoadFromModules(ctx context.Context, modules map[string]string) error {
	opts := []func(*rego.Rego){rego.Query(query)}
	for name, src := range modules {
		opts = append(opts, rego.Module(name, src))
	}

	prepared, err := rego.New(opts...).PrepareForEval(ctx)
	if err != nil {
		return fmt.Errorf("prepare rego: %w", err)
	}

	e.mu.Lock()
	e.prepared = &prepared
	e.mu.Unlock()
	return nil
}

// Evaluate runs the policy. Any failure to reach a decision quarantines the
// document.
func (e *Evaluator) Evaluate(ctx context.Context, in Input) (Verdict, error) {
	e.mu.RLock()
	prepared := e.prepared
	e.mu.RUnlock()

	if prepared == nil {
		return quarantined("no review policy loaded"), nil
	}

	timeout := e.cfg().EvaluationTimeout
	if timeout == 0 {
		timeout = 100 * time.Millisecond
	}
	evalCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results, err := prepared.Eval(evalCtx, rego.EvalInput(in))
	if err != nil {
		return quarantined("policy evaluation error"), fmt.Errorf("evaluate review policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return quarantined("no policy result"), nil
	}

	obj, ok := results[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return quarantined("unexpected policy result format"), nil
	}

	status, _ := obj["status"].(string)
	v := Verdict{Status: Status(status)}
	if raw, ok := obj["reasons"].([]any); ok {
		for _, r := range raw {
			if s, ok := r.(string); ok {
				v.Reasons = append(v.Reasons, s)
			}
		}
	}
	if v.Status != StatusActive && v.Status != StatusQuarantined {
		return quarantined(fmt.Sprintf("policy returned unknown status %q", status)), nil
	}
	return v, nil
}

// Review evaluates an analysis result. A disabled evaluator approves
// everything.
func (e *Evaluator) Review(ctx context.Context, a types.AnalysisResult, source types.Provenance) Verdict {
	if !e.Enabled() {
		return Verdict{Status: StatusActive}
	}
	v, err := e.Evaluate(ctx, InputFor(a, source, e.cfg().QuarantineConfidence))
	if err != nil {
		slog.Error("review policy failed", "error", err)
	}
	return v
}

// InputFor builds policy input from an analysis.
func InputFor(a types.AnalysisResult, source types.Provenance, threshold float64) Input {
	return Input{
		Source:               string(source),
		Confidence:           a.RecommendedRoles.Confidence,
		Sensitivity:          string(a.Sensitivity),
		DocumentKind:         string(a.DocumentKind),
		Roles:                a.RecommendedRoles.Roles,
		QuarantineConfidence: threshold,
	}
}

func quarantined(reason string) Verdict {
	return Verdict{Status: StatusQuarantined, Reasons: []string{reason}}
}
