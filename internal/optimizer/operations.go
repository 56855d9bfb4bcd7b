package optimizer

import (
	"context"
	"errors"
	"strings"

	"github.com/af-corp/docai-gateway/internal/fallback"
	"github.com/af-corp/docai-gateway/internal/lang"
	"github.com/af-corp/docai-gateway/internal/remote"
	"github.com/af-corp/docai-gateway/internal/router/adapters"
	"github.com/af-corp/docai-gateway/internal/types"
)

// Analyze summarizes and classifies a document. Results are always fully
// populated: fields the remote model left empty are taken from the
// heuristic analysis, and its role guesses are merged into the remote ones.
func (o *Optimizer) Analyze(ctx context.Context, text string) (Result[types.AnalysisResult], error) {
	secondary := lang.Canonical(o.cfg().SecondaryLanguage)
	return run(ctx, o, task[types.AnalysisResult]{
		op:         "analyze",
		capability: adapters.CapabilityChat,
		content:    text,
		params:     map[string]string{"secondary_language": secondary},
		outbound:   []string{text},
		remote: func(ctx context.Context) (types.AnalysisResult, error) {
			a, err := o.remote.Analyze(ctx, text)
			if err != nil {
				return types.AnalysisResult{}, err
			}
			return o.complete(a, text)
		},
		fallback: func(remoteErr error) (types.AnalysisResult, error) {
			a, err := fallback.Analyze(text)
			if err != nil {
				return a, err
			}
			var re *remote.Error
			if errors.As(remoteErr, &re) && re.Salvaged != "" {
				a.SummaryPrimary = re.Salvaged
				a.SummarySecondary = re.Salvaged
			}
			return a, nil
		},
	})
}

// complete fills a remote analysis from the heuristic one.
func (o *Optimizer) complete(a remote.Analysis, text string) (types.AnalysisResult, error) {
	h, err := fallback.Analyze(text)
	if err != nil {
		return types.AnalysisResult{}, err
	}
	r := a.Result

	if !a.ConfidenceReported {
		r.RecommendedRoles.Confidence = o.cfg().DefaultConfidence
	}
	r.RecommendedRoles = fallback.MergeRoles(r.RecommendedRoles, h.RecommendedRoles)
	if r.RecommendedRoles.Reasoning == "" {
		r.RecommendedRoles.Reasoning = h.RecommendedRoles.Reasoning
	}

	if r.SummarySecondary == "" {
		r.SummarySecondary = r.SummaryPrimary
	}
	if r.DocumentKind == "" {
		r.DocumentKind = h.DocumentKind
	}
	if r.Sensitivity == "" {
		r.Sensitivity = h.Sensitivity
	}
	if len(r.Tags) == 0 {
		r.Tags = h.Tags
	}
	if r.RetentionDays == nil {
		days := fallback.RetentionDays(r.DocumentKind)
		r.RetentionDays = &days
	}
	if len(r.KeyEntities) == 0 {
		r.KeyEntities = h.KeyEntities
	}
	if r.PrimaryLanguage == "" {
		r.PrimaryLanguage = h.PrimaryLanguage
	}
	return r, nil
}

// Translate renders text in the target language. The fallback cannot
// translate and returns the text unchanged.
func (o *Optimizer) Translate(ctx context.Context, text, targetLang string) (Result[string], error) {
	target := lang.Canonical(targetLang)
	return run(ctx, o, task[string]{
		op:         "translate",
		capability: adapters.CapabilityChat,
		content:    text,
		params:     map[string]string{"target_lang": target},
		outbound:   []string{text},
		remote: func(ctx context.Context) (string, error) {
			return o.remote.Translate(ctx, text, target)
		},
		fallback: func(error) (string, error) {
			return fallback.Translate(text, target)
		},
	})
}

// DetectLanguage returns confidence per language code.
func (o *Optimizer) DetectLanguage(ctx context.Context, text string) (Result[types.LanguageScores], error) {
	return run(ctx, o, task[types.LanguageScores]{
		op:         "detect_language",
		capability: adapters.CapabilityChat,
		content:    text,
		outbound:   []string{text},
		remote: func(ctx context.Context) (types.LanguageScores, error) {
			return o.remote.DetectLanguage(ctx, text)
		},
		fallback: func(error) (types.LanguageScores, error) {
			return fallback.DetectLanguage(text)
		},
	})
}

// Embed returns a vector for text. Remote and fallback vectors live in
// different spaces; callers comparing vectors should compare provenance
// origins too.
func (o *Optimizer) Embed(ctx context.Context, text string) (Result[[]float32], error) {
	return run(ctx, o, task[[]float32]{
		op:         "embed",
		capability: adapters.CapabilityEmbed,
		content:    text,
		outbound:   []string{text},
		remote: func(ctx context.Context) ([]float32, error) {
			return o.remote.Embed(ctx, text)
		},
		fallback: func(error) ([]float32, error) {
			return fallback.Embed(text)
		},
	})
}

// Ask answers a question about a document in answerLang. An empty
// answerLang means English.
func (o *Optimizer) Ask(ctx context.Context, document, question, answerLang string) (Result[string], error) {
	if strings.TrimSpace(question) == "" {
		return Result[string]{}, fallback.ErrFallbackExhausted
	}
	if answerLang == "" {
		answerLang = "en"
	}
	answer := lang.Canonical(answerLang)
	return run(ctx, o, task[string]{
		op:         "ask",
		capability: adapters.CapabilityChat,
		content:    document,
		params:     map[string]string{"question": question, "answer_lang": answer},
		outbound:   []string{document, question},
		remote: func(ctx context.Context) (string, error) {
			return o.remote.Ask(ctx, document, question, answer)
		},
		fallback: func(error) (string, error) {
			return fallback.Answer(document, question)
		},
	})
}
