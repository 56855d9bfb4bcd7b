package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/af-corp/docai-gateway/internal/fallback"
	"github.com/af-corp/docai-gateway/internal/httputil"
	"github.com/af-corp/docai-gateway/internal/optimizer"
	"github.com/af-corp/docai-gateway/internal/review"
	"github.com/af-corp/docai-gateway/internal/router"
	"github.com/af-corp/docai-gateway/internal/types"
)

// Handler holds dependencies for the document AI HTTP handlers.
type Handler struct {
	optimizer     *optimizer.Optimizer
	reviewer      *review.Evaluator
	healthTracker *router.HealthTracker
	maxBodyBytes  func() int64
}

// NewHandler builds the handlers. reviewer and healthTracker may be nil.
func NewHandler(opt *optimizer.Optimizer, reviewer *review.Evaluator, healthTracker *router.HealthTracker, maxBodyBytes func() int64) *Handler {
	return &Handler{
		optimizer:     opt,
		reviewer:      reviewer,
		healthTracker: healthTracker,
		maxBodyBytes:  maxBodyBytes,
	}
}

type textRequest struct {
	Text string `json:"text"`
}

type translateRequest struct {
	Text       string `json:"text"`
	TargetLang string `json:"target_lang"`
}

type askRequest struct {
	Document   string `json:"document"`
	Question   string `json:"question"`
	AnswerLang string `json:"answer_lang"`
}

type response[T any] struct {
	RequestID  string           `json:"request_id"`
	Result     T                `json:"result"`
	Provenance types.Provenance `json:"provenance"`
	Origin     types.Provenance `json:"origin"`
}

type analyzeResponse struct {
	response[types.AnalysisResult]
	Review *review.Verdict `json:"review,omitempty"`
}

// Analyze handles POST /v1/analyze
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)
	var req textRequest
	if !h.decode(w, r, reqID, &req) {
		return
	}

	res, err := h.optimizer.Analyze(r.Context(), req.Text)
	if err != nil {
		writeOperationError(w, reqID, "analyze", err)
		return
	}

	out := analyzeResponse{response: wrap(reqID, res)}
	if h.reviewer != nil && h.reviewer.Enabled() {
		v := h.reviewer.Review(r.Context(), res.Value, res.Origin)
		out.Review = &v
	}
	logCompleted(reqID, "analyze", res.Provenance, res.Origin)
	httputil.WriteJSON(w, out)
}

// Translate handles POST /v1/translate
func (h *Handler) Translate(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)
	var req translateRequest
	if !h.decode(w, r, reqID, &req) {
		return
	}
	if req.TargetLang == "" {
		httputil.WriteBadRequestError(w, reqID, "target_lang is required")
		return
	}

	res, err := h.optimizer.Translate(r.Context(), req.Text, req.TargetLang)
	respond(w, reqID, "translate", res, err)
}

// DetectLanguage handles POST /v1/detect-language
func (h *Handler) DetectLanguage(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)
	var req textRequest
	if !h.decode(w, r, reqID, &req) {
		return
	}
	res, err := h.optimizer.DetectLanguage(r.Context(), req.Text)
	respond(w, reqID, "detect_language", res, err)
}

// Embed handles POST /v1/embed
func (h *Handler) Embed(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)
	var req textRequest
	if !h.decode(w, r, reqID, &req) {
		return
	}
	res, err := h.optimizer.Embed(r.Context(), req.Text)
	respond(w, reqID, "embed", res, err)
}

// Ask handles POST /v1/ask
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)
	var req askRequest
	if !h.decode(w, r, reqID, &req) {
		return
	}
	res, err := h.optimizer.Ask(r.Context(), req.Document, req.Question, req.AnswerLang)
	respond(w, reqID, "ask", res, err)
}

type diagnostics struct {
	optimizer.Snapshot
	Providers map[string]router.BreakerStatus `json:"providers,omitempty"`
}

// Diagnostics handles GET /v1/diagnostics
func (h *Handler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	d := diagnostics{Snapshot: h.optimizer.Snapshot(r.Context())}
	if h.healthTracker != nil {
		d.Providers = h.healthTracker.Snapshot()
	}
	httputil.WriteJSON(w, d)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, reqID string, dest any) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes()))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteBodyTooLargeError(w, reqID, "Request body exceeds the configured limit")
			return false
		}
		httputil.WriteBadRequestError(w, reqID, "Failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, dest); err != nil {
		httputil.WriteBadRequestError(w, reqID, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

func respond[T any](w http.ResponseWriter, reqID, op string, res optimizer.Result[T], err error) {
	if err != nil {
		writeOperationError(w, reqID, op, err)
		return
	}
	logCompleted(reqID, op, res.Provenance, res.Origin)
	httputil.WriteJSON(w, wrap(reqID, res))
}

func wrap[T any](reqID string, res optimizer.Result[T]) response[T] {
	return response[T]{RequestID: reqID, Result: res.Value, Provenance: res.Provenance, Origin: res.Origin}
}

func writeOperationError(w http.ResponseWriter, reqID, op string, err error) {
	if errors.Is(err, fallback.ErrFallbackExhausted) {
		httputil.WriteEmptyInputError(w, reqID, "Input is empty")
		return
	}
	slog.Error("operation failed", "request_id", reqID, "operation", op, "error", err)
	httputil.WriteInternalError(w, reqID, "Operation failed")
}

func logCompleted(reqID, op string, provenance, origin types.Provenance) {
	slog.Info("request completed",
		"request_id", reqID,
		"operation", op,
		"provenance", provenance,
		"origin", origin,
	)
}

func requestID(r *http.Request) string {
	return RequestIDFromContext(r.Context())
}

// HealthHandler reports liveness.
func HealthHandler(version string) http.HandlerFunc {
	started := time.Now()
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, map[string]string{
			"status":  "healthy",
			"version": version,
			"uptime":  time.Since(started).Round(time.Second).String(),
		})
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestIDFromContext returns the request id set by RequestIDMiddleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
