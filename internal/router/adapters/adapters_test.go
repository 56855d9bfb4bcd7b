package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"google.golang.org/genai"

	"github.com/af-corp/docai-gateway/internal/config"
)

func TestOpenAIAdapter_Complete(t *testing.T) {
	var got openAIChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("expected bearer header, got %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"x","model":"deepseek-chat","choices":[{"index":0,"message":{"role":"assistant","content":"{\"ok\":true}"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	a := NewOpenAIAdapter(config.ProviderConfig{BaseURL: srv.URL + "/v1/", APIKey: "sk-test"}, srv.Client())
	out, err := a.Complete(context.Background(), CompletionRequest{
		Model:     "deepseek-chat",
		System:    "be terse",
		Prompt:    "hello",
		MaxTokens: 100,
		JSON:      true,
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if out != `{"ok":true}` {
		t.Errorf("unexpected content %q", out)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "hello" {
		t.Errorf("unexpected messages: %+v", got.Messages)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_object" {
		t.Error("expected json_object response format")
	}
	if got.MaxTokens == nil || *got.MaxTokens != 100 {
		t.Error("expected max_tokens 100")
	}
}

func TestOpenAIAdapter_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"data":[{"index":0,"embedding":[0.1,0.2,0.3]}]}`)
	}))
	defer srv.Close()

	a := NewOpenAIAdapter(config.ProviderConfig{BaseURL: srv.URL}, srv.Client())
	vec, err := a.Embed(context.Background(), "text-embedding-3-small", "hello")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vec) != 3 || vec[2] != 0.3 {
		t.Errorf("unexpected vector %v", vec)
	}
}

func TestOpenAIAdapter_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"quota exceeded"}}`)
	}))
	defer srv.Close()

	a := NewOpenAIAdapter(config.ProviderConfig{BaseURL: srv.URL}, srv.Client())
	_, err := a.Complete(context.Background(), CompletionRequest{Model: "m", Prompt: "p"})

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", se.StatusCode)
	}
	if !strings.Contains(se.Body, "quota") {
		t.Errorf("expected body in error, got %q", se.Body)
	}
}

func TestOpenAIAdapter_StatusErrorKeepsCharactersWhole(t *testing.T) {
	body := strings.Repeat("x", maxErrorBody-1) + "മലയാളം"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	a := NewOpenAIAdapter(config.ProviderConfig{BaseURL: srv.URL}, srv.Client())
	_, err := a.Complete(context.Background(), CompletionRequest{Model: "m", Prompt: "p"})

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if !utf8.ValidString(se.Body) {
		t.Fatalf("expected valid UTF-8 body, got tail %q", se.Body[len(se.Body)-4:])
	}
	if len(se.Body) > maxErrorBody {
		t.Errorf("expected at most %d bytes, got %d", maxErrorBody, len(se.Body))
	}
	if se.Body != strings.Repeat("x", maxErrorBody-1) {
		t.Errorf("expected the partial character to be dropped, got %d bytes", len(se.Body))
	}
}

func TestErrorBody(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short", "bad gateway", "bad gateway"},
		{"ascii cut", strings.Repeat("a", maxErrorBody+10), strings.Repeat("a", maxErrorBody)},
		{"rune on boundary", strings.Repeat("a", maxErrorBody-3) + "ള" + "zz", strings.Repeat("a", maxErrorBody-3) + "ള"},
		{"invalid bytes dropped", "oops\xff\xfe", "oops"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorBody([]byte(tt.in)); got != tt.want {
				t.Errorf("errorBody() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpenAIAdapter_BadResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>gateway</html>`)
	}))
	defer srv.Close()

	a := NewOpenAIAdapter(config.ProviderConfig{BaseURL: srv.URL}, srv.Client())
	_, err := a.Complete(context.Background(), CompletionRequest{Model: "m", Prompt: "p"})
	if !errors.Is(err, ErrBadResponse) {
		t.Fatalf("expected ErrBadResponse, got %v", err)
	}
}

func TestOpenAIAdapter_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	a := NewOpenAIAdapter(config.ProviderConfig{BaseURL: srv.URL}, srv.Client())
	_, err := a.Complete(context.Background(), CompletionRequest{Model: "m", Prompt: "p"})
	if !errors.Is(err, ErrBadResponse) {
		t.Fatalf("expected ErrBadResponse, got %v", err)
	}
}

func TestAnthropicAdapter_Complete(t *testing.T) {
	var got anthropicRequestBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if k := r.Header.Get("x-api-key"); k != "ak" {
			t.Errorf("expected x-api-key header, got %q", k)
		}
		if v := r.Header.Get("anthropic-version"); v != defaultAnthropicVersion {
			t.Errorf("expected default anthropic-version, got %q", v)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		fmt.Fprint(w, `{"id":"m","type":"message","content":[{"type":"text","text":"part one "},{"type":"text","text":"part two"}],"stop_reason":"end_turn"}`)
	}))
	defer srv.Close()

	a := NewAnthropicAdapter(config.ProviderConfig{BaseURL: srv.URL + "/v1", APIKey: "ak"}, srv.Client())
	out, err := a.Complete(context.Background(), CompletionRequest{Model: "claude", System: "sys", Prompt: "hi", JSON: true})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if out != "part one part two" {
		t.Errorf("unexpected content %q", out)
	}
	if got.System != "sys" {
		t.Errorf("expected system prompt, got %q", got.System)
	}
	if got.MaxTokens != 2048 {
		t.Errorf("expected default max_tokens 2048, got %d", got.MaxTokens)
	}
	if !strings.Contains(got.Messages[0].Content, "JSON object") {
		t.Error("expected JSON instruction appended to the prompt")
	}
}

func TestAnthropicAdapter_NoEmbeddings(t *testing.T) {
	a := NewAnthropicAdapter(config.ProviderConfig{}, http.DefaultClient)
	if a.Supports(CapabilityEmbed) {
		t.Error("anthropic should not advertise embeddings")
	}
	if _, err := a.Embed(context.Background(), "m", "t"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestGeminiError_MapsAPIError(t *testing.T) {
	err := geminiError(fmt.Errorf("wrapped: %w", genai.APIError{Code: 403, Message: "permission denied"}))

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode != 403 || se.Provider != "gemini" {
		t.Errorf("unexpected status error %+v", se)
	}
}

func TestGeminiError_PassesThroughOtherErrors(t *testing.T) {
	err := geminiError(context.DeadlineExceeded)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected wrapped deadline error, got %v", err)
	}
}
