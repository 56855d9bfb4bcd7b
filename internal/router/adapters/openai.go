package adapters

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/af-corp/docai-gateway/internal/config"
)

// OpenAIAdapter talks to any OpenAI-compatible API. DeepSeek is the
// usual upstream.
type OpenAIAdapter struct {
	cfg    config.ProviderConfig
	client *http.Client
}

func NewOpenAIAdapter(cfg config.ProviderConfig, client *http.Client) *OpenAIAdapter {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &OpenAIAdapter{cfg: cfg, client: client}
}

func (a *OpenAIAdapter) Name() string { return "openai" }

func (a *OpenAIAdapter) Supports(c Capability) bool {
	return c == CapabilityChat || c == CapabilityEmbed
}

func (a *OpenAIAdapter) headers() map[string]string {
	h := map[string]string{"Authorization": "Bearer " + a.cfg.APIKey}
	for k, v := range a.cfg.Headers {
		h[k] = v
	}
	return h
}

func (a *OpenAIAdapter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	body := openAIChatRequest{
		Model:       req.Model,
		Temperature: 0.2,
	}
	if req.System != "" {
		body.Messages = append(body.Messages, openAIMessage{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, openAIMessage{Role: "user", Content: req.Prompt})
	if req.MaxTokens > 0 {
		body.MaxTokens = &req.MaxTokens
	}
	if req.JSON {
		body.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
	}

	var resp openAIChatResponse
	if err := postJSON(ctx, a.client, a.Name(), a.cfg.BaseURL+"/chat/completions", a.headers(), body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai response has no choices", ErrBadResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

func (a *OpenAIAdapter) Embed(ctx context.Context, model, text string) ([]float32, error) {
	body := openAIEmbeddingRequest{Model: model, Input: text}

	var resp openAIEmbeddingResponse
	if err := postJSON(ctx, a.client, a.Name(), a.cfg.BaseURL+"/embeddings", a.headers(), body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: openai response has no embedding", ErrBadResponse)
	}
	return resp.Data[0].Embedding, nil
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIChatRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	Temperature    float64               `json:"temperature"`
	MaxTokens      *int                  `json:"max_tokens,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int           `json:"index"`
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
}

type openAIEmbeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAIEmbeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}
