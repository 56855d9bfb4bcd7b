package adapters

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/af-corp/docai-gateway/internal/config"
)

const defaultAnthropicVersion = "2023-06-01"

// AnthropicAdapter handles communication with the Anthropic Messages API.
// It has no embedding endpoint.
type AnthropicAdapter struct {
	cfg    config.ProviderConfig
	client *http.Client
}

func NewAnthropicAdapter(cfg config.ProviderConfig, client *http.Client) *AnthropicAdapter {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultAnthropicVersion
	}
	return &AnthropicAdapter{cfg: cfg, client: client}
}

func (a *AnthropicAdapter) Name() string { return "anthropic" }

func (a *AnthropicAdapter) Supports(c Capability) bool { return c == CapabilityChat }

func (a *AnthropicAdapter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	// Anthropic requires max_tokens
	maxTokens := 2048
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	prompt := req.Prompt
	if req.JSON {
		prompt += "\n\nRespond with a single JSON object and nothing else."
	}

	body := anthropicRequestBody{
		Model:     req.Model,
		System:    req.System,
		MaxTokens: maxTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	}

	headers := map[string]string{
		"x-api-key":         a.cfg.APIKey,
		"anthropic-version": a.cfg.APIVersion,
	}
	for k, v := range a.cfg.Headers {
		headers[k] = v
	}

	var resp anthropicResponseBody
	if err := postJSON(ctx, a.client, a.Name(), a.cfg.BaseURL+"/messages", headers, body, &resp); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: anthropic response has no text content", ErrBadResponse)
	}
	return sb.String(), nil
}

func (a *AnthropicAdapter) Embed(context.Context, string, string) ([]float32, error) {
	return nil, ErrUnsupported
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequestBody struct {
	Model     string             `json:"model"`
	Messages  []anthropicMessage `json:"messages"`
	System    string             `json:"system,omitempty"`
	MaxTokens int                `json:"max_tokens"`
}

type anthropicResponseBody struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}
