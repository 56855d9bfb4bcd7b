package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"
)

// Capability names what a provider can be asked to do.
type Capability string

const (
	CapabilityChat  Capability = "chat"
	CapabilityEmbed Capability = "embed"
)

// CompletionRequest is a single-turn instruction to a chat model.
type CompletionRequest struct {
	Model     string
	System    string
	Prompt    string
	MaxTokens int
	// JSON asks the provider for a JSON object response where it supports that.
	JSON bool
}

// ProviderAdapter hides one upstream model API behind the calls the remote
// client needs.
type ProviderAdapter interface {
	Name() string
	Supports(c Capability) bool
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Embed(ctx context.Context, model, text string) ([]float32, error)
}

var (
	// ErrUnsupported is returned when a provider is asked for a capability it lacks.
	ErrUnsupported = errors.New("capability not supported by provider")
	// ErrBadResponse wraps 2xx responses that could not be decoded.
	ErrBadResponse = errors.New("unreadable provider response")
)

// StatusError carries a non-2xx upstream status.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

const (
	maxResponseBytes = 8 << 20
	maxErrorBody     = 512
)

// errorBody keeps at most maxErrorBody bytes of a failed response without
// splitting a character; the text ends up in logs and the audit table.
func errorBody(raw []byte) string {
	if len(raw) > maxErrorBody {
		cut := maxErrorBody
		for cut > 0 && !utf8.RuneStart(raw[cut]) {
			cut--
		}
		raw = raw[:cut]
	}
	return string(bytes.ToValidUTF8(raw, nil))
}

// postJSON sends body as JSON and decodes a 2xx response into out.
func postJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send %s request: %w", provider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s response: %w", provider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Provider: provider, StatusCode: resp.StatusCode, Body: errorBody(raw)}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode %s response: %w", ErrBadResponse, provider, err)
	}
	return nil
}
