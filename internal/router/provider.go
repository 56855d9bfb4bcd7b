package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/af-corp/docai-gateway/internal/config"
	"github.com/af-corp/docai-gateway/internal/router/adapters"
)

// ErrNoRoute means no registered, healthy provider can serve a capability.
var ErrNoRoute = errors.New("no available provider")

// Registry manages provider adapters by configured name.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]adapters.ProviderAdapter
}

func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]adapters.ProviderAdapter),
	}
}

func (r *Registry) Register(name string, adapter adapters.ProviderAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[name] = adapter
}

func (r *Registry) Get(name string) (adapters.ProviderAdapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	return a, ok
}

// Names returns registered provider names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for n := range r.adapters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.adapters)
}

// Replace swaps in the adapters of other, used on config reload.
func (r *Registry) Replace(other *Registry) {
	other.mu.RLock()
	next := make(map[string]adapters.ProviderAdapter, len(other.adapters))
	for k, v := range other.adapters {
		next[k] = v
	}
	other.mu.RUnlock()

	r.mu.Lock()
	r.adapters = next
	r.mu.Unlock()
}

// BuildFromConfig builds provider adapters from the providers config.
// A provider that cannot be constructed is logged and left out, as is a
// hosted provider without an API key. OpenAI-compatible entries may run
// keyless against self-hosted servers.
func BuildFromConfig(ctx context.Context, provCfg *config.ProvidersConfig) *Registry {
	registry := NewRegistry()
	if provCfg == nil {
		return registry
	}
	for name, cfg := range provCfg.Providers {
		if cfg.Type == "anthropic" || cfg.Type == "gemini" {
			if strings.TrimSpace(cfg.APIKey) == "" {
				slog.Info("provider has no api key, leaving it out", "provider", name, "type", cfg.Type)
				continue
			}
		}
		maxConns := cfg.MaxConcurrent
		if maxConns <= 0 {
			maxConns = 10
		}
		client := &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        maxConns,
				MaxIdleConnsPerHost: maxConns,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		}

		var adapter adapters.ProviderAdapter
		switch cfg.Type {
		case "anthropic":
			adapter = adapters.NewAnthropicAdapter(cfg, client)
		case "gemini":
			g, err := adapters.NewGeminiAdapter(ctx, cfg, client)
			if err != nil {
				slog.Error("skipping provider", "provider", name, "error", err)
				continue
			}
			adapter = g
		default:
			// OpenAI-compatible covers DeepSeek and most self-hosted servers
			adapter = adapters.NewOpenAIAdapter(cfg, client)
		}
		registry.Register(name, adapter)
	}
	return registry
}

// Route is a resolved provider plus the model to ask for.
type Route struct {
	Name    string
	Adapter adapters.ProviderAdapter
	Model   string
}

// ResolveRoute picks the first candidate for the capability that is
// registered, supports it and whose circuit is not open.
func ResolveRoute(routesCfg *config.RoutesConfig, registry *Registry, health *HealthTracker, capability adapters.Capability) (Route, error) {
	if routesCfg == nil {
		return Route{}, fmt.Errorf("%w for %s: no routes configured", ErrNoRoute, capability)
	}
	set, ok := routesCfg.Routes[string(capability)]
	if !ok {
		return Route{}, fmt.Errorf("%w for %s: capability not routed", ErrNoRoute, capability)
	}

	for _, candidate := range set.Candidates() {
		adapter, ok := registry.Get(candidate.Provider)
		if !ok || !adapter.Supports(capability) {
			continue
		}
		if health != nil && !health.IsAvailable(candidate.Provider) {
			slog.Debug("skipping unhealthy provider", "provider", candidate.Provider, "capability", capability)
			continue
		}
		return Route{Name: candidate.Provider, Adapter: adapter, Model: candidate.Model}, nil
	}

	return Route{}, fmt.Errorf("%w for %s", ErrNoRoute, capability)
}
