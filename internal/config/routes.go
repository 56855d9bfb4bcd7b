package config

// RoutesConfig maps a capability ("chat", "embed") to the providers that
// serve it, tried in order.
type RoutesConfig struct {
	Routes map[string]RouteSet `yaml:"routes"`
}

type RouteSet struct {
	Primary  ProviderRoute   `yaml:"primary"`
	Fallback []ProviderRoute `yaml:"fallback"`
}

type ProviderRoute struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// Candidates returns the primary route followed by the fallbacks.
func (s RouteSet) Candidates() []ProviderRoute {
	out := make([]ProviderRoute, 0, 1+len(s.Fallback))
	if s.Primary.Provider != "" {
		out = append(out, s.Primary)
	}
	return append(out, s.Fallback...)
}
