// Package llm provides a bounded, process-wide cache of constructed
// provider clients, so that two agents (or two turns of the same
// agent) sharing a (provider, key, base URL) triple reuse one
// underlying client rather than building a fresh one per call.
package llm

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/teamkit/teamkit/internal/ports"
)

// ClientKey identifies one cacheable client configuration.
type ClientKey struct {
	Provider string
	APIKey   string
	BaseURL  string
}

// Builder constructs a concrete ports.LLMProvider for one provider name.
// Registered per provider by the process wiring up the session; no
// vendor backend is implemented in this module.
type Builder func(key ClientKey) (ports.LLMProvider, error)

// Factory is a cache of constructed LLMProvider clients keyed by
// (provider, apiKey, baseURL), bounded to avoid unbounded growth across
// long-lived processes hosting many sessions.
type Factory struct {
	builders map[string]Builder
	cache    *lru.Cache[ClientKey, ports.LLMProvider]
}

// NewFactory builds a Factory whose cache holds at most size clients.
func NewFactory(size int) (*Factory, error) {
	cache, err := lru.New[ClientKey, ports.LLMProvider](size)
	if err != nil {
		return nil, fmt.Errorf("llm: new factory cache: %w", err)
	}
	return &Factory{builders: make(map[string]Builder), cache: cache}, nil
}

// Register associates a provider name with the function that builds it.
func (f *Factory) Register(provider string, b Builder) {
	f.builders[provider] = b
}

// GetClient returns the cached client for key, building and caching one
// via the registered Builder if this is the first request for key.
func (f *Factory) GetClient(key ClientKey) (ports.LLMProvider, error) {
	if client, ok := f.cache.Get(key); ok {
		return client, nil
	}
	build, ok := f.builders[key.Provider]
	if !ok {
		return nil, fmt.Errorf("llm: no client builder registered for provider %q", key.Provider)
	}
	client, err := build(key)
	if err != nil {
		return nil, fmt.Errorf("llm: build client for %q: %w", key.Provider, err)
	}
	f.cache.Add(key, client)
	return client, nil
}

// GetIsolatedClient builds a fresh, non-cached client for key, for
// callers that need session isolation (e.g. per-session rate limits)
// rather than a shared client instance.
func (f *Factory) GetIsolatedClient(key ClientKey) (ports.LLMProvider, error) {
	build, ok := f.builders[key.Provider]
	if !ok {
		return nil, fmt.Errorf("llm: no client builder registered for provider %q", key.Provider)
	}
	return build(key)
}
