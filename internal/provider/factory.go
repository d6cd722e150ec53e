package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/dtj0108/dreamteam/pkg/config"
	"go.uber.org/zap"
)

// Constructor is a function that creates a provider from a config entry.
type Constructor func(pc config.ProviderConfig, logger *zap.Logger) Provider

// Factory creates and caches LLM providers from config.
type Factory struct {
	cfg          *config.LLMConfig
	logger       *zap.Logger
	constructors map[string]Constructor
	cache        map[string]Provider
	mu           sync.RWMutex
}

// NewFactory creates a provider factory with the built-in constructors registered.
func NewFactory(cfg *config.LLMConfig, logger *zap.Logger) *Factory {
	f := &Factory{
		cfg:          cfg,
		logger:       logger,
		constructors: make(map[string]Constructor),
		cache:        make(map[string]Provider),
	}
	f.registerDefaults()
	return f
}

// RegisterConstructor adds (or replaces) a provider constructor by name.
func (f *Factory) RegisterConstructor(name string, ctor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[name] = ctor
}

func (f *Factory) registerDefaults() {
	timeout := f.cfg.RequestTimeout
	f.constructors["openai"] = func(pc config.ProviderConfig, logger *zap.Logger) Provider {
		return NewOpenAI(OpenAIConfig{APIKey: pc.APIKey, APIBase: pc.APIBase, Model: pc.DefaultModel, Timeout: timeout, Logger: logger})
	}
	f.constructors["anthropic"] = func(pc config.ProviderConfig, logger *zap.Logger) Provider {
		return NewAnthropic(AnthropicConfig{APIKey: pc.APIKey, Model: pc.DefaultModel, Timeout: timeout, Logger: logger})
	}
	f.constructors["ollama"] = func(pc config.ProviderConfig, logger *zap.Logger) Provider {
		return NewOllama(OllamaConfig{APIBase: pc.APIBase, DefaultModel: pc.DefaultModel, Timeout: timeout, Logger: logger})
	}
}

// Get returns the provider with the given name, or the default if name is
// empty. Created providers are cached so the same instance is reused across
// requests. Uses double-check locking to avoid TOCTOU races.
func (f *Factory) Get(name string) (Provider, error) {
	if name == "" {
		name = f.cfg.DefaultProvider
	}

	// Fast path: read lock.
	f.mu.RLock()
	if cached, ok := f.cache[name]; ok {
		f.mu.RUnlock()
		return cached, nil
	}
	f.mu.RUnlock()

	// Slow path: write lock with double-check.
	f.mu.Lock()
	defer f.mu.Unlock()

	if cached, ok := f.cache[name]; ok {
		return cached, nil
	}

	pc, ok := f.cfg.Providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}

	ctor, found := f.constructors[name]

	var p Provider
	if found {
		p = ctor(pc, f.logger)
	} else if pc.APIBase != "" && pc.APIKey != "" {
		// Fallback: treat unknown providers as OpenAI-compatible.
		p = NewOpenAI(OpenAIConfig{APIKey: pc.APIKey, APIBase: pc.APIBase, Model: pc.DefaultModel, Timeout: f.cfg.RequestTimeout, Logger: f.logger})
	} else {
		return nil, fmt.Errorf("provider %s: no constructor registered and no API base/key configured", name)
	}

	f.cache[name] = p
	return p, nil
}

// DefaultProvider returns the configured default provider.
func (f *Factory) DefaultProvider() (Provider, error) {
	return f.Get("")
}

// HealthyProvider returns the first provider that passes a health check, or nil.
func (f *Factory) HealthyProvider(ctx context.Context) Provider {
	for name := range f.cfg.Providers {
		p, err := f.Get(name)
		if err != nil || p == nil {
			continue
		}
		if p.Healthy(ctx) == nil {
			return p
		}
	}
	return nil
}
