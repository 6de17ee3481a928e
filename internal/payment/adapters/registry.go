package adapters

import (
	"fmt"
	"sort"
	"strings"

	"github.com/railzwaylabs/orderpay/internal/payment/domain"
)

// Registry resolves a payment method to its gateway adapter. It is built once at startup
// and read-only afterwards.
type Registry struct {
	adapters map[string]domain.GatewayAdapter
}

func NewRegistry(adapters ...domain.GatewayAdapter) *Registry {
	r := &Registry{adapters: make(map[string]domain.GatewayAdapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[normalize(a.Provider())] = a
	}
	return r
}

// Build constructs one adapter per factory with the provider's configuration.
func Build(factories []domain.AdapterFactory, configs map[string]domain.AdapterConfig) (*Registry, error) {
	built := make([]domain.GatewayAdapter, 0, len(factories))
	for _, f := range factories {
		cfg, ok := configs[f.Provider()]
		if !ok {
			cfg = domain.AdapterConfig{Provider: f.Provider()}
		}
		cfg.Provider = f.Provider()
		a, err := f.NewAdapter(cfg)
		if err != nil {
			return nil, fmt.Errorf("build %s adapter: %w", f.Provider(), err)
		}
		built = append(built, a)
	}
	return NewRegistry(built...), nil
}

func (r *Registry) Get(provider string) (domain.GatewayAdapter, error) {
	provider = normalize(provider)
	if provider == "" {
		return nil, domain.ErrInvalidProvider
	}
	a, ok := r.adapters[provider]
	if !ok {
		return nil, domain.ErrProviderNotFound
	}
	return a, nil
}

func (r *Registry) ProviderExists(provider string) bool {
	_, ok := r.adapters[normalize(provider)]
	return ok
}

func (r *Registry) Providers() []string {
	out := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func normalize(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}
