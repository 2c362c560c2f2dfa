package iap

import (
	"fmt"
	"io"
	"sort"

	"go.uber.org/multierr"
)

// Registry holds one Verifier and one Parser per active provider. It's
// immutable once built, so it's safe to share between concurrent callers.
type Registry struct {
	verifiers map[Provider]Verifier
	parsers   map[Provider]Parser
}

// NewRegistry builds a registry from matching verifier and parser sets. Every
// provider needs exactly one of each.
func NewRegistry(verifiers []Verifier, parsers []Parser) (*Registry, error) {
	if len(verifiers) == 0 {
		return nil, ErrConfigurationMissing
	}

	r := &Registry{
		verifiers: make(map[Provider]Verifier, len(verifiers)),
		parsers:   make(map[Provider]Parser, len(parsers)),
	}

	for _, v := range verifiers {
		if _, ok := r.verifiers[v.Provider()]; ok {
			return nil, fmt.Errorf("duplicate verifier for provider %s", v.Provider())
		}
		r.verifiers[v.Provider()] = v
	}
	for _, p := range parsers {
		if _, ok := r.parsers[p.Provider()]; ok {
			return nil, fmt.Errorf("duplicate parser for provider %s", p.Provider())
		}
		if _, ok := r.verifiers[p.Provider()]; !ok {
			return nil, fmt.Errorf("parser for provider %s has no verifier", p.Provider())
		}
		r.parsers[p.Provider()] = p
	}
	for provider := range r.verifiers {
		if _, ok := r.parsers[provider]; !ok {
			return nil, fmt.Errorf("verifier for provider %s has no parser", provider)
		}
	}

	return r, nil
}

// Providers returns the active providers, sorted.
func (r *Registry) Providers() []Provider {
	providers := make([]Provider, 0, len(r.verifiers))
	for provider := range r.verifiers {
		providers = append(providers, provider)
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i] < providers[j] })
	return providers
}

func (r *Registry) IsActive(provider Provider) bool {
	_, ok := r.verifiers[provider]
	return ok
}

func (r *Registry) Verifier(provider Provider) (Verifier, error) {
	v, ok := r.verifiers[provider]
	if !ok {
		return nil, ErrUndefinedProvider
	}
	return v, nil
}

func (r *Registry) Parser(provider Provider) (Parser, error) {
	p, ok := r.parsers[provider]
	if !ok {
		return nil, ErrUndefinedProvider
	}
	return p, nil
}

// Close releases verifiers holding background resources, such as response
// caches. The registry must not be used afterwards.
func (r *Registry) Close() error {
	var err error
	for _, provider := range r.Providers() {
		if closer, ok := r.verifiers[provider].(io.Closer); ok {
			err = multierr.Append(err, closer.Close())
		}
	}
	return err
}
