package llm

import (
	"fmt"
	"sort"
	"strings"
)

// Registry holds the chat providers configured for one process, keyed by
// lowercased name. One of them serves as the judge and generator backend,
// resolved through Default.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

func (r *Registry) Register(p Provider) {
	if r == nil || p == nil {
		return
	}
	name := strings.ToLower(strings.TrimSpace(p.Name()))
	if name == "" {
		return
	}
	if r.providers == nil {
		r.providers = make(map[string]Provider)
	}
	r.providers[name] = p
}

func (r *Registry) Get(name string) (Provider, bool) {
	if r == nil || r.providers == nil {
		return nil, false
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, false
	}
	p, ok := r.providers[name]
	return p, ok
}

// Names lists the registered provider names, sorted.
func (r *Registry) Names() []string {
	if r == nil || len(r.providers) == 0 {
		return nil
	}
	names := make([]string, 0, len(r.providers))
	for k := range r.providers {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Default resolves the provider a run should use: the named one when it is
// registered, otherwise the sole registered provider. A miss with several
// candidates is a configuration error, not a guess.
func (r *Registry) Default(name string) (Provider, error) {
	if p, ok := r.Get(name); ok {
		return p, nil
	}
	if r != nil && len(r.providers) == 1 {
		for _, p := range r.providers {
			return p, nil
		}
	}
	return nil, fmt.Errorf("llm: default provider %q not configured (available: %s)",
		strings.TrimSpace(name), strings.Join(r.Names(), ", "))
}
