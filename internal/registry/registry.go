package registry

import (
	"sort"

	"coinpanel/internal/domain"
)

// Params carries the logical query a source endpoint is built from.
type Params struct {
	Symbol string
	Limit  int
}

// Descriptor is the static configuration for one external provider.
type Descriptor struct {
	ID            string
	DisplayName   string
	Priority      int // lower tried first; ties broken by declaration order
	RequiresRelay bool
	Domain        domain.DataDomain
	BuildURL      func(Params) string
	AuthHeaders   func() map[string]string
}

// Options configure the built-in source tables.
type Options struct {
	// BackendBaseURL is the host application's own REST surface, used
	// as a low-priority local source per domain.
	BackendBaseURL string
	// Provider API keys. Empty keys leave the source in place; the
	// provider rejects the call and traversal moves on.
	CryptoCompareKey string
	CoinMarketCapKey string
	NewsDataKey      string
	CryptoPanicKey   string
}

// Registry holds the priority-ordered source lists per domain. It is
// built once and never mutated, so concurrent reads need no locking.
type Registry struct {
	byDomain map[domain.DataDomain][]Descriptor
}

// New builds the default registry.
func New(opts Options) *Registry {
	if opts.BackendBaseURL == "" {
		opts.BackendBaseURL = "http://127.0.0.1:3001"
	}
	return FromDescriptors(defaultSources(opts))
}

// FromDescriptors builds a registry from an explicit source list,
// keeping declaration order among equal priorities.
func FromDescriptors(descriptors []Descriptor) *Registry {
	byDomain := make(map[domain.DataDomain][]Descriptor)
	for _, d := range descriptors {
		byDomain[d.Domain] = append(byDomain[d.Domain], d)
	}
	for dom, list := range byDomain {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority < list[j].Priority
		})
		byDomain[dom] = list
	}
	return &Registry{byDomain: byDomain}
}

// SourcesFor returns the priority-sorted sources for a domain.
func (r *Registry) SourcesFor(d domain.DataDomain) []Descriptor {
	return r.byDomain[d]
}
