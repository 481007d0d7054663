package handler

import (
	"coinpanel/internal/domain"
	"coinpanel/internal/registry"
)

type registrySources struct {
	reg *registry.Registry
}

// NewRegistrySources adapts the source registry to the diagnostics
// endpoint's read-only view.
func NewRegistrySources(reg *registry.Registry) SourceLister {
	return registrySources{reg: reg}
}

func (s registrySources) DomainSources(d domain.DataDomain) []SourceView {
	descriptors := s.reg.SourcesFor(d)
	views := make([]SourceView, 0, len(descriptors))
	for _, desc := range descriptors {
		views = append(views, SourceView{
			ID:            desc.ID,
			DisplayName:   desc.DisplayName,
			Priority:      desc.Priority,
			RequiresRelay: desc.RequiresRelay,
		})
	}
	return views
}
