// Package registry holds the static set of known broadcast streams.
package registry

import (
	"fmt"
	"sort"

	"github.com/Djamsy/veille-uptade-sub000/pkg/models"
)

// Registry is an immutable lookup over the configured streams.
type Registry struct {
	byID    map[string]models.StreamConfig
	ordered []models.StreamConfig
}

// New builds a registry from configuration. Streams are ordered by
// priority (lower first), then id, so multi-stream triggers are stable.
func New(streams []models.StreamConfig) (*Registry, error) {
	if len(streams) == 0 {
		return nil, fmt.Errorf("no streams configured")
	}

	byID := make(map[string]models.StreamConfig, len(streams))
	ordered := make([]models.StreamConfig, len(streams))
	copy(ordered, streams)

	for _, s := range streams {
		if _, dup := byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate stream id: %s", s.ID)
		}
		byID[s.ID] = s
	}

	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority < ordered[j].Priority
		}
		return ordered[i].ID < ordered[j].ID
	})

	return &Registry{byID: byID, ordered: ordered}, nil
}

// Get returns the stream for an id.
func (r *Registry) Get(id string) (models.StreamConfig, error) {
	s, ok := r.byID[id]
	if !ok {
		return models.StreamConfig{}, fmt.Errorf("unknown stream: %s", id)
	}
	return s, nil
}

// All returns every stream in priority order. The slice is a copy.
func (r *Registry) All() []models.StreamConfig {
	out := make([]models.StreamConfig, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// IDs returns every stream id in priority order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.ordered))
	for i, s := range r.ordered {
		ids[i] = s.ID
	}
	return ids
}

// Len returns the number of registered streams.
func (r *Registry) Len() int {
	return len(r.ordered)
}
