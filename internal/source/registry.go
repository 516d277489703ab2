package source

import (
	"fmt"

	apperrors "github.com/nwrousell/dashboard/internal/core/errors"
	"github.com/nwrousell/dashboard/internal/core/storage"
)

// Registry is the fixed, ordered list of sources. Construction order is run order.
type Registry struct {
	sources []Source
	byID    map[string]Source
}

// NewRegistry validates every source and records its table in catalog so the
// query side accepts it.
func NewRegistry(catalog *storage.Catalog, sources ...Source) (*Registry, error) {
	r := &Registry{byID: make(map[string]Source, len(sources))}
	for _, s := range sources {
		if err := r.add(catalog, s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) add(catalog *storage.Catalog, s Source) error {
	id := s.ID()
	if id == "" {
		return apperrors.PreconditionFailuref("source with empty id")
	}
	if _, dup := r.byID[id]; dup {
		return apperrors.PreconditionFailuref("source %q registered twice", id)
	}
	if !storage.ValidIdentifier(s.Table()) {
		return apperrors.PreconditionFailuref("source %q: invalid table name %q", id, s.Table())
	}
	if err := s.Schema().Validate(); err != nil {
		return fmt.Errorf("source %q: %w", id, err)
	}
	if _, ok := s.(RowSource); !ok {
		if _, ok := s.(EventSource); !ok {
			return apperrors.PreconditionFailuref("source %q fetches neither rows nor events", id)
		}
	}
	if catalog != nil {
		if err := catalog.Register(s.Table(), s.Schema()); err != nil {
			return fmt.Errorf("source %q: %w", id, err)
		}
	}

	r.sources = append(r.sources, s)
	r.byID[id] = s
	return nil
}

// Sources returns the sources in run order.
func (r *Registry) Sources() []Source {
	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

func (r *Registry) Get(id string) (Source, bool) {
	s, ok := r.byID[id]
	return s, ok
}

// IDs returns source ids in run order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.sources))
	for i, s := range r.sources {
		ids[i] = s.ID()
	}
	return ids
}
