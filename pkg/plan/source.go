package plan

import (
	"context"
	"errors"
	"sync"
)

// Source supplies the plan catalog. Implementations must return plans
// that are safe for the caller to retain and mutate.
type Source interface {
	Load(ctx context.Context) ([]Plan, error)
}

// staticSource implements Source over a fixed in-memory catalog.
type staticSource struct {
	mu    sync.RWMutex
	plans []Plan
}

// NewStaticSource returns a Source holding a validated deep copy of the
// given plans. Slugs must be unique across the catalog.
func NewStaticSource(plans ...Plan) (Source, error) {
	if err := ValidateCatalog(plans); err != nil {
		return nil, err
	}
	copied := make([]Plan, 0, len(plans))
	for _, p := range plans {
		copied = append(copied, p.Clone())
	}
	return &staticSource{plans: copied}, nil
}

// ValidateCatalog validates every plan and checks slug uniqueness
// across the whole catalog.
func ValidateCatalog(plans []Plan) error {
	seen := make(map[string]struct{}, len(plans))
	for _, p := range plans {
		if err := p.Validate(); err != nil {
			return err
		}
		if _, dup := seen[p.Slug]; dup {
			return errors.Join(ErrDuplicateSlug, errors.New(p.Slug))
		}
		seen[p.Slug] = struct{}{}
	}
	return nil
}

// MustStaticSource is like NewStaticSource but panics on an invalid
// catalog. Intended for catalogs defined in code at startup.
func MustStaticSource(plans ...Plan) Source {
	src, err := NewStaticSource(plans...)
	if err != nil {
		panic(err)
	}
	return src
}

// Load returns a deep copy of the catalog.
func (s *staticSource) Load(ctx context.Context) ([]Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Join(ErrFailedToLoadCatalog, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Plan, len(s.plans))
	for i, p := range s.plans {
		out[i] = p.Clone()
	}
	return out, nil
}
