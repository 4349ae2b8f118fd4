package monster

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrTemplateNotFound is returned when a template lookup yields no results.
var ErrTemplateNotFound = errors.New("monster template not found")

// Catalog is an in-memory template source keyed by template id.
// Safe for concurrent use: the map is never mutated after construction.
type Catalog struct {
	byID map[string]*Template
}

// NewCatalog builds a Catalog from validated templates.
//
// Precondition: every template must have passed Validate.
// Postcondition: Returns a Catalog, or an error on a duplicate template id.
func NewCatalog(templates []*Template) (*Catalog, error) {
	byID := make(map[string]*Template, len(templates))
	for _, t := range templates {
		if _, exists := byID[t.ID]; exists {
			return nil, fmt.Errorf("duplicate monster template id %q", t.ID)
		}
		byID[t.ID] = t
	}
	return &Catalog{byID: byID}, nil
}

// GetByID returns the template with the given id.
//
// The context parameter keeps the signature interchangeable with
// database-backed template sources; the in-memory lookup ignores it.
//
// Postcondition: Returns the template, or ErrTemplateNotFound.
func (c *Catalog) GetByID(_ context.Context, id string) (*Template, error) {
	t, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("template %q: %w", id, ErrTemplateNotFound)
	}
	return t, nil
}

// ListByZone returns the templates assigned to a zone, ordered by level and
// then by id, matching the ordering of database-backed sources.
//
// Postcondition: Returns a slice (may be empty); the error is always nil and
// exists only to satisfy the shared source signature.
func (c *Catalog) ListByZone(_ context.Context, zoneID string) ([]*Template, error) {
	out := make([]*Template, 0)
	for _, t := range c.byID {
		if t.ZoneID == zoneID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Len returns the number of templates in the catalog.
func (c *Catalog) Len() int { return len(c.byID) }
