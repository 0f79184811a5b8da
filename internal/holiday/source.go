// Package holiday provides the public-holiday data behind calendar
// identifiers: compiled-in national calendars, ICS feeds, and the chain and
// cache wrappers the resolver talks to.
package holiday

import (
	"context"
	"errors"
	"sort"

	"bizday/internal/model"
)

// ErrUnsupportedRegion is returned when a source does not know a
// region/subdivision pair. It is an ordinary outcome, not a failure: the
// resolver may still satisfy the identifier from an override.
var ErrUnsupportedRegion = errors.New("unsupported region")

// Source returns the holiday dates of a region (and optional subdivision)
// across the given years.
type Source interface {
	HolidaysFor(ctx context.Context, region, subdivision string, years []int) (model.DateSet, error)
}

// Lister is implemented by sources that can enumerate the identifiers they
// serve.
type Lister interface {
	Regions() []model.Region
}

// Catalog merges the regions of several listers into one list.
type Catalog struct {
	listers []Lister
}

// NewCatalog creates a Catalog over the given listers. Earlier listers win
// when two of them name the same identifier.
func NewCatalog(listers ...Lister) *Catalog {
	return &Catalog{listers: listers}
}

// ListRegions returns every known region sorted by name, then id.
func (c *Catalog) ListRegions() []model.Region {
	seen := make(map[string]bool)
	out := make([]model.Region, 0)
	for _, l := range c.listers {
		for _, r := range l.Regions() {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			out = append(out, r)
		}
	}
	SortRegions(out)
	return out
}

// SortRegions orders regions by display name and breaks ties by id.
func SortRegions(regions []model.Region) {
	sort.Slice(regions, func(i, j int) bool {
		if regions[i].Name != regions[j].Name {
			return regions[i].Name < regions[j].Name
		}
		return regions[i].ID < regions[j].ID
	})
}

func identifier(region, subdivision string) string {
	if subdivision == "" {
		return region
	}
	return region + model.IdentifierSeparator + subdivision
}
