// Package service validates calculation requests, resolves and merges the
// calendars they name, and shapes the results for the HTTP and CLI front
// ends.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"bizday/internal/calendar"
	"bizday/internal/holiday"
	appLog "bizday/internal/log"
	"bizday/internal/model"
	"bizday/internal/override"
)

// ErrInvalidYears is returned for a malformed or out-of-range years list.
var ErrInvalidYears = errors.New("invalid years")

const (
	// maxParallelResolves bounds concurrent provider lookups per request.
	maxParallelResolves = 4
	// maxYearSpan bounds the years fetched for one request.
	maxYearSpan = 100
	// businessDaysPerYear is a low estimate used to guess how many years
	// a projection spans.
	businessDaysPerYear = 250
)

// Resolver resolves a single calendar identifier.
type Resolver interface {
	Resolve(ctx context.Context, id string, years []int) (model.RuleSet, error)
}

// RegionLister enumerates provider-backed calendars.
type RegionLister interface {
	ListRegions() []model.Region
}

// Overrides is the override store as seen by the service.
type Overrides interface {
	Snapshot() *override.Snapshot
	Reload(ctx context.Context) error
	Generation() uint64
}

// Service is the request orchestrator shared by the HTTP server and the CLI.
type Service struct {
	resolver  Resolver
	catalog   RegionLister
	overrides Overrides
	now       func() time.Time
}

// New creates a Service. catalog may be nil when no provider can list
// its regions.
func New(resolver Resolver, catalog RegionLister, overrides Overrides) *Service {
	return &Service{
		resolver:  resolver,
		catalog:   catalog,
		overrides: overrides,
		now:       time.Now,
	}
}

// NewFromParts wires the standard resolver over source and store.
func NewFromParts(source holiday.Source, catalog RegionLister, store *override.Store) *Service {
	return New(calendar.NewResolver(source, store), catalog, store)
}

// ListCalendars returns provider regions plus override-only calendars,
// sorted by name. An override that shadows a provider region does not add
// a second entry.
func (s *Service) ListCalendars(ctx context.Context) ([]model.Region, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]model.Region, 0)
	seen := make(map[string]bool)
	if s.catalog != nil {
		for _, r := range s.catalog.ListRegions() {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			out = append(out, r)
		}
	}

	snap := s.overrides.Snapshot()
	for _, id := range snap.IDs() {
		if seen[id] {
			continue
		}
		rec, _ := snap.Lookup(id)
		out = append(out, model.Region{ID: id, Name: rec.Name(id)})
	}

	holiday.SortRegions(out)
	return out, nil
}

// Calendar resolves a single identifier. Nil or empty years mean the
// current year and the next.
func (s *Service) Calendar(ctx context.Context, id string, years []int) (model.RuleSet, error) {
	if len(years) == 0 {
		y := s.now().Year()
		years = []int{y, y + 1}
	}
	return s.resolver.Resolve(ctx, id, years)
}

// ReloadOverrides re-reads the override store.
func (s *Service) ReloadOverrides(ctx context.Context) error {
	return s.overrides.Reload(ctx)
}

// OverridesGeneration changes whenever a new override snapshot is installed.
func (s *Service) OverridesGeneration() uint64 {
	return s.overrides.Generation()
}

// ResolveAll resolves ids concurrently and merges the results in request
// order. The first failure cancels the remaining lookups.
func (s *Service) ResolveAll(ctx context.Context, ids []string, years []int) (model.RuleSet, error) {
	sets := make([]model.RuleSet, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelResolves)
	for i, id := range ids {
		g.Go(func() error {
			rs, err := s.resolver.Resolve(gctx, id, years)
			if err != nil {
				return err
			}
			sets[i] = rs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.RuleSet{}, err
	}
	return calendar.Merge(sets), nil
}

// ParseYears parses a comma-separated list such as "2024,2025". Blank input
// yields nil.
func ParseYears(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		y, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || y < 1 || y > 9999 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidYears, p)
		}
		out = append(out, y)
	}
	if len(out) > maxYearSpan {
		return nil, fmt.Errorf("%w: at most %d years", ErrInvalidYears, maxYearSpan)
	}
	return out, nil
}

// requestYears returns the current year, the next one, and every year
// between first and last (clamped to maxYearSpan).
func (s *Service) requestYears(first, last int) []int {
	y := s.now().Year()
	seen := map[int]bool{y: true, y + 1: true}
	out := []int{y, y + 1}

	if last < first {
		last = first
	}
	if last-first >= maxYearSpan {
		appLog.Debug("request spans too many years; clamping holiday lookup", "from", first, "to", last)
		last = first + maxYearSpan - 1
	}
	for year := first; year <= last; year++ {
		if !seen[year] {
			seen[year] = true
			out = append(out, year)
		}
	}
	return out
}
