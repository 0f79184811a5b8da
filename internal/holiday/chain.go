package holiday

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"bizday/internal/model"
)

// Chain unions the answers of several sources.
type Chain []Source

// HolidaysFor returns the union of every member that recognises the pair.
// It reports ErrUnsupportedRegion only when no member does; any other
// member error aborts the lookup.
func (c Chain) HolidaysFor(ctx context.Context, region, subdivision string, years []int) (model.DateSet, error) {
	out := model.DateSet{}
	found := false
	for _, s := range c {
		dates, err := s.HolidaysFor(ctx, region, subdivision, years)
		if errors.Is(err, ErrUnsupportedRegion) {
			continue
		}
		if err != nil {
			return nil, err
		}
		found = true
		out.AddAll(dates)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRegion, identifier(region, subdivision))
	}
	return out, nil
}

// Cached memoizes a Source per (identifier, years). Only successful lookups
// are cached, so an unsupported pair is asked again next time.
type Cached struct {
	next  Source
	cache *expirable.LRU[string, model.DateSet]
}

// NewCached wraps next with an LRU of the given size whose entries expire
// after ttl.
func NewCached(next Source, size int, ttl time.Duration) *Cached {
	return &Cached{
		next:  next,
		cache: expirable.NewLRU[string, model.DateSet](size, nil, ttl),
	}
}

// HolidaysFor serves from the cache or asks the wrapped source. Callers get
// their own copy of the set.
func (c *Cached) HolidaysFor(ctx context.Context, region, subdivision string, years []int) (model.DateSet, error) {
	key := cacheKey(region, subdivision, years)
	if dates, ok := c.cache.Get(key); ok {
		return dates.Clone(), nil
	}
	dates, err := c.next.HolidaysFor(ctx, region, subdivision, years)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, dates.Clone())
	return dates, nil
}

func cacheKey(region, subdivision string, years []int) string {
	ys := slices.Clone(years)
	slices.Sort(ys)
	ys = slices.Compact(ys)

	var b strings.Builder
	b.WriteString(strings.ToUpper(identifier(region, subdivision)))
	for _, y := range ys {
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(y))
	}
	return b.String()
}
