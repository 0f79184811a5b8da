package holiday

import (
	"context"
	"fmt"
	"strings"

	"bizday/internal/config"
	"bizday/internal/ics"
	appLog "bizday/internal/log"
	"bizday/internal/model"
)

// ICSSource serves identifiers bound to ICS holiday feeds in the config.
type ICSSource struct {
	fetcher *ics.Fetcher
	feeds   map[string]config.ICSConfig
}

// NewICSSource creates a source over the configured feeds. Identifiers are
// matched case-insensitively; entries without id or url are ignored.
func NewICSSource(fetcher *ics.Fetcher, feeds []config.ICSConfig) *ICSSource {
	s := &ICSSource{
		fetcher: fetcher,
		feeds:   make(map[string]config.ICSConfig, len(feeds)),
	}
	for _, f := range feeds {
		if f.ID == "" || f.URL == "" {
			appLog.Warn("ics feed ignored: id and url are required", "id", f.ID)
			continue
		}
		s.feeds[strings.ToUpper(f.ID)] = f
	}
	return s
}

// HolidaysFor fetches, parses and expands the feed bound to the identifier.
// A subdivision without a feed of its own uses its country's feed.
func (s *ICSSource) HolidaysFor(ctx context.Context, region, subdivision string, years []int) (model.DateSet, error) {
	id := identifier(region, subdivision)
	feed, ok := s.feeds[strings.ToUpper(id)]
	if !ok && subdivision != "" {
		feed, ok = s.feeds[strings.ToUpper(region)]
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRegion, id)
	}

	src := ics.Source{ID: feed.ID, URL: feed.URL}
	res, err := s.fetcher.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	events, err := ics.ParseICS(src, res.Body)
	if err != nil {
		return nil, fmt.Errorf("ics feed %q: %w", feed.ID, err)
	}
	return ics.ExpandDates(events, years, 0).Dates, nil
}

// Regions lists the configured feeds; the id doubles as name when none is set.
func (s *ICSSource) Regions() []model.Region {
	out := make([]model.Region, 0, len(s.feeds))
	for _, f := range s.feeds {
		name := f.Name
		if name == "" {
			name = f.ID
		}
		out = append(out, model.Region{ID: f.ID, Name: name})
	}
	return out
}
