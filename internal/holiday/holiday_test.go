package holiday

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizday/internal/config"
	"bizday/internal/ics"
	"bizday/internal/model"
)

func d(s string) model.Date {
	out, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return out
}

func TestBuiltinNational(t *testing.T) {
	b := NewBuiltin()
	ctx := context.Background()

	tests := []struct {
		region string
		year   int
		want   []string
	}{
		{"US", 2024, []string{"2024-01-01", "2024-07-04", "2024-11-28", "2024-12-25"}},
		{"us", 2022, []string{"2022-12-25", "2022-12-26"}}, // Christmas on Sunday, observed Monday
		{"US", 2026, []string{"2026-07-03", "2026-07-04"}}, // Independence Day on Saturday
		{"GB", 2024, []string{"2024-12-25", "2024-12-26"}},
		{"DE", 2024, []string{"2024-10-03"}},
		{"FR", 2024, []string{"2024-07-14"}},
		{"IT", 2024, []string{"2024-04-25"}},
		{"ES", 2024, []string{"2024-10-12"}},
		{"CH", 2024, []string{"2024-08-01"}},
		{"JP", 2024, []string{"2024-01-01"}},
		{"AU", 2024, []string{"2024-01-26", "2024-04-25"}},
	}
	for _, tt := range tests {
		t.Run(tt.region, func(t *testing.T) {
			dates, err := b.HolidaysFor(ctx, tt.region, "", []int{tt.year})
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.True(t, dates.Has(d(w)), "missing %s", w)
			}
			for dt := range dates {
				// Observed dates may spill into the neighbouring year only.
				assert.InDelta(t, tt.year, dt.Year, 1)
			}
		})
	}
}

func TestBuiltinSubdivision(t *testing.T) {
	b := NewBuiltin()
	ctx := context.Background()

	ny, err := b.HolidaysFor(ctx, "US", "NY", []int{2024})
	require.NoError(t, err)
	assert.True(t, ny.Has(d("2024-02-12")))
	assert.True(t, ny.Has(d("2024-07-04")), "subdivisions include national holidays")

	us, err := b.HolidaysFor(ctx, "US", "", []int{2024})
	require.NoError(t, err)
	assert.False(t, us.Has(d("2024-02-12")))

	tx, err := b.HolidaysFor(ctx, "US", "tx", []int{2025})
	require.NoError(t, err)
	assert.True(t, tx.Has(d("2025-03-02")))

	// Epiphany is a Bavarian holiday, not a national one.
	by, err := b.HolidaysFor(ctx, "DE", "BY", []int{2024})
	require.NoError(t, err)
	assert.True(t, by.Has(d("2024-01-06")))
	assert.True(t, by.Has(d("2024-10-03")))
	de, err := b.HolidaysFor(ctx, "DE", "", []int{2024})
	require.NoError(t, err)
	assert.False(t, de.Has(d("2024-01-06")))

	nsw, err := b.HolidaysFor(ctx, "AU", "NSW", []int{2024})
	require.NoError(t, err)
	assert.True(t, nsw.Has(d("2024-01-26")))
}

func TestBuiltinUnsupported(t *testing.T) {
	b := NewBuiltin()
	ctx := context.Background()

	_, err := b.HolidaysFor(ctx, "XX", "", []int{2024})
	assert.ErrorIs(t, err, ErrUnsupportedRegion)

	_, err = b.HolidaysFor(ctx, "US", "ZZ", []int{2024})
	assert.ErrorIs(t, err, ErrUnsupportedRegion)

	_, err = b.HolidaysFor(ctx, "IN", "KA", []int{2024})
	assert.ErrorIs(t, err, ErrUnsupportedRegion)
}

func TestBuiltinRegions(t *testing.T) {
	regions := NewBuiltin().Regions()
	byID := map[string]string{}
	for _, r := range regions {
		byID[r.ID] = r.Name
	}
	assert.Equal(t, "United States", byID["US"])
	assert.Equal(t, "Germany", byID["DE"])
	assert.Equal(t, "United States (New York)", byID["US-NY"])
	assert.Equal(t, "Switzerland (Zurich)", byID["CH-ZH"])
	assert.Equal(t, "Japan", byID["JP"])
	assert.Greater(t, len(regions), 80)
}

const feed = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//bizday//test//EN
BEGIN:VEVENT
UID:founders
SUMMARY:Founders Day
DTSTART;VALUE=DATE:20240610
RRULE:FREQ=YEARLY
END:VEVENT
END:VCALENDAR
`

func writeFeed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corp.ics")
	require.NoError(t, os.WriteFile(path, []byte(strings.ReplaceAll(feed, "\n", "\r\n")), 0o600))
	return path
}

func TestICSSource(t *testing.T) {
	path := writeFeed(t)
	src := NewICSSource(ics.NewFetcher(t.TempDir()), []config.ICSConfig{
		{ID: "X-ACME", Name: "Acme Corp", URL: path},
		{ID: "X-BROKEN"},
	})

	dates, err := src.HolidaysFor(context.Background(), "x", "acme", []int{2024, 2025})
	require.NoError(t, err)
	assert.Equal(t, []model.Date{d("2024-06-10"), d("2025-06-10")}, dates.Sorted())

	_, err = src.HolidaysFor(context.Background(), "X", "BROKEN", []int{2024})
	assert.ErrorIs(t, err, ErrUnsupportedRegion)

	assert.Equal(t, []model.Region{{ID: "X-ACME", Name: "Acme Corp"}}, src.Regions())
}

func TestICSSourceCountryFeedCoversSubdivisions(t *testing.T) {
	path := writeFeed(t)
	src := NewICSSource(ics.NewFetcher(t.TempDir()), []config.ICSConfig{
		{ID: "IN", Name: "India", URL: path},
	})

	ka, err := src.HolidaysFor(context.Background(), "IN", "KA", []int{2024})
	require.NoError(t, err)
	assert.True(t, ka.Has(d("2024-06-10")))

	_, err = src.HolidaysFor(context.Background(), "CN", "", []int{2024})
	assert.ErrorIs(t, err, ErrUnsupportedRegion)
}

type fakeSource struct {
	calls atomic.Int32
	dates map[string][]string
	err   error
}

func (f *fakeSource) HolidaysFor(_ context.Context, region, subdivision string, _ []int) (model.DateSet, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	list, ok := f.dates[identifier(region, subdivision)]
	if !ok {
		return nil, ErrUnsupportedRegion
	}
	out := model.DateSet{}
	for _, s := range list {
		out.Add(d(s))
	}
	return out, nil
}

func (f *fakeSource) Regions() []model.Region {
	out := make([]model.Region, 0, len(f.dates))
	for id := range f.dates {
		out = append(out, model.Region{ID: id, Name: "Fake " + id})
	}
	return out
}

func TestChainUnion(t *testing.T) {
	a := &fakeSource{dates: map[string][]string{"US": {"2024-01-01"}}}
	b := &fakeSource{dates: map[string][]string{"US": {"2024-06-10"}, "X": {"2024-03-03"}}}
	chain := Chain{a, b}
	ctx := context.Background()

	dates, err := chain.HolidaysFor(ctx, "US", "", []int{2024})
	require.NoError(t, err)
	assert.Equal(t, []model.Date{d("2024-01-01"), d("2024-06-10")}, dates.Sorted())

	dates, err = chain.HolidaysFor(ctx, "X", "", []int{2024})
	require.NoError(t, err)
	assert.Equal(t, []model.Date{d("2024-03-03")}, dates.Sorted())

	_, err = chain.HolidaysFor(ctx, "ZZ", "", []int{2024})
	assert.ErrorIs(t, err, ErrUnsupportedRegion)
}

func TestChainPropagatesFailures(t *testing.T) {
	boom := errors.New("feed unreachable")
	chain := Chain{&fakeSource{dates: map[string][]string{"US": {"2024-01-01"}}}, &fakeSource{err: boom}}

	_, err := chain.HolidaysFor(context.Background(), "US", "", []int{2024})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrUnsupportedRegion)
}

func TestCached(t *testing.T) {
	fake := &fakeSource{dates: map[string][]string{"US-NY": {"2024-02-12"}}}
	c := NewCached(fake, 8, time.Minute)
	ctx := context.Background()

	first, err := c.HolidaysFor(ctx, "US", "NY", []int{2025, 2024})
	require.NoError(t, err)
	second, err := c.HolidaysFor(ctx, "us", "ny", []int{2024, 2025, 2024})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, fake.calls.Load(), "same identifier and years hit the cache")

	// Mutating a returned set must not leak into the cache.
	second.Add(d("2024-12-31"))
	third, err := c.HolidaysFor(ctx, "US", "NY", []int{2024, 2025})
	require.NoError(t, err)
	assert.False(t, third.Has(d("2024-12-31")))

	_, err = c.HolidaysFor(ctx, "US", "NY", []int{2026})
	require.NoError(t, err)
	assert.EqualValues(t, 2, fake.calls.Load())

	_, err = c.HolidaysFor(ctx, "ZZ", "", []int{2024})
	assert.ErrorIs(t, err, ErrUnsupportedRegion)
	_, err = c.HolidaysFor(ctx, "ZZ", "", []int{2024})
	assert.ErrorIs(t, err, ErrUnsupportedRegion)
	assert.EqualValues(t, 4, fake.calls.Load(), "failures are not cached")
}

func TestCatalogListRegions(t *testing.T) {
	a := &fakeSource{dates: map[string][]string{"B": nil, "A": nil}}
	b := &fakeSource{dates: map[string][]string{"A": nil, "C": nil}}

	got := NewCatalog(a, b).ListRegions()
	assert.Equal(t, []model.Region{
		{ID: "A", Name: "Fake A"},
		{ID: "B", Name: "Fake B"},
		{ID: "C", Name: "Fake C"},
	}, got)
}
