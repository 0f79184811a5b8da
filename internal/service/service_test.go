package service

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizday/internal/calendar"
	"bizday/internal/engine"
	"bizday/internal/holiday"
	"bizday/internal/model"
	"bizday/internal/override"
)

func d(s string) model.Date {
	out, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return out
}

// fakeSource serves fixed holidays and records the years it was asked for.
type fakeSource struct {
	mu    sync.Mutex
	data  map[string][]string
	years [][]int
	err   error
}

func (f *fakeSource) HolidaysFor(_ context.Context, region, subdivision string, years []int) (model.DateSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.years = append(f.years, slices.Clone(years))
	if f.err != nil {
		return nil, f.err
	}
	id := region
	if subdivision != "" {
		id += "-" + subdivision
	}
	list, ok := f.data[id]
	if !ok {
		return nil, holiday.ErrUnsupportedRegion
	}
	out := model.DateSet{}
	for _, s := range list {
		out.Add(d(s))
	}
	return out, nil
}

type staticCatalog []model.Region

func (c staticCatalog) ListRegions() []model.Region { return c }

type memPersistence struct{ records map[string]model.Override }

func (m memPersistence) Load(context.Context) (map[string]model.Override, error) {
	return m.records, nil
}
func (m memPersistence) EnsureDefault(context.Context) error { return nil }

func newTestService(t *testing.T, src *fakeSource) *Service {
	t.Helper()
	store := override.NewStore(memPersistence{records: override.SampleRules()})
	require.NoError(t, store.Reload(context.Background()))

	catalog := staticCatalog{
		{ID: "US", Name: "United States"},
		{ID: "US-NY", Name: "United States (New York)"},
		{ID: "CN", Name: "China"},
	}
	svc := NewFromParts(src, catalog, store)
	svc.now = func() time.Time { return time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func usSource() *fakeSource {
	return &fakeSource{data: map[string][]string{
		"US":    {"2024-10-14", "2024-11-28", "2024-12-25", "2025-01-01"},
		"US-NY": {"2024-10-14", "2024-11-05"},
		"CN":    {"2024-10-01", "2024-10-02", "2024-10-03", "2024-10-04", "2024-10-07"},
	}}
}

func TestListCalendars(t *testing.T) {
	svc := newTestService(t, usSource())

	got, err := svc.ListCalendars(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Region{
		{ID: "CN", Name: "China"},
		{ID: "X-CORP", Name: "INTERNAL - My Company Calendar"},
		{ID: "IN-AP", Name: "India - Andhra Pradesh (Custom Week)"},
		{ID: "IN-KA", Name: "India - Karnataka (Custom Week)"},
		{ID: "US", Name: "United States"},
		{ID: "US-NY", Name: "United States (New York)"},
	}, got)
}

func TestCalendarDefaultYears(t *testing.T) {
	src := usSource()
	svc := newTestService(t, src)

	rules, err := svc.Calendar(context.Background(), "CN", nil)
	require.NoError(t, err)
	assert.Len(t, rules.Holidays(), 5)
	assert.Len(t, rules.MakeupDays(), 8)
	assert.Equal(t, [][]int{{2024, 2025}}, src.years)

	_, err = svc.Calendar(context.Background(), "US", []int{2030})
	require.NoError(t, err)
	assert.Equal(t, []int{2030}, src.years[1])

	_, err = svc.Calendar(context.Background(), "NOPE", nil)
	assert.ErrorIs(t, err, calendar.ErrUnknownCalendar)
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestCalculateWithRules(t *testing.T) {
	svc := newTestService(t, usSource())
	rules := model.NewRuleSet(model.DefaultWeekend(), []model.Date{d("2024-10-16")}, []model.Date{d("2024-10-19")})

	res, err := svc.Calculate(context.Background(), CalculateRequest{
		Operation:     "days_between",
		StartDate:     "2024-10-14",
		EndDate:       strPtr("2024-10-21"),
		CalendarRules: &rules,
	})
	require.NoError(t, err)
	require.NotNil(t, res.BusinessDays)
	assert.Equal(t, 5, *res.BusinessDays)
	assert.Equal(t, "2024-10-14", res.StartDate)
	assert.Equal(t, "2024-10-21", *res.EndDate)
	assert.Nil(t, res.FutureDate)
	assert.Equal(t, rules, res.CalendarRules)

	res, err = svc.Calculate(context.Background(), CalculateRequest{
		Operation:     "projectForward",
		StartDate:     "2024-10-17",
		BusinessDays:  intPtr(4),
		CalendarRules: &rules,
	})
	require.NoError(t, err)
	assert.Equal(t, d("2024-10-22"), *res.FutureDate, "makeup Saturday counts")
	assert.Equal(t, 4, *res.BusinessDays)
	assert.Nil(t, res.EndDate)
}

func TestCalculateWithCalendarIDs(t *testing.T) {
	src := usSource()
	svc := newTestService(t, src)

	res, err := svc.Calculate(context.Background(), CalculateRequest{
		Operation:    "get_future_date",
		StartDate:    "2024-12-20",
		BusinessDays: intPtr(5),
		CalendarIDs:  []string{"US", "X-CORP"},
	})
	require.NoError(t, err)
	// 23, 26, 27, 30 count; 24 and 31 are X-CORP holidays, 25 and Jan 1 US ones.
	assert.Equal(t, d("2025-01-02"), *res.FutureDate)
	assert.Equal(t, []model.Weekday{model.Saturday, model.Sunday}, res.CalendarRules.WeekendDays())
	assert.True(t, res.CalendarRules.IsHoliday(d("2024-12-24")))
	assert.True(t, res.CalendarRules.IsHoliday(d("2024-12-25")))

	// IDs take precedence over inline rules.
	inline := model.EmptyRuleSet()
	res, err = svc.Calculate(context.Background(), CalculateRequest{
		Operation:     "daysBetween",
		StartDate:     "2024-10-11",
		EndDate:       strPtr("2024-10-18"),
		CalendarRules: &inline,
		CalendarIDs:   []string{"US-NY"},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, *res.BusinessDays)
}

func TestCalculateYearsCoverRequest(t *testing.T) {
	src := usSource()
	svc := newTestService(t, src)

	_, err := svc.Calculate(context.Background(), CalculateRequest{
		Operation:   "daysBetween",
		StartDate:   "2019-12-01",
		EndDate:     strPtr("2021-01-15"),
		CalendarIDs: []string{"US"},
	})
	require.NoError(t, err)
	require.Len(t, src.years, 1)
	assert.ElementsMatch(t, []int{2024, 2025, 2019, 2020, 2021}, src.years[0])
}

// yearSource only returns holidays that fall in the requested years.
type yearSource struct {
	mu    sync.Mutex
	dates map[string][]string
	asked []int
}

func (y *yearSource) HolidaysFor(_ context.Context, region, _ string, years []int) (model.DateSet, error) {
	y.mu.Lock()
	defer y.mu.Unlock()
	y.asked = append(y.asked, years...)
	list, ok := y.dates[region]
	if !ok {
		return nil, holiday.ErrUnsupportedRegion
	}
	out := model.DateSet{}
	for _, s := range list {
		if dt := d(s); slices.Contains(years, dt.Year) {
			out.Add(dt)
		}
	}
	return out, nil
}

func TestCalculateProjectionWidensYears(t *testing.T) {
	sundaysOnly := []model.Weekday{
		model.Monday, model.Tuesday, model.Wednesday,
		model.Thursday, model.Friday, model.Saturday,
	}
	store := override.NewStore(nil)
	store.Replace(override.NewSnapshot(map[string]model.Override{
		"XS": {WeekendDays: &sundaysOnly},
	}))
	src := &yearSource{dates: map[string][]string{"XS": {"2026-02-01"}}}
	svc := NewFromParts(src, nil, store)
	svc.now = func() time.Time { return time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC) }

	// 70 Sundays after 2024-10-13 is 2026-02-15; the 2026-02-01 holiday
	// pushes it one week further.
	res, err := svc.Calculate(context.Background(), CalculateRequest{
		Operation:    "projectForward",
		StartDate:    "2024-10-13",
		BusinessDays: intPtr(70),
		CalendarIDs:  []string{"XS"},
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-02-22", res.FutureDate.String())
	assert.Contains(t, src.asked, 2026)
	assert.Equal(t, []model.Date{d("2026-02-01")}, res.CalendarRules.Holidays())
}

func TestCalculateMakeupPrecedenceAfterMerge(t *testing.T) {
	svc := newTestService(t, usSource())

	// 2024-10-12 is a Saturday makeup day in CN; US has no such day.
	res, err := svc.Calculate(context.Background(), CalculateRequest{
		Operation:   "daysBetween",
		StartDate:   "2024-10-11",
		EndDate:     strPtr("2024-10-13"),
		CalendarIDs: []string{"US", "CN"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, *res.BusinessDays)
}

func TestCalculateErrors(t *testing.T) {
	svc := newTestService(t, usSource())
	rules := model.NewRuleSet(model.DefaultWeekend(), nil, nil)

	tests := []struct {
		name    string
		req     CalculateRequest
		wantErr error
		msg     string
	}{
		{"missing operation", CalculateRequest{StartDate: "2024-10-14", CalendarRules: &rules}, engine.ErrMissingField, "operation"},
		{"missing start", CalculateRequest{Operation: "daysBetween", CalendarRules: &rules}, engine.ErrMissingField, "start_date"},
		{"missing calendars", CalculateRequest{Operation: "daysBetween", StartDate: "2024-10-14"}, engine.ErrMissingField, "calendar_rules or calendar_ids"},
		{"missing end", CalculateRequest{Operation: "daysBetween", StartDate: "2024-10-14", CalendarRules: &rules}, engine.ErrMissingField, "end_date"},
		{"missing count", CalculateRequest{Operation: "projectForward", StartDate: "2024-10-14", CalendarRules: &rules}, engine.ErrMissingField, "business_days"},
		{"bad operation", CalculateRequest{Operation: "add", StartDate: "2024-10-14", CalendarRules: &rules}, engine.ErrInvalidOperation, "add"},
		{"bad start", CalculateRequest{Operation: "daysBetween", StartDate: "10/14/2024", EndDate: strPtr("2024-10-20"), CalendarRules: &rules}, model.ErrInvalidDateFormat, "start_date"},
		{"bad end", CalculateRequest{Operation: "daysBetween", StartDate: "2024-10-14", EndDate: strPtr("2024-02-30"), CalendarRules: &rules}, model.ErrInvalidDateFormat, "end_date"},
		{"inverted range", CalculateRequest{Operation: "daysBetween", StartDate: "2024-10-14", EndDate: strPtr("2024-10-14"), CalendarRules: &rules}, engine.ErrInvalidRange, ""},
		{"negative count", CalculateRequest{Operation: "projectForward", StartDate: "2024-10-14", BusinessDays: intPtr(-1), CalendarRules: &rules}, engine.ErrInvalidCount, ""},
		{"unknown calendar", CalculateRequest{Operation: "daysBetween", StartDate: "2024-10-14", EndDate: strPtr("2024-10-20"), CalendarIDs: []string{"US", "ATLANTIS"}}, calendar.ErrUnknownCalendar, "invalid calendar ID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Calculate(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestCalculateProviderFailure(t *testing.T) {
	boom := errors.New("upstream down")
	svc := newTestService(t, &fakeSource{err: boom})

	_, err := svc.Calculate(context.Background(), CalculateRequest{
		Operation:   "daysBetween",
		StartDate:   "2024-10-14",
		EndDate:     strPtr("2024-10-20"),
		CalendarIDs: []string{"US"},
	})
	assert.ErrorIs(t, err, boom)
	assert.NotContains(t, err.Error(), "invalid calendar ID")
}

func TestCalculateResponseJSON(t *testing.T) {
	svc := newTestService(t, usSource())
	rules := model.NewRuleSet(model.DefaultWeekend(), nil, nil)

	res, err := svc.Calculate(context.Background(), CalculateRequest{
		Operation:     "daysBetween",
		StartDate:     "2024-10-18",
		EndDate:       strPtr("2024-10-21"),
		CalendarRules: &rules,
	})
	require.NoError(t, err)

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"business_days": 1,
		"start_date": "2024-10-18",
		"end_date": "2024-10-21",
		"calendar_rules": {"weekend_days": [5, 6], "holidays": [], "makeup_days": []}
	}`, string(b))
}

func TestParseYears(t *testing.T) {
	got, err := ParseYears(" 2024, 2025 ")
	require.NoError(t, err)
	assert.Equal(t, []int{2024, 2025}, got)

	got, err = ParseYears("")
	require.NoError(t, err)
	assert.Nil(t, got)

	for _, bad := range []string{"2024,,2025", "twenty", "0", "10000"} {
		_, err := ParseYears(bad)
		assert.ErrorIs(t, err, ErrInvalidYears, bad)
	}
}

func TestRequestYearsClamp(t *testing.T) {
	svc := newTestService(t, usSource())

	assert.Equal(t, []int{2024, 2025}, svc.requestYears(2024, 2025))
	assert.Equal(t, []int{2024, 2025, 2023}, svc.requestYears(2023, 2023))
	assert.Len(t, svc.requestYears(1000, 5000), maxYearSpan+2)
}
