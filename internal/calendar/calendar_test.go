package calendar

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

func dates(ss ...string) []model.Date {
	out := make([]model.Date, len(ss))
	for i, s := range ss {
		out[i] = d(s)
	}
	return out
}

// mapSource serves fixed holidays per identifier.
type mapSource struct {
	data map[string][]string
	err  error
	seen []string
}

func (m *mapSource) HolidaysFor(_ context.Context, region, subdivision string, years []int) (model.DateSet, error) {
	id := region
	if subdivision != "" {
		id += "-" + subdivision
	}
	m.seen = append(m.seen, id)
	if m.err != nil {
		return nil, m.err
	}
	list, ok := m.data[id]
	if !ok {
		return nil, holiday.ErrUnsupportedRegion
	}
	return model.NewDateSet(dates(list...)...), nil
}

func storeWith(records map[string]model.Override) *override.Store {
	s := override.NewStore(nil)
	s.Replace(override.NewSnapshot(records))
	return s
}

func ptr[T any](v T) *T { return &v }

func TestResolveProviderOnly(t *testing.T) {
	src := &mapSource{data: map[string][]string{"US": {"2024-07-04", "2024-12-25"}}}
	r := NewResolver(src, storeWith(nil))

	rules, err := r.Resolve(context.Background(), "US", []int{2024})
	require.NoError(t, err)
	assert.Equal(t, []model.Weekday{model.Saturday, model.Sunday}, rules.WeekendDays())
	assert.Equal(t, dates("2024-07-04", "2024-12-25"), rules.Holidays())
	assert.Empty(t, rules.MakeupDays())
}

func TestResolveSplitsOnFirstSeparator(t *testing.T) {
	src := &mapSource{data: map[string][]string{"US-NY": {"2024-02-12"}}}
	r := NewResolver(src, storeWith(nil))

	_, err := r.Resolve(context.Background(), "US-NY", []int{2024})
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), "X-CORP-EU", []int{2024})
	assert.ErrorIs(t, err, ErrUnknownCalendar)
	assert.Equal(t, []string{"US-NY", "X-CORP-EU"}, src.seen)
}

func TestResolveOverrideOnly(t *testing.T) {
	r := NewResolver(&mapSource{}, storeWith(override.SampleRules()))

	rules, err := r.Resolve(context.Background(), "X-CORP", []int{2024, 2025})
	require.NoError(t, err)
	assert.Equal(t, []model.Weekday{model.Saturday, model.Sunday}, rules.WeekendDays())
	assert.Equal(t, dates("2024-12-24", "2024-12-31", "2025-12-24", "2025-12-31"), rules.Holidays())
	assert.Empty(t, rules.MakeupDays())
}

func TestResolveOverrideReplacesWeekendAndUnionsDates(t *testing.T) {
	src := &mapSource{data: map[string][]string{"AE": {"2024-12-02"}}}
	r := NewResolver(src, storeWith(map[string]model.Override{
		"AE": {
			WeekendDays: ptr([]model.Weekday{model.Friday, model.Saturday, 9}),
			Holidays:    ptr([]string{"2024-12-03", "2024-13-40", "2024-12-02"}),
			MakeupDays:  ptr([]string{"2024-12-07", "junk"}),
		},
	}))

	rules, err := r.Resolve(context.Background(), "AE", []int{2024})
	require.NoError(t, err)
	assert.Equal(t, []model.Weekday{model.Friday, model.Saturday}, rules.WeekendDays())
	assert.Equal(t, dates("2024-12-02", "2024-12-03"), rules.Holidays())
	assert.Equal(t, dates("2024-12-07"), rules.MakeupDays())
}

func TestResolveEmptyOverrideWeekend(t *testing.T) {
	r := NewResolver(nil, storeWith(map[string]model.Override{
		"X-247": {WeekendDays: ptr([]model.Weekday{})},
		"X-INH": {Holidays: ptr([]string{})},
	}))

	rules, err := r.Resolve(context.Background(), "X-247", nil)
	require.NoError(t, err)
	assert.Empty(t, rules.WeekendDays(), "explicit empty weekend replaces the default")

	rules, err = r.Resolve(context.Background(), "X-INH", nil)
	require.NoError(t, err)
	assert.Equal(t, []model.Weekday{model.Saturday, model.Sunday}, rules.WeekendDays(), "absent weekend inherits")
}

func TestResolveUnknown(t *testing.T) {
	r := NewResolver(&mapSource{}, storeWith(override.SampleRules()))

	_, err := r.Resolve(context.Background(), "ZZ", []int{2024})
	assert.ErrorIs(t, err, ErrUnknownCalendar)
	assert.Contains(t, err.Error(), "ZZ")
}

func TestResolveProviderFailurePropagates(t *testing.T) {
	boom := errors.New("feed timeout")
	r := NewResolver(&mapSource{err: boom}, storeWith(override.SampleRules()))

	_, err := r.Resolve(context.Background(), "X-CORP", []int{2024})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrUnknownCalendar)
}

func TestResolveUsesOneSnapshot(t *testing.T) {
	store := storeWith(override.SampleRules())
	r := NewResolver(&mapSource{}, store)

	before, err := r.Resolve(context.Background(), "CN", []int{2024})
	require.NoError(t, err)
	assert.Len(t, before.MakeupDays(), 8)

	store.Replace(override.NewSnapshot(nil))
	_, err = r.Resolve(context.Background(), "CN", []int{2024})
	assert.ErrorIs(t, err, ErrUnknownCalendar)
	// Rule sets already handed out are unaffected.
	assert.Len(t, before.MakeupDays(), 8)
}

func TestMerge(t *testing.T) {
	a := model.NewRuleSet([]model.Weekday{model.Saturday, model.Sunday}, dates("2024-01-01"), nil)
	b := model.NewRuleSet([]model.Weekday{model.Friday, model.Saturday}, dates("2024-01-01", "2024-03-01"), dates("2024-03-02"))

	t.Run("empty", func(t *testing.T) {
		m := Merge(nil)
		assert.Empty(t, m.WeekendDays())
		assert.Empty(t, m.Holidays())
		assert.Empty(t, m.MakeupDays())
	})

	t.Run("single", func(t *testing.T) {
		assert.Equal(t, b, Merge([]model.RuleSet{b}))
	})

	t.Run("union", func(t *testing.T) {
		m := Merge([]model.RuleSet{a, b})
		assert.Equal(t, []model.Weekday{model.Friday, model.Saturday, model.Sunday}, m.WeekendDays())
		assert.Equal(t, dates("2024-01-01", "2024-03-01"), m.Holidays())
		assert.Equal(t, dates("2024-03-02"), m.MakeupDays())
	})

	t.Run("disjoint holidays add up", func(t *testing.T) {
		x := model.NewRuleSet(model.DefaultWeekend(), dates("2024-01-01", "2024-05-01"), dates("2024-02-03"))
		y := model.NewRuleSet(model.DefaultWeekend(), dates("2024-07-04", "2024-12-25", "2024-12-26"), dates("2024-04-06"))
		m := Merge([]model.RuleSet{x, y})
		assert.Len(t, m.Holidays(), len(x.Holidays())+len(y.Holidays()))
		assert.Len(t, m.MakeupDays(), len(x.MakeupDays())+len(y.MakeupDays()))
		assert.Equal(t, model.DefaultWeekend(), m.WeekendDays())
	})

	t.Run("holiday and makeup overlap keeps both", func(t *testing.T) {
		c := model.NewRuleSet(nil, dates("2024-03-02"), nil)
		m := Merge([]model.RuleSet{b, c})
		assert.True(t, m.IsHoliday(d("2024-03-02")))
		assert.True(t, m.IsMakeupDay(d("2024-03-02")))
	})

	t.Run("order independent", func(t *testing.T) {
		assert.Equal(t, Merge([]model.RuleSet{a, b}), Merge([]model.RuleSet{b, a}))
	})
}
