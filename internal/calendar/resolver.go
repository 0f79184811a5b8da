// Package calendar turns calendar identifiers into rule sets by combining
// holiday providers with custom overrides, and merges rule sets for teams
// that span several calendars.
package calendar

import (
	"context"
	"errors"
	"fmt"

	"bizday/internal/holiday"
	appLog "bizday/internal/log"
	"bizday/internal/model"
	"bizday/internal/override"
)

// ErrUnknownCalendar is returned when neither a holiday provider nor the
// override store knows an identifier.
var ErrUnknownCalendar = errors.New("unknown calendar")

// Snapshotter hands out the current override snapshot.
type Snapshotter interface {
	Snapshot() *override.Snapshot
}

// Resolver builds the rule set of a single calendar identifier.
type Resolver struct {
	source    holiday.Source
	overrides Snapshotter
}

// NewResolver creates a Resolver. A nil source recognises no region, so only
// override-backed identifiers resolve.
func NewResolver(source holiday.Source, overrides Snapshotter) *Resolver {
	return &Resolver{source: source, overrides: overrides}
}

// Resolve returns the rules of id across years.
//
// The result starts from a Saturday/Sunday weekend. Provider holidays are
// added next, then the override record (if any): its weekend replaces the
// current one, its holidays and makeup days are added. A provider that does
// not know the identifier is fine as long as an override exists.
func (r *Resolver) Resolve(ctx context.Context, id string, years []int) (model.RuleSet, error) {
	snap := r.overrides.Snapshot()
	rec, hasOverride := snap.Lookup(id)

	weekend := model.NewWeekdaySet(model.DefaultWeekend()...)
	holidays := model.DateSet{}
	makeup := model.DateSet{}

	dates, err := r.providerHolidays(ctx, id, years)
	switch {
	case errors.Is(err, holiday.ErrUnsupportedRegion):
		if !hasOverride {
			return model.RuleSet{}, fmt.Errorf("%w: %q", ErrUnknownCalendar, id)
		}
		appLog.Debug("calendar not served by providers; using override only", "id", id)
	case err != nil:
		return model.RuleSet{}, fmt.Errorf("resolve %q: %w", id, err)
	default:
		holidays.AddAll(dates)
	}

	if hasOverride {
		if rec.WeekendDays != nil {
			weekend = model.NewWeekdaySet(*rec.WeekendDays...)
		}
		if rec.Holidays != nil {
			addLenient(holidays, *rec.Holidays, id, "holidays")
		}
		if rec.MakeupDays != nil {
			addLenient(makeup, *rec.MakeupDays, id, "makeup_days")
		}
	}

	return model.RuleSetOf(weekend, holidays, makeup), nil
}

func (r *Resolver) providerHolidays(ctx context.Context, id string, years []int) (model.DateSet, error) {
	if r.source == nil {
		return nil, holiday.ErrUnsupportedRegion
	}
	region, subdivision := model.SplitIdentifier(id)
	return r.source.HolidaysFor(ctx, region, subdivision, years)
}

func addLenient(dst model.DateSet, values []string, id, field string) {
	parsed := model.ParseDatesLenient(values)
	for _, d := range parsed {
		dst.Add(d)
	}
	if skipped := len(values) - len(parsed); skipped > 0 {
		appLog.Debug("skipped malformed override dates", "id", id, "field", field, "count", skipped)
	}
}

// Merge combines rule sets for a multi-calendar team: a day is off when it
// is off in any member calendar, and a makeup day in any member is a makeup
// day of the result.
//
// No input gives the empty rule set; a single input is returned as is.
func Merge(sets []model.RuleSet) model.RuleSet {
	switch len(sets) {
	case 0:
		return model.EmptyRuleSet()
	case 1:
		return sets[0]
	}

	weekend := []model.Weekday{}
	holidays := model.DateSet{}
	makeup := model.DateSet{}
	for _, rs := range sets {
		weekend = append(weekend, rs.WeekendDays()...)
		holidays.AddAll(model.NewDateSet(rs.Holidays()...))
		makeup.AddAll(model.NewDateSet(rs.MakeupDays()...))
	}
	return model.RuleSetOf(model.NewWeekdaySet(weekend...), holidays, makeup)
}
