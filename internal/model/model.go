package model

import (
	"encoding/json"
	"strings"
)

// IdentifierSeparator joins region and subdivision codes ("US-NY").
const IdentifierSeparator = "-"

// SplitIdentifier splits a calendar identifier into region and subdivision.
// Only the first separator counts; everything after it is the subdivision.
func SplitIdentifier(id string) (region, subdivision string) {
	region, subdivision, _ = strings.Cut(id, IdentifierSeparator)
	return region, subdivision
}

// RuleSet is a fully resolved calendar: weekend days, holidays and makeup
// (compensatory working) days.
//
// A RuleSet is immutable once built. All three fields are always present;
// the zero RuleSet behaves as an empty calendar but constructors never
// produce nil sets. Holidays and makeup days may overlap; the business-day
// engine gives makeup days precedence at evaluation time.
type RuleSet struct {
	weekend  WeekdaySet
	holidays DateSet
	makeup   DateSet
}

// NewRuleSet builds a RuleSet from slices. Duplicates collapse and weekday
// values outside 0..6 are dropped.
func NewRuleSet(weekend []Weekday, holidays, makeup []Date) RuleSet {
	return RuleSet{
		weekend:  NewWeekdaySet(weekend...),
		holidays: NewDateSet(holidays...),
		makeup:   NewDateSet(makeup...),
	}
}

// RuleSetOf builds a RuleSet that takes ownership of the given sets. The
// caller must not modify them afterwards. Nil sets become empty ones.
func RuleSetOf(weekend WeekdaySet, holidays, makeup DateSet) RuleSet {
	if weekend == nil {
		weekend = WeekdaySet{}
	}
	if holidays == nil {
		holidays = DateSet{}
	}
	if makeup == nil {
		makeup = DateSet{}
	}
	return RuleSet{weekend: weekend, holidays: holidays, makeup: makeup}
}

// EmptyRuleSet has no weekend days, holidays or makeup days.
func EmptyRuleSet() RuleSet {
	return RuleSetOf(nil, nil, nil)
}

// IsWeekend reports whether w is a weekend day.
func (r RuleSet) IsWeekend(w Weekday) bool { return r.weekend.Has(w) }

// IsHoliday reports whether d is a holiday.
func (r RuleSet) IsHoliday(d Date) bool { return r.holidays.Has(d) }

// IsMakeupDay reports whether d is a makeup working day.
func (r RuleSet) IsMakeupDay(d Date) bool { return r.makeup.Has(d) }

// WeekendDays returns the weekend days in ascending order.
func (r RuleSet) WeekendDays() []Weekday { return r.weekend.Sorted() }

// Holidays returns the holidays in ascending order.
func (r RuleSet) Holidays() []Date { return r.holidays.Sorted() }

// MakeupDays returns the makeup days in ascending order.
func (r RuleSet) MakeupDays() []Date { return r.makeup.Sorted() }

// LastMakeupDay returns the latest makeup day, if any.
func (r RuleSet) LastMakeupDay() (Date, bool) {
	var last Date
	found := false
	for d := range r.makeup {
		if !found || d.After(last) {
			last = d
			found = true
		}
	}
	return last, found
}

// ruleSetJSON is the wire shape of a RuleSet.
type ruleSetJSON struct {
	WeekendDays []Weekday `json:"weekend_days"`
	Holidays    []string  `json:"holidays"`
	MakeupDays  []string  `json:"makeup_days"`
}

// MarshalJSON renders the sets as sorted arrays; empty sets render as [].
func (r RuleSet) MarshalJSON() ([]byte, error) {
	out := ruleSetJSON{
		WeekendDays: r.WeekendDays(),
		Holidays:    formatDates(r.Holidays()),
		MakeupDays:  formatDates(r.MakeupDays()),
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the wire shape. Missing fields become empty sets;
// malformed dates and weekday values outside 0..6 are skipped.
func (r *RuleSet) UnmarshalJSON(b []byte) error {
	var in ruleSetJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*r = NewRuleSet(in.WeekendDays, ParseDatesLenient(in.Holidays), ParseDatesLenient(in.MakeupDays))
	return nil
}

// ParseDatesLenient parses every well-formed YYYY-MM-DD string and silently
// drops the rest, so one bad entry in a long list does not void the list.
func ParseDatesLenient(values []string) []Date {
	out := make([]Date, 0, len(values))
	for _, v := range values {
		d, err := ParseDate(strings.TrimSpace(v))
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	return out
}

func formatDates(dates []Date) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.String()
	}
	return out
}

// Override is a custom calendar record. Each field is optional: a nil field
// means "inherit from the provider or the default", while a non-nil empty
// slice is an explicit empty list.
type Override struct {
	DisplayName *string    `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	WeekendDays *[]Weekday `json:"weekend_days,omitempty" yaml:"weekend_days,omitempty"`
	Holidays    *[]string  `json:"holidays,omitempty" yaml:"holidays,omitempty"`
	MakeupDays  *[]string  `json:"makeup_days,omitempty" yaml:"makeup_days,omitempty"`
}

// Name returns the display name, or fallback when none is set.
func (o Override) Name(fallback string) string {
	if o.DisplayName != nil && *o.DisplayName != "" {
		return *o.DisplayName
	}
	return fallback
}

// Region is one entry of the calendar catalog.
type Region struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
