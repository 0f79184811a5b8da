package model

import (
	"sort"
	"time"
)

// Weekday is a day of week numbered Monday=0 through Sunday=6, the numbering
// used on the wire.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// WeekdayOf converts a time.Weekday (Sunday=0) to a Weekday (Monday=0).
func WeekdayOf(w time.Weekday) Weekday {
	return Weekday((int(w) + 6) % 7)
}

// Valid reports whether w is in 0..6.
func (w Weekday) Valid() bool {
	return w >= Monday && w <= Sunday
}

func (w Weekday) String() string {
	if !w.Valid() {
		return "Weekday(?)"
	}
	// time.Weekday is Sunday-based.
	return time.Weekday((int(w) + 1) % 7).String()
}

// WeekdaySet is a set of weekdays.
type WeekdaySet map[Weekday]struct{}

// NewWeekdaySet builds a set from days, dropping values outside 0..6.
func NewWeekdaySet(days ...Weekday) WeekdaySet {
	s := make(WeekdaySet, len(days))
	for _, d := range days {
		if d.Valid() {
			s[d] = struct{}{}
		}
	}
	return s
}

// Has reports membership.
func (s WeekdaySet) Has(w Weekday) bool {
	_, ok := s[w]
	return ok
}

// Sorted returns members in ascending order.
func (s WeekdaySet) Sorted() []Weekday {
	out := make([]Weekday, 0, len(s))
	for w := range s {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DefaultWeekend is Saturday and Sunday.
func DefaultWeekend() []Weekday {
	return []Weekday{Saturday, Sunday}
}
