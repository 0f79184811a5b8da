package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "bizday/internal/log"
	"bizday/internal/model"
)

const (
	defaultMaxOccurrencesPerEvent = 5000
)

// ExpandResult holds the holiday dates produced by ExpandDates.
type ExpandResult struct {
	Dates model.DateSet
	// TruncatedEvents records UIDs that hit the occurrence cap.
	TruncatedEvents []string
}

// ExpandDates turns parsed events into the set of holiday dates that fall in
// the given years. It handles:
//
//   - single events, including multi-day ones (every covered day counts)
//   - RRULE recurrence with EXDATE removal
//   - RECURRENCE-ID overrides, which move one instance to another date
//
// maxPerEvent caps the occurrences taken from one RRULE; zero means the
// default cap.
func ExpandDates(events []HolidayEvent, years []int, maxPerEvent int) ExpandResult {
	result := ExpandResult{Dates: model.DateSet{}}
	if len(years) == 0 {
		return result
	}
	if maxPerEvent <= 0 {
		maxPerEvent = defaultMaxOccurrencesPerEvent
	}

	wanted := make(map[int]bool, len(years))
	minYear, maxYear := years[0], years[0]
	for _, y := range years {
		wanted[y] = true
		minYear = min(minYear, y)
		maxYear = max(maxYear, y)
	}

	// Overrides cancel the instance they replace and then count on their own.
	moved := make(map[string][]model.Date)
	for _, ev := range events {
		if ev.Recurrence != nil {
			moved[ev.UID] = append(moved[ev.UID], *ev.Recurrence)
		}
	}

	add := func(first model.Date, days int) {
		for i := 0; i < days; i++ {
			d := first.AddDays(i)
			if wanted[d.Year] {
				result.Dates.Add(d)
			}
		}
	}

	for _, ev := range events {
		if ev.RawRRule == "" || ev.Recurrence != nil {
			add(ev.Start, ev.Days())
			continue
		}

		starts, truncated, err := recurrenceStarts(ev, moved[ev.UID], minYear, maxYear, maxPerEvent)
		if err != nil {
			appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
			continue
		}
		if truncated {
			result.TruncatedEvents = append(result.TruncatedEvents, ev.UID)
			appLog.Error("expand: truncated occurrences for UID due to cap",
				errors.New("max occurrences reached"),
				"uid", ev.UID,
				"cap", maxPerEvent,
			)
		}
		for _, s := range starts {
			add(s, ev.Days())
		}
	}

	return result
}

// recurrenceStarts returns the first day of every instance of ev that can
// touch [minYear, maxYear].
func recurrenceStarts(ev HolidayEvent, moved []model.Date, minYear, maxYear, limit int) ([]model.Date, bool, error) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		return nil, false, err
	}
	r.DTStart(ev.Start.Time())

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.Time())
	}
	for _, m := range moved {
		set.ExDate(m.Time())
	}

	// Instances starting shortly before the window may still spill into it.
	from := model.NewDate(minYear, time.January, 1).AddDays(1 - ev.Days()).Time()
	to := model.NewDate(maxYear, time.December, 31).Time()

	times := set.Between(from, to, true)
	truncated := false
	if len(times) > limit {
		times = times[:limit]
		truncated = true
	}

	out := make([]model.Date, len(times))
	for i, t := range times {
		out[i] = model.DateOf(t.UTC())
	}
	return out, truncated, nil
}
