package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "bizday/internal/log"
	"bizday/internal/model"
)

// HolidayEvent is a VEVENT reduced to calendar dates. Times of day are
// dropped: a holiday feed only says which days are off.
type HolidayEvent struct {
	UID     string
	Summary string

	// Start is the first day; End is the day after the last one, so a
	// single-day event has End == Start+1.
	Start model.Date
	End   model.Date

	RawRRule string
	ExDates  []model.Date

	// Recurrence is the RECURRENCE-ID date when this VEVENT replaces one
	// instance of a recurring event.
	Recurrence *model.Date
}

// Days returns the number of calendar days the event covers (at least 1).
func (e HolidayEvent) Days() int {
	n := int(e.End.Time().Sub(e.Start.Time()).Hours() / 24)
	if n < 1 {
		return 1
	}
	return n
}

// ParseICS parses an ICS payload into date-level events.
//
//   - DATE values are taken as-is; DATE-TIME values are converted to the
//     calendar date in their TZID (or UTC for the Z form).
//   - A missing DTEND means a one-day event.
//   - RRULE/EXDATE/RECURRENCE-ID are recorded, expansion happens in
//     ExpandDates.
//
// Malformed VEVENTs are logged and skipped.
func ParseICS(src Source, body []byte) ([]HolidayEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, err
	}

	events := make([]HolidayEvent, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(comp)
		if perr != nil {
			appLog.Warn("ics vevent skipped", "id", src.ID, "reason", perr.Error())
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics parse completed", "id", src.ID, "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (HolidayEvent, error) {
	var out HolidayEvent

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		out.UID = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return out, errors.New("missing DTSTART")
	}
	start, err := propertyDate(startProp)
	if err != nil {
		return out, fmt.Errorf("DTSTART: %w", err)
	}
	out.Start = start
	out.End = start.AddDays(1)

	if endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil {
		end, err := propertyDate(endProp)
		if err != nil {
			return out, fmt.Errorf("DTEND: %w", err)
		}
		// DTEND is exclusive; a timed event ending the same day keeps one day.
		if end.After(start) {
			out.End = end
		}
	}

	if out.UID == "" {
		// Feeds without UIDs still expand; key them by first day.
		out.UID = "dtstart-" + start.String()
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		loc := propertyLocation(p)
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if d, err := parseICSDate(part, loc); err == nil {
				out.ExDates = append(out.ExDates, d)
			}
		}
	}

	if p := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); p != nil {
		if d, err := propertyDate(p); err == nil {
			out.Recurrence = &d
		}
	}

	return out, nil
}

// propertyLocation resolves the TZID parameter; unknown zones fall back to UTC.
func propertyLocation(p *ical.IANAProperty) *time.Location {
	if tzs, ok := p.ICalParameters["TZID"]; ok && len(tzs) > 0 {
		if loc, err := time.LoadLocation(tzs[0]); err == nil {
			return loc
		}
	}
	return time.UTC
}

func propertyDate(p *ical.IANAProperty) (model.Date, error) {
	return parseICSDate(p.Value, propertyLocation(p))
}

// parseICSDate parses a DATE or DATE-TIME value into the calendar date it
// falls on in loc (UTC for the Z form).
func parseICSDate(v string, loc *time.Location) (model.Date, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return model.Date{}, errors.New("empty date value")
	case strings.HasSuffix(v, "Z"):
		t, err := time.Parse("20060102T150405Z", v)
		if err != nil {
			return model.Date{}, err
		}
		return model.DateOf(t), nil
	case strings.Contains(v, "T"):
		t, err := time.ParseInLocation("20060102T150405", v, loc)
		if err != nil {
			return model.Date{}, err
		}
		return model.DateOf(t), nil
	default:
		t, err := time.Parse("20060102", v)
		if err != nil {
			return model.Date{}, err
		}
		return model.DateOf(t), nil
	}
}
