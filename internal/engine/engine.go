// Package engine implements business-day arithmetic over a resolved rule set.
// Every function is pure; callers may use them concurrently.
package engine

import (
	"context"
	"errors"
	"fmt"

	"bizday/internal/model"
)

var (
	// ErrInvalidRange is returned when an end date is not after the start date.
	ErrInvalidRange = errors.New("end_date must be after start_date")
	// ErrInvalidCount is returned for a negative business-day count.
	ErrInvalidCount = errors.New("business_days must be a non-negative integer")
	// ErrInvalidOperation is returned for an unrecognised operation name.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrMissingField is returned when an operation's argument is absent.
	ErrMissingField = errors.New("missing required field")
	// ErrNoBusinessDays is returned when a projection can never finish
	// because every remaining day is a non-business day.
	ErrNoBusinessDays = errors.New("calendar has no business days ahead")
)

// IsBusinessDay reports whether d is a working day. A makeup day always is;
// otherwise weekends and holidays are not.
func IsBusinessDay(d model.Date, rules model.RuleSet) bool {
	if rules.IsMakeupDay(d) {
		return true
	}
	return !rules.IsWeekend(d.Weekday()) && !rules.IsHoliday(d)
}

// cancelCheckInterval is how many days a walk advances between context
// checks.
const cancelCheckInterval = 4096

// CountBusinessDays counts business days in (start, end]: the start day is
// excluded and the end day included.
func CountBusinessDays(start, end model.Date, rules model.RuleSet) (int, error) {
	return countBusinessDays(context.Background(), start, end, rules)
}

func countBusinessDays(ctx context.Context, start, end model.Date, rules model.RuleSet) (int, error) {
	if !end.After(start) {
		return 0, fmt.Errorf("%w: %s is not after %s", ErrInvalidRange, end, start)
	}
	n := 0
	steps := 0
	for d := start.AddDays(1); !d.After(end); d = d.AddDays(1) {
		if steps++; steps%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		if IsBusinessDay(d, rules) {
			n++
		}
	}
	return n, nil
}

// ProjectBusinessDays returns the date reached after count business days
// following start. A count of zero returns start.
func ProjectBusinessDays(start model.Date, count int, rules model.RuleSet) (model.Date, error) {
	return projectBusinessDays(context.Background(), start, count, rules)
}

func projectBusinessDays(ctx context.Context, start model.Date, count int, rules model.RuleSet) (model.Date, error) {
	if count < 0 {
		return model.Date{}, fmt.Errorf("%w: got %d", ErrInvalidCount, count)
	}

	// With every weekday off, only makeup days can be counted; past the last
	// one the walk would never end.
	limit, bounded := model.Date{}, false
	if len(rules.WeekendDays()) == 7 {
		limit, bounded = rules.LastMakeupDay()
		if !bounded {
			limit = start
			bounded = true
		}
	}

	current := start
	steps := 0
	for counted := 0; counted < count; {
		if bounded && !current.Before(limit) {
			return model.Date{}, fmt.Errorf("%w: %d of %d counted by %s", ErrNoBusinessDays, counted, count, current)
		}
		if steps++; steps%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return model.Date{}, err
			}
		}
		current = current.AddDays(1)
		if IsBusinessDay(current, rules) {
			counted++
		}
	}
	return current, nil
}
