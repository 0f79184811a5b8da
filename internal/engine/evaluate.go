package engine

import (
	"context"
	"fmt"

	"bizday/internal/model"
)

// Operation names an Evaluate computation.
type Operation string

const (
	// DaysBetween counts business days in (start, end].
	DaysBetween Operation = "daysBetween"
	// ProjectForward finds the date count business days after start.
	ProjectForward Operation = "projectForward"
)

// ParseOperation accepts the canonical names and the snake_case names used
// on the HTTP wire ("days_between", "get_future_date").
func ParseOperation(s string) (Operation, error) {
	switch s {
	case string(DaysBetween), "days_between":
		return DaysBetween, nil
	case string(ProjectForward), "get_future_date":
		return ProjectForward, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOperation, s)
	}
}

// Result holds the outcome of Evaluate; exactly one field is set.
type Result struct {
	BusinessDays *int
	FutureDate   *model.Date
}

// Evaluate dispatches op. end is required for DaysBetween and count for
// ProjectForward; the other argument is ignored. Long walks stop with
// ctx.Err() once ctx is done.
func Evaluate(ctx context.Context, op string, start model.Date, rules model.RuleSet, end *model.Date, count *int) (Result, error) {
	operation, err := ParseOperation(op)
	if err != nil {
		return Result{}, err
	}

	switch operation {
	case DaysBetween:
		if end == nil {
			return Result{}, fmt.Errorf("%w: end_date", ErrMissingField)
		}
		n, err := countBusinessDays(ctx, start, *end, rules)
		if err != nil {
			return Result{}, err
		}
		return Result{BusinessDays: &n}, nil

	default:
		if count == nil {
			return Result{}, fmt.Errorf("%w: business_days", ErrMissingField)
		}
		d, err := projectBusinessDays(ctx, start, *count, rules)
		if err != nil {
			return Result{}, err
		}
		return Result{FutureDate: &d}, nil
	}
}
