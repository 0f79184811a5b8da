package service

import (
	"context"
	"errors"
	"fmt"

	"bizday/internal/calendar"
	"bizday/internal/engine"
	appLog "bizday/internal/log"
	"bizday/internal/model"
)

// CalculateRequest is the body of POST /api/calculate.
//
// Either CalendarRules or CalendarIDs must be given; when both are, the
// identifiers win and the rules are ignored.
type CalculateRequest struct {
	Operation     string         `json:"operation"`
	StartDate     string         `json:"start_date"`
	EndDate       *string        `json:"end_date,omitempty"`
	BusinessDays  *int           `json:"business_days,omitempty"`
	CalendarRules *model.RuleSet `json:"calendar_rules,omitempty"`
	CalendarIDs   []string       `json:"calendar_ids,omitempty"`
}

// CalculateResponse echoes the request inputs next to the result and the
// rule set that produced it.
type CalculateResponse struct {
	BusinessDays  *int          `json:"business_days,omitempty"`
	FutureDate    *model.Date   `json:"future_date,omitempty"`
	StartDate     string        `json:"start_date"`
	EndDate       *string       `json:"end_date,omitempty"`
	CalendarRules model.RuleSet `json:"calendar_rules"`
}

// Calculate validates req, builds the effective rule set and evaluates the
// operation.
func (s *Service) Calculate(ctx context.Context, req CalculateRequest) (CalculateResponse, error) {
	if req.Operation == "" {
		return CalculateResponse{}, missing("operation")
	}
	if req.StartDate == "" {
		return CalculateResponse{}, missing("start_date")
	}
	if req.CalendarRules == nil && len(req.CalendarIDs) == 0 {
		return CalculateResponse{}, missing("calendar_rules or calendar_ids")
	}

	op, err := engine.ParseOperation(req.Operation)
	if err != nil {
		return CalculateResponse{}, err
	}
	start, err := model.ParseDate(req.StartDate)
	if err != nil {
		return CalculateResponse{}, fmt.Errorf("start_date: %w", err)
	}

	var (
		end   *model.Date
		count *int
		last  = start.Year
	)
	switch op {
	case engine.DaysBetween:
		if req.EndDate == nil || *req.EndDate == "" {
			return CalculateResponse{}, missing("end_date")
		}
		e, err := model.ParseDate(*req.EndDate)
		if err != nil {
			return CalculateResponse{}, fmt.Errorf("end_date: %w", err)
		}
		end = &e
		last = e.Year
	case engine.ProjectForward:
		if req.BusinessDays == nil {
			return CalculateResponse{}, missing("business_days")
		}
		count = req.BusinessDays
		if *count > 0 {
			last = start.Year + 1 + *count/businessDaysPerYear
		}
	}

	rules, err := s.effectiveRules(ctx, req, start.Year, last)
	if err != nil {
		return CalculateResponse{}, err
	}

	res, err := engine.Evaluate(ctx, string(op), start, rules, end, count)
	if err != nil {
		return CalculateResponse{}, err
	}

	// A projection may walk past the years whose holidays were loaded when
	// the calendar has few business days. Widen the years and walk again
	// until the result lands inside them.
	for len(req.CalendarIDs) > 0 && res.FutureDate != nil && res.FutureDate.Year > last &&
		last-start.Year < maxYearSpan-1 {
		last = min(res.FutureDate.Year, start.Year+maxYearSpan-1)
		appLog.Debug("projection passed loaded years; widening", "start", start, "to_year", last)
		if rules, err = s.effectiveRules(ctx, req, start.Year, last); err != nil {
			return CalculateResponse{}, err
		}
		if res, err = engine.Evaluate(ctx, string(op), start, rules, end, count); err != nil {
			return CalculateResponse{}, err
		}
	}

	out := CalculateResponse{
		StartDate:     req.StartDate,
		CalendarRules: rules,
	}
	if op == engine.DaysBetween {
		out.BusinessDays = res.BusinessDays
		out.EndDate = req.EndDate
	} else {
		out.FutureDate = res.FutureDate
		out.BusinessDays = count
	}
	return out, nil
}

func (s *Service) effectiveRules(ctx context.Context, req CalculateRequest, first, last int) (model.RuleSet, error) {
	if len(req.CalendarIDs) == 0 {
		return *req.CalendarRules, nil
	}
	rules, err := s.ResolveAll(ctx, req.CalendarIDs, s.requestYears(first, last))
	if errors.Is(err, calendar.ErrUnknownCalendar) {
		return model.RuleSet{}, fmt.Errorf("invalid calendar ID: %w", err)
	}
	return rules, err
}

func missing(field string) error {
	return fmt.Errorf("%w: %s", engine.ErrMissingField, field)
}
