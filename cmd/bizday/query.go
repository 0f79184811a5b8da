package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"bizday/internal/model"
	"bizday/internal/service"
)

func newCalendarsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "calendars",
		Short: "List available calendar identifiers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), c.cfg, false)
			if err != nil {
				return err
			}
			defer a.close()

			regions, err := a.svc.ListCalendars(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME")
			for _, r := range regions {
				fmt.Fprintf(tw, "%s\t%s\n", r.ID, r.Name)
			}
			return tw.Flush()
		},
	}
}

func newCalendarCmd(c *cli) *cobra.Command {
	var years string
	cmd := &cobra.Command{
		Use:     "calendar <id>",
		Short:   "Print the resolved rules of one calendar",
		Example: "bizday calendar US-NY --years 2024,2025",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ys, err := service.ParseYears(years)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), c.cfg, false)
			if err != nil {
				return err
			}
			defer a.close()

			rules, err := a.svc.Calendar(cmd.Context(), args[0], ys)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rules)
		},
	}
	cmd.Flags().StringVar(&years, "years", "", "Comma-separated years (default: current and next)")
	return cmd
}

// calendarRequest fills the calendar part of a request: the given ids, or a
// plain Saturday/Sunday weekend when none are named.
func calendarRequest(req *service.CalculateRequest, ids []string) {
	if len(ids) > 0 {
		req.CalendarIDs = ids
		return
	}
	rules := model.NewRuleSet(model.DefaultWeekend(), nil, nil)
	req.CalendarRules = &rules
}

func newBetweenCmd(c *cli) *cobra.Command {
	var ids []string
	cmd := &cobra.Command{
		Use:     "between <start> <end>",
		Short:   "Count business days after start up to and including end",
		Example: "bizday between 2024-10-14 2024-10-21 --calendar US --calendar X-CORP",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), c.cfg, false)
			if err != nil {
				return err
			}
			defer a.close()

			req := service.CalculateRequest{
				Operation: "daysBetween",
				StartDate: args[0],
				EndDate:   &args[1],
			}
			calendarRequest(&req, ids)
			res, err := a.svc.Calculate(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), *res.BusinessDays)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&ids, "calendar", nil, "Calendar identifier (repeatable or comma-separated)")
	return cmd
}

func newProjectCmd(c *cli) *cobra.Command {
	var ids []string
	cmd := &cobra.Command{
		Use:     "project <start> <business-days>",
		Short:   "Find the date a number of business days after start",
		Example: "bizday project 2024-10-11 10 --calendar US",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("business days must be an integer: %w", err)
			}
			a, err := newApp(cmd.Context(), c.cfg, false)
			if err != nil {
				return err
			}
			defer a.close()

			req := service.CalculateRequest{
				Operation:    "projectForward",
				StartDate:    args[0],
				BusinessDays: &n,
			}
			calendarRequest(&req, ids)
			res, err := a.svc.Calculate(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.FutureDate.String())
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&ids, "calendar", nil, "Calendar identifier (repeatable or comma-separated)")
	return cmd
}
