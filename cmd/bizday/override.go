package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bizday/internal/model"
	"bizday/internal/override"
)

func newOverrideCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "override",
		Short: "Edit custom calendars in the override store",
		Long: "override edits records in the configured store (file or sqlite). " +
			"A running server picks the change up on its next reload.",
	}
	cmd.AddCommand(newOverrideSetCmd(c), newOverrideDeleteCmd(c))
	return cmd
}

// openWriter opens the configured persistence for record edits.
func (c *cli) openWriter() (override.Writer, func() error, error) {
	p, closeFn, err := newPersistence(c.cfg)
	if err != nil {
		return nil, nil, err
	}
	w, ok := p.(override.Writer)
	if !ok {
		_ = closeFn()
		return nil, nil, fmt.Errorf("overrides driver %q cannot edit records", c.cfg.Overrides.Driver)
	}
	return w, closeFn, nil
}

func newOverrideSetCmd(c *cli) *cobra.Command {
	var (
		name     string
		weekend  []int
		holidays []string
		makeup   []string
	)
	cmd := &cobra.Command{
		Use:   "set <id>",
		Short: "Create or replace a custom calendar",
		Long: "set stores a custom calendar. Flags that are not given stay absent, " +
			"so the calendar inherits them from the holiday provider.",
		Example: "bizday override set X-OPS --name \"Ops Rota\" --weekend 4,5 --holidays 2024-12-24,2024-12-31",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var o model.Override
			flags := cmd.Flags()
			if flags.Changed("name") {
				o.DisplayName = &name
			}
			if flags.Changed("weekend") {
				days := make([]model.Weekday, 0, len(weekend))
				for _, n := range weekend {
					w := model.Weekday(n)
					if !w.Valid() {
						return fmt.Errorf("weekend day %d out of range 0 (Monday) to 6 (Sunday)", n)
					}
					days = append(days, w)
				}
				o.WeekendDays = &days
			}
			if flags.Changed("holidays") {
				if err := checkDates(holidays); err != nil {
					return err
				}
				o.Holidays = &holidays
			}
			if flags.Changed("makeup") {
				if err := checkDates(makeup); err != nil {
					return err
				}
				o.MakeupDays = &makeup
			}

			w, closeFn, err := c.openWriter()
			if err != nil {
				return err
			}
			defer closeFn()
			if err := w.Put(cmd.Context(), args[0], o); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().IntSliceVar(&weekend, "weekend", nil, "Weekend days, 0=Monday through 6=Sunday")
	cmd.Flags().StringSliceVar(&holidays, "holidays", nil, "Holiday dates (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&makeup, "makeup", nil, "Makeup working dates (YYYY-MM-DD)")
	return cmd
}

func newOverrideDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a custom calendar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, closeFn, err := c.openWriter()
			if err != nil {
				return err
			}
			defer closeFn()
			if err := w.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func checkDates(values []string) error {
	for _, v := range values {
		if _, err := model.ParseDate(v); err != nil {
			return fmt.Errorf("%q: %w", v, err)
		}
	}
	return nil
}
