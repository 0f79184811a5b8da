package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the default config and sample override rules",
		Long: "init creates the config file (if missing) and seeds the override store " +
			"with the sample calendars when it is empty.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), c.cfg, true)
			if err != nil {
				return err
			}
			defer a.close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config:    %s\n", c.configPath)
			fmt.Fprintf(out, "overrides: %s (%s, %d calendars)\n",
				c.cfg.Overrides.Path, c.cfg.Overrides.Driver, a.store.Snapshot().Len())
			return nil
		},
	}
}
