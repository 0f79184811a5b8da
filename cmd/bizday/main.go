package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"bizday/internal/config"
	appLog "bizday/internal/log"
)

const version = "0.1.0"

// cli carries the state shared by every subcommand.
type cli struct {
	configPath string
	cfg        *config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "bizday",
		Short:         "Business-day calculator",
		Long:          "bizday counts and projects business days over national, ICS and custom calendars.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "config.yaml", "Path to config file")

	root.AddCommand(
		newServeCmd(c),
		newInitCmd(c),
		newCalendarsCmd(c),
		newCalendarCmd(c),
		newBetweenCmd(c),
		newProjectCmd(c),
		newOverrideCmd(c),
	)
	return root
}

// loadConfig reads .env (if present), then the YAML config, and applies the
// logging settings.
func (c *cli) loadConfig() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		appLog.Warn("failed to read .env file", "err", err)
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", c.configPath)
		if cfg == nil {
			return err
		}
	}
	c.cfg = cfg

	appLog.SetLevel(appLog.ParseLevel(cfg.Log.Level))
	appLog.SetFormat(cfg.Log.Format)
	return nil
}
