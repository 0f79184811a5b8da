package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	appLog "bizday/internal/log"
	"bizday/internal/override"
	"bizday/internal/web"
)

func newServeCmd(c *cli) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Run the HTTP API",
		Example: "bizday serve --config config.yaml --listen 0.0.0.0:8080",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// CLI --listen overrides config file listen if provided.
			if listen != "" {
				c.cfg.Listen = listen
			}
			return c.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

func (c *cli) serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	appLog.Info("bizday starting", "version", version)
	appLog.Info("effective config",
		"listen", c.cfg.Listen,
		"overrides_driver", c.cfg.Overrides.Driver,
		"overrides_path", c.cfg.Overrides.Path,
		"overrides_reload", c.cfg.Overrides.Reload,
		"builtin_holidays", c.cfg.Holidays.Builtin,
		"ics_count", len(c.cfg.Holidays.ICS),
	)

	a, err := newApp(ctx, c.cfg, true)
	if err != nil {
		appLog.Error("failed to initialise", err)
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			appLog.Error("failed to close overrides", err)
		}
	}()

	if schedule := c.cfg.Overrides.Reload; schedule != "" {
		r, err := override.NewReloader(a.store, schedule)
		if err != nil {
			return err
		}
		r.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			r.Stop(stopCtx)
		}()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return web.StartServer(gctx, c.cfg, a.svc)
	})
	g.Go(func() error {
		<-gctx.Done()
		appLog.Info("shutdown requested")
		return nil
	})
	if err := g.Wait(); err != nil {
		appLog.Error("server stopped with error", err)
		return err
	}
	appLog.Info("bizday exiting")
	return nil
}
