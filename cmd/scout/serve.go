package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mohammad-safakhou/scout/config"
	"github.com/mohammad-safakhou/scout/internal/app"
	"github.com/mohammad-safakhou/scout/internal/runtime"
	"github.com/mohammad-safakhou/scout/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCMD(load func() (*config.Config, error)) *cobra.Command {
	var addr string
	var insecure bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Address = addr
			}
			var secret []byte
			if !insecure {
				if secret, err = runtime.LoadJWTSecret(cfg.Server); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, app.Options{Version: version})
			if err != nil {
				return err
			}
			defer a.Close(context.Background())
			if insecure {
				a.Logger.Warn("api authentication disabled")
			}

			srv := server.New(a.Orchestrator, server.Options{
				Address: cfg.Server.Address,
				Secret:  secret,
				Metrics: a.Telemetry.Handler(),
				Logger:  a.Logger.Named("http"),
			})
			err = srv.Run(ctx)
			a.Logger.Info("server stopped", zap.Error(err))
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.address)")
	cmd.Flags().BoolVar(&insecure, "insecure", false, "serve the API without token checks")
	return cmd
}
