package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-fieldtree/pkg/httpapi"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(flags *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := flags.setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := openRuntime(ctx, cfg, logger, flags.seedPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			if rt.watcher != nil {
				go func() {
					if err := rt.watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
						logger.Error("registry watcher stopped", zap.Error(err))
					}
				}()
			}

			srv := &http.Server{
				Addr: cfg.Server.Addr,
				Handler: httpapi.NewHandler(rt.service,
					httpapi.WithPersistHeader(cfg.Write.Header),
					httpapi.WithPersistDefault(cfg.Write.Enabled),
					httpapi.WithLogger(logger),
					httpapi.WithMetricsHandler(rt.metrics.Handler()),
				),
				ReadHeaderTimeout: 10 * time.Second,
			}

			serverErrors := make(chan error, 1)
			go func() {
				logger.Info("serving field trees",
					zap.String("addr", srv.Addr),
					zap.String("registry", cfg.Registry.Dir),
					zap.String("store", cfg.Store.Driver),
					zap.String("cache", cfg.Cache.Driver),
				)
				serverErrors <- srv.ListenAndServe()
			}()

			select {
			case err := <-serverErrors:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server: %w", err)
			case <-ctx.Done():
				logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Warn("graceful shutdown incomplete", zap.Error(err))
					return srv.Close()
				}
				return nil
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Override server.addr")
	return cmd
}
