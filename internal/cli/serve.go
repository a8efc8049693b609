package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dreyes/minutebank/internal/api"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			st, err := openStores(cfg)
			if err != nil {
				return err
			}
			defer st.close()

			svcs, err := buildServices(cfg, st, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(),
				syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Without per-request auth there is only one family, so the
			// rollover check can run once at boot too.
			if !cfg.Auth.Enabled {
				if _, err := svcs.scheduler.CheckAndReset(ctx, cfg.Auth.DefaultFamily); err != nil {
					logger.Error("boot reset check failed", "error", err)
				}
			}

			auth := api.NewAuthenticator(st.keys, cfg.Auth.Enabled, cfg.Auth.DefaultFamily)
			server := api.NewServer(svcs.profiles, svcs.ledger, svcs.scheduler, svcs.cal, auth, logger)

			addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
			httpServer := &http.Server{
				Addr:              addr,
				Handler:           server.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("server listening", "addr", addr, "driver", cfg.Storage.Driver)
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-ctx.Done():
				logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("shutdown: %w", err)
				}
			}
			return nil
		},
	}
}
