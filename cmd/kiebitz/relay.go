package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/kiebitz/client-go/internal/relay"
	"github.com/kiebitz/client-go/internal/telemetry"
)

func relayCmd() *cobra.Command {
	var adminPath, addr string
	var maxSkew time.Duration
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Run an in-memory development relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := loadAdminKeys(adminPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			tp, err := telemetry.InitTracer(ctx, telemetry.ConfigFromEnv())
			if err != nil {
				return err
			}
			if tp != nil {
				defer func() {
					if err := tp.Shutdown(context.Background()); err != nil {
						logger.Error("failed to shutdown tracer", zap.Error(err))
					}
				}()
			}

			r, err := relay.New(relay.Config{
				RootKey:         keys.Root.PublicKey,
				TokenKey:        keys.Token,
				ProviderDataKey: keys.ProviderData.PublicKey,
				MaxSkew:         maxSkew,
				Logger:          logger,
			})
			if err != nil {
				return err
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           otelhttp.NewHandler(r.Handler(), "kiebitz.relay"),
				ReadHeaderTimeout: 10 * time.Second,
			}

			go func() {
				<-ctx.Done()
				logger.Info("shutting down relay")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.Error("relay shutdown error", zap.Error(err))
				}
			}()

			logger.Info("starting relay", zap.String("addr", addr), zap.String("root_key", keys.Root.PublicKey))
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("relay stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&adminPath, "admin", "", "admin keys file (required)")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().DurationVar(&maxSkew, "max-skew", relay.DefaultMaxSkew, "accepted clock skew of signed requests (negative disables)")
	cmd.MarkFlagRequired("admin")
	return cmd
}
