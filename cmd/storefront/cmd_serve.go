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

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/auth"
	storefrontHTTP "github.com/vasiliy-maslov/kaybirks-storefront/internal/handler/http"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/metrics"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/seed"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Info().Str("driver", cfg.App.StorageDriver).Msg("Storefront starting...")

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if cfg.App.SeedPath != "" {
			if err := applySeed(ctx, a, cfg.App.SeedPath); err != nil {
				return err
			}
		}

		sessions, err := a.cartSessions(ctx, cfg.Redis)
		if err != nil {
			return err
		}

		m := metrics.New()
		issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

		router := storefrontHTTP.NewRouter(storefrontHTTP.RouterConfig{
			Issuer:          issuer,
			Instrumentation: m,
			Handlers: []storefrontHTTP.RouteRegistrar{
				storefrontHTTP.NewUserHandler(a.users, issuer),
				storefrontHTTP.NewProductHandler(a.products),
				storefrontHTTP.NewCartHandler(sessions, a.products, a.checkout, m, cfg.Redis.CartTTL),
				storefrontHTTP.NewOrderHandler(a.orders, m),
				storefrontHTTP.NewReviewHandler(a.reviews),
				storefrontHTTP.NewAdminHandler(a.stats),
			},
		})

		srv := &http.Server{
			Addr:         ":" + cfg.App.Port,
			Handler:      router,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		serverErr := make(chan error, 1)
		go func() {
			log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
			close(serverErr)
		}()

		select {
		case err := <-serverErr:
			if err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
		case <-ctx.Done():
		}
		log.Info().Msg("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		log.Info().Msg("Server stopped")
		return nil
	},
}

func applySeed(ctx context.Context, a *app, path string) error {
	catalog, err := seed.Load(path)
	if err != nil {
		return err
	}
	_, err = seed.Apply(ctx, catalog, a.users, a.products)
	return err
}
