package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HerbHall/grandline/internal/admin"
	"github.com/HerbHall/grandline/internal/auth"
	"github.com/HerbHall/grandline/internal/catalog"
	"github.com/HerbHall/grandline/internal/diagnose"
	"github.com/HerbHall/grandline/internal/metrics"
	"github.com/HerbHall/grandline/internal/scripts"
	"github.com/HerbHall/grandline/internal/server"
	"github.com/HerbHall/grandline/internal/services"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := load()
			if err != nil {
				return err
			}
			defer func() { _ = e.logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, e)
		},
	}
}

func serve(ctx context.Context, e *env) error {
	cfg, logger := e.cfg, e.logger
	logger.Info("Grandline server starting", zap.String("environment", cfg.Environment()))

	st, err := e.openStore(ctx, cfg.GetBool("database.auto_migrate"))
	if err != nil {
		return err
	}
	defer st.Close()

	users := services.NewSQLiteUserRepository(st.DB())
	authSvc, err := auth.NewService(users, auth.Config{
		Secret:   cfg.GetString("auth.jwt_secret"),
		TokenTTL: cfg.GetDuration("auth.token_ttl"),
	}, logger)
	if errors.Is(err, auth.ErrMissingSecret) {
		return errors.New("auth.jwt_secret must be set (GRANDLINE_AUTH_JWT_SECRET)")
	}
	if err != nil {
		return err
	}
	if _, err := authSvc.EnsureAdmin(ctx, cfg.GetString("auth.admin_username"), cfg.GetString("auth.admin_password")); err != nil {
		return err
	}

	m := metrics.New()
	rs := server.NewResponder(logger, cfg.IsProduction())
	protect := authSvc.Middleware(rs)

	srv := server.New(server.Options{
		Addr:         cfg.Addr(),
		ReadTimeout:  cfg.GetDuration("server.read_timeout"),
		WriteTimeout: cfg.GetDuration("server.write_timeout"),
		IdleTimeout:  cfg.GetDuration("server.idle_timeout"),
		RateLimit: server.RateLimitConfig{
			Enabled:    cfg.GetBool("rate_limit.enabled"),
			Requests:   cfg.GetInt("rate_limit.requests"),
			Window:     cfg.GetDuration("rate_limit.window"),
			TrustProxy: cfg.GetBool("rate_limit.trust_proxy"),
		},
	}, st, rs, m, logger,
		auth.NewHandler(authSvc, rs, logger),
		catalog.NewHandler(services.NewCatalog(st.DB()), rs, protect, logger),
		admin.NewHandler(
			scripts.NewRunner(st, logger, m.ScriptsExecuted),
			diagnose.New(st, logger),
			rs, protect, logger,
		),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	logger.Info("Grandline server ready", zap.String("addr", cfg.Addr()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("Grandline server stopped")
	return nil
}
