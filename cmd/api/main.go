// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Mulita HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Build the token verifier and the identity provider client.
//  7. Wire auth and account handlers.
//  8. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taibuivan/mulita/internal/api"
	"github.com/taibuivan/mulita/internal/platform/config"
	"github.com/taibuivan/mulita/internal/platform/constants"
	"github.com/taibuivan/mulita/internal/platform/gotrue"
	"github.com/taibuivan/mulita/internal/platform/migration"
	pgstore "github.com/taibuivan/mulita/internal/platform/postgres"
	redisstore "github.com/taibuivan/mulita/internal/platform/redis"
	"github.com/taibuivan/mulita/internal/platform/sec"
	"github.com/taibuivan/mulita/internal/users/account"
	"github.com/taibuivan/mulita/internal/users/auth"
)

var (
	_ auth.IdentityProvider = (*gotrue.Client)(nil)
	_ auth.SessionProvider  = (*gotrue.Client)(nil)
	_ account.Repository    = (*account.PostgresRepository)(nil)
)

func main() {
	// # 1. Logger
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	log.Info("service_initializing")

	// # 2. Configuration
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("verify_mode", string(cfg.VerifyMode)),
	)

	// Root context for startup. A deadline surfaces misconfiguration quickly.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// Lives as long as the process; stops background loops on shutdown.
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// # 3. PostgreSQL
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, pgstore.DefaultPoolOptions(), log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing_postgres_pool")
		pool.Close()
	}()

	// # 4. Redis
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing_redis_client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis_close_failed", slog.Any("error", cerr))
		}
	}()

	// # 5. Migrations
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// # 6. Identity Provider
	verifier, err := newVerifier(appCtx, cfg)
	must(log, err, "initialize token verifier")

	provider, err := gotrue.NewClient(gotrue.Config{
		BaseURL:     cfg.AuthBaseURL(),
		APIKey:      cfg.SupabaseAnonKey,
		Timeout:     cfg.UpstreamTimeout,
		RedirectURL: cfg.ResetRedirectURL,
		Verifier:    verifier,
	})
	must(log, err, "initialize identity provider client")

	// # 7. Domain Wiring
	profiles := auth.NewProfileRepository(pool)
	teachers := auth.NewTeacherRepository(pool)

	cookies := auth.CookiePolicy{Secure: cfg.IsProduction()}
	resolver := auth.NewResolver(provider, cfg.UpstreamTimeout)
	gate := auth.NewGate(profiles, teachers, cfg.UpstreamTimeout)
	guard := auth.NewGuard(resolver, gate, cookies)

	authenticator := auth.NewAuthenticator(auth.Dependencies{
		Provider: provider,
		Profiles: profiles,
		Gate:     gate,
		Limiter:  auth.NewLoginLimiter(rdb, cfg.LoginMaxAttempts, cfg.LoginCooldown),
		Throttle: auth.NewResetThrottle(rdb, cfg.ResetCooldown),
		Timeout:  cfg.UpstreamTimeout,
	})

	accountService := account.NewService(account.NewRepository(pool))

	liveness, readiness := api.NewHealthHandlers(log,
		api.Probe{Name: "postgres", Check: func(ctx context.Context) error { return pgstore.Ping(ctx, pool) }},
		api.Probe{Name: "redis", Check: func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) }},
	)

	// # 8. HTTP Server
	server := api.NewServer(appCtx, cfg, log, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      auth.NewHandler(authenticator, resolver, gate, guard, cookies),
		Account:   account.NewHandler(accountService, guard),
	})

	// # Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_failed", slog.Any("error", err))
	}

	log.Info("server_shutting_down", slog.Duration("timeout", constants.ShutdownTimeout))

	if err := server.Shutdown(constants.ShutdownTimeout); err != nil {
		log.Error("server_shutdown_failed", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server_stopped")
}

// newLogger builds the process logger and installs it as the slog default.
func newLogger(level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With(slog.String(constants.FieldApp, constants.AppName))
	slog.SetDefault(logger)
	return logger
}

// newVerifier picks local token verification by AUTH_VERIFY_MODE. Remote mode
// returns nil, which makes the provider client ask GET /user for every token.
func newVerifier(ctx context.Context, cfg *config.Config) (sec.AccessTokenVerifier, error) {
	switch cfg.VerifyMode {
	case config.VerifySecret:
		return sec.NewSecretVerifier(cfg.SupabaseJWTSecret, cfg.AuthBaseURL())
	case config.VerifyJWKS:
		return sec.NewJWKSVerifier(ctx, cfg.AuthBaseURL(), cfg.AuthBaseURL()+"/.well-known/jwks.json", nil), nil
	default:
		return nil, nil
	}
}

// must logs a structured fatal error and terminates the process if err is non-nil.
// It is limited to startup wiring.
func must(log *slog.Logger, err error, step string) {
	if err != nil {
		log.Error("startup_failed",
			slog.String("step", step),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
