// Package main is the entry point for the Meridian authentication server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/meridian-auth/internal/auth"
	"github.com/prn-tf/meridian-auth/internal/cache/memory"
	"github.com/prn-tf/meridian-auth/internal/cache/redis"
	"github.com/prn-tf/meridian-auth/internal/config"
	"github.com/prn-tf/meridian-auth/internal/guard"
	"github.com/prn-tf/meridian-auth/internal/handler"
	"github.com/prn-tf/meridian-auth/internal/metrics"
	"github.com/prn-tf/meridian-auth/internal/pkg/crypto"
	"github.com/prn-tf/meridian-auth/internal/repository"
	"github.com/prn-tf/meridian-auth/internal/repository/postgres"
	"github.com/prn-tf/meridian-auth/internal/repository/sqlite"
	"github.com/prn-tf/meridian-auth/internal/service"
	"github.com/prn-tf/meridian-auth/internal/token"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("starting Meridian auth server")

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited with error")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Cache: Redis when enabled, in-process otherwise.
	var cache repository.Cache
	if cfg.Redis.Enabled {
		redisCache, err := redis.NewCache(ctx, redis.Config{
			Addr:        cfg.Redis.Addr(),
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			PoolSize:    cfg.Redis.PoolSize,
			DialTimeout: cfg.Redis.DialTimeout,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisCache.Close()
		cache = redisCache
	} else {
		memCache := memory.NewCache()
		defer memCache.Stop()
		cache = memCache
		logger.Warn().Msg("redis disabled, using in-process cache")
	}

	// Repositories by database driver.
	var (
		users       repository.UserRepository
		permissions repository.PermissionRepository
		sessions    repository.SessionRepository
		health      func(ctx context.Context) error
		closeDB     func() error
	)

	switch cfg.Database.Driver {
	case "sqlite":
		db, err := sqlite.NewDB(ctx, sqlite.Config{
			Path:        cfg.Database.Path,
			JournalMode: cfg.Database.JournalMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to open sqlite database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		users = sqlite.NewUserRepository(db)
		permissions = sqlite.NewPermissionRepository(db)
		sessions = sqlite.NewSessionRepository(db)
		health = db.Health
		closeDB = db.Close

	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		users = postgres.NewUserRepository(db)
		permissions = postgres.NewPermissionRepository(db)
		sessions = postgres.NewSessionRepository(db)
		health = db.Health
		closeDB = db.Close

	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
	defer closeDB()

	// Token service with cache-backed revocation.
	tokens, err := token.NewService(token.Config{
		Secret:     cfg.Auth.JWTSecret,
		Issuer:     cfg.Auth.Issuer,
		AccessTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
	}, token.NewCacheRevocations(cache))
	if err != nil {
		return fmt.Errorf("failed to create token service: %w", err)
	}

	var loginGuard guard.Guard = guard.NoopGuard{}
	if cfg.LoginGuard.Enabled {
		loginGuard = guard.NewCacheGuard(cache, guard.Config{
			MaxAttempts: cfg.LoginGuard.MaxAttempts,
			Window:      cfg.LoginGuard.Window,
			BlockFor:    cfg.LoginGuard.BlockFor,
		}, logger)
	}

	var authMetrics *metrics.AuthMetrics
	if cfg.Metrics.Enabled {
		authMetrics = metrics.New()
	}

	hasher := crypto.NewPasswordHasher(cfg.Auth.BcryptCost)
	verification := service.NewCacheVerification(cache, cfg.Auth.VerificationTTL, logger)

	loginService := service.NewLoginService(users, sessions, hasher, tokens, loginGuard, authMetrics, logger)
	registerService := service.NewRegisterService(users, permissions, hasher, verification, authMetrics, logger)
	userService := service.NewUserService(users, permissions, sessions, logger)

	router := handler.NewRouter(handler.RouterConfig{
		AuthHandler:    handler.NewAuthHandler(loginService, registerService, logger),
		UserHandler:    handler.NewUserHandler(userService, logger),
		AuthMiddleware: auth.NewMiddleware(tokens, logger),
		HealthCheck: func(r *http.Request) error {
			return health(r.Context())
		},
		Logger: logger,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, authMetrics.Handler())
		metricsSrv = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: mux,
		}
		go func() {
			logger.Info().Str("addr", metricsSrv.Addr).Msg("metrics server listening")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown failed")
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown failed")
		}
	}

	logger.Info().Msg("server stopped")
	return nil
}

// newLogger builds the process logger from the logging config.
func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = cfg.TimeFormat

	var out = os.Stdout
	if cfg.Output == "stderr" {
		out = os.Stderr
	}

	logger := zerolog.New(out)
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	}

	return logger.Level(level).With().Timestamp().Logger()
}
