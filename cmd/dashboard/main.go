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

	"golang.org/x/sync/errgroup"

	"github.com/code-ga/container-dashboard/internal/app"
	"github.com/code-ga/container-dashboard/internal/auth"
	"github.com/code-ga/container-dashboard/internal/eggs"
	"github.com/code-ga/container-dashboard/internal/observability"
	"github.com/code-ga/container-dashboard/internal/platform/cache"
	"github.com/code-ga/container-dashboard/internal/rbac"
	"github.com/code-ga/container-dashboard/internal/roles"
	"github.com/code-ga/container-dashboard/internal/shared"
	"github.com/code-ga/container-dashboard/internal/token"
	"github.com/code-ga/container-dashboard/internal/upstream"
	"github.com/code-ga/container-dashboard/internal/users"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	// Sessions live in Redis; refuse to start without it.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "dashboard_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	verifier := token.NewVerifier(cfg.TokenSecret)

	metrics := observability.NewMetrics()

	fleet := upstream.NewClient(cfg.UpstreamBaseURL, cfg.UpstreamTimeout, metrics)
	if err := fleet.Ping(ctx); err != nil {
		logger.Warn("fleet api ping", slog.Any("error", err))
	}

	registry := rbac.NewRegistry(rbac.NewDirectory(fleet), logger, cfg.RoleCacheTTL, cfg.StoreIdleTTL)
	rbacMiddleware := rbac.Middleware{Registry: registry, Logger: logger}

	authHandler := auth.NewHandler(logger, fleet, sessionManager, registry)
	eggsHandler := eggs.NewHandler(logger, eggs.NewService(fleet), rbacMiddleware)
	rolesHandler := roles.NewHandler(logger, roles.NewService(fleet), rbacMiddleware)
	usersHandler := users.NewHandler(logger, users.NewService(fleet), rbacMiddleware)
	permissionsHandler := rbac.NewPermissionsHandler(logger, fleet, registry, rbacMiddleware)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		TokenVerifier:      verifier,
		AuthHandler:        authHandler,
		EggsHandler:        eggsHandler,
		RolesHandler:       rolesHandler,
		UsersHandler:       usersHandler,
		PermissionsHandler: permissionsHandler,
		RBACMiddleware:     rbacMiddleware,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		return registry.Run(groupCtx, cfg.StoreSweepInterval)
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
			return err
		}
		return nil
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}
