package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	redisclient "github.com/redis/go-redis/v9"

	"github.com/ramadhanas/kaskelas/internal/adapters/db"
	"github.com/ramadhanas/kaskelas/internal/adapters/ohttp"
	"github.com/ramadhanas/kaskelas/internal/adapters/redis"
	"github.com/ramadhanas/kaskelas/internal/adapters/wagateway"
	"github.com/ramadhanas/kaskelas/internal/app"
	"github.com/ramadhanas/kaskelas/internal/config"
	"github.com/ramadhanas/kaskelas/internal/infra/database"
	"github.com/ramadhanas/kaskelas/internal/infra/handlers"
	"github.com/ramadhanas/kaskelas/internal/infra/middleware"
	"github.com/ramadhanas/kaskelas/internal/infra/store"
	"github.com/ramadhanas/kaskelas/internal/order"
	"github.com/ramadhanas/kaskelas/internal/telemetry"
)

type App struct {
	config           *config.Config
	db               *db.Client
	redis            *redisclient.Client
	broadcastService *app.BroadcastService
	server           *http.Server
	shutdownTracing  func(context.Context) error
}

func main() {
	_ = godotenv.Load()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	application, err := NewApp()
	if err != nil {
		slog.Error("failed to create app", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- application.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig.String())
	}

	application.Stop()
}

func NewApp() (*App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("starting application", "name", cfg.App.Name, "port", cfg.App.Port)

	application := &App{config: cfg}

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Setup(cfg.App.Name, cfg.Telemetry.Endpoint, cfg.Telemetry.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		application.shutdownTracing = shutdown
	}

	dbClient, err := db.New(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	application.db = dbClient
	slog.Info("database connection established")

	redisClient, err := redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}
	application.redis = redisClient
	slog.Info("redis connection established")

	application.initServices()
	application.initServer()

	return application, nil
}

func (a *App) initServices() {
	cfg := a.config

	httpClient := ohttp.New(time.Duration(cfg.Gateway.RequestTimeout) * time.Second)
	gateway := wagateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.Token, cfg.Gateway.SendDelaySec, httpClient)

	policy := app.DefaultBackoffPolicy()
	if cfg.Broadcast.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.Broadcast.MaxAttempts
	}
	if cfg.Broadcast.BackoffBaseMS > 0 {
		policy.Base = time.Duration(cfg.Broadcast.BackoffBaseMS) * time.Millisecond
	}
	dispatcher := app.NewDispatcher(gateway, policy, slog.Default())

	resultTTL := 7 * 24 * time.Hour
	if cfg.Broadcast.ResultTTLHours > 0 {
		resultTTL = time.Duration(cfg.Broadcast.ResultTTLHours) * time.Hour
	}

	a.broadcastService = app.NewBroadcastService(
		database.NewStudentRepository(a.db),
		database.NewCategoryRepository(a.db),
		database.NewOrderRepository(a.db),
		database.NewAuditRepository(a.db),
		store.New(a.redis, resultTTL),
		dispatcher,
		order.NewGenerator(cfg.Payment.BaseURL, cfg.Payment.MerchantSlug),
		time.Duration(cfg.Broadcast.MessageDelayMS)*time.Millisecond,
		slog.Default(),
	)
}

func (a *App) initServer() {
	mux := http.NewServeMux()
	handlers.RegisterHealthHandler(mux)
	handlers.RegisterBroadcastHandler(mux, a.broadcastService, slog.Default())
	handlers.RegisterOrderHandler(mux, a.broadcastService, slog.Default())

	var handler http.Handler = middleware.Recovery(mux)
	if a.config.Telemetry.Enabled {
		handler = middleware.Tracing(a.config.App.Name)(handler)
	}

	readTimeout := timeoutValue(a.config.App.ReadTimeout, 30)
	// Broadcast runs are synchronous and paced per recipient, so writes can
	// legitimately take minutes for a large batch.
	writeTimeout := timeoutValue(a.config.App.WriteTimeout, 600)
	idleTimeout := timeoutValue(a.config.App.IdleTimeout, 120)

	a.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.App.Port),
		ReadTimeout:       time.Duration(readTimeout) * time.Second,
		WriteTimeout:      time.Duration(writeTimeout) * time.Second,
		IdleTimeout:       time.Duration(idleTimeout) * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		Handler:           handler,
	}
}

func (a *App) Start() error {
	slog.Info("server starting", "port", a.config.App.Port)
	return a.server.ListenAndServe()
}

func (a *App) Stop() {
	slog.Info("starting graceful shutdown")

	a.server.SetKeepAlivesEnabled(false)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			slog.Error("forced shutdown failed", "error", err)
		}
	}

	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(ctx); err != nil {
			slog.Warn("failed to shut down tracing", "error", err)
		}
	}

	slog.Info("server stopped")
}

func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			slog.Warn("failed to close database connection", "error", err)
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			slog.Warn("failed to close redis connection", "error", err)
		}
	}
}

func loadConfig() (*config.Config, error) {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	cfg, err := config.Load(filepath.Join(".config", fmt.Sprintf("%s.yaml", env)))
	if err != nil {
		return nil, err
	}

	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if token := os.Getenv("GATEWAY_TOKEN"); token != "" {
		cfg.Gateway.Token = token
	}

	return cfg, nil
}

func timeoutValue(configValue, defaultValue int) int {
	if configValue > 0 {
		return configValue
	}
	return defaultValue
}
