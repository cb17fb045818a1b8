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

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weatherlog/internal/auth"
	"github.com/kjstillabower/weatherlog/internal/cache"
	"github.com/kjstillabower/weatherlog/internal/client"
	"github.com/kjstillabower/weatherlog/internal/config"
	"github.com/kjstillabower/weatherlog/internal/db"
	httphandler "github.com/kjstillabower/weatherlog/internal/http"
	"github.com/kjstillabower/weatherlog/internal/lifecycle"
	"github.com/kjstillabower/weatherlog/internal/observability"
	"github.com/kjstillabower/weatherlog/internal/repository"
	"github.com/kjstillabower/weatherlog/internal/service"
)

func main() {
	logger, err := observability.NewLogger("service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	gdb, err := db.Open(cfg.Database, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	if err := repository.AutoMigrate(gdb); err != nil {
		logger.Fatal("database migrate", zap.Error(err))
	}
	if sqlDB, err := gdb.DB(); err == nil {
		observability.RegisterDBStats(sqlDB)
	}
	logger.Info("database ready", zap.String("driver", cfg.Database.Driver))

	users := repository.NewUserRepository(gdb)
	entries := repository.NewWeatherRepository(gdb)

	weatherClient, err := client.NewOpenWeatherClientWithRetry(
		cfg.WeatherAPIKey,
		cfg.WeatherAPIURL,
		cfg.WeatherAPITimeout,
		cfg.RetryAttempts,
		cfg.RetryBaseDelay,
		cfg.RetryMaxDelay,
	)
	if err != nil {
		logger.Fatal("weather client", zap.Error(err))
	}
	weatherClient.SetUnits(cfg.WeatherAPIUnits)

	keyCtx, keyCancel := context.WithTimeout(context.Background(), cfg.WeatherAPITimeout)
	if err := weatherClient.ValidateAPIKey(keyCtx); err != nil {
		logger.Warn("weather API key check failed; lookups may fail", zap.Error(err))
	}
	keyCancel()

	var cacheSvc cache.Cache
	var memcacheCloser *cache.MemcachedCache
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		memcacheCloser = mc
		cacheSvc = mc
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	case "none":
		cacheSvc = cache.Nop{}
		logger.Info("cache backend: none")
	default:
		cacheSvc = cache.NewInMemoryCache()
		logger.Info("cache backend: in_memory")
	}

	accounts := service.NewAccountService(users, cfg.AdminEmail)
	svc := httphandler.Services{
		Accounts: accounts,
		Weather:  service.NewWeatherService(weatherClient, cacheSvc, cfg.CacheTTL),
		History:  service.NewHistoryService(entries, nil),
		Admin:    service.NewAdminService(users, entries),
	}

	seedCtx, seedCancel := context.WithTimeout(context.Background(), 10*time.Second)
	created, err := accounts.EnsureAdmin(seedCtx, cfg.AdminUsername, cfg.AdminPassword)
	seedCancel()
	if err != nil {
		logger.Fatal("seed admin", zap.Error(err))
	}
	if created {
		logger.Info("admin account created", zap.String("email", cfg.AdminEmail))
	}
	if cfg.UsesDefaultAdminPassword() {
		logger.Warn("admin account uses the default password; set admin_password in config/secrets.yaml")
	}

	sessions := auth.NewSessionManager(cfg.SessionSecret, cfg.SessionCookieName, cfg.SessionTTL, cfg.SessionSecure)

	views, err := httphandler.NewRenderer()
	if err != nil {
		logger.Fatal("templates", zap.Error(err))
	}

	healthConfig := &httphandler.HealthConfig{
		StartTime: time.Now(),
		DBPing:    func(ctx context.Context) error { return db.Ping(ctx, gdb) },
	}
	if memcacheCloser != nil {
		healthConfig.CachePing = memcacheCloser.Ping
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	handler := httphandler.NewHandler(svc, sessions, views, healthConfig, logger, cfg.CityMinLength, cfg.CityMaxLength)
	router := httphandler.NewRouter(handler, logger, httphandler.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		Limiter:        limiter,
	})

	if len(cfg.TrackedCities) > 0 {
		observability.SetTrackedCities(cfg.TrackedCities)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * cfg.RequestTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()
	lifecycle.SetShuttingDown(true)

	logger.Info("graceful shutdown triggered", zap.Int64("in_flight", lifecycle.InFlight.Count()))
	steps := []lifecycle.Step{
		lifecycle.DelayStep(cfg.ShutdownDrainDelay),
		{Name: "http server", Timeout: cfg.ShutdownTimeout, Run: srv.Shutdown},
		lifecycle.WaitStep(cfg.ShutdownInFlightTimeout, cfg.ShutdownInFlightCheckInterval),
	}
	if memcacheCloser != nil {
		steps = append(steps, lifecycle.Step{Name: "memcached", Run: func(context.Context) error {
			return memcacheCloser.Close()
		}})
	}
	steps = append(steps,
		lifecycle.Step{Name: "database", Run: func(context.Context) error { return db.Close(gdb) }},
		lifecycle.Step{Name: "logs", Run: func(ctx context.Context) error { return observability.Flush(ctx, logger) }},
	)

	if failed := lifecycle.Drain(logger, steps...); failed > 0 {
		logger.Warn("shutdown finished with errors", zap.Int("failed_steps", failed))
		return
	}
	logger.Info("shutdown complete")
}
