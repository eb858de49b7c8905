package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	config "github.com/blazeintel/edge-gateway/configs"
	"github.com/blazeintel/edge-gateway/internal/application/services"
	"github.com/blazeintel/edge-gateway/internal/core/domain/feed"
	"github.com/blazeintel/edge-gateway/internal/core/ports"
	"github.com/blazeintel/edge-gateway/internal/infrastructure/adapters/static"
	"github.com/blazeintel/edge-gateway/internal/infrastructure/adapters/statsapi"
	"github.com/blazeintel/edge-gateway/internal/infrastructure/health"
	"github.com/blazeintel/edge-gateway/internal/infrastructure/httpserver"
	"github.com/blazeintel/edge-gateway/internal/infrastructure/memstore"
	infraRedis "github.com/blazeintel/edge-gateway/internal/infrastructure/redis"
	"github.com/blazeintel/edge-gateway/internal/infrastructure/repositories"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Setup logger
	logger := logrus.New()
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.Info("Starting edge gateway...")

	// Initialize backing stores. Redis is preferred; when it is not
	// reachable at boot the gateway degrades to in-process stores
	// rather than refusing to start. The cache is an optimization, not
	// a correctness requirement.
	var (
		cache          ports.Cache
		rateLimitRepo  ports.RateLimitRepository
		healthCheckers []ports.HealthChecker
	)
	redisClient, err := infraRedis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, using in-memory stores")
		cache = memstore.NewCache()
		rateLimitRepo = memstore.NewRateLimitRepository()
	} else {
		defer redisClient.Close()
		logger.Info("Connected to Redis successfully")
		cache = infraRedis.NewRedisCache(redisClient, cfg.Cache.KeyPrefix)
		rateLimitRepo = repositories.NewRateLimitRedisRepository(redisClient)
		healthCheckers = append(healthCheckers, health.NewRedisHealthChecker(redisClient))
	}

	// Wire one adapter per configured domain
	adapters := make([]ports.SummaryAdapter, 0, len(cfg.Adapters.Domains))
	for _, domain := range cfg.Adapters.Domains {
		if cfg.Adapters.Mode == "static" {
			adapters = append(adapters, static.New(domain))
		} else {
			adapters = append(adapters, statsapi.New(domain, cfg.Adapters.BaseURL, cfg.Adapters.Timeout, logger))
		}
	}
	if cfg.Adapters.Mode != "static" {
		healthCheckers = append(healthCheckers, health.NewUpstreamHealthChecker("stats-api", cfg.Adapters.BaseURL))
	}

	feedService := services.NewFeedService(adapters, cache, services.FeedServiceConfig{
		SummaryTTL:     feed.TTL{Fresh: cfg.Cache.FreshTTL, Stale: cfg.Cache.StaleTTL},
		DashboardTTL:   feed.TTL{Fresh: cfg.Cache.DashboardFreshTTL, Stale: cfg.Cache.StaleTTL},
		AdapterTimeout: cfg.Adapters.Timeout,
		Featured:       cfg.Adapters.Featured,
	}, logger)

	rateLimiterService := services.NewRateLimiterService(rateLimitRepo, &services.RateLimiterConfig{
		MaxRequests: cfg.RateLimit.MaxRequests,
		Window:      cfg.RateLimit.Window,
		KeyPrefix:   cfg.RateLimit.KeyPrefix,
	}, logger)

	// Create server configuration
	serverConfig := &httpserver.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		TLSCertFile:    cfg.Server.TLSCertFile,
		TLSKeyFile:     cfg.Server.TLSKeyFile,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Environment:    cfg.Server.Environment,
		AdminAPIKey:    cfg.Admin.APIKey,
	}

	server := httpserver.NewServer(serverConfig, logger, httpserver.ServerDeps{
		FeedService:        feedService,
		RateLimiterService: rateLimiterService,
		HealthCheckers:     healthCheckers,
	})

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	logger.Infof("Server started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
