package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	config "github.com/avatarctic/commerce-gateway/configs"
	"github.com/avatarctic/commerce-gateway/internal/application/services"
	"github.com/avatarctic/commerce-gateway/internal/core/ports"
	"github.com/avatarctic/commerce-gateway/internal/infrastructure/backend/httpbackend"
	memorybackend "github.com/avatarctic/commerce-gateway/internal/infrastructure/backend/memory"
	"github.com/avatarctic/commerce-gateway/internal/infrastructure/cache"
	"github.com/avatarctic/commerce-gateway/internal/infrastructure/cache/memory"
	"github.com/avatarctic/commerce-gateway/internal/infrastructure/codec"
	"github.com/avatarctic/commerce-gateway/internal/infrastructure/health"
	"github.com/avatarctic/commerce-gateway/internal/infrastructure/httpserver"
	"github.com/avatarctic/commerce-gateway/internal/infrastructure/observability"
	"github.com/avatarctic/commerce-gateway/internal/infrastructure/redis"
	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Setup logger
	logger := logrus.New()
	if cfg.Log.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.Info("Starting commerce gateway...")

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := observability.InitTracing(rootCtx, cfg.Tracing)
	if err != nil {
		logger.Fatal("Failed to initialize tracing:", err)
	}

	// Cache policy: defaults in code, optional YAML overrides
	policy, err := config.LoadCachePolicy(cfg.Cache.PolicyFile)
	if err != nil {
		logger.Fatal("Failed to load cache policy:", err)
	}
	ttlOverrides, err := policy.TTLs()
	if err != nil {
		logger.Fatal("Invalid cache policy:", err)
	}
	ruleOverrides, err := policy.OperationRules()
	if err != nil {
		logger.Fatal("Invalid cache policy:", err)
	}
	ops, err := services.NewOperationTable(ruleOverrides)
	if err != nil {
		logger.Fatal("Invalid operation table:", err)
	}
	ttl := services.NewTTLPolicy(ttlOverrides, 0)

	entryCodec, err := codec.New(cfg.Cache.Codec)
	if err != nil {
		logger.Fatal("Failed to initialize codec:", err)
	}

	var redisClient *goredis.Client
	if cfg.UsesRedis() {
		redisClient, err = redis.NewRedisClient(&cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis:", err)
		}
		defer redisClient.Close()
		logger.Info("Connected to Redis successfully")
	}

	var store ports.CacheStore
	switch cfg.Cache.Store {
	case "redis":
		store = redis.NewCacheStore(redisClient, cfg.Cache.KeyPrefix)
	default:
		memCfg := memory.DefaultConfig()
		memCfg.Capacity = cfg.Cache.MaxEntries
		if max := ttl.Max(); max > 0 {
			memCfg.MaxTTL = max
		}
		mem, err := memory.New(memCfg)
		if err != nil {
			logger.Fatal("Failed to initialize memory cache:", err)
		}
		store = mem
	}
	go cache.RunSweeper(rootCtx, store, cfg.Cache.SweepInterval, logger)

	var (
		backend ports.BackendClient
		pinger  health.Pinger
	)
	switch cfg.Backend.Mode {
	case "memory":
		mb := memorybackend.New()
		memorybackend.SeedDemo(mb)
		backend, pinger = mb, mb
		logger.Warn("Using the in-memory system of record - data is not persisted")
	default:
		hb, err := httpbackend.New(httpbackend.Config{
			BaseURL:      cfg.Backend.BaseURL,
			Timeout:      cfg.Backend.Timeout,
			Name:         "backend",
			MaxRequests:  cfg.Backend.BreakerMaxRequests,
			Interval:     cfg.Backend.BreakerInterval,
			OpenTimeout:  cfg.Backend.BreakerOpenTimeout,
			FailureRatio: cfg.Backend.BreakerFailureRatio,
			MinRequests:  cfg.Backend.BreakerMinRequests,
		}, &http.Client{}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize backend client:", err)
		}
		backend, pinger = hb, hb
	}

	versions := services.NewVersionLog()
	fetcher := services.NewCoalescingFetcher(store, entryCodec, versions, &services.FetcherConfig{
		BackendTimeout: cfg.Backend.Timeout,
		StoreTimeout:   cfg.Cache.StoreTimeout,
	}, logger)
	coordinator := services.NewInvalidationCoordinator(store, versions, fetcher, &services.InvalidationConfig{
		SettleWindow:   cfg.Backend.Timeout + cfg.Cache.SettleWindow,
		StaleRetention: ttl.Max(),
		Timeout:        cfg.Cache.StoreTimeout * 4,
	}, logger)

	sink, err := observability.NewPrometheusSink(prometheus.DefaultRegisterer, 4096, logger)
	if err != nil {
		logger.Fatal("Failed to register gateway metrics:", err)
	}
	defer sink.Close()

	router := services.NewGatewayRouter(services.RouterDeps{
		Operations:  ops,
		Auth:        services.NewJWTAuthenticator(&cfg.JWT, logger),
		Backend:     backend,
		Fetcher:     fetcher,
		Coordinator: coordinator,
		TTL:         ttl,
		Codec:       entryCodec,
		Sink:        sink,
		Logger:      logger,
	}, &services.RouterConfig{BackendTimeout: cfg.Backend.Timeout})

	var limiter ports.RateLimiter
	if cfg.RateLimit.Enabled {
		rlCfg := &services.RateLimiterConfig{
			DefaultRequestsPerMinute: cfg.RateLimit.DefaultRequestsPerMinute,
			BurstMultiplier:          cfg.RateLimit.BurstMultiplier,
			Window:                   cfg.RateLimit.Window,
			KeyPrefix:                cfg.RateLimit.KeyPrefix,
		}
		if cfg.RateLimit.Store == "redis" {
			limiter = services.NewRateLimiterService(redis.NewRateLimitRepository(redisClient), rlCfg, logger)
		} else {
			limiter = services.NewLocalRateLimiter(rlCfg)
		}
	}

	hcSlice := []ports.HealthChecker{health.NewBackendHealthChecker(pinger)}
	if redisClient != nil {
		hcSlice = append(hcSlice, health.NewRedisHealthChecker(redisClient))
	}

	serverConfig := &httpserver.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		TLSCertFile:    cfg.Server.TLSCertFile,
		TLSKeyFile:     cfg.Server.TLSKeyFile,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Environment:    cfg.Tracing.Environment,
	}
	server := httpserver.NewServer(serverConfig, logger, httpserver.ServerDeps{
		Gateway:        router,
		RateLimiter:    limiter,
		HealthCheckers: hcSlice,
	})
	server.LogMetricsInitialization()

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	logger.WithFields(logrus.Fields{
		"cache_store":  cfg.Cache.Store,
		"codec":        entryCodec.Name(),
		"backend_mode": cfg.Backend.Mode,
		"operations":   len(ops.Names()),
	}).Infof("Gateway started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	<-rootCtx.Done()
	logger.Info("Shutting down gateway...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown:", err)
	}
	if err := tp.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("Failed to flush traces")
	}

	logger.Info("Gateway exited")
}
