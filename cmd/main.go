package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"shackbot/internal/api"
	"shackbot/internal/catalog"
	"shackbot/internal/config"
	"shackbot/internal/database"
	"shackbot/internal/dispatch"
	"shackbot/internal/intent"
	"shackbot/internal/llm"
	"shackbot/internal/logger"
	"shackbot/internal/monitoring"
	"shackbot/internal/session"
)

var (
	port       = flag.Int("port", 0, "API server port (overrides config)")
	configFile = flag.String("config", "configs/config.yaml", "Path to configuration file")
)

const (
	sessionIdle  = 2 * time.Hour
	sweepEvery   = 5 * time.Minute
	shutdownWait = 10 * time.Second
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	zl, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		return err
	}
	if cfg.Database.Seed {
		n, err := database.SeedMenu(db, catalog.FallbackItems())
		if err != nil {
			return err
		}
		if n > 0 {
			zl.Info("seeded menu", zap.Int("items", n))
		}
	}

	monitor := monitoring.NewMonitor()

	menuRepo := database.NewMenuRepository(db)
	var source catalog.Source = menuRepo
	if addr := cfg.Catalog.Redis.Address; addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.Catalog.Redis.Password,
			DB:       cfg.Catalog.Redis.DB,
		})
		defer client.Close()
		source = catalog.NewRedisSource(client, source, cfg.Catalog.Redis.Key, cfg.Catalog.Redis.TTL.Duration, zl)
		zl.Info("catalog snapshots shared through redis", zap.String("addr", addr))
	}
	menu := catalog.NewCache(source,
		catalog.WithTTL(cfg.Catalog.TTL.Duration),
		catalog.WithFetchTimeout(cfg.Catalog.FetchTimeout.Duration),
		catalog.WithRetryAfter(cfg.Catalog.RetryAfter.Duration),
		catalog.WithObserver(monitor),
		catalog.WithLogger(zl),
	)

	provider := newProvider(cfg.LLM, zl)
	if breaker, ok := provider.(*llm.BreakerProvider); ok {
		monitor.TrackBreaker(cfg.LLM.Provider, breaker.State)
	}
	guard := llm.NewGuard(provider, llm.GuardConfig{
		Timeout:     cfg.LLM.Timeout.Duration,
		MaxAttempts: cfg.LLM.MaxAttempts,
		Backoff:     llm.NewExponentialBackoff(cfg.LLM.BackoffBase.Duration, cfg.LLM.BackoffMax.Duration),
	}, llm.WithAttemptObserver(monitor), llm.WithGuardLogger(zl))

	resolver := catalog.NewResolver(cfg.Matching.Threshold, catalog.Weights{
		ItemContainsQuery: cfg.Matching.ItemContainsQuery,
		QueryContainsItem: cfg.Matching.QueryContainsItem,
		AllItemTokens:     cfg.Matching.AllItemTokens,
		AllQueryTokens:    cfg.Matching.AllQueryTokens,
		PartialTokens:     cfg.Matching.PartialTokens,
	})

	orders := database.NewOrderStore(db, zl)
	orchestrator := dispatch.New(
		intent.NewClassifier(guard, cfg.Dispatch.HistoryWindow, zl),
		guard, menu, resolver, orders,
		dispatch.WithObserver(monitor),
		dispatch.WithLogger(logger.Component(zl, "dispatch")),
	)
	sessions := session.NewRegistry(menu)

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := api.NewServer(api.Config{
		Dispatcher: orchestrator,
		Sessions:   sessions,
		Menu:       menu,
		MenuEditor: menuRepo,
		Orders:     orders,
		Monitor:    monitor,
		Logger:     zl,
		JWTSecret:  cfg.Auth.JWTSecret,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go sweepSessions(ctx, sessions, zl)

	errCh := make(chan error, 1)
	go func() {
		zl.Info("starting API server", zap.Int("port", cfg.Server.Port), zap.String("llm_provider", cfg.LLM.Provider))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownWait)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}

// newProvider builds the configured provider. Without usable credentials
// the service still starts and every model call fails as an auth error.
func newProvider(cfg config.LLMConfig, zl *zap.Logger) llm.Provider {
	var (
		provider llm.Provider
		err      error
	)
	switch cfg.Provider {
	case "azure":
		provider, err = llm.NewAzureProvider(llm.AzureConfig{
			Endpoint:    cfg.Azure.Endpoint,
			APIKey:      cfg.Azure.APIKey,
			Deployment:  cfg.Azure.Deployment,
			Temperature: float32(cfg.Temperature),
			MaxTokens:   int32(cfg.MaxTokens),
		})
	default:
		baseURL := cfg.BaseURL
		if cfg.Provider == "github_models" && baseURL == "" {
			baseURL = llm.GitHubModelsBaseURL
		}
		provider, err = llm.NewOpenAIProvider(llm.OpenAIConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BaseURL:     baseURL,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		})
	}
	if err != nil {
		zl.Warn("LLM provider unavailable, chat will ask for configuration",
			zap.String("provider", cfg.Provider), zap.Error(err))
		return llm.Unconfigured
	}

	if !cfg.Breaker.Enabled {
		return provider
	}
	return llm.NewBreakerProvider(provider, llm.BreakerConfig{
		Name:             cfg.Provider,
		MaxRequests:      cfg.Breaker.MaxRequests,
		Interval:         cfg.Breaker.Interval.Duration,
		Timeout:          cfg.Breaker.Timeout.Duration,
		FailureThreshold: cfg.Breaker.FailureThreshold,
		MinRequests:      cfg.Breaker.MinRequests,
	}, zl)
}

func sweepSessions(ctx context.Context, sessions *session.Registry, zl *zap.Logger) {
	ticker := time.NewTicker(sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Expire(sessionIdle); n > 0 {
				zl.Debug("expired idle sessions", zap.Int("count", n))
			}
		}
	}
}
