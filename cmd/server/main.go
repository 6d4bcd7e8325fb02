package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/irsescapeplan/platform/internal/analytics"
	"github.com/irsescapeplan/platform/internal/auth/apikey"
	"github.com/irsescapeplan/platform/internal/auth/ratelimit"
	"github.com/irsescapeplan/platform/internal/chat"
	"github.com/irsescapeplan/platform/internal/glossary"
	"github.com/irsescapeplan/platform/internal/seeder"
	"github.com/irsescapeplan/platform/internal/server"
	"github.com/irsescapeplan/platform/internal/xp"
	"github.com/irsescapeplan/platform/pkg/config"
	"github.com/irsescapeplan/platform/pkg/health"
	"github.com/irsescapeplan/platform/pkg/kafka"
	"github.com/irsescapeplan/platform/pkg/logger"
	"github.com/irsescapeplan/platform/pkg/metrics"
	"github.com/irsescapeplan/platform/pkg/postgres"
	pkgredis "github.com/irsescapeplan/platform/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting platform service", "port", cfg.Server.Port)

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			if err := shutdownMetrics(context.Background()); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}()
		slog.Info("metrics server started", "port", cfg.Metrics.Port)
	}

	var searchCache *glossary.SearchCache
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, search caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		searchCache = glossary.NewSearchCache(redisClient, cfg.Redis.CacheTTL, slog.Default())
		slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	var collector *analytics.Collector
	var analyticsH *analytics.Handler
	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.EngagementEvents)
	defer producer.Close()
	collector = analytics.NewCollector(producer, slog.Default())
	go collector.Run(ctx)
	defer collector.Wait()

	aggregator := analytics.NewAggregator(slog.Default())
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.EngagementEvents, aggregator.Handle)
	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("engagement consumer error", "error", err)
		}
	}()
	analyticsStore := analytics.NewStore(db, slog.Default())
	go analyticsStore.RunSnapshots(ctx, aggregator, 5*time.Minute)
	analyticsH = analytics.NewHandler(aggregator, analyticsStore, slog.Default())
	slog.Info("engagement pipeline started", "topic", cfg.Kafka.Topics.EngagementEvents)

	repo := glossary.NewRepository(db, slog.Default())
	index := glossary.NewSearchIndex()
	terms, err := repo.List(ctx)
	if err != nil {
		slog.Error("failed to load glossary", "error", err)
		os.Exit(1)
	}
	index.Reload(terms)
	if m != nil {
		m.GlossaryTermCount.Set(float64(len(terms)))
	}
	slog.Info("glossary loaded", "terms", len(terms))

	xpStore := xp.NewPostgresStore(db, slog.Default())
	ledger := xp.NewLedger(xpStore, index, cfg.XP, collector, m, slog.Default())
	limiter := ratelimit.NewLimiter(cfg.XP.AwardRatePerMinute)

	keyValidator := apikey.NewValidator(db, slog.Default())
	seed := seeder.New(repo, index, searchCache, m, slog.Default())

	checker := health.NewChecker()
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if err := db.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("glossary", func(ctx context.Context) health.ComponentHealth {
		if index.Len() == 0 {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "no terms loaded"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d terms", index.Len())}
	})

	var chatH *chat.Handler
	if cfg.Chat.UpstreamURL != "" {
		chatH = chat.NewHandler(cfg.Chat, m, slog.Default())
		slog.Info("chat proxy enabled", "upstream", cfg.Chat.UpstreamURL)
	}

	handler := server.New(server.Deps{
		Glossary:  glossary.NewHandler(index, searchCache, collector, m, slog.Default()),
		XP:        xp.NewHandler(ledger, limiter, slog.Default()),
		Analytics: analyticsH,
		Chat:      chatH,
		Admin:     server.NewAdminHandler(seed, cfg.Glossary.SeedFile, searchCache, slog.Default()),
		Keys:      keyValidator,
		Checker:   checker,
		Metrics:   m,
		Timeout:   cfg.Server.WriteTimeout,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("platform service listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("platform service stopped")
}
