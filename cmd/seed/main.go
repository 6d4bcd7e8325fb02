// Command seed replaces the persisted glossary with the contents of the
// configured YAML fixture. Run it once against a fresh database and again
// whenever the fixture changes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/irsescapeplan/platform/internal/glossary"
	"github.com/irsescapeplan/platform/internal/seeder"
	"github.com/irsescapeplan/platform/pkg/config"
	"github.com/irsescapeplan/platform/pkg/logger"
	"github.com/irsescapeplan/platform/pkg/postgres"
	pkgredis "github.com/irsescapeplan/platform/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	seedFile := flag.String("file", "", "seed file path (defaults to the configured one)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	path := cfg.Glossary.SeedFile
	if *seedFile != "" {
		path = *seedFile
	}

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var cache *glossary.SearchCache
	if redisClient, err := pkgredis.NewClient(cfg.Redis); err != nil {
		slog.Warn("redis unavailable, skipping cache invalidation", "error", err)
	} else {
		defer redisClient.Close()
		cache = glossary.NewSearchCache(redisClient, cfg.Redis.CacheTTL, slog.Default())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	repo := glossary.NewRepository(db, slog.Default())
	s := seeder.New(repo, nil, cache, nil, slog.Default())
	report, err := s.SeedFromFile(ctx, path)
	if err != nil {
		slog.Error("seeding failed", "error", err)
		os.Exit(1)
	}

	slog.Info("seeding complete",
		"file", path,
		"terms", report.TermsSeeded,
		"case_studies", report.CaseStudies,
		"duplicate_stems", report.DuplicateStems,
	)
}
