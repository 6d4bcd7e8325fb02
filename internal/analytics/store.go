package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/irsescapeplan/platform/pkg/postgres"
	"github.com/irsescapeplan/platform/pkg/resilience"
)

// snapshotTimeout bounds each periodic snapshot write so a stalled database
// cannot wedge the snapshot loop.
const snapshotTimeout = 5 * time.Second

// Store persists periodic aggregate snapshots so engagement history survives
// restarts of the in-memory aggregator.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewStore(db *postgres.Client, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger.With("component", "analytics_store")}
}

// SaveSnapshot writes the stats as a JSON document to analytics_snapshots.
func (s *Store) SaveSnapshot(ctx context.Context, stats Stats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encoding analytics snapshot: %w", err)
	}
	_, err = s.db.DB.ExecContext(ctx, `
		INSERT INTO analytics_snapshots (captured_at, stats)
		VALUES ($1, $2)`, stats.GeneratedAt, data)
	if err != nil {
		return fmt.Errorf("inserting analytics snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recently persisted stats, or false if no
// snapshot has been taken yet.
func (s *Store) LatestSnapshot(ctx context.Context) (Stats, bool, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx, `
		SELECT stats FROM analytics_snapshots
		ORDER BY captured_at DESC
		LIMIT 1`).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Stats{}, false, nil
		}
		return Stats{}, false, fmt.Errorf("querying latest snapshot: %w", err)
	}
	var stats Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		return Stats{}, false, fmt.Errorf("decoding analytics snapshot: %w", err)
	}
	return stats, true, nil
}

// RunSnapshots persists the aggregator's stats on the given interval until
// ctx is cancelled.
func (s *Store) RunSnapshots(ctx context.Context, agg *Aggregator, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := resilience.WithTimeout(context.Background(), snapshotTimeout, "analytics_snapshot", func(ctx context.Context) error {
				return s.SaveSnapshot(ctx, agg.Stats())
			})
			if err != nil {
				s.logger.Error("failed to persist analytics snapshot", "error", err)
			}
		}
	}
}
