package xp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/irsescapeplan/platform/pkg/postgres"
)

// PostgresStore persists awards using the database's conflict handling for
// idempotency: glossary_views has a primary key on (user_id, term_id), so
// concurrent first views race on the same row and exactly one insert wins.
type PostgresStore struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewPostgresStore(db *postgres.Client, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger.With("component", "xp_store")}
}

func (s *PostgresStore) TotalXP(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT total_xp FROM user_xp WHERE user_id = $1`, userID).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("querying xp total: %w", err)
	}
	return total, nil
}

func (s *PostgresStore) RecordGlossaryView(ctx context.Context, userID, termID string, points int64) (bool, error) {
	var created bool
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO glossary_views (user_id, term_id)
			VALUES ($1, $2)
			ON CONFLICT (user_id, term_id) DO NOTHING`, userID, termID)
		if err != nil {
			return fmt.Errorf("inserting glossary view: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("reading insert result: %w", err)
		}
		if rows == 0 {
			// Already viewed. Nothing else in the transaction runs, so
			// totals and the award log stay untouched.
			return nil
		}
		created = true

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_xp (user_id, total_xp)
			VALUES ($1, $2)
			ON CONFLICT (user_id) DO UPDATE
			SET total_xp = user_xp.total_xp + EXCLUDED.total_xp`, userID, points); err != nil {
			return fmt.Errorf("incrementing xp total: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO xp_awards (user_id, kind, term_id, points)
			VALUES ($1, $2, $3, $4)`, userID, string(KindGlossaryView), termID, points); err != nil {
			return fmt.Errorf("appending award log: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

func (s *PostgresStore) AddQuizPoints(ctx context.Context, userID string, points int64) error {
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_xp (user_id, total_xp)
			VALUES ($1, $2)
			ON CONFLICT (user_id) DO UPDATE
			SET total_xp = user_xp.total_xp + EXCLUDED.total_xp`, userID, points); err != nil {
			return fmt.Errorf("incrementing xp total: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO xp_awards (user_id, kind, term_id, points)
			VALUES ($1, $2, NULL, $3)`, userID, string(KindQuizCompletion), points); err != nil {
			return fmt.Errorf("appending award log: %w", err)
		}
		return nil
	})
}
