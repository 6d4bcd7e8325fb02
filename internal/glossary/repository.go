package glossary

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/irsescapeplan/platform/pkg/postgres"
)

// Repository persists glossary terms in PostgreSQL. The terms table is the
// system of record; the SearchIndex is rebuilt from it at startup and after
// every reseed.
type Repository struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewRepository(db *postgres.Client, logger *slog.Logger) *Repository {
	return &Repository{db: db, logger: logger.With("component", "glossary_repository")}
}

// List returns every persisted term ordered by category then display name.
func (r *Repository) List(ctx context.Context) ([]Term, error) {
	rows, err := r.db.DB.QueryContext(ctx, `
		SELECT id, term, definition, category, related_terms, tags,
		       plain_english, case_study, key_benefit,
		       client_name, structure, implementation, results
		FROM glossary_terms
		ORDER BY category, term`)
	if err != nil {
		return nil, fmt.Errorf("querying glossary terms: %w", err)
	}
	defer rows.Close()

	var terms []Term
	for rows.Next() {
		t, err := scanTerm(rows)
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating glossary terms: %w", err)
	}
	return terms, nil
}

// ReplaceAll swaps the entire glossary for the given terms in a single
// transaction. Readers never observe the intermediate empty state.
func (r *Repository) ReplaceAll(ctx context.Context, terms []Term) error {
	err := r.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM glossary_terms`); err != nil {
			return fmt.Errorf("clearing glossary terms: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO glossary_terms
				(id, term, definition, category, related_terms, tags,
				 plain_english, case_study, key_benefit,
				 client_name, structure, implementation, results)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`)
		if err != nil {
			return fmt.Errorf("preparing term insert: %w", err)
		}
		defer stmt.Close()

		for _, t := range terms {
			related, err := json.Marshal(sliceOrEmpty(t.RelatedTerms))
			if err != nil {
				return fmt.Errorf("encoding related terms for %q: %w", t.Term, err)
			}
			tags, err := json.Marshal(sliceOrEmpty(t.Tags))
			if err != nil {
				return fmt.Errorf("encoding tags for %q: %w", t.Term, err)
			}
			if _, err := stmt.ExecContext(ctx,
				t.ID, t.Term, t.Definition, t.Category, related, tags,
				t.PlainEnglish, t.CaseStudy, t.KeyBenefit,
				t.ClientName, t.Structure, t.Implementation, t.Results,
			); err != nil {
				return fmt.Errorf("inserting term %q: %w", t.Term, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Info("glossary replaced", "term_count", len(terms))
	return nil
}

func scanTerm(rows *sql.Rows) (Term, error) {
	var t Term
	var related, tags []byte
	err := rows.Scan(
		&t.ID, &t.Term, &t.Definition, &t.Category, &related, &tags,
		&t.PlainEnglish, &t.CaseStudy, &t.KeyBenefit,
		&t.ClientName, &t.Structure, &t.Implementation, &t.Results,
	)
	if err != nil {
		return Term{}, fmt.Errorf("scanning glossary term: %w", err)
	}
	if err := json.Unmarshal(related, &t.RelatedTerms); err != nil {
		return Term{}, fmt.Errorf("decoding related terms for %q: %w", t.Term, err)
	}
	if err := json.Unmarshal(tags, &t.Tags); err != nil {
		return Term{}, fmt.Errorf("decoding tags for %q: %w", t.Term, err)
	}
	return t, nil
}

func sliceOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
