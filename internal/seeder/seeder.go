// Package seeder loads the canonical glossary fixture and replaces the
// persisted term set with it. A reseed is destructive: terms absent from the
// fixture are gone afterwards, and every derived view (search cache, memory
// index) is refreshed so nothing stale survives the swap.
package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/irsescapeplan/platform/internal/glossary"
	"github.com/irsescapeplan/platform/pkg/metrics"
	"github.com/irsescapeplan/platform/pkg/resilience"
)

// TermWriter is the persistence side of a reseed.
type TermWriter interface {
	ReplaceAll(ctx context.Context, terms []glossary.Term) error
}

// CacheInvalidator clears derived search results after a reseed.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) (int64, error)
}

type seedFile struct {
	Terms []glossary.Term `yaml:"terms"`
}

// Report summarizes a completed reseed.
type Report struct {
	TermsSeeded      int      `json:"terms_seeded"`
	CaseStudies      int      `json:"case_studies"`
	DuplicateStems   []string `json:"duplicate_stems,omitempty"`
	CacheKeysFlushed int64    `json:"cache_keys_flushed"`
}

// Seeder replaces the glossary from a YAML fixture. The cache is optional.
type Seeder struct {
	writer  TermWriter
	index   *glossary.SearchIndex
	cache   CacheInvalidator
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(writer TermWriter, index *glossary.SearchIndex, cache CacheInvalidator, m *metrics.Metrics, logger *slog.Logger) *Seeder {
	return &Seeder{
		writer:  writer,
		index:   index,
		cache:   cache,
		metrics: m,
		logger:  logger.With("component", "seeder"),
	}
}

// SeedFromFile validates and persists the fixture at path, then refreshes
// the index and flushes the search cache. Any validation failure aborts the
// whole run before the store is touched.
func (s *Seeder) SeedFromFile(ctx context.Context, path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		s.observe("error")
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	terms, err := parseSeedData(data)
	if err != nil {
		s.observe("error")
		return nil, err
	}
	return s.Seed(ctx, terms)
}

// Seed persists the given terms as the complete new glossary.
func (s *Seeder) Seed(ctx context.Context, terms []glossary.Term) (*Report, error) {
	for i := range terms {
		if terms[i].ID == "" {
			terms[i].ID = glossary.NewTermID()
		}
		if err := glossary.ValidateTerm(terms[i]); err != nil {
			s.observe("error")
			return nil, fmt.Errorf("term %q: %w", terms[i].Term, err)
		}
	}

	report := &Report{TermsSeeded: len(terms)}
	for _, t := range terms {
		if t.HasCaseStudy() {
			report.CaseStudies++
		}
	}
	// Near-duplicate names (full name vs acronym variants) are allowed but
	// worth surfacing so content editors can consolidate them.
	report.DuplicateStems = duplicateStems(terms)
	for _, stem := range report.DuplicateStems {
		s.logger.Warn("near-duplicate term names share a stem", "stem", stem)
	}

	err := resilience.Retry(ctx, "glossary_reseed", resilience.RetryConfig{MaxAttempts: 3}, func() error {
		return s.writer.ReplaceAll(ctx, terms)
	})
	if err != nil {
		s.observe("error")
		return nil, fmt.Errorf("replacing glossary: %w", err)
	}

	if s.index != nil {
		s.index.Reload(terms)
	}
	if s.cache != nil {
		flushed, err := s.cache.Invalidate(ctx)
		report.CacheKeysFlushed = flushed
		if err != nil {
			// The new glossary is live; a stale cache self-heals via TTL.
			s.logger.Warn("cache invalidation failed after reseed", "error", err)
		}
	}

	s.observe("success")
	if s.metrics != nil {
		s.metrics.GlossaryTermCount.Set(float64(len(terms)))
	}
	s.logger.Info("glossary reseeded",
		"terms", report.TermsSeeded,
		"case_studies", report.CaseStudies,
		"duplicate_stems", len(report.DuplicateStems),
	)
	return report, nil
}

func (s *Seeder) observe(status string) {
	if s.metrics != nil {
		s.metrics.SeedRunsTotal.WithLabelValues(status).Inc()
	}
}

func parseSeedData(data []byte) ([]glossary.Term, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}
	if len(file.Terms) == 0 {
		return nil, fmt.Errorf("seed file contains no terms")
	}
	return file.Terms, nil
}

var parenRe = regexp.MustCompile(`^(.*?)\s*\(([^)]+)\)\s*$`)

// duplicateStems returns the normalized stems claimed by more than one term.
// "Short-Term Rental (STR)" claims both "short-term rental" and "str", so a
// separate bare "STR" entry collides with it.
func duplicateStems(terms []glossary.Term) []string {
	claims := make(map[string]int)
	for _, t := range terms {
		for _, stem := range stemsOf(t.Term) {
			claims[stem]++
		}
	}
	var dups []string
	for stem, n := range claims {
		if n > 1 {
			dups = append(dups, stem)
		}
	}
	sort.Strings(dups)
	return dups
}

func stemsOf(name string) []string {
	name = strings.TrimSpace(name)
	if m := parenRe.FindStringSubmatch(name); m != nil {
		return []string{strings.ToLower(strings.TrimSpace(m[1])), strings.ToLower(strings.TrimSpace(m[2]))}
	}
	return []string{strings.ToLower(name)}
}
