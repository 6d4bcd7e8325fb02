// Package glossary implements the tax-strategy glossary: the term data model,
// an in-memory snapshot index answering list and substring-search queries,
// a PostgreSQL term repository, and the HTTP handlers serving them.
package glossary

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// Term is a single glossary entry. The enrichment fields past Tags are all
// independently optional; they carry client case-study material when present.
type Term struct {
	ID             string   `json:"id" yaml:"id"`
	Term           string   `json:"term" yaml:"term"`
	Definition     string   `json:"definition" yaml:"definition"`
	Category       string   `json:"category" yaml:"category"`
	RelatedTerms   []string `json:"related_terms" yaml:"relatedTerms"`
	Tags           []string `json:"tags" yaml:"tags"`
	PlainEnglish   string   `json:"plain_english,omitempty" yaml:"plainEnglish"`
	CaseStudy      string   `json:"case_study,omitempty" yaml:"caseStudy"`
	KeyBenefit     string   `json:"key_benefit,omitempty" yaml:"keyBenefit"`
	ClientName     string   `json:"client_name,omitempty" yaml:"clientName"`
	Structure      string   `json:"structure,omitempty" yaml:"structure"`
	Implementation string   `json:"implementation,omitempty" yaml:"implementation"`
	Results        string   `json:"results,omitempty" yaml:"results"`
}

// HasCaseStudy reports whether the term carries a complete client case study.
// All four of ClientName, Structure, Implementation, and Results must be
// non-empty; a partially filled set does not count.
func (t Term) HasCaseStudy() bool {
	return strings.TrimSpace(t.ClientName) != "" &&
		strings.TrimSpace(t.Structure) != "" &&
		strings.TrimSpace(t.Implementation) != "" &&
		strings.TrimSpace(t.Results) != ""
}

// Matches reports whether the query is a case-insensitive substring of the
// term's display name or definition. The query must already be lower-cased.
func (t Term) Matches(loweredQuery string) bool {
	return strings.Contains(strings.ToLower(t.Term), loweredQuery) ||
		strings.Contains(strings.ToLower(t.Definition), loweredQuery)
}

// NewTermID returns a random 32-character hex identifier for a new term.
func NewTermID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
