package glossary

import (
	"sort"
	"strings"
	"sync"
)

// SearchIndex holds an immutable in-memory snapshot of the glossary and
// answers list, lookup, and substring-search queries against it. Reads take a
// shared lock; Reload swaps the whole snapshot atomically, so a reseed never
// exposes a half-replaced glossary to readers.
type SearchIndex struct {
	mu    sync.RWMutex
	terms []Term
	byID  map[string]Term
}

func NewSearchIndex() *SearchIndex {
	return &SearchIndex{byID: make(map[string]Term)}
}

// Reload replaces the snapshot with the given terms, sorted by category then
// display name. The input slice is copied; the caller may reuse it.
func (i *SearchIndex) Reload(terms []Term) {
	snapshot := make([]Term, len(terms))
	copy(snapshot, terms)
	for n := range snapshot {
		// Clients iterate these fields directly, so they must encode as
		// empty arrays rather than null.
		if snapshot[n].RelatedTerms == nil {
			snapshot[n].RelatedTerms = []string{}
		}
		if snapshot[n].Tags == nil {
			snapshot[n].Tags = []string{}
		}
	}
	sort.Slice(snapshot, func(a, b int) bool {
		if snapshot[a].Category != snapshot[b].Category {
			return snapshot[a].Category < snapshot[b].Category
		}
		return snapshot[a].Term < snapshot[b].Term
	})
	byID := make(map[string]Term, len(snapshot))
	for _, t := range snapshot {
		byID[t.ID] = t
	}

	i.mu.Lock()
	i.terms = snapshot
	i.byID = byID
	i.mu.Unlock()
}

// ListAll returns every term in the snapshot, ordered by category then name.
func (i *SearchIndex) ListAll() []Term {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]Term, len(i.terms))
	copy(out, i.terms)
	return out
}

// Get returns the term with the given identifier.
func (i *SearchIndex) Get(id string) (Term, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	t, ok := i.byID[id]
	return t, ok
}

// HasTerm reports whether a term with the given identifier is in the
// active snapshot.
func (i *SearchIndex) HasTerm(id string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, ok := i.byID[id]
	return ok
}

// Search returns every term whose name or definition contains the query,
// case-insensitively, preserving snapshot order. A blank query matches all
// terms. Search never errors: a query with no matches returns an empty slice.
func (i *SearchIndex) Search(query string) []Term {
	lowered := strings.ToLower(strings.TrimSpace(query))
	if lowered == "" {
		return i.ListAll()
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]Term, 0)
	for _, t := range i.terms {
		if t.Matches(lowered) {
			out = append(out, t)
		}
	}
	return out
}

// Len returns the number of terms in the snapshot.
func (i *SearchIndex) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.terms)
}
