package glossary

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	pkgredis "github.com/irsescapeplan/platform/pkg/redis"
)

const searchKeyPrefix = "glossary:search:"

// SearchCache caches serialized search results in Redis, keyed by a hash of
// the normalized query. Concurrent lookups for the same query are collapsed
// through singleflight so a cache miss computes the result once.
type SearchCache struct {
	client *pkgredis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

func NewSearchCache(client *pkgredis.Client, ttl time.Duration, logger *slog.Logger) *SearchCache {
	return &SearchCache{
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "search_cache"),
	}
}

// GetOrCompute returns cached results for the query, or runs compute, caches
// its output, and returns it. The bool reports whether the result came from
// cache. Cache failures degrade to computing directly; they are never
// surfaced to the caller.
func (c *SearchCache) GetOrCompute(ctx context.Context, query string, compute func() ([]Term, error)) ([]Term, bool, error) {
	key := c.buildKey(query)

	if data, err := c.client.Get(ctx, key); err == nil {
		var terms []Term
		if err := json.Unmarshal([]byte(data), &terms); err == nil {
			c.hits.Add(1)
			return terms, true, nil
		}
		c.logger.Warn("discarding corrupt cache entry", "key", key)
		_ = c.client.Del(ctx, key)
	} else if !pkgredis.IsNilError(err) {
		c.logger.Warn("cache read failed", "error", err)
	}

	c.misses.Add(1)
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		terms, err := compute()
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(terms); err == nil {
			if err := c.client.Set(ctx, key, data, c.ttl); err != nil {
				c.logger.Warn("cache write failed", "error", err)
			}
		}
		return terms, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]Term), false, nil
}

// Invalidate removes every cached search result. Called after a reseed so
// stale result sets cannot outlive the glossary they were computed from.
func (c *SearchCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.client.FlushByPattern(ctx, searchKeyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating search cache: %w", err)
	}
	c.logger.Info("search cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

// Stats returns cumulative hit and miss counts.
func (c *SearchCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *SearchCache) buildKey(query string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return searchKeyPrefix + hex.EncodeToString(sum[:16])
}
