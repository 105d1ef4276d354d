package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheTTL = 10 * time.Minute

// CachedRetriever memoizes retrieval results in redis. SOP content changes
// rarely, so a short TTL keeps repeated feedback/scenario lookups cheap.
// Cache failures fall through to the inner retriever silently.
type CachedRetriever struct {
	inner Retriever
	rdb   *redis.Client
}

var _ Retriever = &CachedRetriever{}

func NewCachedRetriever(inner Retriever, rdb *redis.Client) *CachedRetriever {
	return &CachedRetriever{inner: inner, rdb: rdb}
}

func (c *CachedRetriever) Retrieve(ctx context.Context, query string, filter Filter) ([]Reference, error) {
	key := cacheKey(query, filter)

	if c.rdb != nil {
		if raw, err := c.rdb.Get(ctx, key).Result(); err == nil {
			var refs []Reference
			if err := json.Unmarshal([]byte(raw), &refs); err == nil {
				return refs, nil
			}
		}
	}

	refs, err := c.inner.Retrieve(ctx, query, filter)
	if err != nil {
		return nil, err
	}

	if c.rdb != nil {
		if data, err := json.Marshal(refs); err == nil {
			c.rdb.Set(ctx, key, data, cacheTTL)
		}
	}
	return refs, nil
}

func cacheKey(query string, filter Filter) string {
	sum := sha256.Sum256([]byte(filter.Category + "|" + query))
	return "retrieval:" + hex.EncodeToString(sum[:16])
}
