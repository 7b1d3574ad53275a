package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ppiankov/veracity/internal/cache"
	"github.com/ppiankov/veracity/internal/logging"
	"github.com/ppiankov/veracity/internal/metrics"
	"github.com/ppiankov/veracity/internal/model"
)

// SentenceCache holds per-document sentence vectors keyed by document,
// model version and sentence content. Concurrent misses on one key share a
// single computation.
type SentenceCache struct {
	store   cache.Cache
	ttl     time.Duration
	group   singleflight.Group
	log     logging.Logger
	metrics *metrics.Recorder
}

// NewSentenceCache wraps a byte cache
func NewSentenceCache(store cache.Cache, ttl time.Duration, log logging.Logger, rec *metrics.Recorder) *SentenceCache {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &SentenceCache{store: store, ttl: ttl, log: log, metrics: rec}
}

// ComputeFunc embeds the sentences of one document
type ComputeFunc func(ctx context.Context) ([][]float64, error)

// Get returns the cached vectors or runs compute once for all concurrent
// callers of the same key. A caller whose ctx ends stops waiting; the
// shared computation continues for the others.
func (c *SentenceCache) Get(ctx context.Context, docID, version string, sentences []model.Sentence, compute ComputeFunc) ([][]float64, error) {
	key := cache.Key("sentences", docID, version, contentHash(sentences))

	if vecs, ok := c.load(ctx, key, len(sentences)); ok {
		c.metrics.CacheLookup("hit")
		return vecs, nil
	}

	ch := c.group.DoChan(key, func() (interface{}, error) {
		flightCtx := context.WithoutCancel(ctx)

		// A previous flight may have filled the cache after our first check
		if vecs, ok := c.load(flightCtx, key, len(sentences)); ok {
			return vecs, nil
		}

		c.metrics.CacheLookup("miss")
		vecs, err := compute(flightCtx)
		if err != nil {
			return nil, err
		}
		c.save(flightCtx, key, vecs)
		return vecs, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.metrics.CacheLookup("shared")
		}
		return res.Val.([][]float64), nil
	}
}

func (c *SentenceCache) load(ctx context.Context, key string, n int) ([][]float64, bool) {
	data, found := c.store.Get(ctx, key)
	if !found {
		return nil, false
	}
	var vecs [][]float64
	if err := json.Unmarshal(data, &vecs); err != nil || len(vecs) != n {
		c.log.Warn("discarding corrupt embedding cache entry", logging.String("key", key))
		_ = c.store.Delete(ctx, key)
		return nil, false
	}
	return vecs, true
}

func (c *SentenceCache) save(ctx context.Context, key string, vecs [][]float64) {
	data, err := json.Marshal(vecs)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.log.Warn("embedding cache write failed", logging.String("key", key), logging.Err(err))
	}
}

// contentHash ties cache entries to the exact segmentation they were built from
func contentHash(sentences []model.Sentence) string {
	h := sha256.New()
	for _, s := range sentences {
		_, _ = h.Write([]byte(s.Text))
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
