/**
 * Result Cache - memoized conversion results
 *
 * L1 is an in-process LRU with TTL. L2 is an optional shared store (Redis).
 * At most one computation runs per fingerprint; concurrent callers share
 * its result. Store failures are logged and bypassed.
 */

package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/adverant/nexus/pdfocr-worker/internal/errors"
	"github.com/adverant/nexus/pdfocr-worker/internal/logging"
	"github.com/adverant/nexus/pdfocr-worker/internal/model"
)

// ErrCacheMiss is returned by a Store when the key is absent
var ErrCacheMiss = stderrors.New("cache miss")

// Store is a shared byte-level cache tier
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Name() string
}

// Stats reports cache activity since creation
type Stats struct {
	Hits         int64 `json:"hits"`
	StoreHits    int64 `json:"store_hits"`
	Misses       int64 `json:"misses"`
	Computations int64 `json:"computations"`
	Errors       int64 `json:"errors"`
	Entries      int   `json:"entries"`
}

// ResultCache memoizes values by fingerprint
type ResultCache[V any] struct {
	lru         *expirable.LRU[string, V]
	group       singleflight.Group
	store       Store
	storeTTL    time.Duration
	shouldStore func(V) bool
	logger      *logging.Logger

	hits, storeHits, misses, computations, errs atomic.Int64
}

// Config holds cache configuration
type Config[V any] struct {
	Capacity int
	// TTL bounds entry age in L1; 0 keeps entries until evicted by capacity
	TTL time.Duration
	// Store is optional
	Store    Store
	StoreTTL time.Duration
	// ShouldStore filters which computed values are cached; nil caches everything
	ShouldStore func(V) bool
}

// New creates a new result cache
func New[V any](cfg Config[V]) (*ResultCache[V], error) {
	if cfg.Capacity < 1 {
		return nil, fmt.Errorf("Capacity must be a positive integer, got %d", cfg.Capacity)
	}
	if cfg.TTL < 0 || cfg.StoreTTL < 0 {
		return nil, fmt.Errorf("TTL must not be negative")
	}

	should := cfg.ShouldStore
	if should == nil {
		should = func(V) bool { return true }
	}

	return &ResultCache[V]{
		lru:         expirable.NewLRU[string, V](cfg.Capacity, nil, cfg.TTL),
		store:       cfg.Store,
		storeTTL:    cfg.StoreTTL,
		shouldStore: should,
		logger:      logging.NewLogger("ResultCache"),
	}, nil
}

// GetOrCompute returns the cached value for key or computes it once.
// The computation runs detached from the caller's cancellation so that one
// caller giving up does not fail the others waiting on the same key.
func (c *ResultCache[V]) GetOrCompute(ctx context.Context, key string, compute func(context.Context) (V, error)) (V, error) {
	if v, ok := c.lru.Get(key); ok {
		c.hits.Add(1)
		return v, nil
	}

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		if v, ok := c.lru.Get(key); ok {
			c.hits.Add(1)
			return v, nil
		}
		if v, ok := c.loadFromStore(detached, key); ok {
			c.storeHits.Add(1)
			c.lru.Add(key, v)
			return v, nil
		}

		c.misses.Add(1)
		c.computations.Add(1)
		v, err := compute(detached)
		if err != nil {
			return v, err
		}

		if c.shouldStore(v) {
			c.lru.Add(key, v)
			c.saveToStore(detached, key, v)
		}
		return v, nil
	})

	select {
	case r := <-ch:
		v, _ := r.Val.(V)
		return v, r.Err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Stats returns a snapshot of cache counters
func (c *ResultCache[V]) Stats() Stats {
	return Stats{
		Hits:         c.hits.Load(),
		StoreHits:    c.storeHits.Load(),
		Misses:       c.misses.Load(),
		Computations: c.computations.Load(),
		Errors:       c.errs.Load(),
		Entries:      c.lru.Len(),
	}
}

// Purge drops every L1 entry
func (c *ResultCache[V]) Purge() {
	c.lru.Purge()
}

func (c *ResultCache[V]) loadFromStore(ctx context.Context, key string) (V, bool) {
	var v V
	if c.store == nil {
		return v, false
	}

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !stderrors.Is(err, ErrCacheMiss) {
			c.report(errors.NewCacheError("get", err), key)
		}
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		c.report(errors.NewCacheError("decode", err), key)
		var zero V
		return zero, false
	}
	return v, true
}

func (c *ResultCache[V]) saveToStore(ctx context.Context, key string, v V) {
	if c.store == nil {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		c.report(errors.NewCacheError("encode", err), key)
		return
	}
	if err := c.store.Set(ctx, key, data, c.storeTTL); err != nil {
		c.report(errors.NewCacheError("set", err), key)
	}
}

func (c *ResultCache[V]) report(err *errors.ProcessingError, key string) {
	c.errs.Add(1)
	c.logger.Warn("Cache unavailable, continuing without it",
		"error", err,
		"store", c.store.Name(),
		"key", shortKey(key))
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}

// Fingerprint derives the cache key for one conversion request. pages must be
// the resolved selection so that "all pages" and the explicit full list agree.
func Fingerprint(documentHash string, pages []int, language string, threshold int, mode model.Mode, dpi int) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = strconv.Itoa(p)
	}

	h := sha256.New()
	fmt.Fprintf(h, "doc=%s\n", documentHash)
	fmt.Fprintf(h, "pages=%s\n", strings.Join(parts, ","))
	fmt.Fprintf(h, "lang=%s\n", language)
	fmt.Fprintf(h, "threshold=%d\n", threshold)
	fmt.Fprintf(h, "mode=%s\n", mode)
	fmt.Fprintf(h, "dpi=%d\n", dpi)
	return hex.EncodeToString(h.Sum(nil))
}
