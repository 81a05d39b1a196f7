package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/devblac/abiscout/internal/abidoc"
	"github.com/devblac/abiscout/internal/metrics"
)

// Fetcher is the upstream ABI source the cache sits in front of.
type Fetcher interface {
	FetchABI(ctx context.Context, network string, address common.Address) (abidoc.Document, error)
}

// CachedSource serves ABI fetches from the SQLite cache when a fresh entry
// exists, falling back to the upstream fetcher and recording its result.
// Cache write failures never fail a fetch.
type CachedSource struct {
	inner   Fetcher
	store   *Store
	ttl     time.Duration
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewCachedSource wraps fetcher with a TTL-bounded cache.
func NewCachedSource(fetcher Fetcher, store *Store, ttl time.Duration, log *slog.Logger, m *metrics.Metrics) *CachedSource {
	return &CachedSource{inner: fetcher, store: store, ttl: ttl, log: log, metrics: m}
}

// FetchABI implements the ABI source contract with read-through caching.
func (c *CachedSource) FetchABI(ctx context.Context, network string, address common.Address) (abidoc.Document, error) {
	key := address.Hex()

	if raw, fetchedAt, ok, err := c.store.GetABI(ctx, network, key); err != nil {
		c.log.Warn("abi cache read failed", "network", network, "address", key, "error", err)
	} else if ok && time.Since(fetchedAt) < c.ttl {
		doc, perr := abidoc.Parse([]byte(raw))
		if perr == nil {
			c.metrics.CacheHits()
			return doc, nil
		}
		c.log.Warn("abi cache entry corrupt, refetching", "network", network, "address", key, "error", perr)
	}

	doc, err := c.inner.FetchABI(ctx, network, address)
	if err != nil {
		return nil, err
	}
	c.metrics.ABIFetches()

	if raw, err := doc.JSON(); err == nil {
		if err := c.store.PutABI(ctx, network, key, string(raw)); err != nil {
			c.log.Warn("abi cache write failed", "network", network, "address", key, "error", err)
		}
	}
	return doc, nil
}
