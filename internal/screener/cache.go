package screener

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTTL bounds how long a successful store fetch stays fresh.
const DefaultTTL = 5 * time.Minute

// Cache is the screener configuration cache. Construct one with NewCache and
// hand the pointer to every consumer; there is no package-level instance.
//
// Reads inside the TTL never touch the store. When a refresh fails the cache
// degrades in order: the last set that loaded successfully, then the
// built-in defaults. A failed refresh never clobbers previously cached
// state.
type Cache struct {
	store  ConfigStore
	clock  Clock
	logger *zap.Logger
	ttl    time.Duration

	mu        sync.Mutex
	entries   map[string]Descriptor
	fetchedAt time.Time
	lastGood  map[string]Descriptor
}

// NewCache builds a Cache around store. Non-positive ttl falls back to
// DefaultTTL; a nil logger is replaced with a nop.
func NewCache(store ConfigStore, clock Clock, ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{store: store, clock: clock, logger: logger, ttl: ttl}
}

// FetchActive returns the active descriptor set, keyed by canonical screener
// key. Inside the TTL (and not forced) the cached entries are returned
// without a store round trip. Entry maps are treated as immutable once
// built; callers must not modify the returned map.
func (c *Cache) FetchActive(ctx context.Context, forceRefresh bool) map[string]Descriptor {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if !forceRefresh && !c.fetchedAt.IsZero() && now.Sub(c.fetchedAt) < c.ttl {
		return c.entries
	}

	rows, err := c.store.FetchEnabled(ctx)
	if err != nil {
		c.logger.Warn("config store query failed, using fallback", zap.Error(err))
		return c.fallbackLocked()
	}
	entries := c.buildEntriesLocked(rows)
	if len(entries) == 0 {
		c.logger.Warn("config store returned no usable rows, using fallback",
			zap.Int("raw_rows", len(rows)))
		return c.fallbackLocked()
	}
	c.entries = entries
	c.fetchedAt = now
	c.lastGood = cloneDescriptors(entries)
	c.logger.Info("screener configuration refreshed",
		zap.Int("count", len(entries)),
		zap.Strings("keys", DescriptorKeys(entries)))
	return c.entries
}

// Refresh forces a store round trip regardless of TTL.
func (c *Cache) Refresh(ctx context.Context) map[string]Descriptor {
	return c.FetchActive(ctx, true)
}

// GetByKey resolves a caller-supplied key against the active view: exact key
// first, then the normalized form, then a case-insensitive scan over
// original store names. The active view is whatever FetchActive would serve
// right now, so built-in defaults resolve even when the store has never
// answered.
func (c *Cache) GetByKey(query string) (Descriptor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.activeLocked()
	if d, ok := entries[query]; ok {
		return d, true
	}
	if d, ok := entries[Normalize(query)]; ok {
		return d, true
	}
	for _, d := range entries {
		if strings.EqualFold(d.OriginalName, query) {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Status reports cache freshness. Before the first successful refresh it
// reports not-cached with zero counters.
func (c *Cache) Status() CacheStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fetchedAt.IsZero() {
		return CacheStatus{}
	}
	age := c.clock.Now().Sub(c.fetchedAt)
	expires := c.ttl - age
	if expires < 0 {
		expires = 0
	}
	fetched := c.fetchedAt
	return CacheStatus{
		Cached:           true,
		AgeSeconds:       round2(age.Seconds()),
		ExpiresInSeconds: round2(expires.Seconds()),
		EntryCount:       len(c.entries),
		FetchedAt:        &fetched,
	}
}

// buildEntriesLocked converts raw store rows into descriptors, skipping rows
// missing a strategy or URL and keeping the first row when two normalize to
// the same key.
func (c *Cache) buildEntriesLocked(rows []ControlRow) map[string]Descriptor {
	entries := make(map[string]Descriptor, len(rows))
	for _, row := range rows {
		strategy := strings.TrimSpace(row.Strategy)
		url := strings.TrimSpace(row.URL)
		if strategy == "" || url == "" {
			c.logger.Warn("skipping malformed control row",
				zap.String("strategy", row.Strategy),
				zap.String("url", row.URL))
			continue
		}
		key := Normalize(strategy)
		if prev, ok := entries[key]; ok {
			c.logger.Warn("duplicate screener key, keeping first row",
				zap.String("key", key),
				zap.String("kept", prev.OriginalName),
				zap.String("dropped", strategy))
			continue
		}
		entries[key] = Descriptor{
			Key:            key,
			OriginalName:   strategy,
			URL:            url,
			Description:    row.Description,
			HoldingPeriod:  defaultString(row.HoldingPeriod, "unknown"),
			TradeType:      defaultString(row.TradeType, "LONG"),
			InstrumentType: defaultString(row.InstrumentType, "EQ"),
			MaxPositions:   row.MaxPositions,
			Enabled:        true,
		}
	}
	return entries
}

// fallbackLocked is the degraded path: the last good set if any refresh ever
// succeeded, else the built-in defaults.
func (c *Cache) fallbackLocked() map[string]Descriptor {
	if c.lastGood != nil {
		return c.lastGood
	}
	return builtinDefaults()
}

// activeLocked is the view lookups resolve against: current entries when a
// refresh has succeeded, else the fallback chain.
func (c *Cache) activeLocked() map[string]Descriptor {
	if len(c.entries) > 0 {
		return c.entries
	}
	return c.fallbackLocked()
}
