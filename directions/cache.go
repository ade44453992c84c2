package directions

import (
	"context"
	"sync"
	"time"

	"fleettrack/geo"
	"fleettrack/metrics"
)

// Key identifies one cached route. A struct key keeps trip ids and
// coordinate strings from colliding the way joined strings can.
type Key struct {
	TripID      string
	Origin      string
	Destination string
}

// Entry holds one immutable routing result.
type Entry struct {
	Key       Key
	Result    *Result
	CreatedAt time.Time
}

// Cache is a per-session, append-only directions cache. It is unbounded
// on purpose: trips are short-lived and the cache is discarded with the
// session.
type Cache struct {
	client Client

	mu      sync.RWMutex
	entries map[Key]*Entry
	// newest entry per trip; a forced refresh supersedes older entries
	// without removing them.
	byTrip map[string]Key
}

// NewCache wraps a provider client with the session cache.
func NewCache(client Client) *Cache {
	return &Cache{
		client:  client,
		entries: map[Key]*Entry{},
		byTrip:  map[string]Key{},
	}
}

// Get returns the cached entry for key, fetching from the provider on a
// miss. Failures leave the cache untouched so a later Get retries.
// Concurrent misses for the same key may both fetch; the payloads are
// identical and the last write wins.
func (c *Cache) Get(ctx context.Context, key Key) (*Entry, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		metrics.DirectionsCacheHits.Inc()
		return e, nil
	}
	metrics.DirectionsCacheMisses.Inc()
	return c.fetch(ctx, key)
}

// ForceRefresh bypasses the cache and fetches under key, typically with
// the driver's current position as the new origin. The new entry
// becomes the trip's current route.
func (c *Cache) ForceRefresh(ctx context.Context, key Key) (*Entry, error) {
	return c.fetch(ctx, key)
}

func (c *Cache) fetch(ctx context.Context, key Key) (*Entry, error) {
	metrics.DirectionsFetches.Inc()
	start := time.Now()
	res, err := c.client.Route(ctx, Request{Origin: key.Origin, Destination: key.Destination})
	metrics.ObserveDirectionsLatency(start)
	if err != nil {
		return nil, err
	}
	e := &Entry{Key: key, Result: res, CreatedAt: time.Now()}
	c.mu.Lock()
	c.entries[key] = e
	c.byTrip[key.TripID] = key
	c.mu.Unlock()
	return e, nil
}

// Current returns the newest entry for a trip, or nil when no route has
// been resolved yet.
func (c *Cache) Current(tripID string) *Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok := c.byTrip[tripID]
	if !ok {
		return nil
	}
	return c.entries[key]
}

// IsCurrent reports whether key is still the trip's newest entry. Used
// by callers to discard routing results that resolved after a forced
// refresh superseded them.
func (c *Cache) IsCurrent(key Key) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byTrip[key.TripID] == key
}

// RoutePolyline returns the trip's current overview path, or nil.
func (c *Cache) RoutePolyline(tripID string) []geo.Coordinate {
	e := c.Current(tripID)
	if e == nil || e.Result == nil {
		return nil
	}
	return e.Result.Overview
}

// Drop forgets everything cached for a trip. Called when the trip ends.
func (c *Cache) Drop(tripID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.TripID == tripID {
			delete(c.entries, k)
		}
	}
	delete(c.byTrip, tripID)
}

// Len reports the number of cached entries, for diagnostics.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
