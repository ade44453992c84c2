package directions

import (
	"context"
	"errors"
	"sync"
	"testing"

	"fleettrack/geo"
)

// fakeClient counts fetches and serves scripted results.
type fakeClient struct {
	mu      sync.Mutex
	calls   int
	results map[string]*Result
	err     error
}

func (f *fakeClient) Route(_ context.Context, req Request) (*Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls += 1
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.results[req.Origin+"->"+req.Destination]; ok {
		return r, nil
	}
	return &Result{
		Overview:       []geo.Coordinate{{Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}},
		DistanceMeters: 1000,
	}, nil
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestGetFetchesOnceForIdenticalKey(t *testing.T) {
	fc := &fakeClient{}
	cache := NewCache(fc)
	key := Key{TripID: "trip-1", Origin: "42.1,23.1", Destination: "42.2,23.2"}

	first, err := cache.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("first Get: %v", err)
	}
	second, err := cache.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if fc.callCount() != 1 {
		t.Errorf("expected exactly one provider fetch, got %d", fc.callCount())
	}
	if first != second {
		t.Errorf("expected the cached entry back on the second Get")
	}
}

func TestForceRefreshAlwaysFetches(t *testing.T) {
	fc := &fakeClient{}
	cache := NewCache(fc)
	orig := Key{TripID: "trip-1", Origin: "42.1,23.1", Destination: "42.2,23.2"}
	rerouted := Key{TripID: "trip-1", Origin: "42.15,23.17", Destination: "42.2,23.2"}

	if _, err := cache.Get(context.Background(), orig); err != nil {
		t.Fatal(err)
	}
	e, err := cache.ForceRefresh(context.Background(), rerouted)
	if err != nil {
		t.Fatalf("ForceRefresh: %v", err)
	}
	if fc.callCount() != 2 {
		t.Errorf("expected a fresh fetch on ForceRefresh, got %d calls", fc.callCount())
	}
	if e.Key != rerouted {
		t.Errorf("refreshed entry carries wrong key: %+v", e.Key)
	}

	// The new origin supersedes, never mutates, the prior entry.
	if cur := cache.Current("trip-1"); cur == nil || cur.Key != rerouted {
		t.Errorf("current entry should be the rerouted one")
	}
	if !cache.IsCurrent(rerouted) {
		t.Errorf("rerouted key should be current")
	}
	if cache.IsCurrent(orig) {
		t.Errorf("original key should be superseded")
	}
	old, err := cache.Get(context.Background(), orig)
	if err != nil {
		t.Fatal(err)
	}
	if old.Key != orig {
		t.Errorf("superseded entry should still be readable under its key")
	}
}

func TestFetchFailureWritesNothing(t *testing.T) {
	fc := &fakeClient{err: errors.New("provider down")}
	cache := NewCache(fc)
	key := Key{TripID: "trip-1", Origin: "a", Destination: "b"}

	if _, err := cache.Get(context.Background(), key); err == nil {
		t.Fatalf("expected error from failing provider")
	}
	if cache.Len() != 0 {
		t.Errorf("failure must not be cached")
	}
	if cache.Current("trip-1") != nil {
		t.Errorf("no current route should exist after a failed fetch")
	}

	// Recovery: the next Get retries and now succeeds.
	fc.err = nil
	if _, err := cache.Get(context.Background(), key); err != nil {
		t.Fatalf("retry after recovery: %v", err)
	}
	if fc.callCount() != 2 {
		t.Errorf("expected retry to hit the provider")
	}
}

func TestRoutePolylineAndDrop(t *testing.T) {
	fc := &fakeClient{}
	cache := NewCache(fc)
	key := Key{TripID: "trip-9", Origin: "a", Destination: "b"}

	if got := cache.RoutePolyline("trip-9"); got != nil {
		t.Errorf("unresolved trip should have nil polyline")
	}
	if _, err := cache.Get(context.Background(), key); err != nil {
		t.Fatal(err)
	}
	if got := cache.RoutePolyline("trip-9"); len(got) != 2 {
		t.Errorf("polyline length = %d, want 2", len(got))
	}

	cache.Drop("trip-9")
	if cache.RoutePolyline("trip-9") != nil || cache.Len() != 0 {
		t.Errorf("Drop should remove all trip entries")
	}
}
