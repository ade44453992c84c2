package fleettrack

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"fleettrack/animate"
	"fleettrack/cluster"
	"fleettrack/config"
	"fleettrack/directions"
	"fleettrack/follow"
	"fleettrack/geo"
	"fleettrack/ingest"
	"fleettrack/metrics"
	"fleettrack/model"
)

// RouteLoadFunc is invoked whenever a routing result is applied for a
// trip, with the origin/destination the result was fetched for.
type RouteLoadFunc func(tripID string, result *directions.Result, origin, destination string)

// DriverMarker is one entry of the presentation snapshot.
type DriverMarker struct {
	animate.EntityPosition
	Name       string             `json:"name"`
	Status     model.DriverStatus `json:"status"`
	TripID     string             `json:"trip_id,omitempty"`
	LastUpdate time.Time          `json:"last_update"`
}

// Tracker wires the animator, route followers, directions cache,
// cluster index and ingestion into one engine. Event application and
// ticks are serialized behind one mutex; the individual components keep
// their own locks so presentation reads never block on a slow event.
type Tracker struct {
	cfg       config.AppConfig
	animator  *animate.Animator
	followers *follow.Registry
	cache     *directions.Cache
	index     *cluster.Index
	source    ingest.TripSource

	onRouteLoad RouteLoadFunc

	mu        sync.Mutex
	drivers   map[string]*model.Driver
	trips     map[string]model.Trip
	inFlight  map[string]bool
	lastEvent time.Time

	clusterMu    sync.Mutex
	clusterDirty bool
	memoValid    bool
	lastBounds   cluster.Bounds
	lastZoom     int
	lastItems    []cluster.Item
}

// NewTracker builds an engine from configuration, a directions provider
// and a trip source.
func NewTracker(cfg config.AppConfig, client directions.Client, source ingest.TripSource) *Tracker {
	t := &Tracker{
		cfg:      cfg,
		animator: animate.NewAnimator(cfg.Tracking.InterpolationFactor, cfg.Tracking.StopThresholdMeters),
		followers: follow.NewRegistry(follow.Config{
			CorridorMeters:     cfg.Tracking.CorridorMeters,
			Dwell:              time.Duration(cfg.Tracking.DwellSeconds) * time.Second,
			RerouteMinInterval: time.Duration(cfg.Tracking.RerouteMinIntervalSeconds) * time.Second,
		}),
		cache:    directions.NewCache(client),
		index:    cluster.NewIndex(cfg.Tracking.MaxZoom),
		source:   source,
		drivers:  map[string]*model.Driver{},
		trips:    map[string]model.Trip{},
		inFlight: map[string]bool{},
	}
	return t
}

// SetRouteLoadCallback registers the presentation hook fired when a
// routing result is applied. Must be set before Run.
func (t *Tracker) SetRouteLoadCallback(fn RouteLoadFunc) { t.onRouteLoad = fn }

// Run drives the engine: an initial load, the fixed-rate animation
// tick, and the event stream. Returns when ctx is cancelled.
func (t *Tracker) Run(ctx context.Context, events <-chan model.Event) {
	if err := t.RefreshDrivers(ctx); err != nil {
		log.Printf("initial driver load: %v", err)
	}
	if err := t.RefreshTrips(ctx); err != nil {
		log.Printf("initial trip load: %v", err)
	}

	tick := time.Duration(t.cfg.Tracking.TickIntervalMS) * time.Millisecond
	if tick <= 0 {
		tick = 250 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	// Observation-time dispatch covers the common case; the sweep picks
	// up followers whose position stream went quiet mid-deviation.
	reroutes := time.NewTicker(5 * time.Second)
	defer reroutes.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.animator.Tick()
		case <-reroutes.C:
			t.EvaluateReroutes(ctx)
		case ev, ok := <-events:
			if !ok {
				return
			}
			t.Apply(ctx, ev)
		}
	}
}

// Apply feeds one ingestion event into the engine.
func (t *Tracker) Apply(ctx context.Context, ev model.Event) {
	switch ev.Type {
	case model.EventPosition:
		if ev.Position != nil {
			t.applyPosition(ctx, *ev.Position)
		}
	case model.EventTrip:
		if ev.Trip != nil {
			metrics.TripRefreshes.Inc()
			if err := t.RefreshTrips(ctx); err != nil {
				log.Printf("trip refresh after %s event: %v", ev.Trip.Change, err)
			}
		}
	}
}

func (t *Tracker) applyPosition(ctx context.Context, pe model.PositionEvent) {
	metrics.PositionsIngested.Inc()

	t.mu.Lock()
	t.lastEvent = time.Now()
	d, known := t.drivers[pe.DriverID]
	if !known {
		d = &model.Driver{ID: pe.DriverID, Name: pe.DriverID}
		t.drivers[pe.DriverID] = d
	}
	// Metadata updates are applied directly; only the rendered position
	// is interpolated.
	d.Active = pe.Active
	if !pe.RecordedAt.IsZero() {
		d.LastUpdate = pe.RecordedAt
	} else {
		d.LastUpdate = time.Now()
	}
	if pe.Position.Valid() {
		d.Position = pe.Position
	}
	tripID := d.ActiveTripID
	t.mu.Unlock()

	if !pe.Position.Valid() {
		return
	}

	// Noise gate: deltas below the threshold would amplify GPS jitter
	// through interpolation, so they never become animation targets. The
	// gate holds back only the rendering side; the follower still sees
	// every report, or a stationary off-route driver would never finish
	// the dwell window.
	suppressed := false
	if target, ok := t.animator.Target(pe.DriverID); ok {
		noiseDeg := geo.MetersToDegrees(t.cfg.Tracking.NoiseThresholdMeters, pe.Position.Lat)
		if geo.SquaredDelta(target, pe.Position) < noiseDeg*noiseDeg {
			metrics.PositionsSuppressed.Inc()
			suppressed = true
		}
	}
	if !suppressed {
		t.animator.SetTarget(pe.DriverID, pe.Position)
		t.markClustersDirty()
	}

	if tripID == "" {
		return
	}
	t.evaluateFollower(ctx, pe.DriverID, tripID, pe.Position)
}

// evaluateFollower runs one route-following cycle for a driver on an
// active trip.
func (t *Tracker) evaluateFollower(ctx context.Context, driverID, tripID string, pos geo.Coordinate) {
	t.mu.Lock()
	trip, ok := t.trips[tripID]
	t.mu.Unlock()
	if !ok || !trip.Followable() {
		return
	}

	f := t.followers.Ensure(driverID, tripID)
	if !f.HasRoute() {
		if entry := t.cache.Current(tripID); entry != nil && len(entry.Result.Overview) >= 2 {
			f.SetRoute(entry.Result.Overview, entry.Result.TotalKM())
		} else {
			t.requestRoute(ctx, driverID, directions.Key{
				TripID:      tripID,
				Origin:      trip.PickupLocation,
				Destination: trip.DropoffLocation,
			}, false)
		}
	}

	f.Observe(pos, time.Now())

	if f.RerouteRequested() {
		t.requestRoute(ctx, driverID, directions.Key{
			TripID:      tripID,
			Origin:      formatCoord(pos),
			Destination: trip.DropoffLocation,
		}, true)
	}
}

// requestRoute fetches directions asynchronously. Results are re-validated
// before they are applied: the driver may have been deselected, the trip
// may have ended, or a newer refresh may have superseded the key while
// the fetch was in flight. Stale results are discarded, not applied.
func (t *Tracker) requestRoute(ctx context.Context, driverID string, key directions.Key, force bool) {
	t.mu.Lock()
	if t.inFlight[driverID] {
		t.mu.Unlock()
		return
	}
	t.inFlight[driverID] = true
	t.mu.Unlock()

	go func() {
		timeout := time.Duration(t.cfg.Directions.TimeoutMS) * time.Millisecond
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		fetchCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		var (
			entry *directions.Entry
			err   error
		)
		if force {
			entry, err = t.cache.ForceRefresh(fetchCtx, key)
		} else {
			entry, err = t.cache.Get(fetchCtx, key)
		}
		// The guard dedupes the fetch itself; release it before applying
		// so a follow-up dispatch is never dropped against the tail of a
		// finished one.
		t.mu.Lock()
		delete(t.inFlight, driverID)
		t.mu.Unlock()
		if err != nil {
			log.Printf("directions for trip %s: %v", key.TripID, err)
			return
		}

		if t.followers.TripID(driverID) != key.TripID || !t.cache.IsCurrent(key) {
			metrics.StaleResultsDiscarded.Inc()
			return
		}
		t.followers.SetRoute(driverID, entry.Result.Overview, entry.Result.TotalKM())
		if force {
			// The fetch used the driver's current position as origin;
			// the request is served, so acknowledge it.
			t.followers.Acknowledge(driverID)
		}
		if t.onRouteLoad != nil {
			t.onRouteLoad(key.TripID, entry.Result, key.Origin, key.Destination)
		}
	}()
}

// EvaluateReroutes issues routing fetches for every follower with a
// pending reroute request, using the driver's current position as the
// new origin. Suppressed or in-flight drivers are skipped.
func (t *Tracker) EvaluateReroutes(ctx context.Context) {
	t.mu.Lock()
	ids := make([]string, 0, len(t.drivers))
	for id := range t.drivers {
		ids = append(ids, id)
	}
	t.mu.Unlock()

	for _, id := range ids {
		if !t.followers.RerouteRequested(id) {
			continue
		}
		tripID := t.followers.TripID(id)
		if tripID == "" {
			continue
		}
		t.mu.Lock()
		trip, ok := t.trips[tripID]
		t.mu.Unlock()
		if !ok {
			continue
		}
		pos, ok := t.animator.Target(id)
		if !ok {
			continue
		}
		t.requestRoute(ctx, id, directions.Key{
			TripID:      tripID,
			Origin:      formatCoord(pos),
			Destination: trip.DropoffLocation,
		}, true)
	}
}

// RefreshDrivers reloads the driver set from the data service.
func (t *Tracker) RefreshDrivers(ctx context.Context) error {
	if t.source == nil {
		return nil
	}
	drivers, err := t.source.FetchDrivers(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	seen := map[string]bool{}
	for _, d := range drivers {
		seen[d.ID] = true
		existing, ok := t.drivers[d.ID]
		if !ok {
			dd := d
			t.drivers[d.ID] = &dd
			if d.Position.Valid() {
				t.animator.SetTarget(d.ID, d.Position)
			}
			continue
		}
		existing.Name = d.Name
		existing.Active = d.Active
		if d.Position.Valid() {
			existing.Position = d.Position
		}
		if !d.LastUpdate.IsZero() {
			existing.LastUpdate = d.LastUpdate
		}
	}
	// Drivers that left the organization scope leave the tracked set.
	for id := range t.drivers {
		if !seen[id] {
			delete(t.drivers, id)
			t.animator.Remove(id)
			t.followers.Remove(id)
		}
	}
	t.mu.Unlock()
	t.markClustersDirty()
	return nil
}

// RefreshTrips reloads the trip list wholesale and reconciles follower
// state against it. Coarse on purpose: any trip event invalidates the
// whole list.
func (t *Tracker) RefreshTrips(ctx context.Context) error {
	if t.source == nil {
		return nil
	}
	trips, err := t.source.FetchTrips(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.trips = map[string]model.Trip{}
	activeByDriver := map[string]string{}
	for _, trip := range trips {
		t.trips[trip.ID] = trip
		if trip.Followable() && trip.DriverID != "" {
			activeByDriver[trip.DriverID] = trip.ID
		}
	}
	endedTrips := map[string]bool{}
	for id, d := range t.drivers {
		tripID, active := activeByDriver[id]
		if active {
			d.ActiveTripID = tripID
			continue
		}
		if d.ActiveTripID != "" {
			endedTrips[d.ActiveTripID] = true
			d.ActiveTripID = ""
		}
	}
	drivers := make([]string, 0, len(t.drivers))
	for id := range t.drivers {
		drivers = append(drivers, id)
	}
	t.mu.Unlock()

	// Follower state is scoped to the active trip: drop it when the
	// trip ended, along with the trip's cached directions.
	for _, id := range drivers {
		tripID := t.followers.TripID(id)
		if tripID == "" {
			continue
		}
		t.mu.Lock()
		trip, ok := t.trips[tripID]
		t.mu.Unlock()
		if !ok || !trip.Followable() {
			t.followers.Remove(id)
		}
	}
	for tripID := range endedTrips {
		t.cache.Drop(tripID)
	}
	return nil
}

// Positions returns the presentation snapshot: animated positions
// merged with driver metadata and derived status.
func (t *Tracker) Positions() []DriverMarker {
	snap := t.animator.Snapshot()
	staleAfter := time.Duration(t.cfg.Tracking.StaleAfterSeconds) * time.Second
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]DriverMarker, 0, len(snap))
	for _, e := range snap {
		d, ok := t.drivers[e.ID]
		if !ok {
			continue
		}
		out = append(out, DriverMarker{
			EntityPosition: e,
			Name:           d.Name,
			Status:         d.Status(now, staleAfter),
			TripID:         d.ActiveTripID,
			LastUpdate:     d.LastUpdate,
		})
	}
	return out
}

// DriverRouteState returns a copy of the driver's route-following
// state, or nil when the driver has no active trip.
func (t *Tracker) DriverRouteState(driverID string) *follow.State {
	return t.followers.State(driverID)
}

// ClearRerouteFlag acknowledges a reroute request for the driver.
// Callers that issue their own routing fetch use this instead of
// waiting for the engine's reroute cycle.
func (t *Tracker) ClearRerouteFlag(driverID string) {
	t.followers.Acknowledge(driverID)
}

// RoutePolyline returns the trip's current planned path, or nil when
// directions have not resolved.
func (t *Tracker) RoutePolyline(tripID string) []geo.Coordinate {
	return t.cache.RoutePolyline(tripID)
}

// Clusters partitions the current markers for the viewport. The result
// is memoized per (bounds, zoom): position ticks do not trigger
// recomputation, only viewport changes or entity set changes do.
func (t *Tracker) Clusters(bounds cluster.Bounds, zoom int) []cluster.Item {
	t.clusterMu.Lock()
	defer t.clusterMu.Unlock()

	if t.clusterDirty {
		snap := t.animator.Snapshot()
		points := make([]cluster.Point, 0, len(snap))
		for _, e := range snap {
			// Index the reported position, not the animation frame, so
			// cluster membership does not depend on tick phase.
			points = append(points, cluster.Point{ID: e.ID, Position: e.Target})
		}
		t.index.Rebuild(points)
		t.clusterDirty = false
		t.memoValid = false
	}
	if t.memoValid && t.lastBounds == bounds && t.lastZoom == zoom {
		return t.lastItems
	}
	items := t.index.Clusters(bounds, zoom)
	t.lastBounds = bounds
	t.lastZoom = zoom
	t.lastItems = items
	t.memoValid = true
	return items
}

// ExpansionZoom resolves the zoom at which a clicked cluster splits.
func (t *Tracker) ExpansionZoom(cellID string, zoom int) int {
	return t.index.ExpansionZoom(cellID, zoom)
}

// LastEventTime reports when the engine last applied a feed event.
func (t *Tracker) LastEventTime() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastEvent
}

// TrackedDrivers reports the number of drivers in the tracked set.
func (t *Tracker) TrackedDrivers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.drivers)
}

func (t *Tracker) markClustersDirty() {
	t.clusterMu.Lock()
	t.clusterDirty = true
	t.clusterMu.Unlock()
}

func formatCoord(c geo.Coordinate) string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}
