package follow

import (
	"math"
	"sync"
	"time"

	"fleettrack/geo"
	"fleettrack/metrics"
)

// Config holds the deviation thresholds shared by all followers.
type Config struct {
	// CorridorMeters is the maximum perpendicular distance from the
	// polyline still considered on-route.
	CorridorMeters float64
	// Dwell is how long a deviation must persist before it is worth a
	// reroute. Filters out GPS noise excursions.
	Dwell time.Duration
	// RerouteMinInterval gates repeated reroute requests per driver.
	RerouteMinInterval time.Duration
}

// State is the externally visible route-following state for one driver.
type State struct {
	TripID               string             `json:"trip_id"`
	DistanceAlongRouteKM float64            `json:"distance_along_route_km"`
	TotalDistanceKM      float64            `json:"total_distance_km"`
	SegmentIndex         int                `json:"segment_index"`
	IsOffRoute           bool               `json:"is_off_route"`
	OffRouteSince        *time.Time         `json:"off_route_since,omitempty"`
	RerouteRequested     bool               `json:"reroute_requested"`
	DeviationTrail       []geo.Coordinate   `json:"deviation_trail,omitempty"`
	CompletedDeviations  [][]geo.Coordinate `json:"completed_deviations,omitempty"`
	ActualPath           []geo.Coordinate   `json:"actual_path,omitempty"`
}

// clone deep-copies the state so readers never alias live slices.
func (s *State) clone() *State {
	out := *s
	if s.OffRouteSince != nil {
		t := *s.OffRouteSince
		out.OffRouteSince = &t
	}
	out.DeviationTrail = append([]geo.Coordinate(nil), s.DeviationTrail...)
	out.ActualPath = append([]geo.Coordinate(nil), s.ActualPath...)
	out.CompletedDeviations = make([][]geo.Coordinate, len(s.CompletedDeviations))
	for i, trail := range s.CompletedDeviations {
		out.CompletedDeviations[i] = append([]geo.Coordinate(nil), trail...)
	}
	return &out
}

// Follower is the state machine for one driver's active trip. Writers
// (the tracker loop) and readers (presentation callbacks) may hit it
// from different goroutines.
type Follower struct {
	mu       sync.Mutex
	cfg      Config
	polyline []geo.Coordinate
	// cumKM[i] is the route length up to polyline vertex i.
	cumKM       []float64
	state       State
	lastReroute time.Time
}

// NewFollower creates a follower for a trip whose route may not be
// resolved yet. With no polyline it reports zero progress and on-route.
func NewFollower(tripID string, cfg Config) *Follower {
	return &Follower{cfg: cfg, state: State{TripID: tripID}}
}

// SetRoute installs a (new) polyline and resets progress against it.
// Deviation history and the actual path survive: they describe the
// driver, not the plan. The reroute gate also survives so a fresh route
// cannot reopen it early.
func (f *Follower) SetRoute(polyline []geo.Coordinate, totalKM float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polyline = polyline
	f.cumKM = make([]float64, len(polyline))
	for i := 1; i < len(polyline); i++ {
		f.cumKM[i] = f.cumKM[i-1] + geo.HaversineKM(polyline[i-1], polyline[i])
	}
	if totalKM <= 0 && len(f.cumKM) > 0 {
		totalKM = f.cumKM[len(f.cumKM)-1]
	}
	f.state.TotalDistanceKM = totalKM
	f.state.SegmentIndex = 0
	f.state.DistanceAlongRouteKM = 0
	// A live deviation ends here: the new plan starts from wherever the
	// driver is now, so the trail is complete.
	if len(f.state.DeviationTrail) > 0 {
		f.state.CompletedDeviations = append(f.state.CompletedDeviations, f.state.DeviationTrail)
		f.state.DeviationTrail = nil
	}
	f.state.IsOffRoute = false
	f.state.OffRouteSince = nil
}

// HasRoute reports whether a usable polyline is installed.
func (f *Follower) HasRoute() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.polyline) >= 2
}

// Observe feeds one position report into the state machine.
func (f *Follower) Observe(pos geo.Coordinate, now time.Time) {
	if !pos.Valid() {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	// Ground truth trail, independent of route adherence.
	f.state.ActualPath = append(f.state.ActualPath, pos)

	if len(f.polyline) < 2 {
		return
	}

	bestSeg, bestT, bestSqDist := f.project(pos)

	// Progress is monotonic per polyline; a projection behind the
	// current segment is treated as noise and ignored for progress.
	if bestSeg >= f.state.SegmentIndex {
		f.state.SegmentIndex = bestSeg
		segKM := f.cumKM[bestSeg+1] - f.cumKM[bestSeg]
		f.state.DistanceAlongRouteKM = f.cumKM[bestSeg] + bestT*segKM
	}

	corridorDeg := geo.MetersToDegrees(f.cfg.CorridorMeters, pos.Lat)
	off := bestSqDist > corridorDeg*corridorDeg

	switch {
	case off && !f.state.IsOffRoute:
		f.state.IsOffRoute = true
		t := now
		f.state.OffRouteSince = &t
		f.state.DeviationTrail = []geo.Coordinate{pos}
	case off:
		f.state.DeviationTrail = append(f.state.DeviationTrail, pos)
	case f.state.IsOffRoute:
		// Back inside the corridor: close out the live trail.
		if len(f.state.DeviationTrail) > 0 {
			f.state.CompletedDeviations = append(f.state.CompletedDeviations, f.state.DeviationTrail)
		}
		f.state.DeviationTrail = nil
		f.state.IsOffRoute = false
		f.state.OffRouteSince = nil
	}

	f.maybeRequestReroute(now)
}

// project finds the nearest polyline segment to pos.
func (f *Follower) project(pos geo.Coordinate) (seg int, tFrac, sqDist float64) {
	sqDist = math.MaxFloat64
	for i := 0; i < len(f.polyline)-1; i++ {
		t, _, d := geo.ProjectOntoSegment(pos, f.polyline[i], f.polyline[i+1])
		if d < sqDist {
			sqDist = d
			seg = i
			tFrac = t
		}
	}
	return seg, tFrac, sqDist
}

func (f *Follower) maybeRequestReroute(now time.Time) {
	if !f.state.IsOffRoute || f.state.RerouteRequested || f.state.OffRouteSince == nil {
		return
	}
	if now.Sub(*f.state.OffRouteSince) < f.cfg.Dwell {
		return
	}
	if !f.lastReroute.IsZero() && now.Sub(f.lastReroute) < f.cfg.RerouteMinInterval {
		// Gate closed: drop the request, reconsider next cycle.
		metrics.ReroutesSuppressed.Inc()
		return
	}
	f.state.RerouteRequested = true
	f.lastReroute = now
	metrics.ReroutesRequested.Inc()
}

// AcknowledgeReroute clears the request flag. The flag is never
// self-clearing: whoever issued the fresh routing fetch owns the ack,
// so a request cannot be lost under a slow network.
func (f *Follower) AcknowledgeReroute() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.RerouteRequested = false
}

// State returns a deep copy of the current state.
func (f *Follower) State() *State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.clone()
}

// TripID returns the trip this follower is bound to.
func (f *Follower) TripID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.TripID
}

// RerouteRequested reports whether an unacknowledged request is pending.
func (f *Follower) RerouteRequested() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.RerouteRequested
}
