package follow

import (
	"sync"
	"time"

	"fleettrack/geo"
)

// Registry owns at most one Follower per driver, scoped to the driver's
// current active trip.
type Registry struct {
	cfg Config

	mu        sync.RWMutex
	followers map[string]*Follower
}

// NewRegistry creates an empty registry sharing cfg across followers.
func NewRegistry(cfg Config) *Registry {
	return &Registry{cfg: cfg, followers: map[string]*Follower{}}
}

// Ensure returns the driver's follower, creating one for tripID if
// absent. A follower bound to a different trip is replaced: the old
// trip ended as far as this driver is concerned.
func (r *Registry) Ensure(driverID, tripID string) *Follower {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.followers[driverID]
	if !ok || f.TripID() != tripID {
		f = NewFollower(tripID, r.cfg)
		r.followers[driverID] = f
	}
	return f
}

// Observe routes a position report to the driver's follower, if any.
func (r *Registry) Observe(driverID string, pos geo.Coordinate, now time.Time) {
	r.mu.RLock()
	f := r.followers[driverID]
	r.mu.RUnlock()
	if f != nil {
		f.Observe(pos, now)
	}
}

// SetRoute installs a polyline on the driver's follower, if any.
func (r *Registry) SetRoute(driverID string, polyline []geo.Coordinate, totalKM float64) {
	r.mu.RLock()
	f := r.followers[driverID]
	r.mu.RUnlock()
	if f != nil {
		f.SetRoute(polyline, totalKM)
	}
}

// HasRoute reports whether the driver's follower has a usable polyline.
func (r *Registry) HasRoute(driverID string) bool {
	r.mu.RLock()
	f := r.followers[driverID]
	r.mu.RUnlock()
	return f != nil && f.HasRoute()
}

// State returns a copy of the driver's state, or nil when the driver is
// not followed. Absence is the contract: callers check for nil, never
// for a zeroed struct.
func (r *Registry) State(driverID string) *State {
	r.mu.RLock()
	f := r.followers[driverID]
	r.mu.RUnlock()
	if f == nil {
		return nil
	}
	return f.State()
}

// Acknowledge clears the driver's reroute request flag, if any.
func (r *Registry) Acknowledge(driverID string) {
	r.mu.RLock()
	f := r.followers[driverID]
	r.mu.RUnlock()
	if f != nil {
		f.AcknowledgeReroute()
	}
}

// Remove discards the driver's follower. Called when the trip ends or
// the driver leaves the tracked set.
func (r *Registry) Remove(driverID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.followers, driverID)
}

// TripID returns the trip the driver's follower is bound to, or "".
func (r *Registry) TripID(driverID string) string {
	r.mu.RLock()
	f := r.followers[driverID]
	r.mu.RUnlock()
	if f == nil {
		return ""
	}
	return f.TripID()
}

// RerouteRequested reports whether the driver's follower has an
// unacknowledged reroute request.
func (r *Registry) RerouteRequested(driverID string) bool {
	r.mu.RLock()
	f := r.followers[driverID]
	r.mu.RUnlock()
	return f != nil && f.RerouteRequested()
}
