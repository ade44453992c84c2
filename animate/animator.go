package animate

import (
	"sync"

	"fleettrack/geo"
)

// EntityPosition is a read snapshot of one animated entity.
type EntityPosition struct {
	ID       string         `json:"id"`
	Position geo.Coordinate `json:"position"`
	Target   geo.Coordinate `json:"target"`
	Bearing  float64        `json:"bearing"`
	AtRest   bool           `json:"at_rest"`
}

type entity struct {
	current geo.Coordinate
	target  geo.Coordinate
	bearing float64
}

// Animator interpolates entity positions toward their targets.
type Animator struct {
	factor float64
	// stopSqDeg is the squared planar threshold below which an entity
	// is considered at rest.
	stopSqDeg float64

	mu       sync.RWMutex
	entities map[string]*entity
}

// NewAnimator builds an animator. factor is the fraction of remaining
// distance covered per tick; stopThresholdMeters the at-rest distance.
func NewAnimator(factor, stopThresholdMeters float64) *Animator {
	if factor <= 0 || factor > 1 {
		factor = 0.25
	}
	stopDeg := geo.MetersToDegrees(stopThresholdMeters, 45)
	return &Animator{
		factor:    factor,
		stopSqDeg: stopDeg * stopDeg,
		entities:  map[string]*entity{},
	}
}

// SetTarget records a new destination for id. A later call wins
// atomically; invalid coordinates are ignored rather than propagated.
// The first target for an unknown entity snaps it into place instead of
// animating it across the map.
func (a *Animator) SetTarget(id string, target geo.Coordinate) {
	if !target.Valid() {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.entities[id]
	if !ok {
		a.entities[id] = &entity{current: target, target: target}
		return
	}
	if e.current != target {
		e.bearing = geo.Bearing(e.current, target)
	}
	e.target = target
}

// Tick advances every entity that is not yet at rest by the
// interpolation factor toward its target. Idempotent for entities at
// rest: their position and bearing are left untouched.
func (a *Animator) Tick() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.entities {
		if geo.SquaredDelta(e.current, e.target) <= a.stopSqDeg {
			continue
		}
		next := geo.Interpolate(e.current, e.target, a.factor)
		e.bearing = geo.Bearing(e.current, next)
		e.current = next
	}
}

// Remove drops an entity from the table.
func (a *Animator) Remove(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.entities, id)
}

// Position returns the current animated position for id.
func (a *Animator) Position(id string) (geo.Coordinate, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.entities[id]
	if !ok {
		return geo.Coordinate{}, false
	}
	return e.current, true
}

// Target returns the last recorded target for id.
func (a *Animator) Target(id string) (geo.Coordinate, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.entities[id]
	if !ok {
		return geo.Coordinate{}, false
	}
	return e.target, true
}

// Snapshot returns a copy of every entity's state. Coordinates are
// copied under the lock, so a reader never observes a torn pair.
func (a *Animator) Snapshot() []EntityPosition {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]EntityPosition, 0, len(a.entities))
	for id, e := range a.entities {
		out = append(out, EntityPosition{
			ID:       id,
			Position: e.current,
			Target:   e.target,
			Bearing:  e.bearing,
			AtRest:   geo.SquaredDelta(e.current, e.target) <= a.stopSqDeg,
		})
	}
	return out
}
