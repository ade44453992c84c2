package model

import (
	"time"

	"fleettrack/geo"
)

// DriverStatus is derived by the tracker, never stored upstream.
type DriverStatus string

const (
	DriverIdle    DriverStatus = "idle"
	DriverEnRoute DriverStatus = "en_route"
	DriverOffline DriverStatus = "offline"
)

// Driver is a tracked fleet member as delivered by the data service.
type Driver struct {
	ID         string         `json:"id" validate:"required"`
	Name       string         `json:"name"`
	Position   geo.Coordinate `json:"position"`
	Active     bool           `json:"active"`
	LastUpdate time.Time      `json:"last_update"`

	// ActiveTripID is empty when the driver has no trip underway.
	ActiveTripID string `json:"active_trip_id,omitempty"`
}

// Status derives the presentation status from tracking state.
// A driver whose last update is older than staleAfter is offline
// regardless of the active flag.
func (d Driver) Status(now time.Time, staleAfter time.Duration) DriverStatus {
	if !d.Active || (staleAfter > 0 && now.Sub(d.LastUpdate) > staleAfter) {
		return DriverOffline
	}
	if d.ActiveTripID != "" {
		return DriverEnRoute
	}
	return DriverIdle
}
