package model

import (
	"time"

	"fleettrack/geo"
)

// EventType tags the realtime feed variants. Payloads are decoded into
// typed events at the ingestion boundary; nothing downstream sees raw
// feed JSON.
type EventType string

const (
	EventPosition EventType = "position"
	EventTrip     EventType = "trip"
)

// PositionEvent is a single driver position report.
type PositionEvent struct {
	DriverID   string         `json:"driver_id" validate:"required"`
	Position   geo.Coordinate `json:"position"`
	Active     bool           `json:"active"`
	RecordedAt time.Time      `json:"recorded_at"`
}

// TripChange classifies a trip lifecycle event. The tracker reacts to
// every kind the same way (full trip refresh), but the kind is kept for
// logging and metrics.
type TripChange string

const (
	TripCreated TripChange = "created"
	TripUpdated TripChange = "updated"
	TripDeleted TripChange = "deleted"
)

// TripEvent signals that some trip changed upstream.
type TripEvent struct {
	TripID string     `json:"trip_id" validate:"required"`
	Change TripChange `json:"change" validate:"required,oneof=created updated deleted"`
}

// Event is the tagged union delivered by ingestion sources. Exactly one
// of Position and Trip is non-nil, matching Type.
type Event struct {
	Type     EventType
	Position *PositionEvent
	Trip     *TripEvent
}
