package model

import "time"

// TripStatus mirrors the trip lifecycle owned by the trip-management
// collaborator.
type TripStatus string

const (
	TripScheduled  TripStatus = "scheduled"
	TripEnRoute    TripStatus = "en_route"
	TripInProgress TripStatus = "in_progress"
	TripCompleted  TripStatus = "completed"
	TripCancelled  TripStatus = "cancelled"
	TripNoShow     TripStatus = "no_show"
)

// Trip is read-only reference data refreshed wholesale on any lifecycle
// change.
type Trip struct {
	ID              string     `json:"id" validate:"required"`
	Status          TripStatus `json:"status" validate:"required"`
	DriverID        string     `json:"driver_id"`
	RiderID         string     `json:"rider_id"`
	PickupLocation  string     `json:"pickup_location"`
	DropoffLocation string     `json:"dropoff_location"`
	PickupTime      time.Time  `json:"pickup_time"`
	ActualStartTime *time.Time `json:"actual_start_time,omitempty"`
}

// Followable reports whether the trip participates in route following.
func (t Trip) Followable() bool {
	return t.Status == TripEnRoute || t.Status == TripInProgress
}
