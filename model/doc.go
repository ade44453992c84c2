// Package model defines the records the tracking engine consumes from
// the surrounding fleet platform: drivers, trips, and the tagged
// realtime event variants produced at the ingestion boundary.
//
// The engine treats drivers and trips as read-only reference data owned
// by external collaborators; it only derives tracking state from them.
package model
