// Package geo provides pure coordinate math for the tracking engine.
//
// This package handles:
// - Linear interpolation between coordinates (marker animation)
// - Bearing computation between coordinates
// - Cheap squared planar distance (threshold comparisons only)
// - Haversine distance for real route lengths
//
// SquaredDelta is a planar approximation and is NOT geodesic. It is only
// valid for relative comparisons against thresholds at a common latitude.
package geo
