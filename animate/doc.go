// Package animate owns the mutable current/target position table for
// tracked entities and advances it on a fixed-rate tick.
//
// The tick rate is deliberately low (~4 Hz) and decoupled from any
// display refresh: sparse position updates become targets, and each
// tick moves every entity a fixed fraction of its remaining distance,
// which converges geometrically without overshoot. Entities within the
// stop threshold are left alone so they cannot oscillate.
package animate
