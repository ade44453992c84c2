// Package follow tracks per-driver progress along a planned route
// polyline and detects deviation from it.
//
// A Follower exists only while its driver has an active trip; callers
// must treat absence as "no state", not as a zeroed structure. Progress
// is computed by projecting the driver's reported position onto the
// polyline. The segment index is monotonic for the life of a polyline
// and resets only when a forced reroute installs a new one.
//
// Reroute requests are raised after a deviation has persisted past the
// dwell time, gated per driver so repeated evaluation cycles inside the
// gate window cannot raise a second request. The request flag is only
// cleared by an explicit acknowledgement, so a slow routing fetch
// cannot lose it.
package follow
