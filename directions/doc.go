// Package directions consumes the external routing provider and caches
// its immutable results per tracking session.
//
// Entries are append-only: a forced reroute writes a fresh entry keyed
// by the driver's current position as origin, superseding the old entry
// without mutating it. Fetch failures are surfaced to the caller and
// never cached, so the next lookup retries.
package directions
