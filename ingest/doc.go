// Package ingest adapts external realtime sources into the tracker's
// typed event stream.
//
// Two sources are supported: a push-based websocket subscription to the
// fleet data service's change feed (the primary), and a polling GTFS-RT
// VehiclePositions source for fleets that expose one. Both emit the
// same tagged model.Event variants; raw feed payloads are decoded and
// validated here and never cross into the core components.
package ingest
