// Package cluster partitions entity positions into individual markers
// and count-aggregated clusters for scalable map rendering.
//
// An R-tree answers the viewport query (which entities are inside the
// current bounds); survivors are grouped into geohash cells whose
// precision follows the zoom level, so deeper zooms produce finer
// cells. Output ordering is deterministic for a fixed input.
//
// The index is rebuilt when the entity set changes, but cluster
// partitioning is recomputed only when the viewport bounds or zoom
// change, never on every animation tick.
package cluster
