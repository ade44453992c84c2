package cluster

import (
	"reflect"
	"testing"

	"fleettrack/geo"
)

func sofiaBounds() Bounds {
	return Bounds{MinLat: 42.5, MinLng: 23.0, MaxLat: 43.0, MaxLng: 23.8}
}

func TestViewportFiltering(t *testing.T) {
	ix := NewIndex(20)
	ix.Rebuild([]Point{
		{ID: "in-1", Position: geo.Coordinate{Lat: 42.7, Lng: 23.3}},
		{ID: "out-1", Position: geo.Coordinate{Lat: 48.8, Lng: 2.3}},
	})

	items := ix.Clusters(sofiaBounds(), 12)
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1 (outside viewport excluded)", len(items))
	}
	if items[0].Point == nil || items[0].Point.ID != "in-1" {
		t.Errorf("expected the in-viewport point, got %+v", items[0])
	}
}

func TestInvalidCoordinatesExcluded(t *testing.T) {
	ix := NewIndex(20)
	ix.Rebuild([]Point{
		{ID: "zero", Position: geo.Coordinate{}},
		{ID: "nan-ish", Position: geo.Coordinate{Lat: 95, Lng: 23}},
		{ID: "good", Position: geo.Coordinate{Lat: 42.7, Lng: 23.3}},
	})

	items := ix.Clusters(sofiaBounds(), 12)
	if len(items) != 1 || items[0].Point == nil || items[0].Point.ID != "good" {
		t.Errorf("invalid coordinates must be excluded, got %+v", items)
	}
}

func TestNearbyPointsClusterAtLowZoom(t *testing.T) {
	ix := NewIndex(20)
	// Two markers ~100m apart, one far across town.
	ix.Rebuild([]Point{
		{ID: "a", Position: geo.Coordinate{Lat: 42.7000, Lng: 23.3000}},
		{ID: "b", Position: geo.Coordinate{Lat: 42.7009, Lng: 23.3001}},
		{ID: "c", Position: geo.Coordinate{Lat: 42.9000, Lng: 23.7000}},
	})

	items := ix.Clusters(sofiaBounds(), 6)

	var clusters, points int
	for _, it := range items {
		switch {
		case it.Cluster != nil:
			clusters++
			if it.Cluster.Count != 2 {
				t.Errorf("cluster count = %d, want 2", it.Cluster.Count)
			}
			wantLat := (42.7000 + 42.7009) / 2
			if diff := it.Cluster.Centroid.Lat - wantLat; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("centroid lat = %v, want %v", it.Cluster.Centroid.Lat, wantLat)
			}
		case it.Point != nil:
			points++
		}
	}
	if clusters != 1 || points != 1 {
		t.Errorf("got %d clusters and %d points, want 1 and 1", clusters, points)
	}
}

func TestClusteringDeterministic(t *testing.T) {
	ix := NewIndex(20)
	pts := []Point{
		{ID: "a", Position: geo.Coordinate{Lat: 42.70, Lng: 23.30}},
		{ID: "b", Position: geo.Coordinate{Lat: 42.71, Lng: 23.31}},
		{ID: "c", Position: geo.Coordinate{Lat: 42.72, Lng: 23.32}},
		{ID: "d", Position: geo.Coordinate{Lat: 42.90, Lng: 23.70}},
	}
	ix.Rebuild(pts)

	first := ix.Clusters(sofiaBounds(), 8)
	second := ix.Clusters(sofiaBounds(), 8)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical input must yield identical partitioning")
	}

	// Rebuilding with the same set keeps the output stable too.
	ix.Rebuild(pts)
	third := ix.Clusters(sofiaBounds(), 8)
	if !reflect.DeepEqual(first, third) {
		t.Errorf("rebuild with identical points changed the output")
	}
}

func TestHighZoomSplitsClusters(t *testing.T) {
	ix := NewIndex(20)
	ix.Rebuild([]Point{
		{ID: "a", Position: geo.Coordinate{Lat: 42.7000, Lng: 23.3000}},
		{ID: "b", Position: geo.Coordinate{Lat: 42.7300, Lng: 23.3400}},
	})

	low := ix.Clusters(sofiaBounds(), 2)
	if len(low) != 1 || low[0].Cluster == nil {
		t.Fatalf("expected one cluster at low zoom, got %+v", low)
	}

	high := ix.Clusters(sofiaBounds(), 18)
	if len(high) != 2 {
		t.Fatalf("expected split at high zoom, got %+v", high)
	}
	for _, it := range high {
		if it.Point == nil {
			t.Errorf("expected individual points at high zoom")
		}
	}
}

func TestExpansionZoom(t *testing.T) {
	ix := NewIndex(18)
	ix.Rebuild([]Point{
		{ID: "a", Position: geo.Coordinate{Lat: 42.7000, Lng: 23.3000}},
		{ID: "b", Position: geo.Coordinate{Lat: 42.7300, Lng: 23.3400}},
	})

	low := ix.Clusters(sofiaBounds(), 2)
	if len(low) != 1 || low[0].Cluster == nil {
		t.Fatalf("expected one cluster at zoom 2")
	}
	cell := low[0].Cluster.CellID

	ez := ix.ExpansionZoom(cell, 2)
	if ez <= 2 || ez > 18 {
		t.Fatalf("expansion zoom = %d, want in (2, 18]", ez)
	}
	// At the expansion zoom the members occupy more than one cell.
	split := ix.Clusters(sofiaBounds(), ez)
	if len(split) < 2 {
		t.Errorf("at expansion zoom %d the cluster should split, got %+v", ez, split)
	}
}

func TestExpansionZoomCeiling(t *testing.T) {
	ix := NewIndex(10)
	// Two markers so close they share cells at every precision the
	// ceiling allows.
	ix.Rebuild([]Point{
		{ID: "a", Position: geo.Coordinate{Lat: 42.70000000, Lng: 23.30000000}},
		{ID: "b", Position: geo.Coordinate{Lat: 42.70000001, Lng: 23.30000001}},
	})

	low := ix.Clusters(sofiaBounds(), 2)
	if len(low) != 1 || low[0].Cluster == nil {
		t.Fatalf("expected one cluster")
	}
	if ez := ix.ExpansionZoom(low[0].Cluster.CellID, 2); ez != 10 {
		t.Errorf("expansion zoom = %d, want ceiling 10", ez)
	}
}
