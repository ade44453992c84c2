package cluster

import (
	"sort"
	"sync"

	"github.com/dhconnelly/rtreego"
	"github.com/mmcloughlin/geohash"

	"fleettrack/geo"
)

// Bounds is a latitude/longitude viewport rectangle.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// Point is one individually rendered marker.
type Point struct {
	ID       string         `json:"id"`
	Position geo.Coordinate `json:"position"`
}

// Cluster aggregates markers that share a geohash cell at the current
// zoom.
type Cluster struct {
	CellID   string         `json:"cell_id"`
	Centroid geo.Coordinate `json:"centroid"`
	Count    int            `json:"count"`
}

// Item is one element of the mixed output list; exactly one of Point
// and Cluster is non-nil.
type Item struct {
	Point   *Point   `json:"point,omitempty"`
	Cluster *Cluster `json:"cluster,omitempty"`
}

// spatialPoint adapts an indexed marker to the rtreego interface.
type spatialPoint struct {
	id    string
	coord geo.Coordinate
	rect  rtreego.Rect
}

func (p *spatialPoint) Bounds() rtreego.Rect { return p.rect }

// pointTolerance is the degenerate-rectangle width used to index a
// point in the R-tree.
const pointTolerance = 1e-6

// Index answers viewport clustering queries over the current entity
// positions.
type Index struct {
	maxZoom int

	mu     sync.RWMutex
	tree   *rtreego.Rtree
	points []*spatialPoint
}

// NewIndex creates an empty index. maxZoom caps expansion zoom
// resolution.
func NewIndex(maxZoom int) *Index {
	if maxZoom <= 0 {
		maxZoom = 20
	}
	return &Index{
		maxZoom: maxZoom,
		tree:    rtreego.NewTree(2, 25, 50),
	}
}

// Rebuild replaces the indexed point set. Entities with invalid or zero
// coordinates are excluded here rather than surfacing as errors later.
func (ix *Index) Rebuild(points []Point) {
	tree := rtreego.NewTree(2, 25, 50)
	kept := make([]*spatialPoint, 0, len(points))
	for _, p := range points {
		if !p.Position.Valid() {
			continue
		}
		sp := &spatialPoint{
			id:    p.ID,
			coord: p.Position,
			rect:  rtreego.Point{p.Position.Lat, p.Position.Lng}.ToRect(pointTolerance),
		}
		tree.Insert(sp)
		kept = append(kept, sp)
	}

	ix.mu.Lock()
	ix.tree = tree
	ix.points = kept
	ix.mu.Unlock()
}

// Clusters partitions the entities inside bounds at the given zoom.
// Two calls with identical (bounds, zoom, point set) yield identical
// output, including order.
func (ix *Index) Clusters(bounds Bounds, zoom int) []Item {
	ix.mu.RLock()
	tree := ix.tree
	ix.mu.RUnlock()

	rect, err := boundsRect(bounds)
	if err != nil {
		return nil
	}
	hits := tree.SearchIntersect(rect)

	precision := precisionForZoom(zoom)
	cells := map[string][]*spatialPoint{}
	for _, hit := range hits {
		sp, ok := hit.(*spatialPoint)
		if !ok {
			continue
		}
		cell := geohash.EncodeWithPrecision(sp.coord.Lat, sp.coord.Lng, precision)
		cells[cell] = append(cells[cell], sp)
	}

	cellIDs := make([]string, 0, len(cells))
	for id := range cells {
		cellIDs = append(cellIDs, id)
	}
	sort.Strings(cellIDs)

	out := make([]Item, 0, len(cellIDs))
	for _, id := range cellIDs {
		members := cells[id]
		if len(members) == 1 {
			m := members[0]
			out = append(out, Item{Point: &Point{ID: m.id, Position: m.coord}})
			continue
		}
		sort.Slice(members, func(i, j int) bool { return members[i].id < members[j].id })
		var latSum, lngSum float64
		for _, m := range members {
			latSum += m.coord.Lat
			lngSum += m.coord.Lng
		}
		out = append(out, Item{Cluster: &Cluster{
			CellID: id,
			Centroid: geo.Coordinate{
				Lat: latSum / float64(len(members)),
				Lng: lngSum / float64(len(members)),
			},
			Count: len(members),
		}})
	}
	return out
}

// ExpansionZoom returns the smallest zoom at which the given cluster
// cell splits into more than one cell (or stops clustering), bounded by
// the configured maximum zoom. Used to resolve cluster clicks.
func (ix *Index) ExpansionZoom(cellID string, zoom int) int {
	ix.mu.RLock()
	points := ix.points
	ix.mu.RUnlock()

	var members []*spatialPoint
	precision := precisionForZoom(zoom)
	for _, sp := range points {
		if geohash.EncodeWithPrecision(sp.coord.Lat, sp.coord.Lng, precision) == cellID {
			members = append(members, sp)
		}
	}
	if len(members) < 2 {
		return zoom
	}
	for z := zoom + 1; z <= ix.maxZoom; z++ {
		seen := map[string]struct{}{}
		for _, sp := range members {
			seen[geohash.EncodeWithPrecision(sp.coord.Lat, sp.coord.Lng, precisionForZoom(z))] = struct{}{}
		}
		if len(seen) > 1 {
			return z
		}
	}
	return ix.maxZoom
}

// precisionForZoom maps a web-map zoom level onto a geohash character
// count. Roughly two zoom levels per geohash character.
func precisionForZoom(zoom int) uint {
	p := zoom/2 + 1
	if p < 1 {
		p = 1
	}
	if p > 12 {
		p = 12
	}
	return uint(p)
}

func boundsRect(b Bounds) (rtreego.Rect, error) {
	latSpan := b.MaxLat - b.MinLat
	lngSpan := b.MaxLng - b.MinLng
	if latSpan <= 0 {
		latSpan = pointTolerance
	}
	if lngSpan <= 0 {
		lngSpan = pointTolerance
	}
	return rtreego.NewRect(rtreego.Point{b.MinLat, b.MinLng}, []float64{latSpan, lngSpan})
}
