package geo

import "math"

const earthRadiusKM = 6371.0

// Coordinate is a WGS84 lat/lng pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinate is usable for tracking.
// The zero pair is treated as "no fix" rather than a real position.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return false
	}
	if c.Lat == 0 && c.Lng == 0 {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Interpolate moves from toward to by factor (0..1).
// factor=0 returns from, factor=1 returns to.
func Interpolate(from, to Coordinate, factor float64) Coordinate {
	return Coordinate{
		Lat: from.Lat + (to.Lat-from.Lat)*factor,
		Lng: from.Lng + (to.Lng-from.Lng)*factor,
	}
}

// Bearing returns the initial great-circle bearing from one coordinate
// to another, in degrees clockwise from north, normalized to [0, 360).
func Bearing(from, to Coordinate) float64 {
	la1 := from.Lat * math.Pi / 180
	la2 := to.Lat * math.Pi / 180
	dLon := (to.Lng - from.Lng) * math.Pi / 180
	y := math.Sin(dLon) * math.Cos(la2)
	x := math.Cos(la1)*math.Sin(la2) - math.Sin(la1)*math.Cos(la2)*math.Cos(dLon)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// SquaredDelta returns the squared planar distance between two
// coordinates in degrees squared. Not geodesic; use only for relative
// comparisons against thresholds expressed in the same units.
func SquaredDelta(a, b Coordinate) float64 {
	dLat := a.Lat - b.Lat
	dLng := a.Lng - b.Lng
	return dLat*dLat + dLng*dLng
}

// HaversineKM returns the great-circle distance between two coordinates
// in kilometers.
func HaversineKM(a, b Coordinate) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lng - a.Lng) * math.Pi / 180
	la1 := a.Lat * math.Pi / 180
	la2 := b.Lat * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(la1)*math.Cos(la2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKM * c
}

// MetersToDegrees converts a distance in meters to an approximate
// degree span at the given latitude. Used to express corridor and noise
// thresholds in the same units as SquaredDelta.
func MetersToDegrees(meters, atLat float64) float64 {
	metersPerDegree := 111320.0 * math.Cos(atLat*math.Pi/180)
	if metersPerDegree < 1 {
		metersPerDegree = 1
	}
	return meters / metersPerDegree
}

// ProjectOntoSegment projects p onto the segment a-b in planar space.
// It returns the clamped parameter t (0..1), the projected point, and
// the squared planar distance from p to that point.
func ProjectOntoSegment(p, a, b Coordinate) (t float64, nearest Coordinate, sqDist float64) {
	vx := b.Lng - a.Lng
	vy := b.Lat - a.Lat
	wx := p.Lng - a.Lng
	wy := p.Lat - a.Lat

	denom := vx*vx + vy*vy
	if denom > 0 {
		t = (wx*vx + wy*vy) / denom
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
	}
	nearest = Coordinate{Lat: a.Lat + t*vy, Lng: a.Lng + t*vx}
	dx := p.Lng - nearest.Lng
	dy := p.Lat - nearest.Lat
	return t, nearest, dx*dx + dy*dy
}

// PolylineLengthKM returns the cumulative haversine length of a path.
func PolylineLengthKM(path []Coordinate) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += HaversineKM(path[i-1], path[i])
	}
	return total
}
