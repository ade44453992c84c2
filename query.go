package fleettrack

import (
	"encoding/json"
	"strconv"
	"strings"

	"fleettrack/cluster"
)

type QueryError struct{ Msg string }

func (e *QueryError) Error() string { return e.Msg }

// parseBounds reads a viewport given as "minLat,minLng,maxLat,maxLng".
func parseBounds(s string) (cluster.Bounds, error) {
	var b cluster.Bounds
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 4 {
		return b, &QueryError{Msg: "bounds must be minLat,minLng,maxLat,maxLng"}
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return b, &QueryError{Msg: "bounds component is not a number: " + p}
		}
		vals[i] = v
	}
	b = cluster.Bounds{MinLat: vals[0], MinLng: vals[1], MaxLat: vals[2], MaxLng: vals[3]}
	if b.MinLat > b.MaxLat || b.MinLng > b.MaxLng {
		return b, &QueryError{Msg: "bounds must be ordered min before max"}
	}
	return b, nil
}

func parseZoom(s string, maxZoom int) (int, error) {
	if s == "" {
		return 0, &QueryError{Msg: "you must provide a zoom level"}
	}
	z, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || z < 0 {
		return 0, &QueryError{Msg: "zoom must be a non-negative integer"}
	}
	if z > maxZoom {
		z = maxZoom
	}
	return z, nil
}

func buildErrorPayload(msg string) []byte {
	var e struct {
		Error struct {
			Description string `json:"description"`
		} `json:"error"`
	}
	e.Error.Description = msg
	b, _ := json.Marshal(e)
	return b
}
