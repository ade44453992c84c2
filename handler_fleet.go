package fleettrack

import (
	"encoding/json"
	"net/http"

	"fleettrack/config"
)

func handleFleetPositions(tr *Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		resp := struct {
			Drivers []DriverMarker `json:"drivers"`
		}{Drivers: tr.Positions()}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func handleFleetClusters(tr *Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		bounds, err := parseBounds(r.URL.Query().Get("bounds"))
		if err != nil {
			w.WriteHeader(400)
			_, _ = w.Write(buildErrorPayload(err.Error()))
			return
		}
		zoom, err := parseZoom(r.URL.Query().Get("zoom"), config.Config.Tracking.MaxZoom)
		if err != nil {
			w.WriteHeader(400)
			_, _ = w.Write(buildErrorPayload(err.Error()))
			return
		}
		items := tr.Clusters(bounds, zoom)
		resp := struct {
			Zoom  int           `json:"zoom"`
			Items []interface{} `json:"items"`
		}{Zoom: zoom}
		for _, it := range items {
			if it.Cluster != nil {
				c := *it.Cluster
				resp.Items = append(resp.Items, struct {
					Type          string  `json:"type"`
					CellID        string  `json:"cell_id"`
					Lat           float64 `json:"lat"`
					Lng           float64 `json:"lng"`
					Count         int     `json:"count"`
					ExpansionZoom int     `json:"expansion_zoom"`
				}{
					Type:          "cluster",
					CellID:        c.CellID,
					Lat:           c.Centroid.Lat,
					Lng:           c.Centroid.Lng,
					Count:         c.Count,
					ExpansionZoom: tr.ExpansionZoom(c.CellID, zoom),
				})
				continue
			}
			p := *it.Point
			resp.Items = append(resp.Items, struct {
				Type string  `json:"type"`
				ID   string  `json:"id"`
				Lat  float64 `json:"lat"`
				Lng  float64 `json:"lng"`
			}{Type: "point", ID: p.ID, Lat: p.Position.Lat, Lng: p.Position.Lng})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func handleFleetRoute(tr *Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		tripID := r.URL.Query().Get("trip_id")
		if tripID == "" {
			w.WriteHeader(400)
			_, _ = w.Write(buildErrorPayload("you must provide a trip_id"))
			return
		}
		polyline := tr.RoutePolyline(tripID)
		if polyline == nil {
			w.WriteHeader(404)
			_, _ = w.Write(buildErrorPayload("no route for trip: " + tripID))
			return
		}
		resp := struct {
			TripID   string      `json:"trip_id"`
			Polyline interface{} `json:"polyline"`
		}{TripID: tripID, Polyline: polyline}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func handleFleetRouteState(tr *Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		driverID := r.URL.Query().Get("driver_id")
		if driverID == "" {
			w.WriteHeader(400)
			_, _ = w.Write(buildErrorPayload("you must provide a driver_id"))
			return
		}
		state := tr.DriverRouteState(driverID)
		if state == nil {
			w.WriteHeader(404)
			_, _ = w.Write(buildErrorPayload("driver has no active trip: " + driverID))
			return
		}
		_ = json.NewEncoder(w).Encode(state)
	}
}
