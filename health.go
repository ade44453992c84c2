package fleettrack

import (
	"encoding/json"
	"net/http"
)

type healthResponse struct {
	Status           string `json:"status"`
	TrackedDrivers   int    `json:"tracked_drivers"`
	LatestEventEpoch int64  `json:"latest_event_epoch"`
}

func handleHealth(tr *Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		resp := healthResponse{
			Status:         "ok",
			TrackedDrivers: tr.TrackedDrivers(),
		}
		if last := tr.LastEventTime(); !last.IsZero() {
			resp.LatestEventEpoch = last.Unix()
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}
