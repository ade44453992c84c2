package ingest

import (
	"testing"
	"time"

	"fleettrack/geo"
	"fleettrack/model"
)

func TestDecodePositionEvent(t *testing.T) {
	raw := []byte(`{
		"type": "position",
		"data": {
			"driver_id": "d-17",
			"position": {"lat": 42.69, "lng": 23.32},
			"active": true,
			"recorded_at": "2026-03-02T10:00:00Z"
		}
	}`)
	ev, err := DecodeEvent(raw)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if ev.Type != model.EventPosition || ev.Position == nil || ev.Trip != nil {
		t.Fatalf("wrong variant: %+v", ev)
	}
	if ev.Position.DriverID != "d-17" || !ev.Position.Active {
		t.Errorf("payload = %+v", ev.Position)
	}
	want := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	if !ev.Position.RecordedAt.Equal(want) {
		t.Errorf("recorded_at = %v, want %v", ev.Position.RecordedAt, want)
	}
}

func TestDecodeTripEvent(t *testing.T) {
	raw := []byte(`{"type": "trip", "data": {"trip_id": "t-3", "change": "updated"}}`)
	ev, err := DecodeEvent(raw)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if ev.Type != model.EventTrip || ev.Trip == nil {
		t.Fatalf("wrong variant: %+v", ev)
	}
	if ev.Trip.TripID != "t-3" || ev.Trip.Change != model.TripUpdated {
		t.Errorf("payload = %+v", ev.Trip)
	}
}

func TestDecodeRejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "unknown type", raw: `{"type": "billing", "data": {}}`},
		{name: "not json", raw: `{{{`},
		{name: "position without driver id", raw: `{"type": "position", "data": {"active": true}}`},
		{name: "trip without id", raw: `{"type": "trip", "data": {"change": "updated"}}`},
		{name: "trip with bad change kind", raw: `{"type": "trip", "data": {"trip_id": "t", "change": "exploded"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeEvent([]byte(tt.raw)); err == nil {
				t.Errorf("expected decode error")
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	pe := model.PositionEvent{
		DriverID:   "d-1",
		Position:   geo.Coordinate{Lat: 42.7, Lng: 23.3},
		Active:     true,
		RecordedAt: time.Now().UTC().Truncate(time.Second),
	}
	raw, err := encodeEnvelope(model.EventPosition, pe)
	if err != nil {
		t.Fatal(err)
	}
	ev, err := DecodeEvent(raw)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if ev.Position.DriverID != pe.DriverID || ev.Position.Position != pe.Position {
		t.Errorf("round trip mismatch: %+v", ev.Position)
	}
}
