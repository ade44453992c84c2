package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/gorilla/websocket"
	"google.golang.org/protobuf/proto"

	"fleettrack/geo"
	"fleettrack/model"
)

func coord(lat, lng float64) geo.Coordinate {
	return geo.Coordinate{Lat: lat, Lng: lng}
}

// encodeEnvelope builds a wire-format feed message for test servers.
func encodeEnvelope(evType model.EventType, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: string(evType), Data: payload})
}

func TestFeedClientSubscribesAndDecodes(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		var sub subscribeMessage
		if err := conn.ReadJSON(&sub); err != nil {
			t.Errorf("read subscribe: %v", err)
			return
		}
		if sub.Action != "subscribe" || sub.OrgID != "org-7" || sub.SubscriptionID == "" {
			t.Errorf("bad subscribe message: %+v", sub)
		}

		good, _ := encodeEnvelope(model.EventPosition, model.PositionEvent{
			DriverID: "d-1",
			Position: coord(42.7, 23.3),
			Active:   true,
		})
		conn.WriteMessage(websocket.TextMessage, good)
		// Garbage must be dropped without killing the stream.
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"position","data":{}}`))
		tripEv, _ := encodeEnvelope(model.EventTrip, model.TripEvent{TripID: "t-1", Change: model.TripUpdated})
		conn.WriteMessage(websocket.TextMessage, tripEv)

		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := NewFeedClient("ws"+strings.TrimPrefix(srv.URL, "http"), "org-7")
	go client.Run(ctx)

	var got []model.Event
	timeout := time.After(5 * time.Second)
	for len(got) < 2 {
		select {
		case ev := <-client.Events():
			got = append(got, ev)
		case <-timeout:
			t.Fatalf("timed out, received %d events", len(got))
		}
	}

	if got[0].Type != model.EventPosition || got[0].Position.DriverID != "d-1" {
		t.Errorf("first event = %+v", got[0])
	}
	if got[1].Type != model.EventTrip || got[1].Trip.TripID != "t-1" {
		t.Errorf("second event = %+v (malformed payload should have been dropped)", got[1])
	}
}

func TestFeedToEvents(t *testing.T) {
	ts := uint64(1767225600)
	fm := &gtfsrtpb.FeedMessage{
		Entity: []*gtfsrtpb.FeedEntity{
			{
				Id: proto.String("e-1"),
				Vehicle: &gtfsrtpb.VehiclePosition{
					Vehicle:   &gtfsrtpb.VehicleDescriptor{Id: proto.String("bus-12")},
					Position:  &gtfsrtpb.Position{Latitude: proto.Float32(42.7), Longitude: proto.Float32(23.3)},
					Timestamp: proto.Uint64(ts),
				},
			},
			{
				// No position: skipped.
				Id:      proto.String("e-2"),
				Vehicle: &gtfsrtpb.VehiclePosition{Vehicle: &gtfsrtpb.VehicleDescriptor{Id: proto.String("bus-13")}},
			},
			{
				// No vehicle id: falls back to the entity id.
				Id: proto.String("e-3"),
				Vehicle: &gtfsrtpb.VehiclePosition{
					Position: &gtfsrtpb.Position{Latitude: proto.Float32(42.8), Longitude: proto.Float32(23.4)},
				},
			},
		},
	}

	events := feedToEvents(fm)
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	first := events[0].Position
	if first.DriverID != "bus-12" {
		t.Errorf("driver id = %q, want bus-12", first.DriverID)
	}
	if !first.RecordedAt.Equal(time.Unix(int64(ts), 0)) {
		t.Errorf("recorded at = %v", first.RecordedAt)
	}
	if lat := first.Position.Lat; lat < 42.69 || lat > 42.71 {
		t.Errorf("lat = %v", lat)
	}
	if events[1].Position.DriverID != "e-3" {
		t.Errorf("fallback id = %q, want e-3", events[1].Position.DriverID)
	}
}
