package ingest

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"fleettrack/geo"
	"fleettrack/model"
)

// GTFSRTSource polls a GTFS-RT VehiclePositions feed and converts its
// entities into position events. Fleets that publish a standard feed
// can be tracked without the websocket service.
type GTFSRTSource struct {
	url        string
	interval   time.Duration
	httpClient *http.Client
	events     chan model.Event
}

// NewGTFSRTSource builds a polling source for the given feed URL.
func NewGTFSRTSource(url string, interval, timeout time.Duration) *GTFSRTSource {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GTFSRTSource{
		url:        url,
		interval:   interval,
		httpClient: &http.Client{Timeout: timeout},
		events:     make(chan model.Event, 256),
	}
}

// Events is the converted event stream. Closed when Run returns.
func (s *GTFSRTSource) Events() <-chan model.Event { return s.events }

// Run polls the feed until ctx is cancelled. Fetch failures are logged
// and retried on the next interval.
func (s *GTFSRTSource) Run(ctx context.Context) {
	defer close(s.events)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *GTFSRTSource) poll(ctx context.Context) {
	fm, err := s.fetchFeed(ctx)
	if err != nil {
		log.Printf("gtfsrt poll: %v", err)
		return
	}
	for _, ev := range feedToEvents(fm) {
		select {
		case s.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func (s *GTFSRTSource) fetchFeed(ctx context.Context) (*gtfsrtpb.FeedMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed status %d", resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var fm gtfsrtpb.FeedMessage
	if err := proto.Unmarshal(b, &fm); err != nil {
		return nil, err
	}
	return &fm, nil
}

// feedToEvents converts vehicle entities into position events. Entities
// without a vehicle id or position are skipped.
func feedToEvents(fm *gtfsrtpb.FeedMessage) []model.Event {
	var out []model.Event
	for _, e := range fm.Entity {
		v := e.Vehicle
		if v == nil || v.Position == nil {
			continue
		}
		var id string
		if v.Vehicle != nil && v.Vehicle.Id != nil {
			id = *v.Vehicle.Id
		}
		if id == "" && e.Id != nil {
			id = *e.Id
		}
		if id == "" {
			continue
		}
		pos := geo.Coordinate{}
		if v.Position.Latitude != nil {
			pos.Lat = float64(*v.Position.Latitude)
		}
		if v.Position.Longitude != nil {
			pos.Lng = float64(*v.Position.Longitude)
		}
		recorded := time.Now()
		if v.Timestamp != nil {
			recorded = time.Unix(int64(*v.Timestamp), 0)
		}
		out = append(out, model.Event{
			Type: model.EventPosition,
			Position: &model.PositionEvent{
				DriverID:   id,
				Position:   pos,
				Active:     true,
				RecordedAt: recorded,
			},
		})
	}
	return out
}
