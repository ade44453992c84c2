package main

import (
	"context"
	"flag"
	"time"

	lib "fleettrack"
	"fleettrack/config"
	"fleettrack/directions"
	"fleettrack/ingest"
	"fleettrack/metrics"
	"fleettrack/model"
)

func main() {
	feedURL := flag.String("feed", "", "realtime feed websocket URL (overrides config)")
	vehiclePositions := flag.String("vehiclePositions", "", "GTFS-RT VehiclePositions URL (overrides config)")
	directionsURL := flag.String("directions", "", "directions service base URL (overrides config)")
	tripService := flag.String("trips", "", "trip data service base URL (overrides config)")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	flag.Parse()

	lib.InitLogging()
	if err := config.LoadAppConfig(); err != nil {
		panic(err)
	}
	if *feedURL != "" {
		config.Config.Feed.URL = *feedURL
	}
	if *vehiclePositions != "" {
		config.Config.GTFSRT.VehiclePositionsURL = *vehiclePositions
	}
	if *directionsURL != "" {
		config.Config.Directions.BaseURL = *directionsURL
	}
	if *tripService != "" {
		config.Config.Trips.ServiceURL = *tripService
	}
	if *port > 0 {
		config.Config.Server.Port = *port
	}
	cfg := config.Config

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := directions.NewHTTPClient(
		cfg.Directions.BaseURL,
		cfg.Directions.Mode,
		time.Duration(cfg.Directions.TimeoutMS)*time.Millisecond,
	)
	var source ingest.TripSource
	if cfg.Trips.ServiceURL != "" {
		source = ingest.NewDataServiceClient(
			cfg.Trips.ServiceURL,
			cfg.Feed.OrgID,
			time.Duration(cfg.Trips.TimeoutMS)*time.Millisecond,
		)
	}
	tracker := lib.NewTracker(cfg, client, source)

	// All ingestion sources fan into one channel; the engine applies
	// events in arrival order.
	events := make(chan model.Event, 256)
	if cfg.Feed.URL != "" {
		feed := ingest.NewFeedClient(cfg.Feed.URL, cfg.Feed.OrgID)
		go feed.Run(ctx)
		go forward(ctx, feed.Events(), events)
	}
	if cfg.GTFSRT.VehiclePositionsURL != "" {
		rt := ingest.NewGTFSRTSource(
			cfg.GTFSRT.VehiclePositionsURL,
			time.Duration(cfg.GTFSRT.ReadIntervalMS)*time.Millisecond,
			time.Duration(cfg.GTFSRT.TimeoutMS)*time.Millisecond,
		)
		go rt.Run(ctx)
		go forward(ctx, rt.Events(), events)
	}

	go tracker.Run(ctx, events)
	if cfg.Server.MetricsPort > 0 {
		go metrics.StartServer(cfg.Server.MetricsPort)
	}
	lib.StartServer(tracker)
	lib.HandleGracefulShutdown(cancel)
}

func forward(ctx context.Context, in <-chan model.Event, out chan<- model.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-in:
			if !ok {
				return
			}
			select {
			case <-ctx.Done():
				return
			case out <- ev:
			}
		}
	}
}
