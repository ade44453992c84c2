package fleettrack

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fleettrack/config"
)

var (
	server *http.Server
)

// StartServer exposes the read API over the engine. Every endpoint is a
// pure read of engine state; nothing here mutates the tracked set.
func StartServer(tr *Tracker) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", handleHealth(tr))
	mux.HandleFunc("/api/fleet/positions.json", handleFleetPositions(tr))
	mux.HandleFunc("/api/fleet/clusters.json", handleFleetClusters(tr))
	mux.HandleFunc("/api/fleet/route.json", handleFleetRoute(tr))
	mux.HandleFunc("/api/fleet/route-state.json", handleFleetRouteState(tr))

	addr := fmt.Sprintf(":%d", config.Config.Server.Port)
	server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()
	log.Printf("server listening on %s", addr)
}

func HandleGracefulShutdown(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Printf("shutdown signal received")
	cancel()
	ctx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("server shutdown error: %v", err)
		} else {
			log.Printf("server shut down successfully")
		}
	}
}
