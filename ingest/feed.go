package ingest

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"fleettrack/metrics"
	"fleettrack/model"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	reconnectBaseDelay = time.Second
	reconnectMaxDelay  = 30 * time.Second
)

// subscribeMessage opens a tenant-scoped subscription on the feed.
type subscribeMessage struct {
	Action         string `json:"action"`
	OrgID          string `json:"org_id"`
	SubscriptionID string `json:"subscription_id"`
}

// FeedClient subscribes to the fleet data service's change feed over a
// websocket and emits decoded events.
type FeedClient struct {
	url    string
	orgID  string
	events chan model.Event
}

// NewFeedClient builds a client for the given feed URL, scoped to one
// organization.
func NewFeedClient(url, orgID string) *FeedClient {
	return &FeedClient{
		url:    url,
		orgID:  orgID,
		events: make(chan model.Event, 256),
	}
}

// Events is the decoded event stream. Closed when Run returns.
func (f *FeedClient) Events() <-chan model.Event { return f.events }

// Run dials the feed and pumps events until ctx is cancelled,
// reconnecting with capped backoff on any connection failure.
func (f *FeedClient) Run(ctx context.Context) {
	defer close(f.events)
	delay := reconnectBaseDelay
	for {
		if ctx.Err() != nil {
			return
		}
		err := f.runConn(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Printf("feed connection lost: %v (reconnecting in %s)", err, delay)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > reconnectMaxDelay {
			delay = reconnectMaxDelay
		}
	}
}

func (f *FeedClient) runConn(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := subscribeMessage{
		Action:         "subscribe",
		OrgID:          f.orgID,
		SubscriptionID: uuid.NewString(),
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Keepalive pings; the read loop below owns the connection errors.
	pingDone := make(chan struct{})
	defer close(pingDone)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-pingDone:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		ev, err := DecodeEvent(raw)
		if err != nil {
			metrics.FeedDecodeErrors.Inc()
			log.Printf("feed: dropping message: %v", err)
			continue
		}
		select {
		case f.events <- ev:
		case <-ctx.Done():
			return nil
		}
	}
}
