package directions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"fleettrack/geo"
)

// Request describes one routing query.
type Request struct {
	// Origin and Destination are either free-form addresses or
	// "lat,lng" pairs, passed through to the provider verbatim.
	Origin      string
	Destination string
	Mode        string
}

// Leg is one portion of a computed route between two waypoints.
type Leg struct {
	Start          geo.Coordinate `json:"start_location"`
	End            geo.Coordinate `json:"end_location"`
	DistanceMeters float64        `json:"distance_m"`
}

// Result is an immutable routing answer.
type Result struct {
	Overview       []geo.Coordinate `json:"overview_path"`
	Legs           []Leg            `json:"legs"`
	DistanceMeters float64          `json:"distance_m"`
}

// TotalKM returns the route length in kilometers, falling back to the
// overview path when the provider did not report a distance.
func (r *Result) TotalKM() float64 {
	if r.DistanceMeters > 0 {
		return r.DistanceMeters / 1000
	}
	return geo.PolylineLengthKM(r.Overview)
}

// Client fetches routes from an external directions provider.
type Client interface {
	Route(ctx context.Context, req Request) (*Result, error)
}

// HTTPClient talks to a directions gateway over HTTP.
type HTTPClient struct {
	baseURL    string
	mode       string
	httpClient *http.Client
}

// NewHTTPClient builds a provider client. mode defaults to driving.
func NewHTTPClient(baseURL, mode string, timeout time.Duration) *HTTPClient {
	if mode == "" {
		mode = "driving"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL:    baseURL,
		mode:       mode,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type routeResponse struct {
	Routes []Result `json:"routes"`
	Status string   `json:"status"`
}

// Route performs one routing query. A non-OK status or empty route list
// is an error; the caller decides whether to retry.
func (c *HTTPClient) Route(ctx context.Context, req Request) (*Result, error) {
	mode := req.Mode
	if mode == "" {
		mode = c.mode
	}
	q := url.Values{}
	q.Set("origin", req.Origin)
	q.Set("destination", req.Destination)
	q.Set("mode", mode)

	u := fmt.Sprintf("%s/directions/v1/route?%s", c.baseURL, q.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("directions fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("directions provider status %d: %s", resp.StatusCode, string(body))
	}

	var decoded routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("directions decode: %w", err)
	}
	if decoded.Status != "" && decoded.Status != "OK" {
		return nil, fmt.Errorf("directions provider status %q", decoded.Status)
	}
	if len(decoded.Routes) == 0 {
		return nil, fmt.Errorf("directions provider returned no routes")
	}
	r := decoded.Routes[0]
	return &r, nil
}
