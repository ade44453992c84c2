package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"fleettrack/model"
)

// TripSource supplies the coarse trip/driver refreshes. Any trip
// lifecycle event triggers a full FetchTrips; there is no incremental
// patching.
type TripSource interface {
	FetchDrivers(ctx context.Context) ([]model.Driver, error)
	FetchTrips(ctx context.Context) ([]model.Trip, error)
}

// DataServiceClient is the HTTP implementation of TripSource against
// the fleet data service.
type DataServiceClient struct {
	baseURL    string
	orgID      string
	httpClient *http.Client
}

// NewDataServiceClient builds a client scoped to one organization.
func NewDataServiceClient(baseURL, orgID string, timeout time.Duration) *DataServiceClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DataServiceClient{
		baseURL:    baseURL,
		orgID:      orgID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchDrivers returns the organization's driver records.
func (c *DataServiceClient) FetchDrivers(ctx context.Context) ([]model.Driver, error) {
	var out []model.Driver
	if err := c.getJSON(ctx, "/api/v1/drivers", &out); err != nil {
		return nil, fmt.Errorf("fetch drivers: %w", err)
	}
	return out, nil
}

// FetchTrips returns the organization's trip records.
func (c *DataServiceClient) FetchTrips(ctx context.Context) ([]model.Trip, error) {
	var out []model.Trip
	if err := c.getJSON(ctx, "/api/v1/trips", &out); err != nil {
		return nil, fmt.Errorf("fetch trips: %w", err)
	}
	return out, nil
}

func (c *DataServiceClient) getJSON(ctx context.Context, path string, into any) error {
	q := url.Values{}
	q.Set("org_id", c.orgID)
	u := fmt.Sprintf("%s%s?%s", c.baseURL, path, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(into)
}
