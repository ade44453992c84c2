package config

// ServerConfig contains the read API server configuration.
type ServerConfig struct {
	Port        int `yaml:"port" validate:"gt=0"`
	MetricsPort int `yaml:"metricsPort" validate:"gte=0"`
}

// FeedConfig contains the realtime change feed subscription.
type FeedConfig struct {
	URL           string `yaml:"url" validate:"omitempty,url"`
	OrgID         string `yaml:"org_id"`
	ReadTimeoutMS int    `yaml:"readTimeoutMS" validate:"gte=0"`
}

// GTFSRTConfig configures the optional GTFS-RT VehiclePositions
// polling source.
type GTFSRTConfig struct {
	VehiclePositionsURL string `yaml:"vehiclePositionsURL" validate:"omitempty,url"`
	ReadIntervalMS      int    `yaml:"readIntervalMS" validate:"gte=0"`
	TimeoutMS           int    `yaml:"timeoutMS" validate:"gte=0"`
}

// TripsConfig configures the trip source used for coarse refreshes.
type TripsConfig struct {
	ServiceURL string `yaml:"serviceURL" validate:"omitempty,url"`
	TimeoutMS  int    `yaml:"timeoutMS" validate:"gte=0"`
}

// DirectionsConfig configures the external routing provider.
type DirectionsConfig struct {
	BaseURL   string `yaml:"baseURL" validate:"omitempty,url"`
	Mode      string `yaml:"mode"`
	TimeoutMS int    `yaml:"timeoutMS" validate:"gte=0"`
}

// TrackingConfig contains the engine thresholds.
type TrackingConfig struct {
	// TickIntervalMS drives the animator, decoupled from any paint rate.
	TickIntervalMS int `yaml:"tickIntervalMS" validate:"gte=0"`
	// InterpolationFactor is the fraction of remaining distance covered
	// per tick.
	InterpolationFactor float64 `yaml:"interpolationFactor" validate:"gte=0,lte=1"`
	// StopThresholdMeters is the distance under which an entity is at rest.
	StopThresholdMeters float64 `yaml:"stopThresholdMeters" validate:"gte=0"`
	// CorridorMeters is the max perpendicular distance still on-route.
	CorridorMeters float64 `yaml:"corridorMeters" validate:"gte=0"`
	// DwellSeconds is how long a deviation must persist before a reroute.
	DwellSeconds int `yaml:"dwellSeconds" validate:"gte=0"`
	// RerouteMinIntervalSeconds gates repeated reroutes per driver.
	RerouteMinIntervalSeconds int `yaml:"rerouteMinIntervalSeconds" validate:"gte=0"`
	// NoiseThresholdMeters filters position deltas too small to animate.
	NoiseThresholdMeters float64 `yaml:"noiseThresholdMeters" validate:"gte=0"`
	// StaleAfterSeconds marks a driver offline after silence.
	StaleAfterSeconds int `yaml:"staleAfterSeconds" validate:"gte=0"`
	// MaxZoom bounds cluster expansion zoom resolution.
	MaxZoom int `yaml:"maxZoom" validate:"gte=0"`
}

// AppConfig is the root configuration structure.
type AppConfig struct {
	Server     ServerConfig     `yaml:"server" validate:"required"`
	Feed       FeedConfig       `yaml:"feed"`
	GTFSRT     GTFSRTConfig     `yaml:"gtfsrt"`
	Trips      TripsConfig      `yaml:"trips"`
	Directions DirectionsConfig `yaml:"directions"`
	Tracking   TrackingConfig   `yaml:"tracking"`
}
