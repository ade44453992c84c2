package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the global application configuration
var Config AppConfig

// LoadAppConfig loads and validates the application configuration from config.yml
func LoadAppConfig() error {
	paths := []string{"config.yml", "./deploy/config.yml"}
	var data []byte
	var err error
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if err != nil {
		return err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return err
	}
	v := validator.New()
	if err := v.Struct(cfg.Server); err != nil {
		return err
	}
	if err := v.Struct(cfg.Tracking); err != nil {
		return err
	}
	Config = cfg
	ApplyDefaults(&Config)
	return nil
}

// ApplyDefaults fills zero-valued settings with engine defaults.
// Exported so tests can build configs without a config.yml on disk.
func ApplyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 16290
	}
	if cfg.Directions.Mode == "" {
		cfg.Directions.Mode = "driving"
	}
	if cfg.Directions.TimeoutMS == 0 {
		cfg.Directions.TimeoutMS = 10000
	}
	if cfg.Trips.TimeoutMS == 0 {
		cfg.Trips.TimeoutMS = 10000
	}
	if cfg.Feed.ReadTimeoutMS == 0 {
		cfg.Feed.ReadTimeoutMS = 60000
	}
	if cfg.GTFSRT.ReadIntervalMS == 0 {
		cfg.GTFSRT.ReadIntervalMS = 15000
	}
	if cfg.GTFSRT.TimeoutMS == 0 {
		cfg.GTFSRT.TimeoutMS = 10000
	}

	t := &cfg.Tracking
	if t.TickIntervalMS == 0 {
		t.TickIntervalMS = 250
	}
	if t.InterpolationFactor == 0 {
		t.InterpolationFactor = 0.25
	}
	if t.StopThresholdMeters == 0 {
		t.StopThresholdMeters = 2
	}
	if t.CorridorMeters == 0 {
		t.CorridorMeters = 100
	}
	if t.DwellSeconds == 0 {
		t.DwellSeconds = 15
	}
	if t.RerouteMinIntervalSeconds == 0 {
		t.RerouteMinIntervalSeconds = 30
	}
	if t.NoiseThresholdMeters == 0 {
		t.NoiseThresholdMeters = 5
	}
	if t.StaleAfterSeconds == 0 {
		t.StaleAfterSeconds = 300
	}
	if t.MaxZoom == 0 {
		t.MaxZoom = 20
	}
}
