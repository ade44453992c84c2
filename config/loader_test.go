package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	var cfg AppConfig
	ApplyDefaults(&cfg)

	if cfg.Server.Port == 0 {
		t.Errorf("expected default server port")
	}
	if cfg.Directions.Mode != "driving" {
		t.Errorf("expected driving mode default, got %q", cfg.Directions.Mode)
	}
	if cfg.Tracking.TickIntervalMS != 250 {
		t.Errorf("tick interval default = %d, want 250", cfg.Tracking.TickIntervalMS)
	}
	if cfg.Tracking.InterpolationFactor != 0.25 {
		t.Errorf("interpolation factor default = %v, want 0.25", cfg.Tracking.InterpolationFactor)
	}
	if cfg.Tracking.RerouteMinIntervalSeconds != 30 {
		t.Errorf("reroute gate default = %d, want 30", cfg.Tracking.RerouteMinIntervalSeconds)
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := AppConfig{}
	cfg.Tracking.CorridorMeters = 250
	cfg.Tracking.DwellSeconds = 5
	ApplyDefaults(&cfg)

	if cfg.Tracking.CorridorMeters != 250 {
		t.Errorf("explicit corridor overwritten: %v", cfg.Tracking.CorridorMeters)
	}
	if cfg.Tracking.DwellSeconds != 5 {
		t.Errorf("explicit dwell overwritten: %v", cfg.Tracking.DwellSeconds)
	}
}

func TestLoadAppConfig(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
server:
  port: 18080
feed:
  url: wss://feed.example.com/changes
  org_id: org-1
directions:
  baseURL: https://router.example.com
tracking:
  corridorMeters: 150
  dwellSeconds: 20
`)
	if err := os.WriteFile(filepath.Join(dir, "config.yml"), content, 0o644); err != nil {
		t.Fatal(err)
	}
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	if err := LoadAppConfig(); err != nil {
		t.Fatalf("LoadAppConfig: %v", err)
	}
	if Config.Server.Port != 18080 {
		t.Errorf("port = %d, want 18080", Config.Server.Port)
	}
	if Config.Feed.OrgID != "org-1" {
		t.Errorf("org = %q, want org-1", Config.Feed.OrgID)
	}
	if Config.Tracking.CorridorMeters != 150 {
		t.Errorf("corridor = %v, want 150", Config.Tracking.CorridorMeters)
	}
	// defaults fill the rest
	if Config.Tracking.InterpolationFactor != 0.25 {
		t.Errorf("interpolation factor = %v, want default 0.25", Config.Tracking.InterpolationFactor)
	}
}

func TestLoadAppConfigRejectsBadServer(t *testing.T) {
	dir := t.TempDir()
	content := []byte("server:\n  port: -1\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yml"), content, 0o644); err != nil {
		t.Fatal(err)
	}
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	if err := LoadAppConfig(); err == nil {
		t.Fatalf("expected validation error for negative port")
	}
}
