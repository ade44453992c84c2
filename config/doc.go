// Package config handles application configuration loading and validation.
//
// Configuration is loaded from config.yml and validated using struct tags.
// Tracking thresholds default to values tuned for urban GPS noise and may
// be overridden per deployment.
package config
