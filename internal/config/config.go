// Package config provides configuration management for roomsense.
//
// The config file carries everything the fusion engine needs from the
// outside world: which sources are enabled, where to reach them, the
// room and person maps, and the numeric thresholds that shape signal
// weights. It is read once at start and reloadable at runtime.
//
// Config file locations (priority order):
//  1. $ROOMSENSE_CONFIG
//  2. ./roomsense.yaml
//  3. ~/.config/roomsense/config.yaml
//  4. /etc/roomsense/config.yaml
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{
		Version:  1,
		LogLevel: "info",
		Database: DatabaseConfig{Path: "./roomsense.db"},
		Rooms:    RoomMap{},
		People:   PersonMap{},
	}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./roomsense.db"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":3000"
	}
	if c.Fusion.Interval == 0 {
		c.Fusion.Interval = Duration(15 * time.Second)
	}
	if c.Network.Source == "" {
		c.Network.Source = "controller"
	}
	if c.Network.PollInterval == 0 {
		c.Network.PollInterval = Duration(30 * time.Second)
	}
	if c.Network.RSSIAmbiguityThreshold == 0 {
		c.Network.RSSIAmbiguityThreshold = -75
	}
	if c.Network.ActivityThresholdKbps == 0 {
		c.Network.ActivityThresholdKbps = 100
	}
	if c.Network.Controller.Timeout == 0 {
		c.Network.Controller.Timeout = Duration(10 * time.Second)
	}
	if c.Network.Stations.Port == 0 {
		c.Network.Stations.Port = 22
	}
	if c.Network.Stations.Timeout == 0 {
		c.Network.Stations.Timeout = Duration(10 * time.Second)
	}
	if len(c.Network.Stations.Interfaces) == 0 {
		c.Network.Stations.Interfaces = []string{"wlan0"}
	}
	if c.Network.Sweep.Timeout == 0 {
		c.Network.Sweep.Timeout = Duration(2 * time.Minute)
	}
	if c.Vision.EnrichTimeout == 0 {
		c.Vision.EnrichTimeout = Duration(5 * time.Second)
	}
	if c.Rooms == nil {
		c.Rooms = RoomMap{}
	}
	if c.People == nil {
		c.People = PersonMap{}
	}
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	return fmt.Sprintf("network=%v (%s, poll %s), vision=%v, fusion %s, %d rooms mapped, %d people mapped",
		c.Network.Enabled, c.Network.Source, c.Network.PollInterval.Duration(),
		c.Vision.Enabled, c.Fusion.Interval.Duration(), len(c.Rooms), len(c.People))
}
