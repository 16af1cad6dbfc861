package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roomsense.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadFromPath(t *testing.T) {
	t.Run("full config parses", func(t *testing.T) {
		path := writeTempConfig(t, `
version: 1
log_level: debug
database:
  path: /tmp/test.db
fusion:
  interval: 20s
network:
  enabled: true
  source: controller
  poll_interval: 45s
  rssi_ambiguity_threshold: -70
  activity_threshold_kbps: 150
  controller:
    endpoint: http://10.0.0.1:8443
    api_key: secret
vision:
  enabled: true
  endpoint: ws://10.0.0.2:5000/events
rooms:
  ap-office: office
  ap-kitchen: kitchen
people:
  "aa:bb:cc:dd:ee:ff": alex
`)
		cfg, _, err := LoadFromPath(path)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if cfg.Network.PollInterval.Duration() != 45*time.Second {
			t.Errorf("expected poll interval 45s, got %v", cfg.Network.PollInterval.Duration())
		}
		if cfg.Network.RSSIAmbiguityThreshold != -70 {
			t.Errorf("expected threshold -70, got %d", cfg.Network.RSSIAmbiguityThreshold)
		}
		if cfg.Rooms["ap-office"] != "office" {
			t.Errorf("room map not parsed: %v", cfg.Rooms)
		}
		if cfg.People["aa:bb:cc:dd:ee:ff"] != "alex" {
			t.Errorf("person map not parsed: %v", cfg.People)
		}
	})

	t.Run("defaults applied for missing fields", func(t *testing.T) {
		path := writeTempConfig(t, "version: 1\n")
		cfg, _, err := LoadFromPath(path)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if cfg.Network.PollInterval.Duration() != 30*time.Second {
			t.Errorf("expected default poll interval 30s, got %v", cfg.Network.PollInterval.Duration())
		}
		if cfg.Network.RSSIAmbiguityThreshold != -75 {
			t.Errorf("expected default threshold -75, got %d", cfg.Network.RSSIAmbiguityThreshold)
		}
		if cfg.Network.ActivityThresholdKbps != 100 {
			t.Errorf("expected default 100 kbps, got %v", cfg.Network.ActivityThresholdKbps)
		}
		if cfg.Fusion.Interval.Duration() != 15*time.Second {
			t.Errorf("expected default fusion interval 15s, got %v", cfg.Fusion.Interval.Duration())
		}
		if cfg.Rooms == nil || cfg.People == nil {
			t.Error("maps should default to empty, not nil")
		}
	})

	t.Run("malformed room map degrades to empty", func(t *testing.T) {
		path := writeTempConfig(t, `
version: 1
rooms: "this is not a mapping"
people:
  "aa:bb": alex
`)
		cfg, _, err := LoadFromPath(path)
		if err != nil {
			t.Fatalf("malformed mapping should not fail the load: %v", err)
		}
		if len(cfg.Rooms) != 0 {
			t.Errorf("expected empty room map, got %v", cfg.Rooms)
		}
		if cfg.People["aa:bb"] != "alex" {
			t.Errorf("person map should survive: %v", cfg.People)
		}
	})

	t.Run("partially malformed mapping keeps good entries", func(t *testing.T) {
		path := writeTempConfig(t, `
version: 1
rooms:
  ap-office: office
  ap-bad: [not, a, scalar]
`)
		cfg, _, err := LoadFromPath(path)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if cfg.Rooms["ap-office"] != "office" {
			t.Errorf("good entry lost: %v", cfg.Rooms)
		}
		if _, ok := cfg.Rooms["ap-bad"]; ok {
			t.Error("malformed entry should be skipped")
		}
	})

	t.Run("numeric duration treated as seconds", func(t *testing.T) {
		path := writeTempConfig(t, "version: 1\nfusion:\n  interval: 10\n")
		cfg, _, err := LoadFromPath(path)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if cfg.Fusion.Interval.Duration() != 10*time.Second {
			t.Errorf("expected 10s, got %v", cfg.Fusion.Interval.Duration())
		}
	})

	t.Run("missing file errors", func(t *testing.T) {
		if _, _, err := LoadFromPath("/nonexistent/roomsense.yaml"); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "config.yaml")
	cfg := DefaultConfig()
	cfg.Rooms = RoomMap{"ap-1": "den"}
	cfg.Network.Enabled = true

	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, _, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Rooms["ap-1"] != "den" {
		t.Errorf("round trip lost room map: %v", loaded.Rooms)
	}
	if !loaded.Network.Enabled {
		t.Error("round trip lost network enable flag")
	}
}
