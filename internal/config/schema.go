package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"roomsense/internal/log"
)

// Config is the root configuration structure
type Config struct {
	Version  int            `yaml:"version"`
	LogLevel string         `yaml:"log_level"`
	Database DatabaseConfig `yaml:"database"`
	Fusion   FusionConfig   `yaml:"fusion"`
	Network  NetworkConfig  `yaml:"network"`
	Vision   VisionConfig   `yaml:"vision"`
	HTTP     HTTPConfig     `yaml:"http"`

	// Rooms maps association points (access point / sensor hub ids) to
	// room names. People maps device ids to person names. Both degrade
	// to empty on malformed input rather than failing the load.
	Rooms  RoomMap   `yaml:"rooms"`
	People PersonMap `yaml:"people"`
}

// DatabaseConfig holds sqlite settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// FusionConfig controls the fusion cycle
type FusionConfig struct {
	Interval Duration `yaml:"interval"`
}

// NetworkConfig configures the network/association source
type NetworkConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Source       string   `yaml:"source"` // "controller", "stations", "sweep"
	PollInterval Duration `yaml:"poll_interval"`

	// Weight thresholds. A station whose RSSI is more negative than
	// RSSIAmbiguityThreshold contributes at half base weight; combined
	// throughput at or above ActivityThresholdKbps emits an extra
	// device-activity signal.
	RSSIAmbiguityThreshold int     `yaml:"rssi_ambiguity_threshold"`
	ActivityThresholdKbps  float64 `yaml:"activity_threshold_kbps"`

	Controller ControllerConfig `yaml:"controller"`
	Stations   StationsConfig   `yaml:"stations"`
	Sweep      SweepConfig      `yaml:"sweep"`
}

// ControllerConfig points at the network controller's REST API
type ControllerConfig struct {
	Endpoint string   `yaml:"endpoint"`
	APIKey   string   `yaml:"api_key"`
	Timeout  Duration `yaml:"timeout"`
}

// StationsConfig configures the SSH station-table source
type StationsConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	User           string   `yaml:"user"`
	Password       string   `yaml:"password,omitempty"`
	PrivateKeyFile string   `yaml:"private_key_file,omitempty"`
	Interfaces     []string `yaml:"interfaces"`
	Timeout        Duration `yaml:"timeout"`
}

// SweepConfig configures the nmap LAN sweep source
type SweepConfig struct {
	Targets []string `yaml:"targets"` // CIDR ranges
	Timeout Duration `yaml:"timeout"`
}

// VisionConfig configures the push-event source
type VisionConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"` // websocket URL
	APIKey   string `yaml:"api_key"`

	// Enrichment endpoint is optional; empty disables the best-effort
	// face-match path entirely.
	EnrichEndpoint string   `yaml:"enrich_endpoint,omitempty"`
	EnrichTimeout  Duration `yaml:"enrich_timeout"`
}

// HTTPConfig holds listener settings
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML parses either "30s" style strings or bare numbers (seconds)
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n float64
	if err := unmarshal(&n); err != nil {
		return fmt.Errorf("duration must be a string or number")
	}
	*d = Duration(time.Duration(n * float64(time.Second)))
	return nil
}

// MarshalYAML renders the duration as a string
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// RoomMap maps association point ids to room names. Malformed input
// degrades to an empty map: the fusion pipeline keeps running with
// reduced corroboration instead of refusing to start.
type RoomMap map[string]string

// UnmarshalYAML decodes the mapping leniently, skipping entries that are
// not plain scalars and degrading to empty on a non-mapping node. A
// malformed mapping is logged at warning level, never returned as an
// error: it must not stop the engine.
func (m *RoomMap) UnmarshalYAML(value *yaml.Node) error {
	*m = decodeStringMap("rooms", value)
	return nil
}

// PersonMap maps device ids to person names, with the same degradation
// behavior as RoomMap.
type PersonMap map[string]string

// UnmarshalYAML decodes the mapping leniently.
func (m *PersonMap) UnmarshalYAML(value *yaml.Node) error {
	*m = decodeStringMap("people", value)
	return nil
}

func decodeStringMap(section string, value *yaml.Node) map[string]string {
	out := map[string]string{}
	if value.Kind != yaml.MappingNode {
		log.Warn("malformed config mapping, continuing with empty map",
			"section", section, "got", value.Tag)
		return out
	}
	var bad int
	for i := 0; i+1 < len(value.Content); i += 2 {
		k, v := value.Content[i], value.Content[i+1]
		if k.Kind != yaml.ScalarNode || v.Kind != yaml.ScalarNode || k.Value == "" {
			bad++
			continue
		}
		out[k.Value] = v.Value
	}
	if bad > 0 {
		log.Warn("skipped malformed config mapping entries",
			"section", section, "skipped", bad, "kept", len(out))
	}
	return out
}
