package service

import (
	"sort"
	"sync"

	"roomsense/internal/adapter"
	"roomsense/internal/config"
)

// Settings holds the live runtime configuration: the loaded config file
// merged with operator-edited mapping overrides from the database.
// Overrides win over file entries for the same key. Adapters and the
// fusion engine read through accessor closures, so a reload or a
// mapping edit takes effect on the next ingestion event.
type Settings struct {
	mu              sync.RWMutex
	cfg             *config.Config
	roomOverrides   map[string]string
	personOverrides map[string]string
}

// NewSettings wraps a loaded config
func NewSettings(cfg *config.Config) *Settings {
	return &Settings{
		cfg:             cfg,
		roomOverrides:   map[string]string{},
		personOverrides: map[string]string{},
	}
}

// Replace swaps in a newly loaded config, keeping overrides.
func (s *Settings) Replace(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

// Config returns the current config.
func (s *Settings) Config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// SetOverrides replaces both override maps, typically at startup from
// the database.
func (s *Settings) SetOverrides(rooms, people map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomOverrides = cloneMap(rooms)
	s.personOverrides = cloneMap(people)
}

// SetRoomOverride adds or replaces one room mapping override.
func (s *Settings) SetRoomOverride(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomOverrides[key] = value
}

// DeleteRoomOverride removes one room mapping override.
func (s *Settings) DeleteRoomOverride(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.roomOverrides, key)
}

// SetPersonOverride adds or replaces one person mapping override.
func (s *Settings) SetPersonOverride(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.personOverrides[key] = value
}

// DeletePersonOverride removes one person mapping override.
func (s *Settings) DeletePersonOverride(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.personOverrides, key)
}

// Rooms returns the merged association-point-to-room map.
func (s *Settings) Rooms() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return mergeMaps(s.cfg.Rooms, s.roomOverrides)
}

// People returns the merged device-to-person map.
func (s *Settings) People() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return mergeMaps(s.cfg.People, s.personOverrides)
}

// RoomNames returns the sorted distinct room names from the merged room
// map. These are the rooms reported every cycle even without signals.
func (s *Settings) RoomNames() []string {
	seen := map[string]bool{}
	for _, room := range s.Rooms() {
		seen[room] = true
	}
	names := make([]string, 0, len(seen))
	for room := range seen {
		names = append(names, room)
	}
	sort.Strings(names)
	return names
}

// Adapter returns the settings slice adapters read on every ingestion
// event.
func (s *Settings) Adapter() adapter.Settings {
	s.mu.RLock()
	rssi := s.cfg.Network.RSSIAmbiguityThreshold
	kbps := s.cfg.Network.ActivityThresholdKbps
	s.mu.RUnlock()

	return adapter.Settings{
		Rooms:         s.Rooms(),
		People:        s.People(),
		RSSIAmbiguity: rssi,
		ActivityKbps:  kbps,
	}
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func mergeMaps(base, overrides map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(overrides))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}
