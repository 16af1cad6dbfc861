package service

import (
	"context"
	"fmt"
	"time"

	"roomsense/internal/adapter"
	"roomsense/internal/config"
	"roomsense/internal/domain"
	"roomsense/internal/fusion"
	"roomsense/internal/log"
	"roomsense/internal/repository"
)

// HomeAwayStatus is the read-model view of the global occupancy gate.
type HomeAwayStatus struct {
	State domain.HomeAwayState `json:"state"`
	Home  bool                 `json:"home"`
}

// PresenceService is the commit path from adapters into the fusion
// engine plus the read model exposed to handlers. Every adapter batch
// funnels through Commit; nothing else mutates fusion state.
type PresenceService struct {
	engine   *fusion.Engine
	repo     repository.Repository
	registry *adapter.Registry
	settings *Settings
	eventBus *EventBus

	loadConfig func() (*config.Config, error)
}

// NewPresenceService creates the presence service. repo may be nil when
// persistence is disabled.
func NewPresenceService(engine *fusion.Engine, repo repository.Repository,
	registry *adapter.Registry, settings *Settings, eventBus *EventBus) *PresenceService {
	return &PresenceService{
		engine:   engine,
		repo:     repo,
		registry: registry,
		settings: settings,
		eventBus: eventBus,
	}
}

// SetConfigLoader installs the function Reload uses to re-read the
// config file.
func (s *PresenceService) SetConfigLoader(load func() (*config.Config, error)) {
	s.loadConfig = load
}

// Commit accepts a normalized batch from an adapter. Signals land in
// the decay store; a device snapshot additionally re-evaluates the
// Home/Away gate and is logged to the sighting history.
func (s *PresenceService) Commit(ctx context.Context, batch *adapter.Batch) error {
	if batch == nil {
		return nil
	}

	if len(batch.Signals) > 0 {
		s.engine.Ingest(batch.Source, batch.Signals...)
	}

	if batch.Snapshot != nil {
		s.engine.UpdateSnapshot(batch.Snapshot)

		if s.repo != nil {
			if err := s.repo.RecordSightings(ctx, batch.Snapshot); err != nil {
				log.Warn("failed to record sightings", "source", batch.Source, "error", err)
			}
		}

		s.eventBus.Publish(Event{
			Type: EventDevicesUpdated,
			Payload: map[string]int{
				"devices": len(batch.Snapshot.Devices),
			},
		})
	}

	return nil
}

// Engine exposes the fusion engine for lifecycle wiring.
func (s *PresenceService) Engine() *fusion.Engine {
	return s.engine
}

// Presence returns the latest fusion cycle's per-room results.
func (s *PresenceService) Presence() []domain.FusionResult {
	return s.engine.Results()
}

// RoomPresence returns the latest result for one room.
func (s *PresenceService) RoomPresence(room string) (domain.FusionResult, error) {
	r, ok := s.engine.Result(room)
	if !ok {
		return domain.FusionResult{}, fmt.Errorf("room %s not found", room)
	}
	return r, nil
}

// HomeAway returns the current gate state.
func (s *PresenceService) HomeAway() HomeAwayStatus {
	state := s.engine.HomeAway()
	return HomeAwayStatus{State: state, Home: state == domain.StateHome}
}

// Devices returns the most recent device snapshot, nil before the first
// successful poll.
func (s *PresenceService) Devices() *domain.DeviceSnapshot {
	return s.engine.DeviceSnapshot()
}

// Adapters returns health information for all registered adapters.
func (s *PresenceService) Adapters() []adapter.AdapterInfo {
	if s.registry == nil {
		return nil
	}
	return s.registry.ListAdapters()
}

// TriggerPoll manually runs one poll on a named adapter.
func (s *PresenceService) TriggerPoll(ctx context.Context, name string) error {
	if s.registry == nil {
		return fmt.Errorf("no adapter registry")
	}
	return s.registry.TriggerPoll(ctx, name)
}

// Sightings returns the device sighting history.
func (s *PresenceService) Sightings(ctx context.Context, deviceID string, since time.Time, limit int) ([]repository.Sighting, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.ListSightings(ctx, deviceID, since, limit)
}

// RoomMappings returns the merged association-point-to-room map.
func (s *PresenceService) RoomMappings() map[string]string {
	return s.settings.Rooms()
}

// PersonMappings returns the merged device-to-person map.
func (s *PresenceService) PersonMappings() map[string]string {
	return s.settings.People()
}

// SaveRoomMapping persists a room mapping override and applies it
// immediately.
func (s *PresenceService) SaveRoomMapping(ctx context.Context, key, value string) error {
	if key == "" || value == "" {
		return fmt.Errorf("mapping key and value required")
	}
	if s.repo != nil {
		if err := s.repo.SaveMapping(ctx, repository.MappingRoom, key, value); err != nil {
			return err
		}
	}
	s.settings.SetRoomOverride(key, value)
	s.publishMappings()
	return nil
}

// DeleteRoomMapping removes a room mapping override.
func (s *PresenceService) DeleteRoomMapping(ctx context.Context, key string) error {
	if s.repo != nil {
		if err := s.repo.DeleteMapping(ctx, repository.MappingRoom, key); err != nil {
			return err
		}
	}
	s.settings.DeleteRoomOverride(key)
	s.publishMappings()
	return nil
}

// SavePersonMapping persists a person mapping override and applies it
// immediately.
func (s *PresenceService) SavePersonMapping(ctx context.Context, key, value string) error {
	if key == "" || value == "" {
		return fmt.Errorf("mapping key and value required")
	}
	if s.repo != nil {
		if err := s.repo.SaveMapping(ctx, repository.MappingPerson, key, value); err != nil {
			return err
		}
	}
	s.settings.SetPersonOverride(key, value)
	s.publishMappings()
	return nil
}

// DeletePersonMapping removes a person mapping override.
func (s *PresenceService) DeletePersonMapping(ctx context.Context, key string) error {
	if s.repo != nil {
		if err := s.repo.DeleteMapping(ctx, repository.MappingPerson, key); err != nil {
			return err
		}
	}
	s.settings.DeletePersonOverride(key)
	s.publishMappings()
	return nil
}

// LoadOverrides pulls persisted mapping overrides into the live
// settings, typically once at startup.
func (s *PresenceService) LoadOverrides(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}

	rooms, err := s.repo.ListMappings(ctx, repository.MappingRoom)
	if err != nil {
		return fmt.Errorf("load room overrides: %w", err)
	}
	people, err := s.repo.ListMappings(ctx, repository.MappingPerson)
	if err != nil {
		return fmt.Errorf("load person overrides: %w", err)
	}

	s.settings.SetOverrides(rooms, people)
	log.Info("loaded mapping overrides", "rooms", len(rooms), "people", len(people))
	return nil
}

// Reload re-reads the config file and applies it to the live settings.
func (s *PresenceService) Reload() error {
	if s.loadConfig == nil {
		return fmt.Errorf("config reload not available")
	}

	cfg, err := s.loadConfig()
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}

	s.settings.Replace(cfg)
	s.eventBus.Publish(Event{Type: EventConfigReloaded})
	log.Info("configuration reloaded", "rooms", len(cfg.Rooms), "people", len(cfg.People))
	return nil
}

func (s *PresenceService) publishMappings() {
	s.eventBus.Publish(Event{
		Type: EventMappingsUpdated,
		Payload: map[string]int{
			"rooms":  len(s.settings.Rooms()),
			"people": len(s.settings.People()),
		},
	})
}
