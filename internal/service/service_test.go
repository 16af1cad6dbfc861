package service

import (
	"context"
	"testing"
	"time"

	"roomsense/internal/adapter"
	"roomsense/internal/config"
	"roomsense/internal/domain"
	"roomsense/internal/fusion"
	"roomsense/internal/repository"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Rooms = config.RoomMap{"ap-office": "office"}
	cfg.People = config.PersonMap{"aa:bb:cc:dd:ee:ff": "alex"}
	return cfg
}

func newTestService(t *testing.T, repo repository.Repository) (*PresenceService, *Settings, chan Event) {
	t.Helper()

	settings := NewSettings(testConfig())
	engine := fusion.NewEngine(fusion.Options{
		Interval: time.Minute,
		People:   settings.People,
		Rooms:    settings.RoomNames,
	})
	bus := NewEventBus()
	events := make(chan Event, 16)
	bus.Subscribe(events)

	return NewPresenceService(engine, repo, nil, settings, bus), settings, events
}

func TestCommitRoutesSignals(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	now := time.Now()

	err := svc.Commit(context.Background(), &adapter.Batch{
		Source:  "vision",
		Signals: []domain.Signal{domain.NewSignal("office", domain.SignalVisionPerson, "source=cam", now)},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	results := svc.engine.Evaluate(now)
	if len(results) != 1 || results[0].Room != "office" {
		t.Fatalf("signal did not reach the engine: %+v", results)
	}
}

func TestCommitSnapshotUpdatesGateAndPublishes(t *testing.T) {
	svc, _, events := newTestService(t, nil)

	// A mapping is configured and no snapshot exists yet.
	if got := svc.HomeAway(); got.Home {
		t.Fatal("expected away before first poll")
	}

	err := svc.Commit(context.Background(), &adapter.Batch{
		Source: "network-controller",
		Snapshot: &domain.DeviceSnapshot{
			Devices: []domain.DeviceRecord{{ID: "aa:bb:cc:dd:ee:ff", Room: "office"}},
			TakenAt: time.Now(),
			Source:  "controller",
		},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	if got := svc.HomeAway(); !got.Home || got.State != domain.StateHome {
		t.Errorf("expected home after mapped device seen, got %+v", got)
	}
	if svc.Devices() == nil {
		t.Error("device snapshot not exposed in read model")
	}

	select {
	case ev := <-events:
		if ev.Type != EventDevicesUpdated {
			t.Errorf("expected devices_updated event, got %s", ev.Type)
		}
	default:
		t.Error("no event published for snapshot commit")
	}
}

func TestRoomPresenceNotFound(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	if _, err := svc.RoomPresence("attic"); err == nil {
		t.Error("expected error for unknown room")
	}
}

func TestMappingOverridesMergeAndPublish(t *testing.T) {
	svc, settings, events := newTestService(t, nil)
	ctx := context.Background()

	if err := svc.SaveRoomMapping(ctx, "ap-office", "study"); err != nil {
		t.Fatalf("save mapping: %v", err)
	}
	if got := settings.Rooms()["ap-office"]; got != "study" {
		t.Errorf("override did not win over config entry: %q", got)
	}

	select {
	case ev := <-events:
		if ev.Type != EventMappingsUpdated {
			t.Errorf("expected mappings_updated, got %s", ev.Type)
		}
	default:
		t.Error("no event published for mapping change")
	}

	if err := svc.DeleteRoomMapping(ctx, "ap-office"); err != nil {
		t.Fatalf("delete mapping: %v", err)
	}
	if got := settings.Rooms()["ap-office"]; got != "office" {
		t.Errorf("expected config entry back after delete, got %q", got)
	}

	if err := svc.SaveRoomMapping(ctx, "", "x"); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestReloadWithoutLoader(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	if err := svc.Reload(); err == nil {
		t.Error("expected error when no loader installed")
	}
}

func TestReloadReplacesConfig(t *testing.T) {
	svc, settings, events := newTestService(t, nil)

	next := config.DefaultConfig()
	next.Rooms = config.RoomMap{"ap-office": "office", "ap-garage": "garage"}
	svc.SetConfigLoader(func() (*config.Config, error) { return next, nil })

	if err := svc.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(settings.Rooms()) != 2 {
		t.Errorf("reloaded room map not applied: %v", settings.Rooms())
	}

	select {
	case ev := <-events:
		if ev.Type != EventConfigReloaded {
			t.Errorf("expected config_reloaded, got %s", ev.Type)
		}
	default:
		t.Error("no reload event published")
	}
}

type fakeRepo struct {
	repository.Repository
	rooms  map[string]string
	people map[string]string
}

func (f *fakeRepo) ListMappings(_ context.Context, kind repository.MappingKind) (map[string]string, error) {
	if kind == repository.MappingRoom {
		return f.rooms, nil
	}
	return f.people, nil
}

func TestLoadOverrides(t *testing.T) {
	repo := &fakeRepo{
		rooms:  map[string]string{"ap-deck": "deck"},
		people: map[string]string{"11:22:33:44:55:66": "sam"},
	}
	svc, settings, _ := newTestService(t, repo)

	if err := svc.LoadOverrides(context.Background()); err != nil {
		t.Fatalf("load overrides: %v", err)
	}

	if settings.Rooms()["ap-deck"] != "deck" {
		t.Error("room override not loaded")
	}
	if settings.People()["11:22:33:44:55:66"] != "sam" {
		t.Error("person override not loaded")
	}
	// Config entries survive the merge.
	if settings.Rooms()["ap-office"] != "office" {
		t.Error("config room entry lost after loading overrides")
	}
}

func TestEventBusDropsSlowSubscribers(t *testing.T) {
	bus := NewEventBus()
	full := make(chan Event) // unbuffered, nobody reading
	bus.Subscribe(full)

	done := make(chan struct{})
	go func() {
		bus.Publish(Event{Type: EventFusionUpdated})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
