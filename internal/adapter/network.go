package adapter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"roomsense/internal/domain"
	"roomsense/internal/log"
)

// NetworkAdapter turns the raw association table from a NetworkSource
// into canonical signals plus a fresh device snapshot. It is the sole
// writer of the DeviceRecord snapshot: every successful poll replaces
// the table wholesale, it is never merged.
type NetworkAdapter struct {
	source   NetworkSource
	settings SettingsFunc

	mu      sync.Mutex
	running bool
}

// NewNetworkAdapter creates the network/association adapter
func NewNetworkAdapter(source NetworkSource, settings SettingsFunc) *NetworkAdapter {
	return &NetworkAdapter{source: source, settings: settings}
}

// Name returns the adapter identifier
func (n *NetworkAdapter) Name() string {
	return "network-" + n.source.Name()
}

// Type returns the adapter type
func (n *NetworkAdapter) Type() AdapterType {
	return AdapterTypePolling
}

// Start initializes the adapter
func (n *NetworkAdapter) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.running = true
	log.Info("network adapter started", "source", n.source.Name())
	return nil
}

// Stop shuts down the adapter
func (n *NetworkAdapter) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.running = false
	return nil
}

// Poll fetches the association table and normalizes it. Errors pass
// through untouched so the registry can distinguish terminal auth
// failures from transient ones.
func (n *NetworkAdapter) Poll(ctx context.Context) (*Batch, error) {
	n.mu.Lock()
	if !n.running {
		n.mu.Unlock()
		return nil, fmt.Errorf("adapter not running")
	}
	n.mu.Unlock()

	records, err := n.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	s := n.settings()
	now := time.Now()

	snap := &domain.DeviceSnapshot{
		TakenAt: now,
		Source:  n.source.Name(),
		Devices: make([]domain.DeviceRecord, 0, len(records)),
	}
	var signals []domain.Signal

	for _, rec := range records {
		dev := n.resolve(rec, s)
		snap.Devices = append(snap.Devices, dev)

		// Unmapped association points still land in the snapshot (they
		// count toward Home/Away) but produce no room signal.
		if dev.Room == "" {
			continue
		}

		signals = append(signals, n.presenceSignal(dev, s, now))

		if dev.ThroughputKbps() >= s.ActivityKbps {
			signals = append(signals, domain.Signal{
				Room:       dev.Room,
				Class:      domain.SignalDeviceActivity,
				Weight:     domain.SignalTypes[domain.SignalDeviceActivity].BaseWeight,
				Detail:     fmt.Sprintf("%s throughput %.0f kbps", deviceLabel(dev), dev.ThroughputKbps()),
				ObservedAt: now,
			})
		}
	}

	log.Debug("network poll normalized",
		"source", n.source.Name(), "devices", len(snap.Devices), "signals", len(signals))

	return &Batch{Source: n.Name(), Signals: signals, Snapshot: snap}, nil
}

// resolve applies person and room resolution to one raw record.
// Person: explicit person-map entry wins, else the device's display
// hint, else unattributable. Room: the association point must appear in
// the room map.
func (n *NetworkAdapter) resolve(rec AssociationRecord, s Settings) domain.DeviceRecord {
	person := s.People[rec.DeviceID]
	if person == "" {
		person = rec.DisplayHint
	}
	return domain.DeviceRecord{
		ID:               rec.DeviceID,
		AssociationPoint: rec.AssociationPoint,
		DisplayName:      rec.DisplayHint,
		SignalStrength:   rec.SignalStrength,
		SendRate:         rec.SendRate,
		ReceiveRate:      rec.ReceiveRate,
		LastSeen:         rec.LastSeen,
		Person:           person,
		Room:             s.Rooms[rec.AssociationPoint],
	}
}

// presenceSignal builds the network-presence signal for a resolved
// device. Weak radio signal is a poor room discriminator indoors, so an
// RSSI more negative than the ambiguity threshold halves the weight.
func (n *NetworkAdapter) presenceSignal(dev domain.DeviceRecord, s Settings, now time.Time) domain.Signal {
	weight := domain.SignalTypes[domain.SignalNetworkPresence].BaseWeight
	if dev.SignalStrength < s.RSSIAmbiguity {
		weight /= 2
	}
	return domain.Signal{
		Room:       dev.Room,
		Class:      domain.SignalNetworkPresence,
		Weight:     weight,
		Detail:     fmt.Sprintf("%s via %s rssi=%d", deviceLabel(dev), dev.AssociationPoint, dev.SignalStrength),
		ObservedAt: now,
	}
}

func deviceLabel(dev domain.DeviceRecord) string {
	if dev.Person != "" {
		return dev.Person
	}
	return dev.ID
}
