package domain

import (
	"time"
)

// DeviceRecord describes one currently-associated device as reported by
// the network collaborator. Records are refreshed wholesale on each poll
// cycle; a new snapshot supersedes the previous one, it is never merged.
type DeviceRecord struct {
	ID               string    `json:"id"` // Usually the MAC address
	AssociationPoint string    `json:"association_point"`
	DisplayName      string    `json:"display_name,omitempty"`
	SignalStrength   int       `json:"signal_strength"` // dBm, more negative = weaker
	SendRate         float64   `json:"send_rate"`       // bytes/sec
	ReceiveRate      float64   `json:"receive_rate"`    // bytes/sec
	LastSeen         time.Time `json:"last_seen"`

	// Resolved at ingestion from the person and room maps. Either may be
	// empty: an unattributable device still counts toward Home/Away.
	Person string `json:"person,omitempty"`
	Room   string `json:"room,omitempty"`
}

// ThroughputKbps returns the combined send+receive throughput in kbit/s.
func (d DeviceRecord) ThroughputKbps() float64 {
	return (d.SendRate + d.ReceiveRate) * 8 / 1000
}

// DeviceSnapshot is the device table from the most recent successful
// network poll. It is replaced atomically and read without mutation.
type DeviceSnapshot struct {
	Devices []DeviceRecord `json:"devices"`
	TakenAt time.Time      `json:"taken_at"`
	Source  string         `json:"source"`
}

// RoomOccupiedByDevice reports whether any device in the snapshot
// resolves to the given room.
func (s *DeviceSnapshot) RoomOccupiedByDevice(room string) bool {
	if s == nil {
		return false
	}
	for _, d := range s.Devices {
		if d.Room == room {
			return true
		}
	}
	return false
}

// HomeAwayState is the global occupancy override derived from
// known-device presence.
type HomeAwayState string

const (
	StateHome HomeAwayState = "home"
	StateAway HomeAwayState = "away"
)

// EvaluateHomeAway derives the global state from a device snapshot and
// the person map (device id -> person name).
//
// Home when any mapped device is present, or when no mapping is
// configured at all. An empty person map disables the gate by omission:
// forcing every room to zero before any devices have been mapped would
// be a worse failure mode than never going Away.
func EvaluateHomeAway(snap *DeviceSnapshot, people map[string]string) HomeAwayState {
	if len(people) == 0 {
		return StateHome
	}
	if snap == nil {
		return StateAway
	}
	for _, d := range snap.Devices {
		if _, ok := people[d.ID]; ok {
			return StateHome
		}
	}
	return StateAway
}
