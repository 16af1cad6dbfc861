package domain

import (
	"time"
)

// SignalClass identifies a category of occupancy evidence
type SignalClass string

const (
	SignalNetworkPresence SignalClass = "network-presence" // Device associated to an access point in the room
	SignalDeviceActivity  SignalClass = "device-activity"  // Device is actively moving traffic
	SignalVisionPerson    SignalClass = "vision-person"    // Camera detected a person
	SignalVisionFaceMatch SignalClass = "vision-face-match" // Detected person matched a known face
)

// SignalType describes the intrinsic properties of a signal class
type SignalType struct {
	Name       SignalClass   `json:"name"`
	BaseWeight float64       `json:"base_weight"` // 0.0 - 1.0
	Decay      time.Duration `json:"decay"`       // Window after which the signal no longer counts; 0 = current cycle only
}

// SignalTypes maps classes to their base weights and decay windows.
// A zero decay window means the signal is only valid within the fusion
// cycle that produced it.
var SignalTypes = map[SignalClass]SignalType{
	SignalNetworkPresence: {Name: SignalNetworkPresence, BaseWeight: 0.75, Decay: 300 * time.Second},
	SignalDeviceActivity:  {Name: SignalDeviceActivity, BaseWeight: 0.40, Decay: 120 * time.Second},
	SignalVisionPerson:    {Name: SignalVisionPerson, BaseWeight: 0.85, Decay: 180 * time.Second},
	SignalVisionFaceMatch: {Name: SignalVisionFaceMatch, BaseWeight: 1.00, Decay: 0},
}

// Signal is one unit of timestamped, weighted evidence that a room is
// occupied. Signals are created by exactly one source adapter and are
// read-only afterwards.
type Signal struct {
	Room       string      `json:"room"`
	Class      SignalClass `json:"class"`
	Weight     float64     `json:"weight"` // 0.0 - 1.0
	Detail     string      `json:"detail,omitempty"`
	ObservedAt time.Time   `json:"observed_at"`
}

// NewSignal creates a signal with the class's base weight.
func NewSignal(room string, class SignalClass, detail string, observedAt time.Time) Signal {
	return Signal{
		Room:       room,
		Class:      class,
		Weight:     SignalTypes[class].BaseWeight,
		Detail:     detail,
		ObservedAt: observedAt,
	}
}

// Expired reports whether the signal has outlived its decay window.
// Zero-decay classes are valid only for the cycle that produced them:
// they expire once a cycle that started after their observation has
// completed, which cycleStart marks.
func (s Signal) Expired(now, cycleStart time.Time) bool {
	st, ok := SignalTypes[s.Class]
	if !ok {
		return true
	}
	if st.Decay == 0 {
		return s.ObservedAt.Before(cycleStart)
	}
	return now.Sub(s.ObservedAt) > st.Decay
}

// ClampWeight bounds a weight to [0,1]
func ClampWeight(w float64) float64 {
	if w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}
