package fusion

import (
	"roomsense/internal/domain"
)

const (
	corroborationFactor = 1.15
	corroborationCap    = 0.95
	suppressionFactor   = 0.70
)

// CrossValidate adjusts per-room signal weights using agreement between
// the network and vision modalities. Rules, per room:
//
//  1. Corroboration: a room holding both a network-presence signal and a
//     vision-person signal in the same cycle has every signal of those two
//     classes multiplied by 1.15 and capped at 0.95.
//  2. Suppression: a vision-person signal in a room with no device in the
//     snapshot mapped to it is multiplied by 0.70.
//  3. Pass-through: with no device snapshot at all, every signal is
//     returned unmodified. Cross-validation is an accuracy enhancement,
//     never a hard dependency.
//
// The two adjustment rules cannot both fire for a room: corroboration
// requires a network-presence signal, which only exists when a mapped
// device sits in that room.
func CrossValidate(rooms map[string][]domain.Signal, snap *domain.DeviceSnapshot) map[string][]domain.Signal {
	if snap == nil {
		return rooms
	}

	out := make(map[string][]domain.Signal, len(rooms))
	for room, sigs := range rooms {
		adjusted := make([]domain.Signal, len(sigs))
		copy(adjusted, sigs)

		hasNetwork := hasClass(sigs, domain.SignalNetworkPresence)
		hasVision := hasClass(sigs, domain.SignalVisionPerson)

		switch {
		case hasNetwork && hasVision:
			for i := range adjusted {
				c := adjusted[i].Class
				if c != domain.SignalNetworkPresence && c != domain.SignalVisionPerson {
					continue
				}
				w := adjusted[i].Weight * corroborationFactor
				if w > corroborationCap {
					w = corroborationCap
				}
				adjusted[i].Weight = w
			}
		case hasVision && !snap.RoomOccupiedByDevice(room):
			for i := range adjusted {
				if adjusted[i].Class == domain.SignalVisionPerson {
					adjusted[i].Weight *= suppressionFactor
				}
			}
		}

		out[room] = adjusted
	}
	return out
}

func hasClass(sigs []domain.Signal, class domain.SignalClass) bool {
	for _, s := range sigs {
		if s.Class == class {
			return true
		}
	}
	return false
}
