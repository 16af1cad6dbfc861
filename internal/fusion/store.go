package fusion

import (
	"sync"
	"time"

	"roomsense/internal/domain"
)

// entry ties a signal to the adapter that produced it. The source name
// is bookkeeping only; it never influences fusion math.
type entry struct {
	source string
	sig    domain.Signal
}

// Store is the decay store: the accumulation point for signals between
// fusion cycles. Each adapter writes only its own signals, and the
// fusion cycle reads a filtered copy, so writers never contend with the
// computation in flight.
type Store struct {
	mu       sync.Mutex
	entries  []entry
	snapshot *domain.DeviceSnapshot
}

// NewStore creates an empty decay store
func NewStore() *Store {
	return &Store{}
}

// Add records signals from one source. A signal with the same source,
// room, class, and detail as an existing entry replaces it rather than
// stacking: a poller re-observing the same device every cycle refreshes
// one piece of evidence, it does not manufacture new evidence.
func (s *Store) Add(source string, sigs ...domain.Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sig := range sigs {
		replaced := false
		for i, e := range s.entries {
			if e.source == source && e.sig.Room == sig.Room &&
				e.sig.Class == sig.Class && e.sig.Detail == sig.Detail {
				s.entries[i].sig = sig
				replaced = true
				break
			}
		}
		if !replaced {
			s.entries = append(s.entries, entry{source: source, sig: sig})
		}
	}
}

// SetSnapshot replaces the device snapshot wholesale.
func (s *Store) SetSnapshot(snap *domain.DeviceSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap
}

// DeviceSnapshot returns the current device snapshot, which may be nil
// before the first successful network poll.
func (s *Store) DeviceSnapshot() *domain.DeviceSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Prune drops expired signals and reports how many were removed.
func (s *Store) Prune(now, cycleStart time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	for _, e := range s.entries {
		if !e.sig.Expired(now, cycleStart) {
			kept = append(kept, e)
		}
	}
	removed := len(s.entries) - len(kept)
	s.entries = kept
	return removed
}

// Snapshot returns the unexpired signals grouped by room, plus the
// current device snapshot. The returned map and slices are copies:
// mutating them never touches the store, and writes that land after
// this call only affect the next cycle.
func (s *Store) Snapshot(now, cycleStart time.Time) (map[string][]domain.Signal, *domain.DeviceSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rooms := make(map[string][]domain.Signal)
	for _, e := range s.entries {
		if e.sig.Expired(now, cycleStart) {
			continue
		}
		rooms[e.sig.Room] = append(rooms[e.sig.Room], e.sig)
	}
	return rooms, s.snapshot
}

// Len reports the number of stored signals, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
