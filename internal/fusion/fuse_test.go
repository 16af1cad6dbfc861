package fusion

import (
	"testing"
	"time"

	"roomsense/internal/domain"
)

func TestFuseCombinesIndependentEvidence(t *testing.T) {
	now := time.Now()
	rooms := map[string][]domain.Signal{
		"office": {
			domain.NewSignal("office", domain.SignalNetworkPresence, "device=aa", now),
			domain.NewSignal("office", domain.SignalDeviceActivity, "device=aa", now),
		},
	}

	results := Fuse(rooms, domain.StateHome, now)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	// 1 - (1-0.75)(1-0.40) = 0.85
	if !almostEqual(results[0].Probability, 0.85) {
		t.Errorf("expected probability 0.85, got %.4f", results[0].Probability)
	}
	if len(results[0].Signals) != 2 {
		t.Errorf("expected 2 contributing signals, got %d", len(results[0].Signals))
	}
}

func TestFuseEmptyRoomIsZero(t *testing.T) {
	now := time.Now()
	rooms := map[string][]domain.Signal{"garage": nil}

	results := Fuse(rooms, domain.StateHome, now)
	if results[0].Probability != 0 {
		t.Errorf("room with no signals fused to %.4f", results[0].Probability)
	}
}

func TestFuseAwayForcesZero(t *testing.T) {
	now := time.Now()
	rooms := map[string][]domain.Signal{
		"office": {
			domain.NewSignal("office", domain.SignalVisionPerson, "source=cam", now),
			domain.NewSignal("office", domain.SignalNetworkPresence, "device=aa", now),
		},
		"kitchen": {
			domain.NewSignal("kitchen", domain.SignalVisionFaceMatch, "person=alex", now),
		},
	}

	results := Fuse(rooms, domain.StateAway, now)
	for _, r := range results {
		if r.Probability != 0 {
			t.Errorf("%s: expected probability 0 while away, got %.4f", r.Room, r.Probability)
		}
		if len(r.Signals) == 0 {
			t.Errorf("%s: contributing signals discarded while away", r.Room)
		}
	}
}

func TestFuseBoundsAndOrdering(t *testing.T) {
	now := time.Now()
	rooms := map[string][]domain.Signal{
		"zulu": {
			domain.NewSignal("zulu", domain.SignalVisionFaceMatch, "", now),
			domain.NewSignal("zulu", domain.SignalNetworkPresence, "", now),
			domain.NewSignal("zulu", domain.SignalVisionPerson, "", now),
		},
		"alpha": {
			domain.NewSignal("alpha", domain.SignalDeviceActivity, "", now),
		},
	}

	results := Fuse(rooms, domain.StateHome, now)
	if results[0].Room != "alpha" || results[1].Room != "zulu" {
		t.Errorf("results not sorted by room: %s, %s", results[0].Room, results[1].Room)
	}
	for _, r := range results {
		if r.Probability < 0 || r.Probability > 1 {
			t.Errorf("%s: probability %.4f out of range", r.Room, r.Probability)
		}
		if !r.ComputedAt.Equal(now) {
			t.Errorf("%s: wrong cycle timestamp", r.Room)
		}
	}
	// A face-match carries weight 1.0, so the room saturates.
	if !almostEqual(results[1].Probability, 1.0) {
		t.Errorf("expected saturated probability, got %.4f", results[1].Probability)
	}
}
