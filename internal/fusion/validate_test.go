package fusion

import (
	"math"
	"testing"
	"time"

	"roomsense/internal/domain"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func officeSnapshot() *domain.DeviceSnapshot {
	return &domain.DeviceSnapshot{
		Devices: []domain.DeviceRecord{
			{ID: "aa:bb:cc:dd:ee:ff", AssociationPoint: "ap-office", Room: "office"},
		},
		TakenAt: time.Now(),
		Source:  "controller",
	}
}

func TestCrossValidateCorroborationBoost(t *testing.T) {
	now := time.Now()
	rooms := map[string][]domain.Signal{
		"office": {
			domain.NewSignal("office", domain.SignalNetworkPresence, "device=aa", now),
			domain.NewSignal("office", domain.SignalVisionPerson, "source=cam", now),
		},
	}

	out := CrossValidate(rooms, officeSnapshot())

	for _, sig := range out["office"] {
		base := domain.SignalTypes[sig.Class].BaseWeight
		if sig.Weight <= base {
			t.Errorf("%s weight %.4f not boosted above base %.2f", sig.Class, sig.Weight, base)
		}
		if sig.Weight > corroborationCap {
			t.Errorf("%s weight %.4f exceeds cap %.2f", sig.Class, sig.Weight, corroborationCap)
		}
	}

	if !almostEqual(out["office"][0].Weight, 0.75*1.15) {
		t.Errorf("network-presence: expected %.4f, got %.4f", 0.75*1.15, out["office"][0].Weight)
	}
	// 0.85 * 1.15 = 0.9775, capped.
	if !almostEqual(out["office"][1].Weight, 0.95) {
		t.Errorf("vision-person: expected cap 0.95, got %.4f", out["office"][1].Weight)
	}
}

func TestCrossValidateBoostLeavesOtherClassesAlone(t *testing.T) {
	now := time.Now()
	rooms := map[string][]domain.Signal{
		"office": {
			domain.NewSignal("office", domain.SignalNetworkPresence, "device=aa", now),
			domain.NewSignal("office", domain.SignalVisionPerson, "source=cam", now),
			domain.NewSignal("office", domain.SignalDeviceActivity, "device=aa", now),
		},
	}

	out := CrossValidate(rooms, officeSnapshot())
	for _, sig := range out["office"] {
		if sig.Class == domain.SignalDeviceActivity && !almostEqual(sig.Weight, 0.40) {
			t.Errorf("device-activity weight changed to %.4f", sig.Weight)
		}
	}
}

func TestCrossValidateUnsupportedSuppression(t *testing.T) {
	now := time.Now()
	rooms := map[string][]domain.Signal{
		"bedroom": {
			domain.NewSignal("bedroom", domain.SignalVisionPerson, "source=cam-bedroom", now),
		},
	}

	out := CrossValidate(rooms, officeSnapshot())
	want := 0.85 * 0.70
	if got := out["bedroom"][0].Weight; !almostEqual(got, want) {
		t.Errorf("expected suppressed weight %.4f, got %.4f", want, got)
	}
}

func TestCrossValidateVisionWithDevicePresentUnmodified(t *testing.T) {
	// A device sits in the room but produced no signal this cycle: no
	// corroboration, but no suppression either.
	now := time.Now()
	rooms := map[string][]domain.Signal{
		"office": {
			domain.NewSignal("office", domain.SignalVisionPerson, "source=cam", now),
		},
	}

	out := CrossValidate(rooms, officeSnapshot())
	if got := out["office"][0].Weight; !almostEqual(got, 0.85) {
		t.Errorf("expected unmodified weight 0.85, got %.4f", got)
	}
}

func TestCrossValidateIdentityWithoutSnapshot(t *testing.T) {
	now := time.Now()
	rooms := map[string][]domain.Signal{
		"office": {
			domain.NewSignal("office", domain.SignalVisionPerson, "source=cam", now),
		},
		"kitchen": {
			domain.NewSignal("kitchen", domain.SignalNetworkPresence, "device=aa", now),
			domain.NewSignal("kitchen", domain.SignalDeviceActivity, "device=aa", now),
		},
	}

	out := CrossValidate(rooms, nil)
	for room, sigs := range rooms {
		for i, sig := range sigs {
			if !almostEqual(out[room][i].Weight, sig.Weight) {
				t.Errorf("%s[%d]: weight changed from %.4f to %.4f", room, i, sig.Weight, out[room][i].Weight)
			}
		}
	}
}

func TestCrossValidateDoesNotMutateInput(t *testing.T) {
	now := time.Now()
	rooms := map[string][]domain.Signal{
		"office": {
			domain.NewSignal("office", domain.SignalNetworkPresence, "device=aa", now),
			domain.NewSignal("office", domain.SignalVisionPerson, "source=cam", now),
		},
	}

	CrossValidate(rooms, officeSnapshot())

	if !almostEqual(rooms["office"][0].Weight, 0.75) || !almostEqual(rooms["office"][1].Weight, 0.85) {
		t.Error("input signals were mutated")
	}
}
