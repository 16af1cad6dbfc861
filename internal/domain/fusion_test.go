package domain

import (
	"math"
	"testing"
	"time"
)

func TestCombineWeights(t *testing.T) {
	t.Run("no evidence combines to zero", func(t *testing.T) {
		if got := CombineWeights(nil); got != 0 {
			t.Errorf("expected 0, got %v", got)
		}
	})

	t.Run("single weight passes through", func(t *testing.T) {
		if got := CombineWeights([]float64{0.75}); math.Abs(got-0.75) > 1e-9 {
			t.Errorf("expected 0.75, got %v", got)
		}
	})

	t.Run("independent evidence compounds", func(t *testing.T) {
		// 1 - (1-0.75)(1-0.40) = 0.85
		got := CombineWeights([]float64{0.75, 0.40})
		if math.Abs(got-0.85) > 1e-9 {
			t.Errorf("expected 0.85, got %v", got)
		}
	})

	t.Run("order does not matter", func(t *testing.T) {
		a := CombineWeights([]float64{0.75, 0.40, 0.85})
		b := CombineWeights([]float64{0.85, 0.75, 0.40})
		if math.Abs(a-b) > 1e-12 {
			t.Errorf("combination not commutative: %v vs %v", a, b)
		}
	})

	t.Run("never exceeds one", func(t *testing.T) {
		got := CombineWeights([]float64{0.95, 0.95, 0.95, 0.95, 1.0})
		if got > 1 {
			t.Errorf("probability %v exceeds 1", got)
		}
	})

	t.Run("out of range inputs are clamped", func(t *testing.T) {
		got := CombineWeights([]float64{-0.2, 1.7})
		if got < 0 || got > 1 {
			t.Errorf("probability %v out of [0,1]", got)
		}
	})
}

func TestEvaluateHomeAway(t *testing.T) {
	snap := &DeviceSnapshot{
		TakenAt: time.Now(),
		Devices: []DeviceRecord{
			{ID: "aa:bb:cc:dd:ee:ff", AssociationPoint: "ap-office"},
			{ID: "11:22:33:44:55:66", AssociationPoint: "ap-kitchen"},
		},
	}

	t.Run("empty person map disables the gate", func(t *testing.T) {
		if got := EvaluateHomeAway(nil, nil); got != StateHome {
			t.Errorf("expected home with no mapping, got %s", got)
		}
		if got := EvaluateHomeAway(snap, map[string]string{}); got != StateHome {
			t.Errorf("expected home with empty mapping, got %s", got)
		}
	})

	t.Run("mapped device present means home", func(t *testing.T) {
		people := map[string]string{"aa:bb:cc:dd:ee:ff": "alex"}
		if got := EvaluateHomeAway(snap, people); got != StateHome {
			t.Errorf("expected home, got %s", got)
		}
	})

	t.Run("no mapped device present means away", func(t *testing.T) {
		people := map[string]string{"de:ad:be:ef:00:01": "alex"}
		if got := EvaluateHomeAway(snap, people); got != StateAway {
			t.Errorf("expected away, got %s", got)
		}
	})

	t.Run("nil snapshot with mapping means away", func(t *testing.T) {
		people := map[string]string{"de:ad:be:ef:00:01": "alex"}
		if got := EvaluateHomeAway(nil, people); got != StateAway {
			t.Errorf("expected away, got %s", got)
		}
	})
}

func TestDeviceRecordThroughput(t *testing.T) {
	d := DeviceRecord{SendRate: 10000, ReceiveRate: 5000}
	if got := d.ThroughputKbps(); math.Abs(got-120) > 1e-9 {
		t.Errorf("expected 120 kbps, got %v", got)
	}
}

func TestRoomOccupiedByDevice(t *testing.T) {
	snap := &DeviceSnapshot{
		Devices: []DeviceRecord{
			{ID: "aa", Room: "office"},
			{ID: "bb", Room: ""},
		},
	}
	if !snap.RoomOccupiedByDevice("office") {
		t.Error("expected office to be occupied by device")
	}
	if snap.RoomOccupiedByDevice("bedroom") {
		t.Error("bedroom should not be occupied by device")
	}
	var nilSnap *DeviceSnapshot
	if nilSnap.RoomOccupiedByDevice("office") {
		t.Error("nil snapshot should report no devices")
	}
}
