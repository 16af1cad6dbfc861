package domain

import (
	"testing"
	"time"
)

func TestSignalTypes(t *testing.T) {
	t.Run("registry holds expected base weights", func(t *testing.T) {
		cases := []struct {
			class  SignalClass
			weight float64
			decay  time.Duration
		}{
			{SignalNetworkPresence, 0.75, 300 * time.Second},
			{SignalDeviceActivity, 0.40, 120 * time.Second},
			{SignalVisionPerson, 0.85, 180 * time.Second},
			{SignalVisionFaceMatch, 1.00, 0},
		}
		for _, c := range cases {
			st, ok := SignalTypes[c.class]
			if !ok {
				t.Fatalf("missing signal type %s", c.class)
			}
			if st.BaseWeight != c.weight {
				t.Errorf("%s: expected base weight %v, got %v", c.class, c.weight, st.BaseWeight)
			}
			if st.Decay != c.decay {
				t.Errorf("%s: expected decay %v, got %v", c.class, c.decay, st.Decay)
			}
		}
	})

	t.Run("all base weights within bounds", func(t *testing.T) {
		for class, st := range SignalTypes {
			if st.BaseWeight < 0 || st.BaseWeight > 1 {
				t.Errorf("%s: base weight %v out of [0,1]", class, st.BaseWeight)
			}
			if st.Decay < 0 {
				t.Errorf("%s: negative decay %v", class, st.Decay)
			}
		}
	})
}

func TestNewSignal(t *testing.T) {
	now := time.Now()
	sig := NewSignal("office", SignalVisionPerson, "cam-1 conf=0.92", now)

	if sig.Weight != 0.85 {
		t.Errorf("expected base weight 0.85, got %v", sig.Weight)
	}
	if sig.Room != "office" {
		t.Errorf("expected room office, got %s", sig.Room)
	}
	if !sig.ObservedAt.Equal(now) {
		t.Errorf("expected observed_at %v, got %v", now, sig.ObservedAt)
	}
}

func TestSignalExpired(t *testing.T) {
	now := time.Now()
	cycleStart := now.Add(-15 * time.Second)

	t.Run("fresh signal is valid", func(t *testing.T) {
		sig := NewSignal("office", SignalNetworkPresence, "", now.Add(-time.Minute))
		if sig.Expired(now, cycleStart) {
			t.Error("signal within decay window reported expired")
		}
	})

	t.Run("signal past decay window expires", func(t *testing.T) {
		sig := NewSignal("office", SignalNetworkPresence, "", now.Add(-301*time.Second))
		if !sig.Expired(now, cycleStart) {
			t.Error("signal past decay window reported valid")
		}
	})

	t.Run("zero-decay signal valid within current cycle", func(t *testing.T) {
		sig := NewSignal("office", SignalVisionFaceMatch, "", now.Add(-5*time.Second))
		if sig.Expired(now, cycleStart) {
			t.Error("face-match observed within cycle reported expired")
		}
	})

	t.Run("zero-decay signal expires after its cycle", func(t *testing.T) {
		sig := NewSignal("office", SignalVisionFaceMatch, "", cycleStart.Add(-time.Second))
		if !sig.Expired(now, cycleStart) {
			t.Error("face-match from previous cycle reported valid")
		}
	})

	t.Run("unknown class always expired", func(t *testing.T) {
		sig := Signal{Room: "office", Class: SignalClass("bogus"), ObservedAt: now}
		if !sig.Expired(now, cycleStart) {
			t.Error("unknown class passed expiry filter")
		}
	})
}

func TestClampWeight(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{-0.5, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{1.3, 1},
	}
	for _, c := range cases {
		if got := ClampWeight(c.in); got != c.want {
			t.Errorf("ClampWeight(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}
