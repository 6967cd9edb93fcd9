package slrule

import (
	"errors"
	"math"
	"testing"
	"time"

	"trade-trackerv1/internal/markethours"
)

var (
	preCutoff  = time.Date(2026, 8, 27, 10, 0, 0, 0, markethours.IST)  // 10:00 IST
	postCutoff = time.Date(2026, 8, 27, 13, 30, 0, 0, markethours.IST) // 13:30 IST
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeSL_TimeOfDayPolicy(t *testing.T) {
	e := New(PolicyTimeOfDay)

	cases := []struct {
		name  string
		entry float64
		at    time.Time
		want  float64
	}{
		{"BANKNIFTY", 100, preCutoff, 131},
		{"BANKNIFTY", 100, postCutoff, 180},
		{"NIFTY", 100, preCutoff, 139},
		{"NIFTY", 100, postCutoff, 160},
		{"NIFTY", 250.5, preCutoff, 250.5 * 1.39},
	}
	for _, c := range cases {
		got, err := e.ComputeSLAt(c.name, c.entry, c.at)
		if err != nil {
			t.Errorf("ComputeSLAt(%q, %v, %v): unexpected error %v", c.name, c.entry, c.at, err)
			continue
		}
		if !almostEqual(got, c.want) {
			t.Errorf("ComputeSLAt(%q, %v, %v) = %v, want %v", c.name, c.entry, c.at, got, c.want)
		}
	}
}

func TestComputeSL_FlatPolicy_IgnoresTime(t *testing.T) {
	e := New(PolicyFlat)

	for _, at := range []time.Time{preCutoff, postCutoff} {
		got, err := e.ComputeSLAt("BANKNIFTY", 100, at)
		if err != nil || !almostEqual(got, 131) {
			t.Errorf("flat BANKNIFTY at %v = %v (err %v), want 131", at, got, err)
		}
		got, err = e.ComputeSLAt("NIFTY", 100, at)
		if err != nil || !almostEqual(got, 139) {
			t.Errorf("flat NIFTY at %v = %v (err %v), want 139", at, got, err)
		}
	}
}

func TestComputeSL_CutoffBoundary(t *testing.T) {
	e := New(PolicyTimeOfDay)

	before := time.Date(2026, 8, 27, 11, 29, 59, 0, markethours.IST)
	at := time.Date(2026, 8, 27, 11, 30, 0, 0, markethours.IST)

	got, _ := e.ComputeSLAt("NIFTY", 100, before)
	if !almostEqual(got, 139) {
		t.Errorf("11:29:59 should still be early session, got %v", got)
	}
	got, _ = e.ComputeSLAt("NIFTY", 100, at)
	if !almostEqual(got, 160) {
		t.Errorf("11:30:00 should be late session, got %v", got)
	}
}

func TestComputeSL_AdditionalTradeOverride(t *testing.T) {
	// The override replaces the family multiplier under both policies and
	// both sessions.
	for _, policy := range []Policy{PolicyTimeOfDay, PolicyFlat} {
		e := New(policy)
		for _, at := range []time.Time{preCutoff, postCutoff} {
			got, err := e.ComputeSLAt("NIFTY_additional_trade", 100, at)
			if err != nil {
				t.Fatalf("policy %s at %v: unexpected error %v", policy, at, err)
			}
			if !almostEqual(got, 143) {
				t.Errorf("policy %s at %v: got %v, want 143", policy, at, got)
			}
		}
	}
}

func TestComputeSL_InvalidInstrument(t *testing.T) {
	e := New(PolicyTimeOfDay)

	for _, name := range []string{"FINNIFTY", "nifty", "SENSEX", "", "additional_trade"} {
		_, err := e.ComputeSLAt(name, 100, preCutoff)
		if !errors.Is(err, ErrInvalidInstrument) {
			t.Errorf("ComputeSLAt(%q): err = %v, want ErrInvalidInstrument", name, err)
		}
	}
}

func TestComputeSL_EntryPriceGuard(t *testing.T) {
	e := New(PolicyFlat)

	for _, entry := range []float64{0, -10} {
		_, err := e.ComputeSLAt("NIFTY", entry, preCutoff)
		if !errors.Is(err, ErrNoEntryPrice) {
			t.Errorf("entry %v: err = %v, want ErrNoEntryPrice", entry, err)
		}
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy(""); err != nil || p != PolicyFlat {
		t.Errorf("empty policy should default to flat, got %v (%v)", p, err)
	}
	if p, err := ParsePolicy("timeofday"); err != nil || p != PolicyTimeOfDay {
		t.Errorf("ParsePolicy(timeofday) = %v (%v)", p, err)
	}
	if _, err := ParsePolicy("bogus"); err == nil {
		t.Error("ParsePolicy(bogus) should fail")
	}
}
