package slrule

import (
	"testing"

	"trade-trackerv1/internal/model"
)

func TestAdditionalTradeSL(t *testing.T) {
	cases := []struct{ entry, want float64 }{
		{100, 143},
		{250.5, 250.5 * 1.43},
		{1, 1.43},
	}
	for _, c := range cases {
		if got := AdditionalTradeSL(c.entry); !almostEqual(got, c.want) {
			t.Errorf("AdditionalTradeSL(%v) = %v, want %v", c.entry, got, c.want)
		}
	}
}

func TestLateSessionSL(t *testing.T) {
	got, err := LateSessionSL(model.FamilyNifty, 100)
	if err != nil || !almostEqual(got, 160) {
		t.Errorf("NIFTY late session = %v (%v), want 160", got, err)
	}
	got, err = LateSessionSL(model.FamilyBankNifty, 100)
	if err != nil || !almostEqual(got, 180) {
		t.Errorf("BANKNIFTY late session = %v (%v), want 180", got, err)
	}
	if _, err := LateSessionSL(model.FamilyUnknown, 100); err == nil {
		t.Error("unknown family should fail")
	}
}

func TestSuggestHedge(t *testing.T) {
	cases := []struct {
		spot               float64
		atm, callSt, putSt int
	}{
		{19487, 19500, 19800, 19200},
		{19500, 19500, 19800, 19200},
		{19524, 19500, 19800, 19200},
		{19525, 19550, 19850, 19250}, // round half away from zero
		{44211, 44200, 44500, 43900},
	}
	for _, c := range cases {
		h := SuggestHedge(c.spot)
		if h.ATM != c.atm || h.CallStrike != c.callSt || h.PutStrike != c.putSt {
			t.Errorf("SuggestHedge(%v) = atm %d call %d put %d, want %d/%d/%d",
				c.spot, h.ATM, h.CallStrike, h.PutStrike, c.atm, c.callSt, c.putSt)
		}
	}
}
