package slrule

import (
	"fmt"
	"math"

	"trade-trackerv1/internal/model"
)

// Standalone calculators used directly by the dashboard, independent of the
// record store and of wall-clock time.

// AdditionalTradeSL is the flat additional-trade stop-loss: entry × 1.43.
func AdditionalTradeSL(entry float64) float64 {
	return entry * additionalRate
}

// LateSessionSL applies the post-cutoff multiplier for the family regardless
// of the actual current time. This is an operator override: the manual
// "after 11:30" entry always gets the late-session rate.
func LateSessionSL(family model.Family, entry float64) (float64, error) {
	switch family {
	case model.FamilyNifty:
		return entry * niftyLate, nil
	case model.FamilyBankNifty:
		return entry * bankNiftyLate, nil
	}
	return 0, fmt.Errorf("%w: family %s", ErrInvalidInstrument, family)
}

// Hedge strike parameters: NIFTY strikes come in 50-point increments and the
// hedge legs sit 300 points out from the at-the-money strike.
const (
	strikeStep  = 50
	hedgeOffset = 300
)

// HedgeSuggestion is an ATM-derived hedge pair for the current spot.
type HedgeSuggestion struct {
	Spot       float64 `json:"spot"`
	ATM        int     `json:"atm"`
	CallStrike int     `json:"call_strike"`
	PutStrike  int     `json:"put_strike"`
}

// SuggestHedge rounds the spot to the nearest strike increment and offsets
// the hedge legs: (atm+300) CALL and (atm−300) PUT.
func SuggestHedge(spot float64) HedgeSuggestion {
	atm := int(math.Round(spot/strikeStep)) * strikeStep
	return HedgeSuggestion{
		Spot:       spot,
		ATM:        atm,
		CallStrike: atm + hedgeOffset,
		PutStrike:  atm - hedgeOffset,
	}
}
