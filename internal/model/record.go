package model

import (
	"strconv"
	"strings"
)

// OptionType distinguishes call and put legs.
type OptionType string

const (
	Call OptionType = "CE"
	Put  OptionType = "PE"
)

// TradeLegRecord is one option leg as stored in the record store.
// Keys are assigned by the upstream trade-entry process; this service
// only ever reads records and rewrites their SL field.
type TradeLegRecord struct {
	Key            string     `json:"key"`
	Time           string     `json:"time"` // ISO-like, e.g. "2026-08-27T09:21:03.512"
	Name           string     `json:"name"`
	Strike         float64    `json:"strike"`
	InstrumentType OptionType `json:"instrument_type"`
	SL             float64    `json:"sl"`
}

// batchKeyLen is the "YYYY-MM-DDTHH:MM" prefix length that groups legs
// entered in the same minute into one batch.
const batchKeyLen = 16

// BatchKey derives the batch grouping key from a record timestamp.
// Records sharing the first 16 characters of their time belong to the
// same trade batch. Shorter strings are their own key.
func BatchKey(timeStr string) string {
	if len(timeStr) <= batchKeyLen {
		return timeStr
	}
	return timeStr[:batchKeyLen]
}

// Batch returns the batch key of this leg.
func (r *TradeLegRecord) Batch() string {
	return BatchKey(r.Time)
}

// Label returns the instrument display label "{name} {strike}" used to
// select one instrument within a batch.
func (r *TradeLegRecord) Label() string {
	return r.Name + " " + FormatStrike(r.Strike)
}

// FormatStrike renders a strike without trailing zeros (19500, not 19500.00).
func FormatStrike(strike float64) string {
	return strconv.FormatFloat(strike, 'f', -1, 64)
}

// Family is an explicit instrument classification. The store carries free-form
// instrument names; classification happens once here instead of substring
// checks scattered across the rule engine.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyBankNifty
	FamilyNifty
)

const additionalMarker = "additional_trade"

// Classification is the result of classifying an instrument name.
type Classification struct {
	Family Family
	// Additional marks legs tagged with the additional-trade marker in their
	// name. Only meaningful when Family is recognized: an unrecognized name
	// stays unknown even when it carries the marker.
	Additional bool
}

// ClassifyInstrument maps a raw instrument name to its family.
// The index families require an exact, case-sensitive prefix-free match
// ("BANKNIFTY" / "NIFTY"); names tagged "additional_trade" (any case)
// resolve their family from the untagged portion of the name.
func ClassifyInstrument(name string) Classification {
	additional := strings.Contains(strings.ToLower(name), additionalMarker)

	base := name
	if additional {
		// Strip the marker and any joining separators to recover the family.
		lower := strings.ToLower(name)
		idx := strings.Index(lower, additionalMarker)
		base = strings.Trim(name[:idx]+name[idx+len(additionalMarker):], "_- ")
	}

	var fam Family
	switch base {
	case "BANKNIFTY":
		fam = FamilyBankNifty
	case "NIFTY":
		fam = FamilyNifty
	default:
		return Classification{Family: FamilyUnknown}
	}
	return Classification{Family: fam, Additional: additional}
}

// String returns the canonical family name.
func (f Family) String() string {
	switch f {
	case FamilyBankNifty:
		return "BANKNIFTY"
	case FamilyNifty:
		return "NIFTY"
	default:
		return "UNKNOWN"
	}
}
