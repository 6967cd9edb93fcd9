// Package slrule computes stop-loss thresholds for recorded option legs.
//
// Two multiplier policies coexist: the original time-of-day policy switches
// to steeper multipliers after the 11:30 IST cutoff, while the flat policy
// (current default) applies the early-session multipliers regardless of
// time. Both stay selectable so either behavior is reproducible.
package slrule

import (
	"errors"
	"fmt"
	"time"

	"trade-trackerv1/internal/markethours"
	"trade-trackerv1/internal/model"
)

// Policy selects the multiplier table.
type Policy string

const (
	// PolicyTimeOfDay switches multipliers at the 11:30 IST cutoff.
	PolicyTimeOfDay Policy = "timeofday"
	// PolicyFlat always applies the early-session multipliers.
	PolicyFlat Policy = "flat"
)

// ParsePolicy maps a config string to a Policy, defaulting to flat.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyTimeOfDay:
		return PolicyTimeOfDay, nil
	case PolicyFlat, "":
		return PolicyFlat, nil
	}
	return PolicyFlat, fmt.Errorf("unknown SL policy %q", s)
}

// Multipliers per instrument family.
const (
	bankNiftyEarly = 1.31
	niftyEarly     = 1.39
	bankNiftyLate  = 1.8
	niftyLate      = 1.6
	additionalRate = 1.43
)

var (
	// ErrInvalidInstrument marks an instrument name outside the known
	// families. The resulting SL must never be persisted.
	ErrInvalidInstrument = errors.New("invalid instrument")

	// ErrNoEntryPrice marks a missing or non-positive entry price.
	ErrNoEntryPrice = errors.New("entry price not provided")
)

// Engine computes stop-loss values under a fixed policy.
type Engine struct {
	policy Policy
	now    func() time.Time
}

// New creates an engine for the given policy using the wall clock.
func New(policy Policy) *Engine {
	return &Engine{policy: policy, now: time.Now}
}

// NewWithClock creates an engine with an injected clock, for tests.
func NewWithClock(policy Policy, now func() time.Time) *Engine {
	return &Engine{policy: policy, now: now}
}

// Policy returns the engine's active policy.
func (e *Engine) Policy() Policy { return e.policy }

// ComputeSL maps an instrument name and observed entry price to a stop-loss
// threshold. Time-of-day is evaluated at call time (IST) under
// PolicyTimeOfDay and ignored under PolicyFlat.
func (e *Engine) ComputeSL(name string, entry float64) (float64, error) {
	return e.ComputeSLAt(name, entry, e.now())
}

// ComputeSLAt is ComputeSL with an explicit evaluation time.
func (e *Engine) ComputeSLAt(name string, entry float64, at time.Time) (float64, error) {
	if entry <= 0 {
		return 0, ErrNoEntryPrice
	}

	cls := model.ClassifyInstrument(name)
	if cls.Family == model.FamilyUnknown {
		return 0, fmt.Errorf("%w: %q", ErrInvalidInstrument, name)
	}

	// The additional-trade override replaces the family multiplier, but only
	// for names that resolved to a known family.
	if cls.Additional {
		return entry * additionalRate, nil
	}

	late := e.policy == PolicyTimeOfDay && markethours.IsLateSession(at)
	switch cls.Family {
	case model.FamilyBankNifty:
		if late {
			return entry * bankNiftyLate, nil
		}
		return entry * bankNiftyEarly, nil
	case model.FamilyNifty:
		if late {
			return entry * niftyLate, nil
		}
		return entry * niftyEarly, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidInstrument, name)
}
