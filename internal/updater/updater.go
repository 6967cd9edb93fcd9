// Package updater applies computed stop-loss values back to the record store.
package updater

import (
	"context"
	"log"
	"time"

	"trade-trackerv1/internal/model"
	"trade-trackerv1/internal/store/sqlite"
)

// LegFailure reports one failed store write.
type LegFailure struct {
	Key string `json:"key"`
	Err string `json:"error"`
}

// Result aggregates the outcome of one apply pass.
type Result struct {
	Intended int          `json:"intended"`
	Updated  int          `json:"updated"`
	Failures []LegFailure `json:"failures,omitempty"`
}

// Partial reports whether some but not all intended writes succeeded.
func (r Result) Partial() bool {
	return r.Updated > 0 && r.Updated < r.Intended
}

// Updater writes new SL values per matching leg, journaling each attempt.
type Updater struct {
	store   model.RecordStore
	journal *sqlite.Journal
	now     func() time.Time
}

// New creates an Updater. journal may be nil (no audit trail).
func New(store model.RecordStore, journal *sqlite.Journal) *Updater {
	return &Updater{store: store, journal: journal, now: time.Now}
}

// ApplySL updates the SL of every CE leg when callSL is present and of every
// PE leg when putSL is present. A nil pointer means the side is absent (no
// entry price, or computation was rejected) and is skipped entirely.
//
// Writes are per-leg and independent: a failure is recorded and the
// remaining writes still run, so a mixed batch is reported rather than
// silently retried. Re-applying the same values is idempotent because each
// write sets an absolute SL.
func (u *Updater) ApplySL(ctx context.Context, legs []model.TradeLegRecord, callSL, putSL *float64) Result {
	var res Result
	for i := range legs {
		leg := &legs[i]

		var newSL *float64
		switch leg.InstrumentType {
		case model.Call:
			newSL = callSL
		case model.Put:
			newSL = putSL
		}
		if newSL == nil {
			continue
		}

		res.Intended++
		err := u.store.UpdateSL(ctx, leg.Key, *newSL)
		if err != nil {
			log.Printf("[updater] write failed for leg %s: %v", leg.Key, err)
			res.Failures = append(res.Failures, LegFailure{Key: leg.Key, Err: err.Error()})
		} else {
			res.Updated++
		}
		u.journalWrite(leg, *newSL, err)
	}
	return res
}

func (u *Updater) journalWrite(leg *model.TradeLegRecord, newSL float64, writeErr error) {
	if u.journal == nil {
		return
	}
	e := sqlite.Entry{
		LegKey:     leg.Key,
		Batch:      leg.Batch(),
		Instrument: leg.Label(),
		Side:       string(leg.InstrumentType),
		NewSL:      newSL,
		OK:         writeErr == nil,
		AppliedAt:  u.now().Format(time.RFC3339),
	}
	if writeErr != nil {
		e.Error = writeErr.Error()
	}
	if err := u.journal.Record(e); err != nil {
		log.Printf("[updater] journal write failed for leg %s: %v", leg.Key, err)
	}
}
