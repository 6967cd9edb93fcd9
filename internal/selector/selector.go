// Package selector derives batch and instrument choices from the record
// store snapshot. Every call re-fetches the full snapshot so the dashboard
// always reflects the store state at the start of the interaction.
package selector

import (
	"context"

	"trade-trackerv1/internal/model"
)

// Selector filters trade-leg records by batch and instrument.
type Selector struct {
	store model.RecordStore
}

// New creates a Selector over the given record store.
func New(store model.RecordStore) *Selector {
	return &Selector{store: store}
}

// ListBatches returns the distinct batch keys in the snapshot, in first-seen
// order of the store's unordered fetch. An empty store yields an empty slice.
func (s *Selector) ListBatches(ctx context.Context) ([]string, error) {
	records, err := s.store.FetchAll(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(records))
	batches := make([]string, 0, len(records))
	for i := range records {
		bk := records[i].Batch()
		if !seen[bk] {
			seen[bk] = true
			batches = append(batches, bk)
		}
	}
	return batches, nil
}

// LegsInBatch returns every record whose truncated timestamp equals batchKey.
func (s *Selector) LegsInBatch(ctx context.Context, batchKey string) ([]model.TradeLegRecord, error) {
	records, err := s.store.FetchAll(ctx)
	if err != nil {
		return nil, err
	}

	legs := make([]model.TradeLegRecord, 0, len(records))
	for i := range records {
		if records[i].Batch() == batchKey {
			legs = append(legs, records[i])
		}
	}
	return legs, nil
}

// InstrumentOptions returns the distinct "{name} {strike}" labels present in
// legs, in first-seen order. CE and PE legs of the same strike share a label.
func InstrumentOptions(legs []model.TradeLegRecord) []string {
	seen := make(map[string]bool, len(legs))
	labels := make([]string, 0, len(legs))
	for i := range legs {
		lbl := legs[i].Label()
		if !seen[lbl] {
			seen[lbl] = true
			labels = append(labels, lbl)
		}
	}
	return labels
}

// LegsForInstrument returns every leg whose label equals label. More than
// one CE or PE per label can come back when upstream entered duplicates;
// the updater treats all of them as targets.
func LegsForInstrument(legs []model.TradeLegRecord, label string) []model.TradeLegRecord {
	out := make([]model.TradeLegRecord, 0, 2)
	for i := range legs {
		if legs[i].Label() == label {
			out = append(out, legs[i])
		}
	}
	return out
}
