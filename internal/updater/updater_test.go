package updater

import (
	"context"
	"errors"
	"testing"

	"trade-trackerv1/internal/model"
)

// fakeStore records writes and fails for keys in failKeys.
type fakeStore struct {
	sls      map[string]float64
	failKeys map[string]bool
	writes   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{sls: map[string]float64{}, failKeys: map[string]bool{}}
}

func (f *fakeStore) FetchAll(ctx context.Context) ([]model.TradeLegRecord, error) { return nil, nil }
func (f *fakeStore) Close() error                                                 { return nil }

func (f *fakeStore) UpdateSL(ctx context.Context, key string, sl float64) error {
	f.writes++
	if f.failKeys[key] {
		return errors.New("write refused")
	}
	f.sls[key] = sl
	return nil
}

func leg(key string, side model.OptionType) model.TradeLegRecord {
	return model.TradeLegRecord{
		Key: key, Time: "2026-08-27T09:21:03.100",
		Name: "NIFTY", Strike: 19500, InstrumentType: side,
	}
}

func fp(v float64) *float64 { return &v }

func TestApplySL_CallOnly(t *testing.T) {
	store := newFakeStore()
	u := New(store, nil)
	legs := []model.TradeLegRecord{leg("ce", model.Call), leg("pe", model.Put)}

	res := u.ApplySL(context.Background(), legs, fp(105.2), nil)

	if res.Intended != 1 || res.Updated != 1 || len(res.Failures) != 0 {
		t.Fatalf("result = %+v, want 1 intended, 1 updated", res)
	}
	if store.sls["ce"] != 105.2 {
		t.Errorf("CE sl = %v, want 105.2", store.sls["ce"])
	}
	if _, touched := store.sls["pe"]; touched {
		t.Error("PE leg must not be written when put side is absent")
	}
}

func TestApplySL_BothSides(t *testing.T) {
	store := newFakeStore()
	u := New(store, nil)
	legs := []model.TradeLegRecord{leg("ce", model.Call), leg("pe", model.Put)}

	res := u.ApplySL(context.Background(), legs, fp(139), fp(160))

	if res.Updated != 2 {
		t.Fatalf("updated = %d, want 2", res.Updated)
	}
	if store.sls["ce"] != 139 || store.sls["pe"] != 160 {
		t.Errorf("stored sls = %v", store.sls)
	}
}

func TestApplySL_AbsentSidesWriteNothing(t *testing.T) {
	store := newFakeStore()
	u := New(store, nil)
	legs := []model.TradeLegRecord{leg("ce", model.Call), leg("pe", model.Put)}

	res := u.ApplySL(context.Background(), legs, nil, nil)

	if res.Intended != 0 || store.writes != 0 {
		t.Errorf("no sides present: result %+v, writes %d", res, store.writes)
	}
}

func TestApplySL_PartialFailureContinues(t *testing.T) {
	store := newFakeStore()
	store.failKeys["ce1"] = true
	u := New(store, nil)

	// Duplicate CE legs: both are targets, the first write fails.
	legs := []model.TradeLegRecord{
		leg("ce1", model.Call),
		leg("ce2", model.Call),
		leg("pe", model.Put),
	}
	res := u.ApplySL(context.Background(), legs, fp(143), fp(160))

	if res.Intended != 3 || res.Updated != 2 {
		t.Fatalf("result = %+v, want 3 intended / 2 updated", res)
	}
	if len(res.Failures) != 1 || res.Failures[0].Key != "ce1" {
		t.Fatalf("failures = %+v, want one failure for ce1", res.Failures)
	}
	if !res.Partial() {
		t.Error("Partial() should be true")
	}
	// The failure must not have stopped the later writes.
	if store.sls["ce2"] != 143 || store.sls["pe"] != 160 {
		t.Errorf("remaining writes missing: %v", store.sls)
	}
}

func TestApplySL_Idempotent(t *testing.T) {
	store := newFakeStore()
	u := New(store, nil)
	legs := []model.TradeLegRecord{leg("ce", model.Call), leg("pe", model.Put)}

	first := u.ApplySL(context.Background(), legs, fp(131), fp(180))
	again := u.ApplySL(context.Background(), legs, fp(131), fp(180))

	if first.Updated != 2 || again.Updated != 2 {
		t.Fatalf("both passes should update 2 legs: %+v / %+v", first, again)
	}
	if store.sls["ce"] != 131 || store.sls["pe"] != 180 {
		t.Errorf("stored values changed on re-apply: %v", store.sls)
	}
}
