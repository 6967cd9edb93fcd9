package sqlite

import (
	"path/filepath"
	"testing"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := NewJournal(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("NewJournal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournal_RecordAndRecent(t *testing.T) {
	j := openTestJournal(t)

	entries := []Entry{
		{LegKey: "k1", Batch: "2026-08-27T09:21", Instrument: "NIFTY 19500", Side: "CE", NewSL: 139, OK: true},
		{LegKey: "k2", Batch: "2026-08-27T09:21", Instrument: "NIFTY 19500", Side: "PE", NewSL: 160, OK: false, Error: "write refused"},
	}
	for _, e := range entries {
		if err := j.Record(e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := j.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent returned %d entries, want 2", len(got))
	}

	// Newest first.
	if got[0].LegKey != "k2" || got[1].LegKey != "k1" {
		t.Errorf("order = %s, %s; want k2, k1", got[0].LegKey, got[1].LegKey)
	}
	if got[0].OK || got[0].Error != "write refused" {
		t.Errorf("failed write not preserved: %+v", got[0])
	}
	if !got[1].OK || got[1].NewSL != 139 {
		t.Errorf("successful write not preserved: %+v", got[1])
	}
	if got[1].AppliedAt == "" {
		t.Error("applied_at should be filled in when empty")
	}
}

func TestJournal_RecentLimit(t *testing.T) {
	j := openTestJournal(t)

	for i := 0; i < 5; i++ {
		if err := j.Record(Entry{LegKey: "k", Batch: "b", Instrument: "i", Side: "CE", NewSL: float64(i), OK: true}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := j.Recent(3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("Recent(3) returned %d entries", len(got))
	}
	if got[0].NewSL != 4 {
		t.Errorf("newest entry should come first, got %v", got[0].NewSL)
	}
}
