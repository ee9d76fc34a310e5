package segment

import (
	"os"
	"testing"
)

func TestBuildAndScan(t *testing.T) {
	dir := t.TempDir()

	b, err := NewBuilder(dir, "cpu.load")
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	for i := 0; i < 250; i++ {
		if err := b.Add(float64(i), float64(i*i)); err != nil {
			t.Fatalf("Add %d: %v", i, err)
		}
	}
	path, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if r.Series() != "cpu.load" {
		t.Errorf("series: got %q", r.Series())
	}
	if r.Count() != 250 {
		t.Errorf("count: got %d, want 250", r.Count())
	}

	recs, err := r.Scan(100, 110)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(recs) != 11 {
		t.Fatalf("scan window: got %d records, want 11", len(recs))
	}
	if recs[0].Time != 100 || recs[10].Time != 110 {
		t.Errorf("window bounds wrong: %v .. %v", recs[0].Time, recs[10].Time)
	}
	if recs[5].Value != 105*105 {
		t.Errorf("value at 105: got %v", recs[5].Value)
	}

	all, err := r.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 250 {
		t.Errorf("All: got %d records", len(all))
	}
}

func TestRejectsOutOfOrder(t *testing.T) {
	b, err := NewBuilder(t.TempDir(), "s")
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	defer b.Abort()

	if err := b.Add(5, 1); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := b.Add(5, 2); err == nil {
		t.Error("expected error for duplicate time")
	}
	if err := b.Add(4, 3); err == nil {
		t.Error("expected error for descending time")
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	dir := t.TempDir()

	b, err := NewBuilder(dir, "s")
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	b.Add(1, 1)
	path, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	// Corrupt the header magic
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	data[0] ^= 0xFF
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := Open(path); err != ErrBadSegment {
		t.Errorf("expected ErrBadSegment, got %v", err)
	}
}
