package ledger

import (
	"os"
	"path/filepath"
	"testing"
)

func testLedger(t *testing.T) *Ledger {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "reviewed.json"))
}

func TestRoundTrip(t *testing.T) {
	l := testLedger(t)

	if got := l.Load(); len(got) != 0 {
		t.Fatalf("fresh ledger should be empty, got %v", got)
	}

	if err := l.Mark([]string{"a", "b"}); err != nil {
		t.Fatalf("Mark: %v", err)
	}
	got := l.Load()
	if len(got) != 2 || !got["a"] || !got["b"] {
		t.Fatalf("want {a b} got %v", got)
	}
	if l.Count() != 2 {
		t.Fatalf("Count want 2 got %d", l.Count())
	}

	// Marking again unions, no duplicates.
	if err := l.Mark([]string{"b", "c"}); err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if l.Count() != 3 {
		t.Fatalf("Count want 3 got %d", l.Count())
	}

	if err := l.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got := l.Load(); len(got) != 0 {
		t.Fatalf("cleared ledger should be empty, got %v", got)
	}
	// Clearing an absent file is fine.
	if err := l.Clear(); err != nil {
		t.Fatalf("Clear absent: %v", err)
	}
}

func TestCorruptFileReadsEmpty(t *testing.T) {
	l := testLedger(t)
	if err := os.WriteFile(l.path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := l.Load(); len(got) != 0 {
		t.Fatalf("corrupt file should read empty, got %v", got)
	}
	// A Mark over a corrupt file starts from the empty set and succeeds.
	if err := l.Mark([]string{"x"}); err != nil {
		t.Fatalf("Mark over corrupt: %v", err)
	}
	if l.Count() != 1 {
		t.Fatalf("want 1 got %d", l.Count())
	}
}

func TestPersistedSorted(t *testing.T) {
	l := testLedger(t)
	if err := l.Mark([]string{"z", "a", "m"}); err != nil {
		t.Fatalf("Mark: %v", err)
	}
	b, err := os.ReadFile(l.path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != `["a","m","z"]` {
		t.Fatalf("want sorted array, got %s", b)
	}
}
