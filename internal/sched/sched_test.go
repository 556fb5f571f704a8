package sched

import (
	"testing"
	"time"
)

func TestNextRunDaily(t *testing.T) {
	// Before 09:00: today.
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC) // a Tuesday
	next := nextRun(now, "daily")
	want := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("want %v got %v", want, next)
	}

	// After 09:00: tomorrow.
	now = time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)
	next = nextRun(now, "daily")
	want = time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("want %v got %v", want, next)
	}
}

func TestNextRunWeekly(t *testing.T) {
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC) // Tuesday
	next := nextRun(now, "weekly")
	want := time.Date(2025, 6, 16, 9, 0, 0, 0, time.UTC) // next Monday
	if !next.Equal(want) {
		t.Fatalf("want %v got %v", want, next)
	}

	// Monday before 09:00 runs the same day.
	now = time.Date(2025, 6, 16, 8, 0, 0, 0, time.UTC)
	next = nextRun(now, "weekly")
	if !next.Equal(want) {
		t.Fatalf("want %v got %v", want, next)
	}

	// Monday after 09:00 waits a week.
	now = time.Date(2025, 6, 16, 10, 0, 0, 0, time.UTC)
	next = nextRun(now, "weekly")
	want = time.Date(2025, 6, 23, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("want %v got %v", want, next)
	}
}
