package dupes

import (
	"testing"

	"mailreaper/internal/model"
)

func msg(id string, pairs ...string) model.MessageRef {
	m := model.MessageRef{ID: id}
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Headers = append(m.Headers, model.Header{Name: pairs[i], Value: pairs[i+1]})
	}
	return m
}

func TestExactMessageIDGrouping(t *testing.T) {
	batch := []model.MessageRef{
		msg("a", "Message-ID", "<abc@x>", "From", "one@x.com", "Subject", "first"),
		msg("b", "Message-ID", "<other@x>", "From", "two@x.com", "Subject", "unrelated"),
		msg("c", "Message-ID", "<abc@x>", "From", "three@y.com", "Subject", "totally different"),
	}
	groups := Find(batch, false)
	if len(groups) != 1 {
		t.Fatalf("want 1 group got %d", len(groups))
	}
	g := groups[0]
	if g.Keeper() != "a" {
		t.Fatalf("keeper should be first-seen, got %q", g.Keeper())
	}
	if len(g.Redundant()) != 1 || g.Redundant()[0] != "c" {
		t.Fatalf("redundant want [c] got %v", g.Redundant())
	}
}

func TestFuzzyMinuteGrouping(t *testing.T) {
	batch := []model.MessageRef{
		msg("a", "From", "shop@x.com", "Subject", "Sale", "Date", "Tue, 10 Jun 2025 12:00:05 +0000"),
		msg("b", "From", "shop@x.com", "Subject", "Sale", "Date", "Tue, 10 Jun 2025 12:00:35 +0000"),
		// 90 seconds later: different minute, must not join.
		msg("c", "From", "shop@x.com", "Subject", "Sale", "Date", "Tue, 10 Jun 2025 12:01:35 +0000"),
	}
	groups := Find(batch, false)
	if len(groups) != 1 {
		t.Fatalf("want 1 group got %d: %v", len(groups), groups)
	}
	if groups[0].Keeper() != "a" || len(groups[0]) != 2 {
		t.Fatalf("want [a b] got %v", groups[0])
	}
}

func TestFuzzyIgnoresMessagesWithMessageID(t *testing.T) {
	// Same sender/subject/minute, but one has a unique Message-ID: the
	// exact pass claims it, so it never reaches the fuzzy pass.
	batch := []model.MessageRef{
		msg("a", "Message-ID", "<solo@x>", "From", "s@x.com", "Subject", "Hi", "Date", "Tue, 10 Jun 2025 12:00:05 +0000"),
		msg("b", "From", "s@x.com", "Subject", "Hi", "Date", "Tue, 10 Jun 2025 12:00:35 +0000"),
	}
	if groups := Find(batch, false); len(groups) != 0 {
		t.Fatalf("want no groups got %v", groups)
	}
}

func TestUnparsableDateDegradesKey(t *testing.T) {
	batch := []model.MessageRef{
		msg("a", "From", "bot@x.com", "Subject", "Report", "Date", "garbage"),
		msg("b", "From", "bot@x.com", "Subject", "Report"),
	}
	groups := Find(batch, false)
	if len(groups) != 1 || len(groups[0]) != 2 {
		t.Fatalf("degraded key should merge on sender+subject, got %v", groups)
	}

	// strict mode drops unparsable-date messages from the fuzzy pass.
	if groups := Find(batch, true); len(groups) != 0 {
		t.Fatalf("strict dates should not group, got %v", groups)
	}
}

func TestGroupsDisjointAndOrdered(t *testing.T) {
	batch := []model.MessageRef{
		msg("a", "Message-ID", "<x@1>"),
		msg("b", "Message-ID", "<y@2>"),
		msg("c", "Message-ID", "<x@1>"),
		msg("d", "Message-ID", "<y@2>"),
		msg("e", "From", "f@x.com", "Subject", "S", "Date", "Tue, 10 Jun 2025 12:00:05 +0000"),
		msg("f", "From", "f@x.com", "Subject", "S", "Date", "Tue, 10 Jun 2025 12:00:55 +0000"),
	}
	groups := Find(batch, false)
	if len(groups) != 3 {
		t.Fatalf("want 3 groups got %d", len(groups))
	}

	seen := map[string]bool{}
	for _, g := range groups {
		if len(g) < 2 {
			t.Fatalf("group of size %d", len(g))
		}
		for _, id := range g {
			if seen[id] {
				t.Fatalf("id %q appears in two groups", id)
			}
			seen[id] = true
		}
	}

	// Exact groups come first in first-seen order.
	if groups[0].Keeper() != "a" || groups[1].Keeper() != "b" || groups[2].Keeper() != "e" {
		t.Fatalf("group order unstable: %v", groups)
	}

	if got := RedundantIDs(groups); len(got) != 3 || got[0] != "c" || got[1] != "d" || got[2] != "f" {
		t.Fatalf("redundant ids got %v", got)
	}
}
