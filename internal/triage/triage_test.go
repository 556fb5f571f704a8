package triage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"mailreaper/internal/ledger"
	"mailreaper/internal/model"
)

type fakeMailbox struct {
	msgs map[string]model.MessageRef
	ids  []string

	trashed      []string
	modified     map[string][]string // id -> added label IDs
	labels       map[string]string   // name -> label ID
	resolveCalls int
	sent         []string

	failTrash map[string]bool
	failLabel map[string]bool
}

func newFakeMailbox(msgs ...model.MessageRef) *fakeMailbox {
	f := &fakeMailbox{
		msgs:      make(map[string]model.MessageRef),
		modified:  make(map[string][]string),
		labels:    make(map[string]string),
		failTrash: make(map[string]bool),
		failLabel: make(map[string]bool),
	}
	for _, m := range msgs {
		f.msgs[m.ID] = m
		f.ids = append(f.ids, m.ID)
	}
	return f
}

func (f *fakeMailbox) List(_ context.Context, _ string, max int64) ([]string, error) {
	if int64(len(f.ids)) > max {
		return f.ids[:max], nil
	}
	return f.ids, nil
}

func (f *fakeMailbox) FetchMetadata(_ context.Context, ids []string, progress func(done, total int)) ([]model.MessageRef, error) {
	var out []model.MessageRef
	for i, id := range ids {
		if m, ok := f.msgs[id]; ok {
			out = append(out, m)
		}
		if progress != nil {
			progress(i+1, len(ids))
		}
	}
	return out, nil
}

func (f *fakeMailbox) Trash(_ context.Context, id string) error {
	if f.failTrash[id] {
		return errors.New("remote failure")
	}
	f.trashed = append(f.trashed, id)
	return nil
}

func (f *fakeMailbox) Modify(_ context.Context, id string, add, _ []string) error {
	if f.failLabel[id] {
		return errors.New("remote failure")
	}
	f.modified[id] = append(f.modified[id], add...)
	return nil
}

func (f *fakeMailbox) ResolveOrCreateLabel(_ context.Context, name string) (string, error) {
	f.resolveCalls++
	id, ok := f.labels[name]
	if !ok {
		id = fmt.Sprintf("Label_%d", len(f.labels)+1)
		f.labels[name] = id
	}
	return id, nil
}

func (f *fakeMailbox) Send(_ context.Context, to, _, _ string) error {
	f.sent = append(f.sent, to)
	return nil
}

func msg(id string, pairs ...string) model.MessageRef {
	m := model.MessageRef{ID: id}
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Headers = append(m.Headers, model.Header{Name: pairs[i], Value: pairs[i+1]})
	}
	return m
}

func testTriager(t *testing.T, mb Mailbox) *Triager {
	t.Helper()
	return &Triager{
		Mailbox: mb,
		Ledger:  ledger.New(filepath.Join(t.TempDir(), "reviewed.json")),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func oldDate() string {
	return time.Now().AddDate(0, 0, -200).UTC().Format(time.RFC1123Z)
}

func freshDate() string {
	return time.Now().Add(-2 * time.Hour).UTC().Format(time.RFC1123Z)
}

// Every message lands in exactly one terminal bucket, decided by rule order.
func TestWaterfallExactlyOneOutcome(t *testing.T) {
	cfg := Config{DeleteOlderThanDays: 90, PrioritySenders: []string{"boss@corp.com"}}
	reviewed := map[string]bool{"seen": true}

	cases := []struct {
		name string
		m    model.MessageRef
		want outcome
	}{
		{"priority wins over age", msg("1", "From", "boss@corp.com", "Date", oldDate()), outcomePriority},
		{"priority wins over newsletter", msg("2", "Subject", "invoice due", "List-Unsubscribe", "<https://x/u>", "Date", freshDate()), outcomePriority},
		{"age wins over newsletter", msg("3", "From", "a@b.com", "List-Unsubscribe", "<https://x/u>", "Date", oldDate()), outcomeExpired},
		{"age wins over reviewed", msg("seen", "From", "a@b.com", "Date", oldDate()), outcomeExpired},
		{"reviewed wins over newsletter", msg("seen", "From", "a@b.com", "List-Unsubscribe", "<https://x/u>", "Date", freshDate()), outcomeReviewed},
		{"newsletter wins over category", msg("4", "Subject", "your order shipped", "List-Unsubscribe", "<https://x/u>", "Date", freshDate()), outcomeNewsletter},
		{"category", msg("5", "Subject", "your order confirmation", "From", "shop@x.com", "Date", freshDate()), outcomeCategory},
		{"unclassified", msg("6", "Subject", "hey", "From", "friend@x.com", "Date", freshDate()), outcomeUnclassified},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, _ := classifyOne(c.m, reviewed, cfg)
			if got != c.want {
				t.Fatalf("got %v want %v", got, c.want)
			}
		})
	}
}

func TestClassifyBatchBuckets(t *testing.T) {
	cfg := Config{DeleteOlderThanDays: 90}
	batch := []model.MessageRef{
		msg("pri", "Subject", "URGENT: account suspended", "From", "x@y.com", "Date", freshDate()),
		msg("old", "From", "x@y.com", "Subject", "hello", "Date", oldDate()),
		msg("news", "From", "Weekly <news@letters.com>", "Subject", "Issue 42",
			"List-Unsubscribe", "<mailto:u@x.com>, <https://x.com/u>", "Date", freshDate()),
		msg("shop", "Subject", "your order confirmation", "From", "shop@x.com", "Date", freshDate()),
		msg("skipme", "Subject", "promo code inside", "From", "deals@x.com", "Date", freshDate()),
		msg("plain", "Subject", "hey there", "From", "friend@gmail.com", "Date", freshDate()),
	}
	res := ClassifyBatch(batch, map[string]bool{"skipme": true}, cfg)

	if !reflect.DeepEqual(res.ToPriority, []string{"pri"}) {
		t.Fatalf("priority got %v", res.ToPriority)
	}
	if !reflect.DeepEqual(res.ToTrash, []string{"old"}) {
		t.Fatalf("trash got %v", res.ToTrash)
	}
	if res.Skipped != 1 {
		t.Fatalf("skipped got %d", res.Skipped)
	}
	if !reflect.DeepEqual(res.CategoryGroups["Newsletters"], []string{"news"}) {
		t.Fatalf("newsletters got %v", res.CategoryGroups["Newsletters"])
	}
	if !reflect.DeepEqual(res.CategoryGroups["Shopping"], []string{"shop"}) {
		t.Fatalf("shopping got %v", res.CategoryGroups["Shopping"])
	}
	if len(res.NewsletterItems) != 1 {
		t.Fatalf("newsletter items got %d", len(res.NewsletterItems))
	}
	item := res.NewsletterItems[0]
	if item.Links == nil || item.Links.HTTP != "https://x.com/u" || item.Links.Mailto != "mailto:u@x.com" {
		t.Fatalf("links got %+v", item.Links)
	}
	if res.Personal != 1 {
		t.Fatalf("personal got %d", res.Personal)
	}
	if res.Fetched != len(batch) {
		t.Fatalf("fetched got %d", res.Fetched)
	}
}

// The safety cap keeps the first maxTrash IDs in concatenation order:
// auto-trash, then duplicates, then category deletes.
func TestResolveSafetyCap(t *testing.T) {
	res := &model.ScanResult{CategoryGroups: map[string][]string{}}
	for i := 0; i < 80; i++ {
		res.ToTrash = append(res.ToTrash, fmt.Sprintf("old%03d", i))
	}
	for i := 0; i < 40; i++ {
		res.DupIDs = append(res.DupIDs, fmt.Sprintf("dup%03d", i))
	}
	for i := 0; i < 30; i++ {
		res.CategoryGroups["Store Promos"] = append(res.CategoryGroups["Store Promos"], fmt.Sprintf("cat%03d", i))
	}

	plan := Resolve(res, map[string]Decision{"Store Promos": DecisionDelete}, 100)
	if len(plan.Trash) != 100 {
		t.Fatalf("trash len got %d", len(plan.Trash))
	}
	if plan.Capped != 50 {
		t.Fatalf("capped got %d", plan.Capped)
	}
	if plan.Trash[0] != "old000" || plan.Trash[79] != "old079" {
		t.Fatal("auto-trash must come first")
	}
	if plan.Trash[80] != "dup000" || plan.Trash[99] != "dup019" {
		t.Fatalf("duplicates must follow, got %q..%q", plan.Trash[80], plan.Trash[99])
	}
}

func TestResolveDedupAndProtection(t *testing.T) {
	res := &model.ScanResult{
		ToTrash:    []string{"a", "b"},
		ToPriority: []string{"p"},
		DupIDs:     []string{"b", "c", "p"}, // b already trashed, p is protected
		CategoryGroups: map[string][]string{
			"Finance":  {"d"},
			"Shopping": {"e", "c"}, // c already trashed via dups
		},
	}
	decisions := map[string]Decision{
		"Finance":  DecisionLabel,
		"Shopping": DecisionDelete,
	}
	plan := Resolve(res, decisions, 0)

	if !reflect.DeepEqual(plan.Trash, []string{"a", "b", "c", "e"}) {
		t.Fatalf("trash got %v", plan.Trash)
	}
	if len(plan.Labels) != 1 || plan.Labels[0].Name != "Finance" || !reflect.DeepEqual(plan.Labels[0].IDs, []string{"d"}) {
		t.Fatalf("labels got %+v", plan.Labels)
	}
	if !reflect.DeepEqual(plan.Star, []string{"p"}) {
		t.Fatalf("star got %v", plan.Star)
	}
}

func TestResolveSkipGoesToLedgerOnly(t *testing.T) {
	res := &model.ScanResult{
		CategoryGroups: map[string][]string{"Dev Tools": {"x", "y"}},
	}
	plan := Resolve(res, map[string]Decision{"Dev Tools": DecisionSkip}, 0)
	if len(plan.Trash) != 0 || len(plan.Labels) != 0 {
		t.Fatalf("skip must not mutate: %+v", plan)
	}
	if !reflect.DeepEqual(plan.SkipReview, []string{"x", "y"}) {
		t.Fatalf("skip review got %v", plan.SkipReview)
	}
}

func TestApplyBestEffortPerID(t *testing.T) {
	mb := newFakeMailbox()
	mb.failTrash["t2"] = true
	mb.failLabel["l2"] = true
	tr := testTriager(t, mb)

	plan := Plan{
		Trash:      []string{"t1", "t2", "t3"},
		Labels:     []LabelBucket{{Name: "Finance", IDs: []string{"l1", "l2", "l3"}}},
		Star:       []string{"s1"},
		SkipReview: []string{"k1"},
	}
	stats, err := tr.Apply(context.Background(), plan, false)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if stats.Trashed != 2 || stats.Labeled != 2 || stats.Starred != 1 {
		t.Fatalf("stats got %+v", stats)
	}
	if !reflect.DeepEqual(mb.trashed, []string{"t1", "t3"}) {
		t.Fatalf("trashed got %v", mb.trashed)
	}
	if got := mb.modified["s1"]; !reflect.DeepEqual(got, []string{"STARRED"}) {
		t.Fatalf("star got %v", got)
	}

	// Ledger holds only successes plus skip IDs; starred priority IDs are
	// never ledgered.
	reviewed := tr.Ledger.Load()
	for _, id := range []string{"t1", "t3", "l1", "l3", "k1"} {
		if !reviewed[id] {
			t.Fatalf("ledger missing %q: %v", id, reviewed)
		}
	}
	for _, id := range []string{"t2", "l2", "s1"} {
		if reviewed[id] {
			t.Fatalf("ledger must not contain %q", id)
		}
	}
}

func TestApplyLabelIDCachedPerRun(t *testing.T) {
	mb := newFakeMailbox()
	tr := testTriager(t, mb)
	plan := Plan{Labels: []LabelBucket{
		{Name: "Finance", IDs: []string{"a"}},
		{Name: "Shopping", IDs: []string{"b"}},
	}}
	if _, err := tr.Apply(context.Background(), plan, false); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if mb.resolveCalls != 2 {
		t.Fatalf("resolve calls got %d want one per distinct label", mb.resolveCalls)
	}
}

func TestApplyDryRunTouchesNothing(t *testing.T) {
	mb := newFakeMailbox()
	tr := testTriager(t, mb)
	plan := Plan{
		Trash:      []string{"a", "b"},
		Labels:     []LabelBucket{{Name: "Finance", IDs: []string{"c"}}},
		Star:       []string{"d"},
		SkipReview: []string{"e"},
	}
	stats, err := tr.Apply(context.Background(), plan, true)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if stats.Trashed != 2 || stats.Labeled != 1 || stats.Starred != 1 {
		t.Fatalf("dry-run stats got %+v", stats)
	}
	if len(mb.trashed) != 0 || len(mb.modified) != 0 || mb.resolveCalls != 0 {
		t.Fatal("dry run must not touch the mailbox")
	}
	if tr.Ledger.Count() != 0 {
		t.Fatal("dry run must not touch the ledger")
	}
}

func TestCancelAbortsBeforeMutation(t *testing.T) {
	mb := newFakeMailbox()
	tr := testTriager(t, mb)
	res := &model.ScanResult{
		ToTrash:        []string{"a"},
		CategoryGroups: map[string][]string{"Finance": {"b"}},
	}
	canceling := DecisionFunc(func(string, int) (Decision, error) {
		return 0, errors.New("user pressed esc")
	})
	_, err := tr.ResolveAndApply(context.Background(), res, canceling, 100, false)
	if !errors.Is(err, ErrCanceled) {
		t.Fatalf("want ErrCanceled got %v", err)
	}
	if len(mb.trashed) != 0 || tr.Ledger.Count() != 0 {
		t.Fatal("cancellation must leave mailbox and ledger untouched")
	}
}

// Scanning twice with no ledger or mailbox changes yields identical results.
func TestScanIdempotent(t *testing.T) {
	mb := newFakeMailbox(
		msg("1", "Subject", "invoice", "From", "x@y.com", "Date", freshDate()),
		msg("2", "From", "a@b.com", "Subject", "old news", "Date", oldDate()),
		msg("3", "From", "n@l.com", "Subject", "Issue 1", "List-Unsubscribe", "<https://x/u>", "Date", freshDate()),
		msg("4", "Message-ID", "<dup@x>", "From", "d@x.com", "Subject", "s", "Date", freshDate()),
		msg("5", "Message-ID", "<dup@x>", "From", "d@x.com", "Subject", "s", "Date", freshDate()),
	)
	tr := testTriager(t, mb)
	cfg := Config{DeleteOlderThanDays: 90, MaxTrashPerRun: 100}

	first, err := tr.Scan(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("scan 1: %v", err)
	}
	second, err := tr.Scan(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("scan 2: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("scan not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
	if !reflect.DeepEqual(first.DupIDs, []string{"5"}) {
		t.Fatalf("dup ids got %v", first.DupIDs)
	}
}

func TestScanThenApplySuppressesOnRescan(t *testing.T) {
	mb := newFakeMailbox(
		msg("promo", "Subject", "promo code inside", "From", "deals@x.com", "Date", freshDate()),
	)
	tr := testTriager(t, mb)
	cfg := Config{DeleteOlderThanDays: 90}

	res, err := tr.Scan(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(res.CategoryGroups["Store Promos"]) != 1 {
		t.Fatalf("expected promo bucket, got %v", res.CategoryGroups)
	}

	// Skip the category: it lands in the ledger without mutation.
	if _, err := tr.ResolveAndApply(context.Background(), res, FixedDecision(DecisionSkip), 100, false); err != nil {
		t.Fatalf("apply: %v", err)
	}

	res, err = tr.Scan(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("rescan: %v", err)
	}
	if len(res.CategoryGroups) != 0 || res.Skipped != 1 {
		t.Fatalf("skipped message resurfaced: %+v", res)
	}
}
