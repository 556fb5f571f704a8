package triage

import (
	"context"
	"fmt"
	"time"

	"mailreaper/internal/classify"
	"mailreaper/internal/dupes"
	"mailreaper/internal/model"
	"mailreaper/internal/unsub"
)

// outcome is the terminal waterfall bucket for one message. Exactly one
// applies; evaluation is ordered and the first match stops.
type outcome int

const (
	outcomeUnclassified outcome = iota
	outcomePriority
	outcomeExpired
	outcomeReviewed
	outcomeNewsletter
	outcomeCategory
)

// classifyOne runs the waterfall for a single message:
// priority → age expiry → already reviewed → newsletter → category rules.
func classifyOne(m model.MessageRef, reviewed map[string]bool, cfg Config) (outcome, string) {
	if classify.IsPriority(m.Headers, cfg.PriorityKeywords, cfg.PrioritySenders) {
		return outcomePriority, ""
	}
	if cfg.DeleteOlderThanDays > 0 && classify.AgeDays(m.Headers) >= cfg.DeleteOlderThanDays {
		return outcomeExpired, ""
	}
	if reviewed[m.ID] {
		return outcomeReviewed, ""
	}
	if classify.IsNewsletter(m.Headers) {
		return outcomeNewsletter, "Newsletters"
	}
	if category := classify.Categorize(m.Headers); category != "" {
		return outcomeCategory, category
	}
	return outcomeUnclassified, ""
}

// ClassifyBatch runs the waterfall over a complete batch plus the
// independent duplicate pass. Pure: no remote calls, no ledger writes.
func ClassifyBatch(batch []model.MessageRef, reviewed map[string]bool, cfg Config) *model.ScanResult {
	res := &model.ScanResult{
		CategoryGroups: make(map[string][]string),
		Fetched:        len(batch),
		DeleteDays:     cfg.DeleteOlderThanDays,
	}

	for _, m := range batch {
		out, category := classifyOne(m, reviewed, cfg)
		switch out {
		case outcomePriority:
			res.ToPriority = append(res.ToPriority, m.ID)
		case outcomeExpired:
			res.ToTrash = append(res.ToTrash, m.ID)
		case outcomeReviewed:
			res.Skipped++
		case outcomeNewsletter:
			res.NewsletterItems = append(res.NewsletterItems, model.NewsletterItem{
				Sender:  classify.GetHeader(m.Headers, "From"),
				Subject: classify.GetHeader(m.Headers, "Subject"),
				Links:   unsub.Extract(m.Headers),
			})
			res.CategoryGroups[category] = append(res.CategoryGroups[category], m.ID)
		case outcomeCategory:
			res.CategoryGroups[category] = append(res.CategoryGroups[category], m.ID)
		default:
			if classify.IsPersonal(m.Headers) {
				res.Personal++
			}
		}
	}

	// Duplicate detection is orthogonal to the waterfall and runs over the
	// entire unfiltered batch; redundant IDs merge into the trash list at
	// decision-resolution time.
	res.DupIDs = dupes.RedundantIDs(dupes.Find(batch, cfg.StrictDuplicateDates))

	return res
}

// Scan lists the mailbox, fetches metadata for the batch, and classifies
// it. Read-only: the only side effect is refreshing the scan cache.
func (t *Triager) Scan(ctx context.Context, cfg Config, progress func(done, total int)) (*model.ScanResult, error) {
	ids, err := t.Mailbox.List(ctx, cfg.query(), cfg.maxResults())
	if err != nil {
		return nil, fmt.Errorf("list inbox: %w", err)
	}
	t.logger().Info("scan started", "messages", len(ids), "query", cfg.query())

	batch, err := t.Mailbox.FetchMetadata(ctx, ids, progress)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}
	if dropped := len(ids) - len(batch); dropped > 0 {
		t.logger().Warn("some messages could not be fetched", "dropped", dropped)
	}

	if t.Cache != nil {
		if err := t.Cache.ReplaceScan(ctx, batch, time.Now()); err != nil {
			t.logger().Warn("scan cache update failed", "error", err)
		}
	}

	res := ClassifyBatch(batch, t.Ledger.Load(), cfg)
	t.logger().Info("scan complete",
		"fetched", res.Fetched,
		"priority", len(res.ToPriority),
		"expired", len(res.ToTrash),
		"duplicates", len(res.DupIDs),
		"newsletters", len(res.NewsletterItems),
		"skipped", res.Skipped,
	)
	return res, nil
}
