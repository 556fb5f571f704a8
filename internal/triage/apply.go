package triage

import (
	"context"

	"mailreaper/internal/model"
)

// LabelBucket is one label to create/resolve and the messages that get it.
type LabelBucket struct {
	Name string
	IDs  []string
}

// Plan is the resolved, capped mutation set for one apply pass.
type Plan struct {
	Trash      []string      // capped union: auto-trash, duplicate-redundant, category deletes
	Labels     []LabelBucket // ordered by category name
	Star       []string
	SkipReview []string // reviewed without mutation (skip decisions)
	Capped     int      // trash candidates dropped by the safety cap
}

// Stats reports what was actually applied. Counts reflect successful
// mutations only.
type Stats struct {
	Trashed int
	Labeled int
	Starred int
}

// starredLabel is Gmail's built-in star label ID.
const starredLabel = "STARRED"

// Resolve turns a scan result plus per-category decisions into a Plan.
//
// The trash candidates are concatenated in a fixed order (auto-trash,
// then duplicate-redundant, then delete-decision categories in sorted name
// order), de-duplicated, and prefix-truncated at maxTrash. The
// concatenation order is the tie-break for which messages survive the cap.
// Priority IDs are protected: they never enter the trash list, even when a
// duplicate group marked one redundant.
func Resolve(res *model.ScanResult, decisions map[string]Decision, maxTrash int) Plan {
	var plan Plan

	protected := make(map[string]bool, len(res.ToPriority))
	for _, id := range res.ToPriority {
		protected[id] = true
	}

	seen := make(map[string]bool)
	addTrash := func(ids []string) {
		for _, id := range ids {
			if seen[id] || protected[id] {
				continue
			}
			seen[id] = true
			plan.Trash = append(plan.Trash, id)
		}
	}

	addTrash(res.ToTrash)
	addTrash(res.DupIDs)
	for _, name := range res.CategoriesSorted() {
		ids := res.CategoryGroups[name]
		switch decisions[name] {
		case DecisionDelete:
			addTrash(ids)
		case DecisionLabel:
			plan.Labels = append(plan.Labels, LabelBucket{Name: name, IDs: ids})
		default:
			plan.SkipReview = append(plan.SkipReview, ids...)
		}
	}

	if maxTrash > 0 && len(plan.Trash) > maxTrash {
		plan.Capped = len(plan.Trash) - maxTrash
		plan.Trash = plan.Trash[:maxTrash]
	}

	plan.Star = append(plan.Star, res.ToPriority...)
	return plan
}

// Apply executes a plan against the mailbox. Mutations are sequential and
// best-effort per ID: one failed remote call is logged and the rest of the
// batch continues. The review ledger is updated per bucket, only after
// that bucket's mutations ran; a crash mid-apply leaves the un-applied
// remainder unmarked, so the next scan re-offers it.
//
// Dry run computes counts with no remote calls and no ledger writes.
func (t *Triager) Apply(ctx context.Context, plan Plan, dryRun bool) (Stats, error) {
	if dryRun {
		labeled := 0
		for _, b := range plan.Labels {
			labeled += len(b.IDs)
		}
		return Stats{Trashed: len(plan.Trash), Labeled: labeled, Starred: len(plan.Star)}, nil
	}

	var stats Stats
	log := t.logger()

	var applied []string
	for _, id := range plan.Trash {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := t.Mailbox.Trash(ctx, id); err != nil {
			log.Warn("trash failed", "id", id, "error", err)
			continue
		}
		stats.Trashed++
		applied = append(applied, id)
	}
	t.markReviewed(applied)

	// Label-ID cache scoped to this apply pass: one resolve-or-create call
	// per distinct label name.
	labelIDs := make(map[string]string)
	for _, bucket := range plan.Labels {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		labelID, ok := labelIDs[bucket.Name]
		if !ok {
			var err error
			labelID, err = t.Mailbox.ResolveOrCreateLabel(ctx, bucket.Name)
			if err != nil {
				log.Warn("label resolve failed, skipping bucket", "label", bucket.Name, "error", err)
				continue
			}
			labelIDs[bucket.Name] = labelID
		}

		applied = applied[:0]
		for _, id := range bucket.IDs {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			if err := t.Mailbox.Modify(ctx, id, []string{labelID}, nil); err != nil {
				log.Warn("label failed", "id", id, "label", bucket.Name, "error", err)
				continue
			}
			stats.Labeled++
			applied = append(applied, id)
		}
		t.markReviewed(applied)
	}

	for _, id := range plan.Star {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := t.Mailbox.Modify(ctx, id, []string{starredLabel}, nil); err != nil {
			log.Warn("star failed", "id", id, "error", err)
			continue
		}
		stats.Starred++
	}
	// Priority messages are auto-actioned every run, never ledgered.

	t.markReviewed(plan.SkipReview)

	return stats, nil
}

func (t *Triager) markReviewed(ids []string) {
	if len(ids) == 0 {
		return
	}
	if err := t.Ledger.Mark(ids); err != nil {
		t.logger().Warn("review ledger update failed", "error", err)
	}
}

// ResolveAndApply collects decisions from src, resolves the plan and
// applies it. A canceled decision source aborts with ErrCanceled before
// any mutation.
func (t *Triager) ResolveAndApply(ctx context.Context, res *model.ScanResult, src DecisionSource, maxTrash int, dryRun bool) (Stats, error) {
	decisions, err := CollectDecisions(res, src)
	if err != nil {
		return Stats{}, err
	}
	plan := Resolve(res, decisions, maxTrash)
	if plan.Capped > 0 {
		t.logger().Info("safety cap engaged", "dropped", plan.Capped, "cap", maxTrash)
	}
	return t.Apply(ctx, plan, dryRun)
}
