package main

import (
	"context"
	"fmt"
	"time"

	"mailreaper/internal/model"
	"mailreaper/internal/store"
	"mailreaper/internal/triage"
	"mailreaper/internal/unsub"
)

// cleanup runs the full pipeline: trash expired mail and duplicates, label
// every category, star priority mail. Scripted runs (scheduler) skip the
// summary and the prompt.
func (c *cli) cleanup(ctx context.Context, scripted bool) error {
	res, err := c.scan(ctx, scripted)
	if err != nil {
		return err
	}
	if !scripted {
		printSummary(res)
	}
	return c.apply(ctx, res, triage.DecisionLabel, scripted)
}

func (c *cli) deleteOld(ctx context.Context) error {
	res, err := c.scan(ctx, false)
	if err != nil {
		return err
	}
	fmt.Printf("Found %d emails older than %d days (%d priority emails protected).\n",
		len(res.ToTrash), res.DeleteDays, len(res.ToPriority))
	return c.apply(ctx, restrict(res, true, false, false), triage.DecisionSkip, false)
}

func (c *cli) duplicates(ctx context.Context) error {
	res, err := c.scan(ctx, false)
	if err != nil {
		return err
	}
	fmt.Printf("Found %d redundant duplicate copies.\n", len(res.DupIDs))
	return c.apply(ctx, restrict(res, false, true, false), triage.DecisionSkip, false)
}

func (c *cli) organize(ctx context.Context) error {
	res, err := c.scan(ctx, false)
	if err != nil {
		return err
	}
	for _, name := range res.CategoriesSorted() {
		fmt.Printf("  %-22s %d emails\n", name, len(res.CategoryGroups[name]))
	}
	return c.apply(ctx, restrict(res, false, false, true), triage.DecisionLabel, false)
}

// unsubscribe prints the newsletter report, reusing a recent scan snapshot
// when one exists. With attempt set it works through the list, preferring
// one-click endpoints and pacing mailto sends.
func (c *cli) unsubscribe(ctx context.Context, cache *store.Store, attempt bool) error {
	res, err := c.cachedScan(ctx, cache)
	if err != nil {
		return err
	}
	if len(res.NewsletterItems) == 0 {
		fmt.Println("No newsletters with unsubscribe links found.")
		return nil
	}
	fmt.Printf("Found %d newsletters:\n", len(res.NewsletterItems))
	for i, it := range res.NewsletterItems {
		fmt.Printf("%3d. %s\n     %s\n", i+1, it.Sender, it.Subject)
		if it.Links != nil {
			if it.Links.HTTP != "" {
				marker := ""
				if it.Links.OneClick {
					marker = " (one-click)"
				}
				fmt.Printf("     %s%s\n", it.Links.HTTP, marker)
			}
			if it.Links.Mailto != "" {
				fmt.Printf("     %s\n", it.Links.Mailto)
			}
		}
	}
	if !attempt {
		fmt.Println("\nRe-run with -attempt to try these automatically.")
		return nil
	}
	if c.dryRun {
		fmt.Printf("[dry run] would attempt %d unsubscribes.\n", len(res.NewsletterItems))
		return nil
	}
	if !c.yes && !confirm(fmt.Sprintf("Attempt %d unsubscribes?", len(res.NewsletterItems))) {
		fmt.Println("Cancelled.")
		return nil
	}

	resolver := &unsub.Resolver{Mailer: c.tr.Mailbox}
	var ok, manual, failed int
	for i, it := range res.NewsletterItems {
		if err := ctx.Err(); err != nil {
			return err
		}
		method, status := resolver.Attempt(ctx, it.Links)
		switch status {
		case unsub.StatusOK:
			ok++
		case unsub.StatusManual:
			manual++
		default:
			failed++
		}
		c.logger.Info("unsubscribe attempted",
			"sender", it.Sender, "method", method, "status", status)
		if method == unsub.MethodMailto && i < len(res.NewsletterItems)-1 {
			time.Sleep(unsubPacing)
		}
	}
	fmt.Printf("Done: %d unsubscribed, %d need manual follow-up, %d failed.\n", ok, manual, failed)
	return nil
}

func (c *cli) scan(ctx context.Context, scripted bool) (*model.ScanResult, error) {
	var prog func(int, int)
	if !scripted {
		prog = progress
	}
	return c.tr.Scan(ctx, c.cfg, prog)
}

// cachedScan reclassifies the last snapshot when it is fresh enough,
// avoiding a refetch for back-to-back report commands.
func (c *cli) cachedScan(ctx context.Context, cache *store.Store) (*model.ScanResult, error) {
	if cache != nil {
		batch, scannedAt, err := cache.LoadScan(ctx)
		if err == nil && len(batch) > 0 && time.Since(scannedAt) < cacheMaxAge {
			c.logger.Debug("using cached scan", "messages", len(batch), "age", time.Since(scannedAt).Round(time.Second))
			return triage.ClassifyBatch(batch, c.tr.Ledger.Load(), c.cfg), nil
		}
	}
	return c.scan(ctx, false)
}

func (c *cli) apply(ctx context.Context, res *model.ScanResult, decision triage.Decision, scripted bool) error {
	if !c.dryRun && !scripted && !c.yes {
		n := len(res.ToTrash) + len(res.DupIDs)
		if !confirm(fmt.Sprintf("Proceed? (%d emails to trash)", n)) {
			fmt.Println("Cancelled.")
			return nil
		}
	}
	stats, err := c.tr.ResolveAndApply(ctx, res, triage.FixedDecision(decision), c.cfg.MaxTrashPerRun, c.dryRun)
	if err != nil {
		return err
	}
	if c.dryRun {
		fmt.Println("[dry run] no changes were made.")
	}
	fmt.Printf("Trashed %d, labeled %d, starred %d.\n", stats.Trashed, stats.Labeled, stats.Starred)
	return nil
}

// restrict zeroes the buckets an action does not touch. Priority mail stays
// in every variant so it is never trashed.
func restrict(res *model.ScanResult, trash, dups, categories bool) *model.ScanResult {
	r := *res
	if !trash {
		r.ToTrash = nil
	}
	if !dups {
		r.DupIDs = nil
	}
	if !categories {
		r.CategoryGroups = nil
	}
	return &r
}

func printSummary(res *model.ScanResult) {
	fmt.Printf("\nScanned %d emails:\n", res.Fetched)
	fmt.Printf("  Older than %d days:  %d\n", res.DeleteDays, len(res.ToTrash))
	fmt.Printf("  Priority (starred):  %d\n", len(res.ToPriority))
	fmt.Printf("  Duplicate copies:    %d\n", len(res.DupIDs))
	fmt.Printf("  Already reviewed:    %d\n", res.Skipped)
	fmt.Printf("  Personal (left alone): %d\n", res.Personal)
	for _, name := range res.CategoriesSorted() {
		fmt.Printf("  %-22s %d\n", name+":", len(res.CategoryGroups[name]))
	}
}
