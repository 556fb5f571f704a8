// Package triage composes the classifier, duplicate detector and review
// ledger into a single scan pass, then resolves per-category decisions
// into capped mutation lists and drives them through the mailbox client.
package triage

import (
	"context"
	"errors"
	"log/slog"

	"mailreaper/internal/ledger"
	"mailreaper/internal/model"
	"mailreaper/internal/store"
)

// ErrCanceled reports that the user declined to choose during interactive
// decision collection. The apply phase is aborted with no mutation and no
// ledger update.
var ErrCanceled = errors.New("triage canceled")

// Mailbox is the remote mailbox collaborator. Implemented by gmail.Client;
// tests substitute a fake.
type Mailbox interface {
	List(ctx context.Context, query string, max int64) ([]string, error)
	FetchMetadata(ctx context.Context, ids []string, progress func(done, total int)) ([]model.MessageRef, error)
	Trash(ctx context.Context, id string) error
	Modify(ctx context.Context, id string, add, remove []string) error
	ResolveOrCreateLabel(ctx context.Context, name string) (string, error)
	Send(ctx context.Context, to, subject, body string) error
}

// Decision is the per-category action chosen by policy or by the user.
type Decision int

const (
	DecisionSkip Decision = iota
	DecisionLabel
	DecisionDelete
)

func (d Decision) String() string {
	switch d {
	case DecisionDelete:
		return "delete"
	case DecisionLabel:
		return "label"
	default:
		return "skip"
	}
}

// DecisionSource chooses an action for each category bucket. The same
// pipeline serves a scripted policy and an interactive prompt; returning
// an error aborts decision collection (see ErrCanceled).
type DecisionSource interface {
	Decide(category string, count int) (Decision, error)
}

// DecisionFunc adapts a function to a DecisionSource.
type DecisionFunc func(category string, count int) (Decision, error)

func (f DecisionFunc) Decide(category string, count int) (Decision, error) {
	return f(category, count)
}

// FixedDecision returns a source that applies the same action to every
// category, the scripted policy used by the scheduler and batch runs.
func FixedDecision(d Decision) DecisionSource {
	return DecisionFunc(func(string, int) (Decision, error) { return d, nil })
}

// Config carries the rule knobs the pipeline consumes.
type Config struct {
	Query                string // Gmail search, default "in:inbox"
	MaxResults           int64  // list cap, default 500
	DeleteOlderThanDays  int    // age threshold for auto-trash
	PriorityKeywords     []string
	PrioritySenders      []string
	MaxTrashPerRun       int // safety cap on destructive mutations
	StrictDuplicateDates bool
}

func (c Config) query() string {
	if c.Query == "" {
		return "in:inbox"
	}
	return c.Query
}

func (c Config) maxResults() int64 {
	if c.MaxResults <= 0 {
		return 500
	}
	return c.MaxResults
}

// Triager bundles the pipeline's collaborators. Cache is optional; when
// set, Scan snapshots the fetched batch for report-only reuse.
type Triager struct {
	Mailbox Mailbox
	Ledger  *ledger.Ledger
	Cache   *store.Store
	Logger  *slog.Logger
}

func (t *Triager) logger() *slog.Logger {
	if t.Logger == nil {
		return slog.Default()
	}
	return t.Logger
}

// CollectDecisions asks src for an action per category, in sorted category
// order. Any error from the source cancels the whole collection.
func CollectDecisions(res *model.ScanResult, src DecisionSource) (map[string]Decision, error) {
	decisions := make(map[string]Decision, len(res.CategoryGroups))
	for _, name := range res.CategoriesSorted() {
		d, err := src.Decide(name, len(res.CategoryGroups[name]))
		if err != nil {
			return nil, ErrCanceled
		}
		decisions[name] = d
	}
	return decisions, nil
}
