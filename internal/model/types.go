package model

import "sort"

// Header is one name/value pair from a message's metadata. Names are
// compared case-insensitively by accessors.
type Header struct {
	Name  string
	Value string
}

// MessageRef holds the minimal info the triage pipeline needs: the Gmail
// message ID plus the metadata headers we asked for. Immutable once fetched.
type MessageRef struct {
	ID      string
	Headers []Header
}

// UnsubscribeLinks holds the usable URIs parsed from a List-Unsubscribe
// header. At least one of Mailto/HTTP is non-empty whenever the struct
// exists at all.
type UnsubscribeLinks struct {
	Mailto   string
	HTTP     string
	OneClick bool // RFC 8058 marker seen in List-Unsubscribe-Post
}

// NewsletterItem is one row of the unsubscribe report.
type NewsletterItem struct {
	Sender  string
	Subject string
	Links   *UnsubscribeLinks // nil when no usable URI was found
}

// ScanResult aggregates a single read-only pass over the inbox.
// Rebuilt from scratch every scan; never persisted.
type ScanResult struct {
	ToTrash         []string            // auto-trash by age
	ToPriority      []string            // starred, never deleted
	CategoryGroups  map[string][]string // category -> message IDs ("Newsletters" included)
	DupIDs          []string            // duplicate-redundant IDs, keepers excluded
	NewsletterItems []NewsletterItem

	Skipped    int // suppressed by the review ledger
	Personal   int // unclassified messages that look like direct personal mail
	Fetched    int // batch size the pass ran over
	DeleteDays int // age threshold the pass used
}

// CategoriesSorted returns the category names in sorted order. Map iteration
// is unordered in Go, and decision resolution and capping need a stable
// order across runs.
func (r *ScanResult) CategoriesSorted() []string {
	names := make([]string, 0, len(r.CategoryGroups))
	for name := range r.CategoryGroups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
