// Package ledger persists the set of message IDs the user has already
// decided on, so later scans do not re-surface them.
package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
)

// Ledger is a durable append-only set of message identifiers, stored as a
// sorted JSON array. Missing or corrupt files read as the empty set.
type Ledger struct {
	path string
}

// New returns a ledger backed by the file at path. The file is created
// lazily on the first Mark.
func New(path string) *Ledger {
	return &Ledger{path: path}
}

// Load returns the persisted set. A missing or unparsable file yields an
// empty set; corruption is never fatal.
func (l *Ledger) Load() map[string]bool {
	set := make(map[string]bool)
	b, err := os.ReadFile(l.path)
	if err != nil {
		return set
	}
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return set
	}
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// Mark unions ids into the persisted set and rewrites the file atomically
// (full rewrite via temp file + rename, so a concurrent reader never sees
// a partial write).
func (l *Ledger) Mark(ids []string) error {
	set := l.Load()
	for _, id := range ids {
		set[id] = true
	}
	sorted := make([]string, 0, len(set))
	for id := range set {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	b, err := json.Marshal(sorted)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, l.path)
}

// Clear removes the store entirely. Absence is not an error.
func (l *Ledger) Clear() error {
	err := os.Remove(l.path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// Count returns the number of reviewed IDs.
func (l *Ledger) Count() int {
	return len(l.Load())
}
