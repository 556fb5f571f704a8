// Package dupes groups a batch of messages into duplicate clusters.
// Two passes, both O(n) hash partitions: an exact pass over the Message-ID
// header, then a fuzzy pass over (sender, subject, minute) for messages
// that carry no Message-ID. Groups are disjoint and preserve batch order.
package dupes

import (
	"strings"
	"time"

	"mailreaper/internal/classify"
	"mailreaper/internal/model"
)

// Group is an ordered set of message IDs considered duplicates of each
// other. The first element is the keeper; the rest are redundant.
type Group []string

// Keeper returns the message ID to retain.
func (g Group) Keeper() string { return g[0] }

// Redundant returns the IDs that are candidates for removal.
func (g Group) Redundant() []string { return g[1:] }

// Find partitions the batch into duplicate groups of size >= 2.
//
// Messages without a Message-ID fall back to a fuzzy key of sender, subject
// and the Date truncated to the minute. When the Date does not parse the
// key degrades to (sender, subject, ""); two such messages group on sender
// and subject alone, which can over-merge generic automated mail. That
// matches long-standing behavior; strictDates excludes unparsable-date
// messages from the fuzzy pass instead.
func Find(batch []model.MessageRef, strictDates bool) []Group {
	byMessageID := make(map[string][]string)
	var exactOrder []string
	var noMessageID []model.MessageRef

	for _, m := range batch {
		mid := strings.TrimSpace(classify.GetHeader(m.Headers, "Message-ID"))
		if mid == "" {
			noMessageID = append(noMessageID, m)
			continue
		}
		if _, seen := byMessageID[mid]; !seen {
			exactOrder = append(exactOrder, mid)
		}
		byMessageID[mid] = append(byMessageID[mid], m.ID)
	}

	var groups []Group
	for _, mid := range exactOrder {
		if ids := byMessageID[mid]; len(ids) > 1 {
			groups = append(groups, Group(ids))
		}
	}

	fuzzy := make(map[string][]string)
	var fuzzyOrder []string
	for _, m := range noMessageID {
		sender := classify.GetHeader(m.Headers, "From")
		subject := classify.GetHeader(m.Headers, "Subject")

		minute := ""
		t, ok := classify.ParseDate(classify.GetHeader(m.Headers, "Date"))
		if ok {
			minute = t.UTC().Truncate(time.Minute).Format("2006-01-02T15:04")
		} else if strictDates {
			continue
		}

		key := sender + "\x00" + subject + "\x00" + minute
		if _, seen := fuzzy[key]; !seen {
			fuzzyOrder = append(fuzzyOrder, key)
		}
		fuzzy[key] = append(fuzzy[key], m.ID)
	}
	for _, key := range fuzzyOrder {
		if ids := fuzzy[key]; len(ids) > 1 {
			groups = append(groups, Group(ids))
		}
	}
	return groups
}

// RedundantIDs flattens the redundant members of every group, preserving
// group order.
func RedundantIDs(groups []Group) []string {
	var ids []string
	for _, g := range groups {
		ids = append(ids, g.Redundant()...)
	}
	return ids
}
