package tui

import (
	"fmt"
	"strings"
)

func (m *AppModel) View() string {
	switch m.view {
	case viewScanning, viewApplying:
		return fmt.Sprintf("\n  %s %s\n", m.spin.View(), m.status)
	case viewDecide:
		return m.decideView()
	case viewResults:
		return m.resultsView()
	}
	return ""
}

func (m *AppModel) decideView() string {
	var b strings.Builder
	b.WriteString("\n  Scan summary\n\n")
	fmt.Fprintf(&b, "  Priority (starred, protected)  %4d\n", len(m.res.ToPriority))
	fmt.Fprintf(&b, "  Older than %d days (to trash)  %4d\n", m.res.DeleteDays, len(m.res.ToTrash))
	fmt.Fprintf(&b, "  Duplicates (to trash, keep 1)  %4d\n", len(m.res.DupIDs))
	if m.res.Skipped > 0 {
		fmt.Fprintf(&b, "  Previously reviewed (hidden)   %4d\n", m.res.Skipped)
	}

	b.WriteString("\n  Categories (choose an action per row):\n\n")
	if len(m.rows) == 0 {
		b.WriteString("    (none found)\n")
	}
	for i, r := range m.rows {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		fmt.Fprintf(&b, "  %s%-20s %4d emails   [%s]\n", cursor, r.name, r.count, r.decision)
	}

	b.WriteString("\n  ↑/↓ move · d delete · l label · s skip · enter apply · D dry run · q quit\n")
	return b.String()
}

func (m *AppModel) resultsView() string {
	var b strings.Builder
	if m.dryRun {
		b.WriteString("\n  Dry run complete, no changes made\n\n")
	} else {
		b.WriteString("\n  Cleanup complete\n\n")
	}
	fmt.Fprintf(&b, "  Trashed  %4d\n", m.stats.Trashed)
	fmt.Fprintf(&b, "  Labeled  %4d\n", m.stats.Labeled)
	fmt.Fprintf(&b, "  Starred  %4d\n", m.stats.Starred)
	b.WriteString("\n  enter/q to exit\n")
	return b.String()
}
