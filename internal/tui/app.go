// Package tui is the interactive front end: scan with progress, choose an
// action per category, apply, report. The pipeline itself lives in triage;
// this is only the decision-collection surface.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"mailreaper/internal/model"
	"mailreaper/internal/triage"
)

type viewState int

const (
	viewScanning viewState = iota
	viewDecide
	viewApplying
	viewResults
)

type scanProgressMsg struct {
	done, total int
}

type scanDoneMsg struct {
	res *model.ScanResult
	err error
}

type applyDoneMsg struct {
	stats triage.Stats
	err   error
}

// categoryRow is one decidable bucket in the decide view.
type categoryRow struct {
	name     string
	count    int
	decision triage.Decision
}

type AppModel struct {
	triager  *triage.Triager
	cfg      triage.Config
	maxTrash int

	view    viewState
	spin    spinner.Model
	status  string
	res     *model.ScanResult
	rows    []categoryRow
	cursor  int
	dryRun  bool
	stats   triage.Stats
	Err     error
	width   int
	program *tea.Program
}

func NewAppModel(tr *triage.Triager, cfg triage.Config, maxTrash int) AppModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return AppModel{
		triager:  tr,
		cfg:      cfg,
		maxTrash: maxTrash,
		spin:     sp,
		status:   "Scanning inbox…",
	}
}

// SetProgram stores the tea.Program so the scan goroutine can push
// progress messages into the Update loop.
func (m *AppModel) SetProgram(p *tea.Program) {
	m.program = p
}

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.scanCmd())
}

func (m *AppModel) scanCmd() tea.Cmd {
	return func() tea.Msg {
		res, err := m.triager.Scan(context.Background(), m.cfg, func(done, total int) {
			if m.program != nil && done%25 == 0 {
				m.program.Send(scanProgressMsg{done: done, total: total})
			}
		})
		return scanDoneMsg{res: res, err: err}
	}
}

func (m *AppModel) applyCmd() tea.Cmd {
	decisions := make(map[string]triage.Decision, len(m.rows))
	for _, r := range m.rows {
		decisions[r.name] = r.decision
	}
	src := triage.DecisionFunc(func(category string, _ int) (triage.Decision, error) {
		return decisions[category], nil
	})
	dryRun := m.dryRun
	return func() tea.Msg {
		stats, err := m.triager.ResolveAndApply(context.Background(), m.res, src, m.maxTrash, dryRun)
		return applyDoneMsg{stats: stats, err: err}
	}
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case scanProgressMsg:
		m.status = fmt.Sprintf("Scanning inbox… %d / %d messages", msg.done, msg.total)
		return m, nil

	case scanDoneMsg:
		if msg.err != nil {
			m.Err = msg.err
			return m, tea.Quit
		}
		m.res = msg.res
		m.rows = nil
		for _, name := range m.res.CategoriesSorted() {
			m.rows = append(m.rows, categoryRow{
				name:     name,
				count:    len(m.res.CategoryGroups[name]),
				decision: triage.DecisionLabel,
			})
		}
		m.view = viewDecide
		return m, nil

	case applyDoneMsg:
		if msg.err != nil {
			m.Err = msg.err
			return m, tea.Quit
		}
		m.stats = msg.stats
		m.view = viewResults
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Cancellation is always available and never mutates anything.
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.view {
	case viewDecide:
		switch key {
		case "q", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.rows)-1 {
				m.cursor++
			}
		case "d":
			m.setDecision(triage.DecisionDelete)
		case "l":
			m.setDecision(triage.DecisionLabel)
		case "s":
			m.setDecision(triage.DecisionSkip)
		case "D":
			m.dryRun = true
			m.view = viewApplying
			m.status = "Computing dry run…"
			return m, tea.Batch(m.spin.Tick, m.applyCmd())
		case "enter":
			m.dryRun = false
			m.view = viewApplying
			m.status = "Applying changes…"
			return m, tea.Batch(m.spin.Tick, m.applyCmd())
		}
	case viewResults:
		switch key {
		case "q", "esc", "enter":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *AppModel) setDecision(d triage.Decision) {
	if m.cursor < len(m.rows) {
		m.rows[m.cursor].decision = d
	}
}
