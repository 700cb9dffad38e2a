package tui

import (
	"context"

	tea "charm.land/bubbletea/v2"

	"github.com/skeinedit/skein/internal/highlight"
)

// scanResultsMsg carries one finished highlight batch back to the update
// loop. Results from a buffer version that has since changed are dropped
// by Coordinator.Apply.
type scanResultsMsg struct {
	docID   string
	results []highlight.Result
}

// withScan snapshots the model after scheduling any pending highlight work.
// The command must be built before the model is copied so the in-flight
// marker survives into the returned snapshot.
func (m *Model) withScan() (Model, tea.Cmd) {
	cmd := m.scanCmd()
	return *m, cmd
}

// scanCmd collects pending highlight work for the active document and runs
// it off the update loop. Returns nil when everything in reach is fresh.
func (m *Model) scanCmd() tea.Cmd {
	doc, dv := m.activeView()
	if doc == nil || dv == nil || m.scanning {
		return nil
	}
	top := dv.top
	dv.coord.SetViewport(top, top+m.editorHeight()-1)
	jobs := dv.coord.Collect()
	if len(jobs) == 0 {
		return nil
	}
	m.scanning = true
	id := doc.ID()
	engine := dv.engine
	workers := m.cfg.Highlight.WorkersOrDefault()
	return func() tea.Msg {
		results, _ := highlight.Compute(context.Background(), engine, jobs, workers)
		return scanResultsMsg{docID: id, results: results}
	}
}

// applyScan folds a finished batch into its coordinator and keeps scanning
// until the visible region converges.
func (m Model) applyScan(msg scanResultsMsg) (tea.Model, tea.Cmd) {
	m.scanning = false
	dv := m.views[msg.docID]
	if dv == nil {
		return m.withScan()
	}
	for _, res := range msg.results {
		dv.coord.Apply(res)
	}
	return m.withScan()
}
