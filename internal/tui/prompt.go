package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	tea "charm.land/bubbletea/v2"

	"github.com/skeinedit/skein/internal/editor"
	"github.com/skeinedit/skein/internal/pathfind"
)

// updatePrompt handles key events while the inline prompt is open.
func (m Model) updatePrompt(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.Keystroke() {
	case "esc", "ctrl+c":
		m.prompt = promptState{}
		return m, nil
	case "enter":
		return m.submitPrompt()
	case "backspace":
		if m.prompt.input != "" {
			_, size := utf8.DecodeLastRuneInString(m.prompt.input)
			m.prompt.input = m.prompt.input[:len(m.prompt.input)-size]
		}
		return m, nil
	}
	if msg.Text != "" {
		m.prompt.input += msg.Text
	}
	return m, nil
}

func (m Model) submitPrompt() (tea.Model, tea.Cmd) {
	kind, input := m.prompt.kind, m.prompt.input
	m.prompt = promptState{}
	if input == "" {
		return m, nil
	}

	switch kind {
	case promptSearch:
		doc, dv := m.activeView()
		if doc == nil {
			return m, nil
		}
		matches := doc.Search(input)
		m.search = searchState{query: input, matches: matches}
		if len(matches) == 0 {
			m.status = fmt.Sprintf("no matches for %q", input)
			return m, nil
		}
		m.status = fmt.Sprintf("%d matches", len(matches))
		if match, ok := editor.NextMatch(matches, doc.Cursor()); ok {
			doc.SetCursor(match.End)
			doc.SetSelection(match.Start, match.End)
			m.ensureVisible(doc, dv)
		}
		return m.withScan()

	case promptOpen:
		target := input
		if _, err := os.Stat(target); err != nil {
			resolved, ok := m.resolveFuzzy(input)
			if !ok {
				m.status = fmt.Sprintf("no file matching %q", input)
				return m, nil
			}
			target = resolved
		}
		if _, err := m.openPath(target); err != nil {
			m.setError(err)
			return m, nil
		}
		return m.withScan()

	case promptSaveAs:
		doc := m.tabs.Active()
		if doc == nil {
			return m, nil
		}
		return m, m.saveCmd(doc, input)
	}
	return m, nil
}

func titleForPath(path string) string { return filepath.Base(path) }

// resolveFuzzy resolves a typed name that is not a real path, so "edidoc"
// opens internal/editor/document.go. Recently opened files win over the
// workspace walk.
func (m *Model) resolveFuzzy(input string) (string, bool) {
	for _, match := range pathfind.Rank(input, m.sessions.RecentFiles(0)) {
		if _, err := os.Stat(match.Path); err == nil {
			return match.Path, true
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", false
	}
	matches, err := pathfind.NewFinder(cwd).Find(context.Background(), input, 1)
	if err != nil || len(matches) == 0 {
		return "", false
	}
	return filepath.Join(cwd, matches[0].Path), true
}
