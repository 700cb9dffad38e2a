package tui

import (
	"errors"
	"fmt"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"github.com/atotto/clipboard"
	"github.com/rs/zerolog/log"

	"github.com/skeinedit/skein/internal/editor"
	"github.com/skeinedit/skein/internal/history"
)

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	// -- Window resize -------------------------------------------------------
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if doc, dv := m.activeView(); doc != nil {
			m.ensureVisible(doc, dv)
		}
		return m.withScan()

	// -- Paste (clipboard read or bracketed paste) ---------------------------
	case tea.ClipboardMsg:
		return m.afterEdit(func(doc *editor.Document) {
			m.insertText(doc, msg.String())
		})
	case tea.PasteMsg:
		return m.afterEdit(func(doc *editor.Document) {
			m.insertText(doc, msg.Content)
		})

	// -- Keyboard ------------------------------------------------------------
	case tea.KeyPressMsg:
		if m.prompt.kind != promptNone {
			return m.updatePrompt(msg)
		}
		if mdl, cmd, handled := m.handleKeyPress(msg); handled {
			return mdl, cmd
		}
		if msg.Text != "" {
			return m.afterEdit(func(doc *editor.Document) {
				m.insertText(doc, msg.Text)
			})
		}
		return m, nil

	// -- Background highlight batch ------------------------------------------
	case scanResultsMsg:
		return m.applyScan(msg)

	// -- Save completion -----------------------------------------------------
	case savedMsg:
		return m.applySaved(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// afterEdit runs an edit against the active document, then rescrolls and
// schedules a highlight pass.
func (m Model) afterEdit(fn func(*editor.Document)) (tea.Model, tea.Cmd) {
	doc, dv := m.activeView()
	if doc == nil {
		return m, nil
	}
	m.status = ""
	m.pendingClose = ""
	fn(doc)
	m.ensureVisible(doc, dv)
	return m.withScan()
}

func (m *Model) setError(err error) {
	m.status = "error: " + err.Error()
}

// ---------------------------------------------------------------------------
// Key handling
// ---------------------------------------------------------------------------

// handleKeyPress processes key events. Returns (model, cmd, true) if handled.
func (m *Model) handleKeyPress(msg tea.KeyPressMsg) (Model, tea.Cmd, bool) {
	handler := keyPressHandlers[msg.Keystroke()]
	if handler == nil {
		return Model{}, nil, false
	}
	mdl, cmd := handler(m)
	return mdl, cmd, true
}

var keyPressHandlers = map[string]func(*Model) (Model, tea.Cmd){
	"ctrl+q":       (*Model).handleQuit,
	"ctrl+s":       (*Model).handleSave,
	"ctrl+shift+s": (*Model).handleSaveAs,
	"ctrl+z":       (*Model).handleUndo,
	"ctrl+y":       (*Model).handleRedo,
	"ctrl+f":       (*Model).handleFind,
	"ctrl+n":       (*Model).handleFindNext,
	"ctrl+p":       (*Model).handleFindPrev,
	"ctrl+o":       (*Model).handleOpen,
	"ctrl+t":       (*Model).handleNewTab,
	"ctrl+w":       (*Model).handleCloseTab,
	"alt+right":    (*Model).handleNextTab,
	"alt+left":     (*Model).handlePrevTab,
	"ctrl+u":       (*Model).handlePlugin,
	"ctrl+a":       (*Model).handleSelectAll,
	"ctrl+shift+c": (*Model).handleCopy,
	"ctrl+shift+v": (*Model).handlePaste,

	"up":          moveKey(moveUp, false),
	"down":        moveKey(moveDown, false),
	"left":        moveKey(moveLeft, false),
	"right":       moveKey(moveRight, false),
	"home":        moveKey(moveHome, false),
	"end":         moveKey(moveEnd, false),
	"shift+up":    moveKey(moveUp, true),
	"shift+down":  moveKey(moveDown, true),
	"shift+left":  moveKey(moveLeft, true),
	"shift+right": moveKey(moveRight, true),
	"shift+home":  moveKey(moveHome, true),
	"shift+end":   moveKey(moveEnd, true),
	"pgup":        pageKey(false),
	"pgdown":      pageKey(true),

	"enter":     editKey(func(m *Model, doc *editor.Document) { m.insertText(doc, "\n") }),
	"tab":       editKey(func(m *Model, doc *editor.Document) { m.insertText(doc, "\t") }),
	"backspace": editKey((*Model).deleteBackward),
	"delete":    editKey((*Model).deleteForward),
	"esc": func(m *Model) (Model, tea.Cmd) {
		if doc := m.tabs.Active(); doc != nil {
			doc.ClearSelection()
		}
		m.status = ""
		m.pendingClose = ""
		return *m, nil
	},
}

func moveKey(dir direction, extend bool) func(*Model) (Model, tea.Cmd) {
	return func(m *Model) (Model, tea.Cmd) {
		doc, dv := m.activeView()
		if doc == nil {
			return *m, nil
		}
		m.moveCursor(doc, dir, extend)
		m.ensureVisible(doc, dv)
		return m.withScan()
	}
}

func pageKey(down bool) func(*Model) (Model, tea.Cmd) {
	return func(m *Model) (Model, tea.Cmd) {
		doc, dv := m.activeView()
		if doc == nil {
			return *m, nil
		}
		m.movePage(doc, dv, down)
		return m.withScan()
	}
}

func editKey(fn func(*Model, *editor.Document)) func(*Model) (Model, tea.Cmd) {
	return func(m *Model) (Model, tea.Cmd) {
		doc, dv := m.activeView()
		if doc == nil {
			return *m, nil
		}
		m.status = ""
		m.pendingClose = ""
		fn(m, doc)
		m.ensureVisible(doc, dv)
		return m.withScan()
	}
}

func (m *Model) handleQuit() (Model, tea.Cmd) {
	if m.cfg.UI.AutoSave {
		// Synchronous: commands issued alongside Quit may not finish.
		for _, doc := range m.tabs.Documents() {
			if !doc.Dirty() || doc.Path() == "" {
				continue
			}
			content := doc.Snapshot()
			if err := m.saver.Save(doc.Path(), content); err == nil {
				doc.MarkSaved(content)
			}
		}
	}
	if err := m.sessions.SaveSession(m.sessionSnapshot()); err != nil {
		m.setError(err)
	}
	return *m, tea.Quit
}

// autoSaveCmd flushes a dirty named document when its tab is left.
func (m *Model) autoSaveCmd(doc *editor.Document) tea.Cmd {
	if doc == nil || !m.cfg.UI.AutoSave || !doc.Dirty() || doc.Path() == "" {
		return nil
	}
	return m.saveCmd(doc, doc.Path())
}

func (m *Model) handleUndo() (Model, tea.Cmd) {
	doc, dv := m.activeView()
	if doc == nil {
		return *m, nil
	}
	if err := doc.Undo(); err != nil {
		if errors.Is(err, history.ErrNothingToUndo) {
			m.status = "nothing to undo"
		} else {
			m.setError(err)
		}
		return *m, nil
	}
	m.ensureVisible(doc, dv)
	return m.withScan()
}

func (m *Model) handleRedo() (Model, tea.Cmd) {
	doc, dv := m.activeView()
	if doc == nil {
		return *m, nil
	}
	if err := doc.Redo(); err != nil {
		if errors.Is(err, history.ErrNothingToRedo) {
			m.status = "nothing to redo"
		} else {
			m.setError(err)
		}
		return *m, nil
	}
	m.ensureVisible(doc, dv)
	return m.withScan()
}

func (m *Model) handleFind() (Model, tea.Cmd) {
	m.prompt = promptState{kind: promptSearch}
	return *m, nil
}

func (m *Model) handleFindNext() (Model, tea.Cmd) { return m.jumpMatch(true) }
func (m *Model) handleFindPrev() (Model, tea.Cmd) { return m.jumpMatch(false) }

// jumpMatch moves to the next or previous search hit with wraparound.
func (m *Model) jumpMatch(forward bool) (Model, tea.Cmd) {
	doc, dv := m.activeView()
	if doc == nil || len(m.search.matches) == 0 {
		m.status = "no matches"
		return *m, nil
	}
	var match editor.Match
	var ok bool
	if forward {
		match, ok = editor.NextMatch(m.search.matches, doc.Cursor()+1)
	} else {
		match, ok = editor.PrevMatch(m.search.matches, max(doc.Cursor()-1, 0))
	}
	if !ok {
		return *m, nil
	}
	doc.SetCursor(match.End)
	doc.SetSelection(match.Start, match.End)
	m.ensureVisible(doc, dv)
	return m.withScan()
}

func (m *Model) handleOpen() (Model, tea.Cmd) {
	m.prompt = promptState{kind: promptOpen}
	return *m, nil
}

func (m *Model) handleSaveAs() (Model, tea.Cmd) {
	if m.tabs.Active() == nil {
		return *m, nil
	}
	m.prompt = promptState{kind: promptSaveAs, input: m.tabs.Active().Path()}
	return *m, nil
}

func (m *Model) handleNewTab() (Model, tea.Cmd) {
	m.openUntitled()
	return m.withScan()
}

// handleCloseTab closes the active tab; a dirty tab needs a second ctrl+w
// to discard its changes.
func (m *Model) handleCloseTab() (Model, tea.Cmd) {
	doc := m.tabs.Active()
	if doc == nil {
		return *m, nil
	}
	force := m.pendingClose == doc.ID()
	var discarded string
	if force && doc.Dirty() {
		// Capture before the close drops the buffer; the log keeps the
		// discarded edits recoverable.
		discarded = doc.DiffSinceSave()
	}
	err := m.tabs.Close(doc.ID(), force)
	switch {
	case errors.Is(err, editor.ErrUnsavedChanges):
		m.pendingClose = doc.ID()
		added, removed := doc.DiffStat()
		m.status = fmt.Sprintf("%s has unsaved changes (+%d/-%d lines), ctrl+w again to discard", doc.Title(), added, removed)
		return *m, nil
	case err != nil:
		m.setError(err)
		return *m, nil
	}
	if discarded != "" {
		log.Warn().Str("title", doc.Title()).Msg("discarded unsaved changes:\n" + discarded)
	}
	m.pendingClose = ""
	if m.tabs.Len() == 0 {
		return m.handleQuit()
	}
	return m.withScan()
}

func (m *Model) handleNextTab() (Model, tea.Cmd) {
	save := m.autoSaveCmd(m.tabs.Active())
	m.tabs.NextTab()
	mdl, scan := m.withScan()
	return mdl, tea.Batch(save, scan)
}

func (m *Model) handlePrevTab() (Model, tea.Cmd) {
	save := m.autoSaveCmd(m.tabs.Active())
	m.tabs.PrevTab()
	mdl, scan := m.withScan()
	return mdl, tea.Batch(save, scan)
}

func (m *Model) handlePlugin() (Model, tea.Cmd) {
	doc, dv := m.activeView()
	if doc == nil {
		return *m, nil
	}
	if err := m.plugins.Execute("uppercase-selection", doc); err != nil {
		m.setError(err)
		return *m, nil
	}
	doc.ClearSelection()
	m.ensureVisible(doc, dv)
	return m.withScan()
}

func (m *Model) handleSelectAll() (Model, tea.Cmd) {
	doc := m.tabs.Active()
	if doc == nil {
		return *m, nil
	}
	doc.SetSelection(0, doc.Len())
	doc.SetCursor(doc.Len())
	return *m, nil
}

// handleCopy writes the selection through both OSC 52 (works over SSH and
// tmux) and the native clipboard.
func (m *Model) handleCopy() (Model, tea.Cmd) {
	doc := m.tabs.Active()
	if doc == nil {
		return *m, nil
	}
	text := string(doc.SelectedText())
	if text == "" {
		return *m, nil
	}
	return *m, tea.Batch(
		tea.SetClipboard(text),
		func() tea.Msg {
			_ = clipboard.WriteAll(text)
			return nil
		},
	)
}

// handlePaste prefers the native clipboard and falls back to an OSC 52
// query when it is unavailable.
func (m *Model) handlePaste() (Model, tea.Cmd) {
	if text, err := clipboard.ReadAll(); err == nil && text != "" {
		return m.pasteText(text)
	}
	return *m, tea.ReadClipboard
}

func (m *Model) pasteText(text string) (Model, tea.Cmd) {
	doc, dv := m.activeView()
	if doc == nil {
		return *m, nil
	}
	m.status = ""
	m.pendingClose = ""
	m.insertText(doc, text)
	m.ensureVisible(doc, dv)
	return m.withScan()
}

// ---------------------------------------------------------------------------
// Save
// ---------------------------------------------------------------------------

type savedMsg struct {
	docID   string
	path    string
	marker  uint64
	content []byte
	err     error
}

func (m *Model) handleSave() (Model, tea.Cmd) {
	doc := m.tabs.Active()
	if doc == nil {
		return *m, nil
	}
	if doc.Path() == "" {
		return m.handleSaveAs()
	}
	return *m, m.saveCmd(doc, doc.Path())
}

// saveCmd snapshots the document and writes it off the update loop; the
// Saver serializes concurrent saves of slow targets.
func (m *Model) saveCmd(doc *editor.Document, path string) tea.Cmd {
	marker := doc.SavePoint()
	id := doc.ID()
	content := doc.Snapshot()
	saver := m.saver
	return func() tea.Msg {
		err := saver.Save(path, content)
		return savedMsg{docID: id, path: path, marker: marker, content: content, err: err}
	}
}

func (m Model) applySaved(msg savedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.setError(msg.err)
		return m, nil
	}
	doc, err := m.tabs.Get(msg.docID)
	if err != nil {
		return m, nil
	}
	doc.MarkSavedAt(msg.marker, msg.content)
	if doc.Path() != msg.path {
		doc.SetPath(msg.path, titleForPath(msg.path))
		m.attachView(doc) // re-detect language for the new name
	}
	m.sessions.TouchRecent(msg.path)
	m.status = "saved " + msg.path
	return m.withScan()
}
