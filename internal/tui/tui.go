// Package tui is the terminal front end: a tabbed editor pane with syntax
// highlighting, a status bar and an inline prompt line for search, open and
// save-as. It owns one highlight coordinator per document and drives
// rescans through background commands so typing never waits on a scanner.
package tui

import (
	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"

	"github.com/skeinedit/skein/internal/config"
	"github.com/skeinedit/skein/internal/editor"
	"github.com/skeinedit/skein/internal/fileio"
	"github.com/skeinedit/skein/internal/highlight"
	"github.com/skeinedit/skein/internal/plugin"
	"github.com/skeinedit/skein/internal/store"
)

// docView is the per-document render state: its highlight coordinator and
// scroll position.
type docView struct {
	engine *highlight.Chroma
	coord  *highlight.Coordinator
	top    int // first visible line
}

type promptKind uint8

const (
	promptNone promptKind = iota
	promptSearch
	promptOpen
	promptSaveAs
)

type promptState struct {
	kind  promptKind
	input string
}

type searchState struct {
	query   string
	matches []editor.Match
}

// Model is the application model.
type Model struct {
	width  int
	height int

	cfg      *config.Config
	palette  highlight.Palette
	styles   Styles
	tabs     *editor.Manager
	views    map[string]*docView
	saver    *fileio.Saver
	plugins  *plugin.Host
	sessions *store.Store

	prompt  promptState
	search  searchState
	spinner spinner.Model

	status string // transient message on the status bar

	// pendingClose holds a document ID after a refused dirty close; the
	// next close of the same tab discards.
	pendingClose string

	// scanning marks an in-flight highlight batch so only one runs at a
	// time per program.
	scanning bool
}

// New creates the TUI model. paths are files to open at startup; when none
// are given the previous session's tabs are restored. sessions may be nil;
// the editor then runs without persistence.
func New(cfg *config.Config, saver *fileio.Saver, plugins *plugin.Host, sessions *store.Store, paths []string) Model {
	palette := highlight.ThemePalette(cfg.UI.SyntaxThemeOrDefault())
	styles := NewStyles(palette)
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Status
	m := Model{
		cfg:      cfg,
		palette:  palette,
		styles:   styles,
		views:    make(map[string]*docView),
		saver:    saver,
		plugins:  plugins,
		sessions: sessions,
		spinner:  sp,
	}
	m.tabs = editor.NewManager(viewReaper{m.views})
	if len(paths) == 0 {
		m.restoreSession()
	} else {
		for _, p := range paths {
			if _, err := m.openPath(p); err != nil {
				m.setError(err)
			}
		}
	}
	if m.tabs.Len() == 0 {
		m.openUntitled()
	}
	return m
}

// restoreSession reopens the previous session's tabs. Files that no longer
// exist are skipped.
func (m *Model) restoreSession() {
	files, err := m.sessions.LoadSession()
	if err != nil {
		return
	}
	var activeID string
	for _, f := range files {
		doc, openErr := m.openPath(f.Path)
		if openErr != nil {
			continue
		}
		doc.SetCursor(f.Cursor)
		if dv := m.views[doc.ID()]; dv != nil {
			dv.top = f.TopLine
		}
		if f.Active {
			activeID = doc.ID()
		}
	}
	if activeID != "" {
		m.tabs.SetActive(activeID) //nolint:errcheck // id came from this session
	}
}

// Init kicks off the first highlight pass and the spinner tick.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.scanCmd(), m.spinner.Tick)
}

// openPath loads a file into a new tab and builds its highlight state.
// Opening an already open path just activates its tab.
func (m *Model) openPath(path string) (*editor.Document, error) {
	if doc := m.findOpen(path); doc != nil {
		m.tabs.SetActive(doc.ID()) //nolint:errcheck // doc is open
		return doc, nil
	}
	f, err := fileio.Load(path)
	if err != nil {
		return nil, err
	}
	doc := m.tabs.Open(editor.OpenOptions{
		Path:     path,
		Segments: f.Segments,
		Backing:  f.Backing,
	})
	m.attachView(doc)
	m.sessions.TouchRecent(path)
	return doc, nil
}

func (m *Model) findOpen(path string) *editor.Document {
	for _, d := range m.tabs.Documents() {
		if d.Path() == path {
			return d
		}
	}
	return nil
}

// openUntitled adds an empty unnamed tab.
func (m *Model) openUntitled() *editor.Document {
	doc := m.tabs.Open(editor.OpenOptions{})
	m.attachView(doc)
	return doc
}

// attachView wires a document to its own engine and coordinator.
func (m *Model) attachView(doc *editor.Document) {
	engine := highlight.NewChroma(
		highlight.DetectLanguage(doc.Path()),
		m.cfg.UI.SyntaxThemeOrDefault(),
	)
	coord := highlight.NewCoordinator(engine, doc, m.cfg.Highlight.PrefetchMarginOrDefault())
	doc.OnChange(coord.Invalidate)
	m.views[doc.ID()] = &docView{engine: engine, coord: coord}
}

// viewReaper drops a document's render state when its tab closes. The map
// is shared with the model, so model copies see the removal.
type viewReaper struct {
	views map[string]*docView
}

func (viewReaper) DocumentActivated(*editor.Document) {}

func (r viewReaper) DocumentClosed(id string) { delete(r.views, id) }

func (m *Model) activeView() (*editor.Document, *docView) {
	doc := m.tabs.Active()
	if doc == nil {
		return nil, nil
	}
	return doc, m.views[doc.ID()]
}

// sessionSnapshot captures the open tabs for persistence. Untitled
// documents have no path to restore and are skipped.
func (m *Model) sessionSnapshot() []store.SessionFile {
	var files []store.SessionFile
	active := m.tabs.Active()
	for _, d := range m.tabs.Documents() {
		if d.Path() == "" {
			continue
		}
		top := 0
		if dv := m.views[d.ID()]; dv != nil {
			top = dv.top
		}
		files = append(files, store.SessionFile{
			Path:    d.Path(),
			Cursor:  d.Cursor(),
			TopLine: top,
			Active:  active != nil && d.ID() == active.ID(),
		})
	}
	return files
}
