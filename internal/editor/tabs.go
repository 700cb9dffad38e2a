package editor

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
)

var (
	// ErrNotFound is returned for operations naming an unknown document ID.
	ErrNotFound = errors.New("document not found")
	// ErrUnsavedChanges is returned when closing a dirty document without
	// force; the caller decides whether to save, discard or cancel.
	ErrUnsavedChanges = errors.New("document has unsaved changes")
)

// Notifier receives tab lifecycle events, letting the UI retarget
// highlight tracking and drop per-document render state.
type Notifier interface {
	DocumentActivated(doc *Document)
	DocumentClosed(id string)
}

// Manager owns the ordered list of open documents and the active selection.
// Order is tab order: new documents append, closing selects a neighbor.
type Manager struct {
	docs     []*Document
	byID     map[string]*Document
	active   string
	notifier Notifier
	untitled int
}

// NewManager creates an empty tab manager. notifier may be nil.
func NewManager(notifier Notifier) *Manager {
	return &Manager{
		byID:     make(map[string]*Document),
		notifier: notifier,
	}
}

// OpenOptions configures Manager.Open.
type OpenOptions struct {
	Path     string
	Content  []byte
	Segments [][]byte
	Backing  io.Closer
}

// Open adds a document and makes it active. Opening a path that is already
// open activates the existing tab instead of creating a duplicate. An empty
// path opens an untitled document with a unique "Untitled N" title.
func (m *Manager) Open(opts OpenOptions) *Document {
	if opts.Path != "" {
		if existing := m.byPath(opts.Path); existing != nil {
			m.setActive(existing)
			return existing
		}
	}
	title := filepath.Base(opts.Path)
	if opts.Path == "" {
		m.untitled++
		title = fmt.Sprintf("Untitled %d", m.untitled)
	}
	doc := NewDocument(DocumentOptions{
		Path:     opts.Path,
		Title:    title,
		Content:  opts.Content,
		Segments: opts.Segments,
		Backing:  opts.Backing,
	})
	m.docs = append(m.docs, doc)
	m.byID[doc.ID()] = doc
	m.setActive(doc)
	return doc
}

func (m *Manager) byPath(path string) *Document {
	for _, d := range m.docs {
		if d.Path() == path {
			return d
		}
	}
	return nil
}

// Close removes a document. A dirty document is refused with
// ErrUnsavedChanges unless force is set; the tab stays open and stays
// consistent after a refusal. Closing the active tab activates the next tab,
// or the previous one when the last tab closed.
func (m *Manager) Close(id string, force bool) error {
	doc, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("close %q: %w", id, ErrNotFound)
	}
	if doc.Dirty() && !force {
		return fmt.Errorf("close %q: %w", doc.Title(), ErrUnsavedChanges)
	}

	idx := m.indexOf(id)
	m.docs = append(m.docs[:idx], m.docs[idx+1:]...)
	delete(m.byID, id)
	if err := doc.Close(); err != nil {
		return fmt.Errorf("close %q: %w", doc.Title(), err)
	}
	if m.notifier != nil {
		m.notifier.DocumentClosed(id)
	}

	if m.active == id {
		m.active = ""
		if len(m.docs) > 0 {
			if idx >= len(m.docs) {
				idx = len(m.docs) - 1
			}
			m.setActive(m.docs[idx])
		}
	}
	return nil
}

func (m *Manager) indexOf(id string) int {
	for i, d := range m.docs {
		if d.ID() == id {
			return i
		}
	}
	return -1
}

// SetActive switches the active tab.
func (m *Manager) SetActive(id string) error {
	doc, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("activate %q: %w", id, ErrNotFound)
	}
	m.setActive(doc)
	return nil
}

func (m *Manager) setActive(doc *Document) {
	if m.active == doc.ID() {
		return
	}
	m.active = doc.ID()
	if m.notifier != nil {
		m.notifier.DocumentActivated(doc)
	}
}

// Active returns the active document, or nil when no tabs are open.
func (m *Manager) Active() *Document {
	if m.active == "" {
		return nil
	}
	return m.byID[m.active]
}

// Get looks up a document by ID.
func (m *Manager) Get(id string) (*Document, error) {
	doc, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("document %q: %w", id, ErrNotFound)
	}
	return doc, nil
}

// Documents returns the documents in tab order. The slice is shared; callers
// must not modify it.
func (m *Manager) Documents() []*Document { return m.docs }

// Len returns the number of open tabs.
func (m *Manager) Len() int { return len(m.docs) }

// NextTab and PrevTab cycle the active tab in order, wrapping around.
func (m *Manager) NextTab() { m.cycle(1) }
func (m *Manager) PrevTab() { m.cycle(-1) }

func (m *Manager) cycle(step int) {
	if len(m.docs) < 2 {
		return
	}
	idx := m.indexOf(m.active)
	idx = (idx + step + len(m.docs)) % len(m.docs)
	m.setActive(m.docs[idx])
}
