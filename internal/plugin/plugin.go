// Package plugin runs editor extensions against a controlled view of the
// active document. Plugins read freely but never mutate directly: edits
// queue on the Context and the host applies them as one undo transaction
// after the plugin returns. A panicking plugin is disabled for the session
// without disturbing the document.
package plugin

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/skeinedit/skein/internal/editor"
)

var (
	// ErrPluginFault wraps a plugin panic.
	ErrPluginFault = errors.New("plugin fault")
	// ErrDisabled is returned when invoking a plugin that faulted earlier
	// in the session.
	ErrDisabled = errors.New("plugin disabled after fault")
	// ErrNotFound is returned for unregistered plugin names.
	ErrNotFound = errors.New("plugin not registered")
)

// Plugin is one editor extension.
type Plugin interface {
	Name() string
	Execute(ctx *Context) error
}

// Context is the document view handed to an executing plugin. Reads go
// straight to the document, which cannot change while the plugin runs;
// writes queue up and apply in order after a successful return, each
// position interpreted against the buffer as the preceding queued edits
// leave it.
type Context struct {
	doc  *editor.Document
	muts []mutation
}

type mutation struct {
	insert     bool
	start, end int
	text       []byte
}

func (c *Context) Len() int                       { return c.doc.Len() }
func (c *Context) LineCount() int                 { return c.doc.LineCount() }
func (c *Context) Line(i int) ([]byte, error)     { return c.doc.Line(i) }
func (c *Context) Slice(s, e int) ([]byte, error) { return c.doc.Slice(s, e) }
func (c *Context) Cursor() int                    { return c.doc.Cursor() }
func (c *Context) Selection() (int, int, bool)    { return c.doc.Selection() }
func (c *Context) SelectedText() []byte           { return c.doc.SelectedText() }

// Insert queues text at pos.
func (c *Context) Insert(pos int, text []byte) {
	c.muts = append(c.muts, mutation{insert: true, start: pos, text: text})
}

// Delete queues removal of [start, end).
func (c *Context) Delete(start, end int) {
	c.muts = append(c.muts, mutation{start: start, end: end})
}

// ReplaceSelection queues a delete of the current selection followed by an
// insert at its start. Without a selection the text goes in at the cursor.
func (c *Context) ReplaceSelection(text []byte) {
	start, end, ok := c.Selection()
	if !ok {
		c.Insert(c.Cursor(), text)
		return
	}
	c.Delete(start, end)
	c.Insert(start, text)
}

// Host registers plugins and executes them against documents.
type Host struct {
	plugins  map[string]Plugin
	order    []string
	disabled map[string]bool
}

func NewHost() *Host {
	return &Host{
		plugins:  make(map[string]Plugin),
		disabled: make(map[string]bool),
	}
}

// Register adds a plugin. Registering a duplicate name is an error.
func (h *Host) Register(p Plugin) error {
	name := p.Name()
	if _, ok := h.plugins[name]; ok {
		return fmt.Errorf("register %q: already registered", name)
	}
	h.plugins[name] = p
	h.order = append(h.order, name)
	return nil
}

// Names returns registered plugin names in registration order.
func (h *Host) Names() []string { return h.order }

// Disabled reports whether a plugin has been benched by a fault.
func (h *Host) Disabled(name string) bool { return h.disabled[name] }

// Execute runs a plugin against doc. The queued mutations apply as a
// single undo transaction; an error or panic from the plugin discards the
// queue and leaves the document untouched, and a panic additionally
// disables the plugin for the rest of the session.
func (h *Host) Execute(name string, doc *editor.Document) error {
	p, ok := h.plugins[name]
	if !ok {
		return fmt.Errorf("execute %q: %w", name, ErrNotFound)
	}
	if h.disabled[name] {
		return fmt.Errorf("execute %q: %w", name, ErrDisabled)
	}

	ctx := &Context{doc: doc}
	if err := h.run(name, p, ctx); err != nil {
		return err
	}
	if len(ctx.muts) == 0 {
		return nil
	}
	return applyQueue(doc, ctx.muts)
}

// run isolates the plugin call so a panic converts to an error instead of
// taking the editor down.
func (h *Host) run(name string, p Plugin, ctx *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			h.disabled[name] = true
			log.Error().Str("plugin", name).Interface("panic", r).
				Msg("plugin panicked, disabled for session")
			err = fmt.Errorf("execute %q: %w: %v", name, ErrPluginFault, r)
		}
	}()
	if err := p.Execute(ctx); err != nil {
		return fmt.Errorf("execute %q: %w", name, err)
	}
	return nil
}

// applyQueue plays the queued mutations through the document inside an
// explicit history group. A mutation rejected by the buffer aborts the
// rest; whatever applied before it stays grouped, so one undo reverts it.
func applyQueue(doc *editor.Document, muts []mutation) error {
	doc.SealHistory()
	doc.BeginGroup()
	defer doc.EndGroup()
	for _, m := range muts {
		var err error
		if m.insert {
			err = doc.Insert(m.start, m.text)
		} else {
			err = doc.Delete(m.start, m.end)
		}
		if err != nil {
			return fmt.Errorf("apply plugin edit: %w", err)
		}
	}
	return nil
}
