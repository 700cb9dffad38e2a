// Package editor holds the open-document model: a Document couples one rope
// buffer with its edit history, cursor and selection state, and save-point
// dirty tracking; a Manager owns the ordered set of open documents and the
// active-tab selection.
//
// All mutation funnels through Document.Insert and Document.Delete so that
// every successful edit is recorded for undo and reported to the registered
// change listener (the highlight coordinator) as an invalidated range. The
// package assumes a single writer thread.
package editor

import (
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/skeinedit/skein/internal/history"
	"github.com/skeinedit/skein/internal/rope"
)

// ChangeFunc is notified after every successful buffer mutation. line is the
// first affected line index; lineDelta is the change in total line count
// (positive for inserted line breaks, negative for removed ones).
type ChangeFunc func(line, lineDelta int)

// Document is one open file: buffer, history, cursor/selection and dirty
// state. Create with NewDocument.
type Document struct {
	id    string
	title string
	path  string

	buf  *rope.Rope
	hist *history.History

	cursor   int
	selStart int
	selEnd   int

	// version counts successful mutations; async highlight results carry
	// the version they were computed against and are discarded on mismatch.
	version uint64

	saved    []byte // content at the last save, for diffing
	onChange ChangeFunc
	backing  io.Closer // optional mmap backing to release on Close
}

// DocumentOptions configures NewDocument.
type DocumentOptions struct {
	Path     string   // file path; empty for untitled documents
	Title    string   // display title; derived from Path when empty
	Content  []byte   // initial content (ignored when Segments is set)
	Segments [][]byte // initial content as mapped segments, adopted copy-on-write
	Backing  io.Closer
	History  []history.Option
}

// NewDocument creates a document with a fresh history and save-point marker.
func NewDocument(opts DocumentOptions) *Document {
	var buf *rope.Rope
	if opts.Segments != nil {
		buf = rope.NewFromSegments(opts.Segments)
	} else {
		buf = rope.New(opts.Content)
	}
	d := &Document{
		id:      uuid.NewString(),
		title:   opts.Title,
		path:    opts.Path,
		buf:     buf,
		hist:    history.New(opts.History...),
		saved:   buf.Bytes(),
		backing: opts.Backing,
	}
	return d
}

func (d *Document) ID() string    { return d.id }
func (d *Document) Title() string { return d.title }
func (d *Document) Path() string  { return d.path }

// SetPath updates the file path and title after a save-as.
func (d *Document) SetPath(path, title string) {
	d.path = path
	d.title = title
}

func (d *Document) Len() int        { return d.buf.Len() }
func (d *Document) LineCount() int  { return d.buf.LineCount() }
func (d *Document) Version() uint64 { return d.version }

// Line returns the content of a line without its trailing newline.
func (d *Document) Line(index int) ([]byte, error) { return d.buf.Line(index) }

// LineRange returns the byte range of a line's content.
func (d *Document) LineRange(index int) (int, int, error) { return d.buf.LineRange(index) }

// LineIndex returns the line containing a byte offset.
func (d *Document) LineIndex(pos int) (int, error) { return d.buf.LineIndex(pos) }

// Slice returns a copy of the byte range [start, end).
func (d *Document) Slice(start, end int) ([]byte, error) { return d.buf.Slice(start, end) }

// Snapshot returns a copy of the whole buffer content.
func (d *Document) Snapshot() []byte { return d.buf.Bytes() }

// OnChange registers the mutation listener. Only one listener is held; the
// owner fans out if needed.
func (d *Document) OnChange(fn ChangeFunc) { d.onChange = fn }

// Cursor returns the cursor byte offset.
func (d *Document) Cursor() int { return d.cursor }

// SetCursor moves the cursor to a byte offset, clamped to the buffer. An
// explicit cursor move is a transaction boundary: the open transaction seals
// so the next edit starts a new undo unit.
func (d *Document) SetCursor(pos int) {
	pos = clamp(pos, 0, d.buf.Len())
	if pos == d.cursor {
		return
	}
	d.cursor = pos
	d.hist.Seal()
}

// Selection returns the selection range and whether one exists.
func (d *Document) Selection() (start, end int, ok bool) {
	if d.selStart == d.selEnd {
		return 0, 0, false
	}
	if d.selStart > d.selEnd {
		return d.selEnd, d.selStart, true
	}
	return d.selStart, d.selEnd, true
}

// SetSelection sets the selection anchors. Equal anchors clear it.
func (d *Document) SetSelection(start, end int) {
	d.selStart = clamp(start, 0, d.buf.Len())
	d.selEnd = clamp(end, 0, d.buf.Len())
}

// ClearSelection drops the selection.
func (d *Document) ClearSelection() { d.selStart, d.selEnd = 0, 0 }

// SelectedText returns a copy of the selected bytes, or nil without a
// selection.
func (d *Document) SelectedText() []byte {
	start, end, ok := d.Selection()
	if !ok {
		return nil
	}
	text, err := d.buf.Slice(start, end)
	if err != nil {
		return nil
	}
	return text
}

// Insert places text at pos, records the operation and advances the cursor
// past the inserted text. A failed insert leaves document state untouched.
func (d *Document) Insert(pos int, text []byte) error {
	if len(text) == 0 {
		return nil
	}
	op := history.Op{Kind: history.Insert, Pos: pos, Bytes: text}
	if err := d.applyOp(op); err != nil {
		return err
	}
	d.hist.Record(op)
	d.cursor = op.End()
	return nil
}

// Delete removes the byte range [start, end), records the operation with the
// removed bytes and moves the cursor to start.
func (d *Document) Delete(start, end int) error {
	if start == end {
		return nil
	}
	removed, err := d.doDelete(start, end)
	if err != nil {
		return err
	}
	d.hist.Record(history.Op{Kind: history.Delete, Pos: start, Bytes: removed})
	d.cursor = start
	return nil
}

// applyOp mutates the buffer, bumps the version and notifies the change
// listener. It does not touch the history.
func (d *Document) applyOp(op history.Op) error {
	if op.Kind == history.Delete {
		_, err := d.doDelete(op.Pos, op.End())
		return err
	}
	line, err := d.buf.LineIndex(op.Pos)
	if err != nil {
		return err
	}
	if err := d.buf.Insert(op.Pos, op.Bytes); err != nil {
		return err
	}
	d.bump(line, countNewlines(op.Bytes))
	return nil
}

func (d *Document) doDelete(start, end int) ([]byte, error) {
	line, err := d.buf.LineIndex(start)
	if err != nil {
		return nil, err
	}
	removed, err := d.buf.Delete(start, end)
	if err != nil {
		return nil, err
	}
	d.bump(line, -countNewlines(removed))
	return removed, nil
}

func (d *Document) bump(line, lineDelta int) {
	d.version++
	if d.onChange != nil {
		d.onChange(line, lineDelta)
	}
}

// Undo reverses the most recent transaction, applying each operation's
// inverse in reverse order. Returns history.ErrNothingToUndo when exhausted.
func (d *Document) Undo() error {
	tx, err := d.hist.Undo()
	if err != nil {
		return err
	}
	ops := tx.Ops()
	for i := len(ops) - 1; i >= 0; i-- {
		inv := ops[i].Invert()
		if err := d.applyOp(inv); err != nil {
			return fmt.Errorf("undo inverse %s at %d: %w", inv.Kind, inv.Pos, err)
		}
		d.cursor = invCursor(inv)
	}
	return nil
}

// Redo re-applies the most recently undone transaction in order.
func (d *Document) Redo() error {
	tx, err := d.hist.Redo()
	if err != nil {
		return err
	}
	for _, op := range tx.Ops() {
		if err := d.applyOp(op); err != nil {
			return fmt.Errorf("redo %s at %d: %w", op.Kind, op.Pos, err)
		}
		d.cursor = invCursor(op)
	}
	return nil
}

func invCursor(op history.Op) int {
	if op.Kind == history.Insert {
		return op.End()
	}
	return op.Pos
}

// SealHistory closes the open undo transaction. Explicit boundary: saves and
// plugin calls use this.
func (d *Document) SealHistory() { d.hist.Seal() }

// BeginGroup and EndGroup bracket a run of edits recorded as one
// transaction regardless of the usual sealing rules.
func (d *Document) BeginGroup() { d.hist.BeginGroup() }
func (d *Document) EndGroup()   { d.hist.EndGroup() }

// Dirty reports whether content differs from the last save point.
func (d *Document) Dirty() bool { return d.hist.Dirty() }

// CanUndo and CanRedo report stack availability, for UI affordances.
func (d *Document) CanUndo() bool { return d.hist.CanUndo() }
func (d *Document) CanRedo() bool { return d.hist.CanRedo() }

// MarkSaved records the save point. content is the byte snapshot that was
// written, kept for later diffing.
func (d *Document) MarkSaved(content []byte) {
	d.hist.MarkSaved()
	d.saved = content
}

// SavePoint seals the open transaction and returns a marker for the current
// history position. Take it in the same breath as Snapshot when handing
// content to an asynchronous writer.
func (d *Document) SavePoint() uint64 { return d.hist.SavePoint() }

// MarkSavedAt records a save point captured earlier with SavePoint. Edits
// recorded after the marker keep the document dirty.
func (d *Document) MarkSavedAt(marker uint64, content []byte) {
	d.hist.MarkSavedAt(marker)
	d.saved = content
}

// Close releases any mapped backing. The document must not be used after.
func (d *Document) Close() error {
	if d.backing == nil {
		return nil
	}
	err := d.backing.Close()
	d.backing = nil
	return err
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func countNewlines(b []byte) int {
	n := 0
	for _, c := range b {
		if c == '\n' {
			n++
		}
	}
	return n
}
