package tui

import (
	"unicode/utf8"

	"github.com/skeinedit/skein/internal/editor"
)

// ---------------------------------------------------------------------------
// Editing and cursor movement on the active document
// ---------------------------------------------------------------------------

// lineCol resolves the cursor byte offset into a (row, col) pair, col in
// bytes from the line start.
func lineCol(doc *editor.Document) (int, int) {
	row, err := doc.LineIndex(doc.Cursor())
	if err != nil {
		return 0, 0
	}
	start, _, err := doc.LineRange(row)
	if err != nil {
		return row, 0
	}
	return row, doc.Cursor() - start
}

// prevRuneStart returns the byte offset of the rune before pos.
func prevRuneStart(doc *editor.Document, pos int) int {
	if pos <= 0 {
		return 0
	}
	from := max(pos-utf8.UTFMax, 0)
	window, err := doc.Slice(from, pos)
	if err != nil {
		return pos - 1
	}
	_, size := utf8.DecodeLastRune(window)
	if size == 0 {
		return pos - 1
	}
	return pos - size
}

// nextRuneEnd returns the byte offset just past the rune at pos.
func nextRuneEnd(doc *editor.Document, pos int) int {
	if pos >= doc.Len() {
		return doc.Len()
	}
	to := min(pos+utf8.UTFMax, doc.Len())
	window, err := doc.Slice(pos, to)
	if err != nil {
		return pos + 1
	}
	_, size := utf8.DecodeRune(window)
	if size == 0 {
		return pos + 1
	}
	return pos + size
}

// insertText types text at the cursor, replacing the selection when one is
// active. Grouped so a replace undoes in one step.
func (m *Model) insertText(doc *editor.Document, text string) {
	if text == "" {
		return
	}
	start, end, ok := doc.Selection()
	if !ok {
		if err := doc.Insert(doc.Cursor(), []byte(text)); err != nil {
			m.setError(err)
		}
		return
	}
	doc.SealHistory()
	doc.BeginGroup()
	err := doc.Delete(start, end)
	if err == nil {
		err = doc.Insert(start, []byte(text))
	}
	doc.EndGroup()
	doc.ClearSelection()
	if err != nil {
		m.setError(err)
	}
}

// deleteBackward is backspace: removes the selection, or the rune before
// the cursor.
func (m *Model) deleteBackward(doc *editor.Document) {
	if start, end, ok := doc.Selection(); ok {
		doc.ClearSelection()
		if err := doc.Delete(start, end); err != nil {
			m.setError(err)
		}
		return
	}
	cur := doc.Cursor()
	if cur == 0 {
		return
	}
	if err := doc.Delete(prevRuneStart(doc, cur), cur); err != nil {
		m.setError(err)
	}
}

// deleteForward removes the selection, or the rune under the cursor.
func (m *Model) deleteForward(doc *editor.Document) {
	if start, end, ok := doc.Selection(); ok {
		doc.ClearSelection()
		if err := doc.Delete(start, end); err != nil {
			m.setError(err)
		}
		return
	}
	cur := doc.Cursor()
	if cur >= doc.Len() {
		return
	}
	if err := doc.Delete(cur, nextRuneEnd(doc, cur)); err != nil {
		m.setError(err)
	}
}

type direction uint8

const (
	moveLeft direction = iota
	moveRight
	moveUp
	moveDown
	moveHome
	moveEnd
)

// moveCursor applies a movement, optionally extending the selection. A
// plain move collapses any selection first.
func (m *Model) moveCursor(doc *editor.Document, dir direction, extend bool) {
	cur := doc.Cursor()
	anchorStart, anchorEnd, hasSel := doc.Selection()

	if !extend && hasSel {
		// Plain arrows collapse to the selection edge.
		doc.ClearSelection()
		if dir == moveLeft {
			doc.SetCursor(anchorStart)
			return
		}
		if dir == moveRight {
			doc.SetCursor(anchorEnd)
			return
		}
	}

	target := cur
	switch dir {
	case moveLeft:
		target = prevRuneStart(doc, cur)
	case moveRight:
		target = nextRuneEnd(doc, cur)
	case moveUp, moveDown:
		target = verticalTarget(doc, dir)
	case moveHome:
		row, _ := lineCol(doc)
		if start, _, err := doc.LineRange(row); err == nil {
			target = start
		}
	case moveEnd:
		row, _ := lineCol(doc)
		if _, end, err := doc.LineRange(row); err == nil {
			target = end
		}
	}

	if extend {
		anchor := cur
		if hasSel {
			// Keep the far end of the selection as the anchor.
			if cur == anchorEnd {
				anchor = anchorStart
			} else {
				anchor = anchorEnd
			}
		}
		doc.SetCursor(target)
		doc.SetSelection(anchor, target)
		return
	}
	doc.SetCursor(target)
}

// verticalTarget maps an up/down movement to a byte offset on the adjacent
// line, clamping the column to that line's length.
func verticalTarget(doc *editor.Document, dir direction) int {
	row, col := lineCol(doc)
	if dir == moveUp {
		row--
	} else {
		row++
	}
	if row < 0 || row >= doc.LineCount() {
		return doc.Cursor()
	}
	start, end, err := doc.LineRange(row)
	if err != nil {
		return doc.Cursor()
	}
	return min(start+col, end)
}

// movePage scrolls a viewport height up or down.
func (m *Model) movePage(doc *editor.Document, dv *docView, down bool) {
	page := m.editorHeight()
	row, col := lineCol(doc)
	if down {
		row = min(row+page, doc.LineCount()-1)
	} else {
		row = max(row-page, 0)
	}
	start, end, err := doc.LineRange(row)
	if err != nil {
		return
	}
	doc.ClearSelection()
	doc.SetCursor(min(start+col, end))
	m.ensureVisible(doc, dv)
}

// ensureVisible scrolls the view so the cursor row is on screen.
func (m *Model) ensureVisible(doc *editor.Document, dv *docView) {
	if dv == nil {
		return
	}
	h := m.editorHeight()
	row, _ := lineCol(doc)
	if row < dv.top {
		dv.top = row
	}
	if row >= dv.top+h {
		dv.top = row - h + 1
	}
	if maxTop := max(doc.LineCount()-h, 0); dv.top > maxTop {
		dv.top = maxTop
	}
	if dv.top < 0 {
		dv.top = 0
	}
}

// editorHeight is the number of text rows between the tab bar and the
// status line.
func (m *Model) editorHeight() int {
	return max(m.height-2, 1)
}
