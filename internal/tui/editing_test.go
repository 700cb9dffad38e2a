package tui

import (
	"testing"

	"github.com/skeinedit/skein/internal/editor"
)

func newDoc(t *testing.T, content string) *editor.Document {
	t.Helper()
	return editor.NewDocument(editor.DocumentOptions{Content: []byte(content)})
}

func TestLineCol(t *testing.T) {
	doc := newDoc(t, "one\ntwo\nthree")

	tests := []struct {
		cursor  int
		wantRow int
		wantCol int
	}{
		{0, 0, 0},
		{3, 0, 3},
		{4, 1, 0},
		{6, 1, 2},
		{13, 2, 5},
	}
	for _, tt := range tests {
		doc.SetCursor(tt.cursor)
		row, col := lineCol(doc)
		if row != tt.wantRow || col != tt.wantCol {
			t.Errorf("lineCol at %d = (%d, %d), want (%d, %d)",
				tt.cursor, row, col, tt.wantRow, tt.wantCol)
		}
	}
}

func TestRuneBoundaries(t *testing.T) {
	doc := newDoc(t, "aéz") // é is two bytes

	if got := nextRuneEnd(doc, 1); got != 3 {
		t.Errorf("nextRuneEnd(1) = %d, want 3", got)
	}
	if got := prevRuneStart(doc, 3); got != 1 {
		t.Errorf("prevRuneStart(3) = %d, want 1", got)
	}
	if got := prevRuneStart(doc, 0); got != 0 {
		t.Errorf("prevRuneStart(0) = %d, want 0", got)
	}
	if got := nextRuneEnd(doc, doc.Len()); got != doc.Len() {
		t.Errorf("nextRuneEnd(len) = %d, want %d", got, doc.Len())
	}
}

func TestVerticalTargetClampsColumn(t *testing.T) {
	doc := newDoc(t, "a long first line\nhi\nanother long line")

	doc.SetCursor(10) // column 10 on line 0
	if got := verticalTarget(doc, moveDown); got != 20 {
		t.Errorf("down from long line = %d, want 20 (end of \"hi\")", got)
	}

	doc.SetCursor(20) // line 1, column 2
	if got := verticalTarget(doc, moveDown); got != 23 {
		t.Errorf("down from short line = %d, want 23", got)
	}

	doc.SetCursor(0)
	if got := verticalTarget(doc, moveUp); got != 0 {
		t.Errorf("up from first line = %d, want 0", got)
	}
}

func TestInsertTextReplacesSelectionAtomically(t *testing.T) {
	m := &Model{}
	doc := newDoc(t, "hello world")
	doc.SetSelection(0, 5)
	doc.SetCursor(5)

	m.insertText(doc, "goodbye")
	if got := string(doc.Snapshot()); got != "goodbye world" {
		t.Fatalf("content = %q, want %q", got, "goodbye world")
	}
	if err := doc.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if got := string(doc.Snapshot()); got != "hello world" {
		t.Errorf("after undo = %q, want %q", got, "hello world")
	}
}

func TestDeleteBackwardRemovesWholeRune(t *testing.T) {
	m := &Model{}
	doc := newDoc(t, "aé")
	doc.SetCursor(doc.Len())

	m.deleteBackward(doc)
	if got := string(doc.Snapshot()); got != "a" {
		t.Errorf("content = %q, want %q", got, "a")
	}
}

func TestMoveCursorCollapsesSelection(t *testing.T) {
	m := &Model{}
	doc := newDoc(t, "abcdef")
	doc.SetSelection(1, 4)
	doc.SetCursor(4)

	m.moveCursor(doc, moveLeft, false)
	if _, _, ok := doc.Selection(); ok {
		t.Error("selection should be collapsed")
	}
	if got := doc.Cursor(); got != 1 {
		t.Errorf("cursor = %d, want 1 (selection start)", got)
	}
}

func TestMoveCursorExtendsSelection(t *testing.T) {
	m := &Model{}
	doc := newDoc(t, "abcdef")
	doc.SetCursor(2)

	m.moveCursor(doc, moveRight, true)
	m.moveCursor(doc, moveRight, true)
	start, end, ok := doc.Selection()
	if !ok || start != 2 || end != 4 {
		t.Errorf("selection = (%d, %d, %v), want (2, 4, true)", start, end, ok)
	}
}

func TestEnsureVisibleScrolls(t *testing.T) {
	m := &Model{height: 12} // 10 text rows
	doc := newDoc(t, "0\n1\n2\n3\n4\n5\n6\n7\n8\n9\n10\n11\n12\n13\n14")
	dv := &docView{}

	start, _, _ := doc.LineRange(14)
	doc.SetCursor(start)
	m.ensureVisible(doc, dv)
	if dv.top != 5 {
		t.Errorf("top = %d, want 5 after scrolling down", dv.top)
	}

	doc.SetCursor(0)
	m.ensureVisible(doc, dv)
	if dv.top != 0 {
		t.Errorf("top = %d, want 0 after scrolling up", dv.top)
	}
}
