package history

import (
	"errors"
	"testing"
	"time"
)

// fakeClock advances only when told to.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestHistory(opts ...Option) (*History, *fakeClock) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	opts = append(opts, WithClock(clk.now))
	return New(opts...), clk
}

func ins(pos int, s string) Op { return Op{Kind: Insert, Pos: pos, Bytes: []byte(s)} }
func del(pos int, s string) Op { return Op{Kind: Delete, Pos: pos, Bytes: []byte(s)} }

func TestInvert(t *testing.T) {
	op := ins(3, "abc")
	inv := op.Invert()
	if inv.Kind != Delete || inv.Pos != 3 || string(inv.Bytes) != "abc" {
		t.Errorf("Invert(insert) = %+v", inv)
	}
	if back := inv.Invert(); back.Kind != Insert || back.Pos != 3 {
		t.Errorf("double Invert = %+v", back)
	}
}

func TestAdjacentInsertsCoalesce(t *testing.T) {
	h, _ := newTestHistory()
	h.Record(ins(0, "a"))
	h.Record(ins(1, "b"))
	h.Record(ins(2, "c"))

	tx, err := h.Undo()
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if got := len(tx.Ops()); got != 3 {
		t.Errorf("transaction has %d ops, want 3 (coalesced)", got)
	}
}

func TestIdleWindowSeals(t *testing.T) {
	h, clk := newTestHistory()
	h.Record(ins(0, "a"))
	clk.advance(IdleSeal + time.Millisecond)
	h.Record(ins(1, "b"))

	if undo, _ := sealDepth(h); undo != 2 {
		t.Errorf("undo depth = %d, want 2 after idle split", undo)
	}
}

func TestKindChangeSeals(t *testing.T) {
	h, _ := newTestHistory()
	h.Record(ins(0, "ab"))
	h.Record(del(1, "b"))

	if undo, _ := sealDepth(h); undo != 2 {
		t.Errorf("undo depth = %d, want 2 after kind change", undo)
	}
}

func TestPositionJumpSeals(t *testing.T) {
	h, _ := newTestHistory()
	h.Record(ins(0, "a"))
	h.Record(ins(10, "b")) // jump

	if undo, _ := sealDepth(h); undo != 2 {
		t.Errorf("undo depth = %d, want 2 after position jump", undo)
	}
}

func TestBackspaceRunCoalesces(t *testing.T) {
	h, _ := newTestHistory()
	// Deleting "c", then "b", then "a" from "abc" via backspace.
	h.Record(del(2, "c"))
	h.Record(del(1, "b"))
	h.Record(del(0, "a"))

	if undo, _ := sealDepth(h); undo != 1 {
		t.Errorf("undo depth = %d, want 1 for backspace run", undo)
	}
}

func sealDepth(h *History) (int, int) {
	h.Seal()
	return h.Depth()
}

func TestUndoRedoSignals(t *testing.T) {
	h, _ := newTestHistory()
	if _, err := h.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Undo on empty: %v, want ErrNothingToUndo", err)
	}
	if _, err := h.Redo(); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("Redo on empty: %v, want ErrNothingToRedo", err)
	}

	h.Record(ins(0, "x"))
	tx, err := h.Undo()
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	back, err := h.Redo()
	if err != nil {
		t.Fatalf("Redo: %v", err)
	}
	if back != tx {
		t.Error("Redo returned a different transaction")
	}
}

func TestNewTransactionClearsRedo(t *testing.T) {
	h, _ := newTestHistory()
	h.Record(ins(0, "a"))
	h.Seal()
	if _, err := h.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if !h.CanRedo() {
		t.Fatal("expected redo available")
	}

	// Recording alone keeps redo; pushing (sealing) clears it.
	h.Record(ins(0, "b"))
	if !h.CanRedo() {
		t.Error("redo cleared before the new transaction was pushed")
	}
	h.Seal()
	if h.CanRedo() {
		t.Error("redo not cleared after push")
	}
}

func TestEvictionByEntryCount(t *testing.T) {
	h, _ := newTestHistory(WithLimits(3, 0))
	for i := 0; i < 5; i++ {
		h.Record(ins(0, "x"))
		h.Seal()
	}
	if undo, _ := h.Depth(); undo != 3 {
		t.Errorf("undo depth = %d, want 3 after eviction", undo)
	}
}

func TestEvictionByByteBudget(t *testing.T) {
	h, _ := newTestHistory(WithLimits(0, 10))
	h.Record(ins(0, "aaaa"))
	h.Seal()
	h.Record(ins(0, "bbbb"))
	h.Seal()
	h.Record(ins(0, "cccc"))
	h.Seal()
	// 12 bytes total: the oldest whole transaction goes.
	if undo, _ := h.Depth(); undo != 2 {
		t.Errorf("undo depth = %d, want 2 after byte eviction", undo)
	}
}

func TestDirtyTracking(t *testing.T) {
	h, _ := newTestHistory()
	if h.Dirty() {
		t.Fatal("fresh history is dirty")
	}

	h.Record(ins(0, "a"))
	if !h.Dirty() {
		t.Fatal("open transaction should be dirty")
	}

	h.MarkSaved()
	if h.Dirty() {
		t.Fatal("dirty right after save")
	}

	h.Record(ins(1, "b"))
	h.Seal()
	if !h.Dirty() {
		t.Fatal("clean after new edit")
	}

	// Undo back to the save point: clean again.
	if _, err := h.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if h.Dirty() {
		t.Error("dirty after undoing back to save point")
	}

	// Redo moves forward past the save point: dirty again.
	if _, err := h.Redo(); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	if !h.Dirty() {
		t.Error("clean after redoing past save point")
	}
}

func TestDirtyAfterSavePointEviction(t *testing.T) {
	h, _ := newTestHistory(WithLimits(2, 0))
	h.Record(ins(0, "a"))
	h.MarkSaved()
	h.Record(ins(1, "b"))
	h.Seal()
	h.Record(ins(2, "c"))
	h.Seal() // evicts the saved transaction

	for i := 0; i < 2; i++ {
		if _, err := h.Undo(); err != nil {
			t.Fatalf("Undo %d: %v", i, err)
		}
	}
	if !h.Dirty() {
		t.Error("save point was evicted; history can never be clean without a save")
	}
}

func TestMarkSavedAtStaleMarker(t *testing.T) {
	h, _ := newTestHistory()
	h.Record(ins(0, "a"))
	marker := h.SavePoint()

	// An edit lands between the snapshot and the write completing.
	h.Record(ins(1, "b"))
	h.Seal()

	h.MarkSavedAt(marker)
	if !h.Dirty() {
		t.Fatal("edit recorded after the save point should keep the history dirty")
	}
	if _, err := h.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if h.Dirty() {
		t.Error("undoing back to the marked transaction should be clean")
	}
}

func TestMarkSavedAtEvictedMarker(t *testing.T) {
	h, _ := newTestHistory(WithLimits(2, 0))
	h.Record(ins(0, "a"))
	marker := h.SavePoint()
	h.Record(ins(1, "b"))
	h.Seal()
	h.Record(ins(2, "c"))
	h.Seal() // evicts the marked transaction

	h.MarkSavedAt(marker)
	if !h.Dirty() {
		t.Error("marker points at an evicted transaction; history stays dirty")
	}
}

func TestGroupIgnoresSealRules(t *testing.T) {
	h, clk := newTestHistory()
	h.BeginGroup()
	h.Record(ins(0, "hello"))
	clk.advance(time.Hour) // would normally seal
	h.Record(del(0, "h"))  // kind change would normally seal
	h.Record(ins(40, "!")) // jump would normally seal
	h.EndGroup()

	if undo, _ := h.Depth(); undo != 1 {
		t.Fatalf("undo depth = %d, want 1 for grouped ops", undo)
	}
	tx, _ := h.Undo()
	if got := len(tx.Ops()); got != 3 {
		t.Errorf("group has %d ops, want 3", got)
	}
}

func TestEmptyGroupDiscarded(t *testing.T) {
	h, _ := newTestHistory()
	h.BeginGroup()
	h.EndGroup()
	if undo, _ := h.Depth(); undo != 0 {
		t.Errorf("undo depth = %d, want 0 for empty group", undo)
	}
	if h.Dirty() {
		t.Error("empty group left history dirty")
	}
}
