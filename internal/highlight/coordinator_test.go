package highlight

import (
	"bytes"
	"context"
	"testing"
)

// blockBuf is an in-memory Buffer with explicit version control.
type blockBuf struct {
	lines   [][]byte
	version uint64
}

func newBlockBuf(lines ...string) *blockBuf {
	b := &blockBuf{}
	for _, l := range lines {
		b.lines = append(b.lines, []byte(l))
	}
	return b
}

func (b *blockBuf) LineCount() int { return len(b.lines) }

func (b *blockBuf) Line(i int) ([]byte, error) { return b.lines[i], nil }

func (b *blockBuf) Version() uint64 { return b.version }

func (b *blockBuf) setLine(i int, text string) {
	b.lines[i] = []byte(text)
	b.version++
}

// blockEngine models block comments: "(*" opens a construct, "*)" closes
// it. It counts scans per line content so tests can assert what was and
// was not rescanned.
type blockEngine struct {
	scans map[string]int
}

func newBlockEngine() *blockEngine {
	return &blockEngine{scans: make(map[string]int)}
}

const insideBlock = "block"

func (e *blockEngine) HighlightLine(line []byte, in State) ([]Span, State) {
	e.scans[string(line)]++
	open := len(in) > 0
	color := "#ffffff"
	if open {
		color = "#00ff00"
	}
	if bytes.Contains(line, []byte("(*")) {
		open = true
	}
	if bytes.Contains(line, []byte("*)")) {
		open = false
	}
	var out State
	if open {
		out = State(insideBlock)
	}
	if len(line) == 0 {
		return nil, out
	}
	return []Span{{Start: 0, End: len(line), Color: color}}, out
}

func syncAll(t *testing.T, c *Coordinator) {
	t.Helper()
	if err := c.Sync(context.Background(), 2); err != nil {
		t.Fatalf("sync: %v", err)
	}
}

func TestInitialScanCoversViewportPlusMargin(t *testing.T) {
	lines := make([]string, 100)
	for i := range lines {
		lines[i] = "text"
	}
	buf := newBlockBuf(lines...)
	c := NewCoordinator(newBlockEngine(), buf, 4)
	c.SetViewport(10, 20)

	syncAll(t, c)

	for i, want := range map[int]LineStatus{
		5:  Unscanned,
		6:  Fresh,
		10: Fresh,
		20: Fresh,
		24: Fresh,
		25: Unscanned,
		99: Unscanned,
	} {
		if got := c.Status(i); got != want {
			t.Errorf("line %d status got %v, want %v", i, got, want)
		}
	}
}

func TestEditNeverRemarksEarlierLines(t *testing.T) {
	buf := newBlockBuf("l0", "l1", "l2", "l3", "l4", "l5", "l6")
	eng := newBlockEngine()
	c := NewCoordinator(eng, buf, DefaultMargin)
	c.SetViewport(0, 6)
	syncAll(t, c)

	buf.setLine(5, "edited")
	c.Invalidate(5, 0)

	for i := 0; i <= 4; i++ {
		if got := c.Status(i); got != Fresh {
			t.Errorf("line %d status got %v, want fresh after editing line 5", i, got)
		}
	}
	syncAll(t, c)

	for i := 0; i <= 4; i++ {
		if n := eng.scans["l"+string(rune('0'+i))]; n != 1 {
			t.Errorf("line %d scanned %d times, want 1", i, n)
		}
	}
}

func TestStalePropagatesUntilConvergence(t *testing.T) {
	buf := newBlockBuf("a", "b", "c", "d")
	eng := newBlockEngine()
	c := NewCoordinator(eng, buf, DefaultMargin)
	c.SetViewport(0, 3)
	syncAll(t, c)

	// Opening a block on line 1 changes the carry state of every
	// following line.
	buf.setLine(1, "(* open")
	c.Invalidate(1, 0)
	syncAll(t, c)

	for _, i := range []int{2, 3} {
		spans, status := c.SpansFor(i)
		if status != Fresh {
			t.Errorf("line %d status got %v, want fresh", i, status)
		}
		if len(spans) != 1 || spans[0].Color != "#00ff00" {
			t.Errorf("line %d should be block-styled, got %+v", i, spans)
		}
	}
}

func TestPropagationStopsAtUnchangedState(t *testing.T) {
	buf := newBlockBuf("a", "(* one", "*)", "b", "c")
	eng := newBlockEngine()
	c := NewCoordinator(eng, buf, DefaultMargin)
	c.SetViewport(0, 4)
	syncAll(t, c)

	// Replacing the opener with another opener leaves every downstream
	// carry state identical, so nothing past the closer rescans.
	buf.setLine(1, "(* two")
	c.Invalidate(1, 0)
	syncAll(t, c)

	if n := eng.scans["b"]; n != 1 {
		t.Errorf("line past convergence scanned %d times, want 1", n)
	}
	if n := eng.scans["c"]; n != 1 {
		t.Errorf("line past convergence scanned %d times, want 1", n)
	}
}

func TestStaleResultDiscarded(t *testing.T) {
	buf := newBlockBuf("a", "b")
	eng := newBlockEngine()
	c := NewCoordinator(eng, buf, DefaultMargin)
	c.SetViewport(0, 1)

	jobs := c.Collect()
	if len(jobs) == 0 {
		t.Fatal("expected jobs for a cold viewport")
	}
	results, err := Compute(context.Background(), eng, jobs, 2)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	// The buffer moves on before the results land.
	buf.setLine(0, "a2")
	for _, res := range results {
		c.Apply(res)
	}

	if got := c.Status(0); got == Fresh {
		t.Error("result computed against an old version must not apply")
	}

	syncAll(t, c)
	spans, status := c.SpansFor(0)
	if status != Fresh || len(spans) != 1 {
		t.Errorf("rescan should recover, got status %v spans %+v", status, spans)
	}
}

func TestStaleSpansStillServed(t *testing.T) {
	buf := newBlockBuf("hello")
	c := NewCoordinator(newBlockEngine(), buf, DefaultMargin)
	c.SetViewport(0, 0)
	syncAll(t, c)

	before, _ := c.SpansFor(0)
	buf.setLine(0, "hello world")
	c.Invalidate(0, 0)

	spans, status := c.SpansFor(0)
	if status != Stale {
		t.Errorf("status got %v, want stale", status)
	}
	if len(spans) != len(before) || spans[0] != before[0] {
		t.Errorf("stale line should keep its previous spans, got %+v", spans)
	}
}

func TestInvalidateSplicesLines(t *testing.T) {
	buf := newBlockBuf("a", "b", "c")
	c := NewCoordinator(newBlockEngine(), buf, DefaultMargin)
	c.SetViewport(0, 2)
	syncAll(t, c)

	// Paste adds two lines after line 1.
	buf.lines = [][]byte{[]byte("a"), []byte("b"), []byte("x"), []byte("y"), []byte("c")}
	buf.version++
	c.Invalidate(1, 2)

	if got := c.Status(0); got != Fresh {
		t.Errorf("line 0 got %v, want fresh", got)
	}
	if got := c.Status(1); got != Stale {
		t.Errorf("edited line got %v, want stale", got)
	}
	for _, i := range []int{2, 3} {
		if got := c.Status(i); got != Unscanned {
			t.Errorf("inserted line %d got %v, want unscanned", i, got)
		}
	}

	c.SetViewport(0, 4)
	syncAll(t, c)
	for i := 0; i < 5; i++ {
		if got := c.Status(i); got != Fresh {
			t.Errorf("line %d got %v, want fresh after sync", i, got)
		}
	}

	// Deleting the pasted lines shrinks the table back.
	buf.lines = [][]byte{[]byte("a"), []byte("b"), []byte("c")}
	buf.version++
	c.Invalidate(1, -2)
	syncAll(t, c)
	for i := 0; i < 3; i++ {
		if got := c.Status(i); got != Fresh {
			t.Errorf("line %d got %v, want fresh after delete", i, got)
		}
	}
}

func TestSpansForOutOfRange(t *testing.T) {
	buf := newBlockBuf("a")
	c := NewCoordinator(newBlockEngine(), buf, DefaultMargin)

	if spans, status := c.SpansFor(-1); spans != nil || status != Unscanned {
		t.Errorf("got (%v, %v), want (nil, unscanned)", spans, status)
	}
	if spans, status := c.SpansFor(5); spans != nil || status != Unscanned {
		t.Errorf("got (%v, %v), want (nil, unscanned)", spans, status)
	}
}
