// Package history records reversible edit operations applied to a buffer and
// groups them into transactions for undo/redo. A transaction is an ordered,
// non-empty run of operations treated as one undo unit; it is sealed when the
// edit kind changes, the position jumps, an explicit boundary fires (cursor
// move after a pause, save, plugin call), or the idle window elapses between
// keystrokes.
//
// The package only does bookkeeping: callers apply operations to the buffer
// and feed them in, and apply the inverses that Undo/Redo hand back. Both
// stacks are bounded; eviction drops whole transactions, oldest first.
package history

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// IdleSeal is the pause between recorded operations after which the open
// transaction seals. Tunable; the default mirrors a typing-burst window.
const IdleSeal = 750 * time.Millisecond

// Defaults for history bounds. Zero config values fall back to these.
const (
	DefaultMaxEntries = 1000
	DefaultMaxBytes   = 4 << 20
)

var (
	// ErrNothingToUndo signals an empty undo stack. Benign: used to
	// disable UI affordances, never a failure.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrNothingToRedo signals an empty redo stack.
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Kind discriminates edit operations.
type Kind uint8

const (
	Insert Kind = iota
	Delete
)

func (k Kind) String() string {
	if k == Insert {
		return "insert"
	}
	return "delete"
}

// Op is a single reversible edit: text inserted at or deleted from a byte
// offset. Bytes always carries the affected text, so every Op has a
// computable inverse.
type Op struct {
	Kind  Kind
	Pos   int
	Bytes []byte
}

// End returns the offset just past the affected range.
func (o Op) End() int { return o.Pos + len(o.Bytes) }

// Invert returns the operation that exactly undoes o.
func (o Op) Invert() Op {
	if o.Kind == Insert {
		return Op{Kind: Delete, Pos: o.Pos, Bytes: o.Bytes}
	}
	return Op{Kind: Insert, Pos: o.Pos, Bytes: o.Bytes}
}

// Transaction is a sealed, non-empty sequence of operations undone as a unit.
type Transaction struct {
	id  uint64
	ops []Op
}

// Ops returns the operations in application order.
func (t *Transaction) Ops() []Op { return t.ops }

func (t *Transaction) bytes() int {
	n := 0
	for _, op := range t.ops {
		n += len(op.Bytes)
	}
	return n
}

// History holds the undo and redo stacks for one document.
type History struct {
	undo []*Transaction
	redo []*Transaction

	open     *Transaction
	lastKind Kind
	lastPos  int // contiguity anchor: end of last insert / position of last delete
	lastAt   time.Time

	nextID     uint64
	maxEntries int
	maxBytes   int
	undoBytes  int

	// savedID is the id of the transaction on top of the undo stack at the
	// last save; 0 means the save point is the empty stack, and
	// savedUnreachable means the saved state was evicted or overwritten.
	savedID          uint64
	savedUnreachable bool

	grouping bool

	now func() time.Time
}

// Option configures a History.
type Option func(*History)

// WithLimits bounds the undo stack by transaction count and cumulative
// payload bytes. Non-positive values keep the defaults.
func WithLimits(entries, bytes int) Option {
	return func(h *History) {
		if entries > 0 {
			h.maxEntries = entries
		}
		if bytes > 0 {
			h.maxBytes = bytes
		}
	}
}

// WithClock substitutes the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(h *History) { h.now = now }
}

// New creates an empty history with a fresh save point.
func New(opts ...Option) *History {
	h := &History{
		maxEntries: DefaultMaxEntries,
		maxBytes:   DefaultMaxBytes,
		nextID:     1,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Record appends an applied operation to the open transaction, first sealing
// it when the boundary rules call for a new one. The caller has already
// mutated the buffer.
func (h *History) Record(op Op) {
	now := h.now()
	if h.open != nil && !h.grouping && h.mustSeal(op, now) {
		h.Seal()
	}
	if h.open == nil {
		h.open = &Transaction{id: h.nextID}
		h.nextID++
	}
	h.open.ops = append(h.open.ops, op)
	h.lastKind = op.Kind
	h.lastAt = now
	if op.Kind == Insert {
		h.lastPos = op.End()
	} else {
		h.lastPos = op.Pos
	}
}

// mustSeal applies the transaction boundary rules from the data model: kind
// change, non-contiguous position, or idle timeout.
func (h *History) mustSeal(op Op, now time.Time) bool {
	if op.Kind != h.lastKind {
		return true
	}
	if now.Sub(h.lastAt) > IdleSeal {
		return true
	}
	if op.Kind == Insert {
		return op.Pos != h.lastPos
	}
	// Delete runs stay open for both forward-delete (same position) and
	// backspace (range ending where the last one began).
	return op.Pos != h.lastPos && op.End() != h.lastPos
}

// Seal closes the open transaction, if any, pushing it onto the undo stack.
// Pushing clears the redo stack and enforces the bounds.
func (h *History) Seal() {
	if h.open == nil {
		return
	}
	tx := h.open
	h.open = nil
	h.push(tx)
}

func (h *History) push(tx *Transaction) {
	// Any redone-past state becomes unreachable once new work is pushed.
	if len(h.redo) > 0 {
		for _, rt := range h.redo {
			if rt.id == h.savedID {
				h.savedUnreachable = true
			}
		}
		h.redo = h.redo[:0]
	}
	h.undo = append(h.undo, tx)
	h.undoBytes += tx.bytes()
	for len(h.undo) > 1 && (len(h.undo) > h.maxEntries || h.undoBytes > h.maxBytes) {
		old := h.undo[0]
		h.undo = h.undo[1:]
		h.undoBytes -= old.bytes()
		if old.id == h.savedID {
			// The saved state can no longer be reached by undoing.
			h.savedUnreachable = true
			log.Warn().Msg("undo bound evicted the saved transaction")
		}
	}
}

// Undo seals any open transaction, then pops the top of the undo stack and
// moves it to the redo stack. The caller applies the returned transaction's
// inverses in reverse operation order.
func (h *History) Undo() (*Transaction, error) {
	h.Seal()
	if len(h.undo) == 0 {
		return nil, ErrNothingToUndo
	}
	tx := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.undoBytes -= tx.bytes()
	h.redo = append(h.redo, tx)
	return tx, nil
}

// Redo pops the top of the redo stack and moves it back to the undo stack.
// The caller re-applies the returned transaction's operations in order.
func (h *History) Redo() (*Transaction, error) {
	if len(h.redo) == 0 {
		return nil, ErrNothingToRedo
	}
	tx := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, tx)
	h.undoBytes += tx.bytes()
	return tx, nil
}

// CanUndo reports whether Undo would succeed.
func (h *History) CanUndo() bool { return h.open != nil || len(h.undo) > 0 }

// CanRedo reports whether Redo would succeed.
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// MarkSaved seals the open transaction and records the current stack top as
// the save point.
func (h *History) MarkSaved() {
	h.MarkSavedAt(h.SavePoint())
}

// SavePoint seals the open transaction and returns a marker for the current
// stack top. Asynchronous writers capture the marker when they snapshot the
// content and pass it to MarkSavedAt once the write lands, so edits made
// while the write was in flight keep the history dirty.
func (h *History) SavePoint() uint64 {
	h.Seal()
	if len(h.undo) == 0 {
		return 0
	}
	return h.undo[len(h.undo)-1].id
}

// MarkSavedAt records marker, previously obtained from SavePoint, as the
// save point. If the marked transaction is no longer on either stack the
// saved state is unreachable and the history stays dirty.
func (h *History) MarkSavedAt(marker uint64) {
	h.savedID = marker
	h.savedUnreachable = false
	if marker == 0 {
		return
	}
	for _, tx := range h.undo {
		if tx.id == marker {
			return
		}
	}
	for _, tx := range h.redo {
		if tx.id == marker {
			return
		}
	}
	h.savedUnreachable = true
}

// Dirty reports whether the document differs from the save point. It
// compares transaction identity rather than content hashes: undoing back to
// the saved transaction (or redoing forward to it) turns the flag off again.
func (h *History) Dirty() bool {
	if h.open != nil {
		return true
	}
	if h.savedUnreachable {
		return true
	}
	if len(h.undo) == 0 {
		return h.savedID != 0
	}
	return h.undo[len(h.undo)-1].id != h.savedID
}

// Depth returns the sealed undo and redo stack depths.
func (h *History) Depth() (undo, redo int) { return len(h.undo), len(h.redo) }

// grouping support: while a group is open, Record skips the seal rules so a
// batch of arbitrary operations lands in one transaction. Used for plugin
// mutation queues.

// BeginGroup seals any open transaction and starts an explicit group.
func (h *History) BeginGroup() {
	h.Seal()
	h.open = &Transaction{id: h.nextID}
	h.nextID++
	h.grouping = true
}

// EndGroup seals the group. A group with no operations is discarded.
func (h *History) EndGroup() {
	h.grouping = false
	if h.open != nil && len(h.open.ops) == 0 {
		h.open = nil
		return
	}
	h.Seal()
}
