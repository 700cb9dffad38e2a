// Package rope provides the mutable text storage for one open file: a
// balanced tree of immutable text chunks supporting O(log n) insert, delete
// and slice by byte offset, with cached line-break counts for fast
// line-oriented access.
//
// Nodes live in an arena and reference their children by index, so the tree
// carries no owning pointers. All positions are byte offsets; operations that
// would split a multi-byte UTF-8 sequence are rejected. Leaf chunks are never
// mutated in place, which lets large files be backed by a read-only mapped
// region: the first edit to a region copies only the affected leaf.
//
// A Rope assumes a single writer and is not safe for concurrent mutation.
package rope

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

const (
	// maxLeaf is the chunk size above which a leaf splits on insert.
	maxLeaf = 4096
	// minLeaf is the chunk size below which adjacent leaves merge on delete.
	minLeaf = 1024
)

var (
	// ErrRange indicates an out-of-bounds or inverted offset. Always a
	// caller bug, never retried.
	ErrRange = errors.New("offset out of range")

	// ErrEncoding indicates an operation that would split a multi-byte
	// UTF-8 sequence or introduce invalid UTF-8.
	ErrEncoding = errors.New("invalid UTF-8 boundary")
)

// Rope is a mutable text buffer. The zero value is not usable; construct
// with New or NewFromSegments.
type Rope struct {
	nodes []node
	free  []int32
	root  int32
}

// New builds a rope over content. The slice is adopted and must not be
// modified by the caller afterwards.
func New(content []byte) *Rope {
	r := &Rope{}
	r.root = r.buildChunks(splitChunks(content))
	return r
}

// NewFromSegments builds a rope whose leaves alias the given segments, in
// order. Segments may point into a read-only memory-mapped region: leaves are
// copy-on-write, so edits never touch the underlying memory.
func NewFromSegments(segs [][]byte) *Rope {
	var chunks [][]byte
	for _, s := range segs {
		chunks = append(chunks, splitChunks(s)...)
	}
	if len(chunks) == 0 {
		chunks = [][]byte{nil}
	}
	r := &Rope{}
	r.root = r.buildChunks(chunks)
	return r
}

// Len returns the buffer length in bytes.
func (r *Rope) Len() int { return r.nodes[r.root].size }

// LineCount returns the number of lines. An empty buffer has one line.
func (r *Rope) LineCount() int { return r.nodes[r.root].lines + 1 }

// Insert places text at the given byte offset. The offset must lie on a
// character boundary and the payload must be valid UTF-8.
func (r *Rope) Insert(pos int, text []byte) error {
	if pos < 0 || pos > r.Len() {
		return fmt.Errorf("insert at %d in %d-byte buffer: %w", pos, r.Len(), ErrRange)
	}
	if !utf8.Valid(text) {
		return fmt.Errorf("insert payload: %w", ErrEncoding)
	}
	if err := r.checkBoundary(pos); err != nil {
		return err
	}
	if len(text) == 0 {
		return nil
	}
	own := make([]byte, len(text))
	copy(own, text)
	r.root = r.insertAt(r.root, pos, own)
	return nil
}

func (r *Rope) insertAt(i int32, pos int, text []byte) int32 {
	if r.isLeaf(i) {
		data := r.nodes[i].data
		merged := make([]byte, 0, len(data)+len(text))
		merged = append(merged, data[:pos]...)
		merged = append(merged, text...)
		merged = append(merged, data[pos:]...)
		if len(merged) <= maxLeaf {
			r.setLeaf(i, merged)
			return i
		}
		r.release(i)
		return r.buildChunks(splitChunks(merged))
	}
	n := r.nodes[i]
	if pos < n.weight {
		child := r.insertAt(n.left, pos, text)
		r.nodes[i].left = child
	} else {
		child := r.insertAt(n.right, pos-n.weight, text)
		r.nodes[i].right = child
	}
	r.pull(i)
	return r.balance(i)
}

// Delete removes the byte range [start, end) and returns the removed bytes,
// which form the payload of the inverse insert.
func (r *Rope) Delete(start, end int) ([]byte, error) {
	if start > end || start < 0 || end > r.Len() {
		return nil, fmt.Errorf("delete [%d,%d) in %d-byte buffer: %w", start, end, r.Len(), ErrRange)
	}
	if err := r.checkBoundary(start); err != nil {
		return nil, err
	}
	if err := r.checkBoundary(end); err != nil {
		return nil, err
	}
	if start == end {
		return nil, nil
	}
	removed := make([]byte, 0, end-start)
	root := r.deleteRange(r.root, start, end, &removed)
	if root == none {
		root = r.alloc(node{left: none, right: none})
		r.setLeaf(root, nil)
	}
	r.root = root
	return removed, nil
}

func (r *Rope) deleteRange(i int32, start, end int, out *[]byte) int32 {
	if r.isLeaf(i) {
		data := r.nodes[i].data
		*out = append(*out, data[start:end]...)
		if start == 0 && end == len(data) {
			r.release(i)
			return none
		}
		rem := make([]byte, 0, len(data)-(end-start))
		rem = append(rem, data[:start]...)
		rem = append(rem, data[end:]...)
		r.setLeaf(i, rem)
		return i
	}
	n := r.nodes[i]
	nl, nr := n.left, n.right
	if start < n.weight {
		nl = r.deleteRange(n.left, start, min(end, n.weight), out)
	}
	if end > n.weight {
		nr = r.deleteRange(n.right, max(0, start-n.weight), end-n.weight, out)
	}
	if nl == none {
		r.release(i)
		return nr
	}
	if nr == none {
		r.release(i)
		return nl
	}
	r.setChildren(i, nl, nr)
	if r.isLeaf(nl) && r.isLeaf(nr) {
		ld, rd := r.nodes[nl].data, r.nodes[nr].data
		if len(ld)+len(rd) <= maxLeaf && (len(ld) < minLeaf || len(rd) < minLeaf) {
			merged := make([]byte, 0, len(ld)+len(rd))
			merged = append(merged, ld...)
			merged = append(merged, rd...)
			r.release(nl)
			r.release(nr)
			r.setLeaf(i, merged)
			return i
		}
	}
	return r.balance(i)
}

// Slice returns a copy of the byte range [start, end).
func (r *Rope) Slice(start, end int) ([]byte, error) {
	if start > end || start < 0 || end > r.Len() {
		return nil, fmt.Errorf("slice [%d,%d) in %d-byte buffer: %w", start, end, r.Len(), ErrRange)
	}
	out := make([]byte, 0, end-start)
	r.collect(r.root, start, end, &out)
	return out, nil
}

func (r *Rope) collect(i int32, start, end int, out *[]byte) {
	if start >= end {
		return
	}
	if r.isLeaf(i) {
		*out = append(*out, r.nodes[i].data[start:end]...)
		return
	}
	n := r.nodes[i]
	if start < n.weight {
		r.collect(n.left, start, min(end, n.weight), out)
	}
	if end > n.weight {
		r.collect(n.right, max(0, start-n.weight), end-n.weight, out)
	}
}

// Bytes returns a copy of the entire buffer content.
func (r *Rope) Bytes() []byte {
	out, _ := r.Slice(0, r.Len())
	return out
}

func (r *Rope) String() string { return string(r.Bytes()) }

// LineStart returns the byte offset of the first byte of line index (0-based).
func (r *Rope) LineStart(index int) (int, error) {
	if index < 0 || index >= r.LineCount() {
		return 0, fmt.Errorf("line %d of %d: %w", index, r.LineCount(), ErrRange)
	}
	if index == 0 {
		return 0, nil
	}
	return r.afterNewline(r.root, index), nil
}

// afterNewline returns the offset just past the k-th newline (1-based) in the
// subtree rooted at i.
func (r *Rope) afterNewline(i int32, k int) int {
	n := r.nodes[i]
	if r.isLeaf(i) {
		for idx, c := range n.data {
			if c == '\n' {
				k--
				if k == 0 {
					return idx + 1
				}
			}
		}
		return len(n.data) // unreachable for valid k
	}
	if k <= n.lweight {
		return r.afterNewline(n.left, k)
	}
	return n.weight + r.afterNewline(n.right, k-n.lweight)
}

// LineRange returns the byte range [start, end) of the line's content,
// excluding the trailing newline.
func (r *Rope) LineRange(index int) (start, end int, err error) {
	start, err = r.LineStart(index)
	if err != nil {
		return 0, 0, err
	}
	if index == r.LineCount()-1 {
		return start, r.Len(), nil
	}
	next, err := r.LineStart(index + 1)
	if err != nil {
		return 0, 0, err
	}
	return start, next - 1, nil
}

// Line returns a copy of the line's content without its trailing newline.
func (r *Rope) Line(index int) ([]byte, error) {
	start, end, err := r.LineRange(index)
	if err != nil {
		return nil, err
	}
	return r.Slice(start, end)
}

// LineIndex returns the 0-based line containing the byte offset. An offset
// equal to Len() maps to the last line.
func (r *Rope) LineIndex(pos int) (int, error) {
	if pos < 0 || pos > r.Len() {
		return 0, fmt.Errorf("offset %d in %d-byte buffer: %w", pos, r.Len(), ErrRange)
	}
	return r.newlinesBefore(r.root, pos), nil
}

func (r *Rope) newlinesBefore(i int32, pos int) int {
	n := r.nodes[i]
	if r.isLeaf(i) {
		return countNewlines(n.data[:pos])
	}
	if pos <= n.weight {
		return r.newlinesBefore(n.left, pos)
	}
	return n.lweight + r.newlinesBefore(n.right, pos-n.weight)
}

// byteAt returns the byte at pos; pos must be < Len().
func (r *Rope) byteAt(pos int) byte {
	i := r.root
	for !r.isLeaf(i) {
		n := r.nodes[i]
		if pos < n.weight {
			i = n.left
		} else {
			pos -= n.weight
			i = n.right
		}
	}
	return r.nodes[i].data[pos]
}

// checkBoundary rejects positions inside a multi-byte UTF-8 sequence.
func (r *Rope) checkBoundary(pos int) error {
	if pos == 0 || pos == r.Len() {
		return nil
	}
	if b := r.byteAt(pos); b&0xC0 == 0x80 {
		return fmt.Errorf("offset %d splits a character: %w", pos, ErrEncoding)
	}
	return nil
}

// leaves returns the leaf chunks in order. Test helper.
func (r *Rope) leaves() [][]byte {
	var out [][]byte
	var walk func(int32)
	walk = func(i int32) {
		if r.isLeaf(i) {
			out = append(out, r.nodes[i].data)
			return
		}
		walk(r.nodes[i].left)
		walk(r.nodes[i].right)
	}
	walk(r.root)
	return out
}

// height returns the root height. Test helper.
func (r *Rope) height() int { return r.nodes[r.root].height }

// checkWeights verifies cached weights against recomputed subtree sums.
// Test helper; returns the first inconsistency found.
func (r *Rope) checkWeights() error {
	var walk func(int32) (bytes, lines int, err error)
	walk = func(i int32) (int, int, error) {
		n := r.nodes[i]
		if r.isLeaf(i) {
			if n.size != len(n.data) || n.weight != len(n.data) {
				return 0, 0, fmt.Errorf("leaf %d: size %d weight %d data %d", i, n.size, n.weight, len(n.data))
			}
			return len(n.data), countNewlines(n.data), nil
		}
		lb, ll, err := walk(n.left)
		if err != nil {
			return 0, 0, err
		}
		rb, rl, err := walk(n.right)
		if err != nil {
			return 0, 0, err
		}
		if n.weight != lb || n.lweight != ll {
			return 0, 0, fmt.Errorf("node %d: weight %d/%d, left subtree %d/%d", i, n.weight, n.lweight, lb, ll)
		}
		if n.size != lb+rb || n.lines != ll+rl {
			return 0, 0, fmt.Errorf("node %d: size %d lines %d, want %d/%d", i, n.size, n.lines, lb+rb, ll+rl)
		}
		return lb + rb, ll + rl, nil
	}
	_, _, err := walk(r.root)
	return err
}
