package rope

// none marks an absent child reference.
const none = int32(-1)

// node is one slot in the rope arena. Leaves hold an immutable chunk of text
// in data; internal nodes hold two child indices and cache the byte and
// newline weight of their left subtree. A node is a leaf iff left == none.
type node struct {
	left, right int32
	data        []byte

	weight  int // byte length of the left subtree (leaves: len(data))
	lweight int // newline count of the left subtree (leaves: newlines in data)
	size    int // total bytes in this subtree
	lines   int // total newlines in this subtree
	height  int
}

func (r *Rope) isLeaf(i int32) bool { return r.nodes[i].left == none }

// alloc returns an arena index for n, reusing freed slots when possible.
func (r *Rope) alloc(n node) int32 {
	if len(r.free) > 0 {
		i := r.free[len(r.free)-1]
		r.free = r.free[:len(r.free)-1]
		r.nodes[i] = n
		return i
	}
	r.nodes = append(r.nodes, n)
	return int32(len(r.nodes) - 1)
}

func (r *Rope) release(i int32) {
	r.nodes[i] = node{left: none, right: none}
	r.free = append(r.free, i)
}

// setLeaf turns slot i into a leaf holding data. The slice is adopted as-is
// and treated as immutable from then on.
func (r *Rope) setLeaf(i int32, data []byte) {
	nl := countNewlines(data)
	r.nodes[i] = node{
		left:    none,
		right:   none,
		data:    data,
		weight:  len(data),
		lweight: nl,
		size:    len(data),
		lines:   nl,
	}
}

// pull recomputes the cached weights of internal node i from its children.
func (r *Rope) pull(i int32) {
	l, rt := r.nodes[i].left, r.nodes[i].right
	ln, rn := r.nodes[l], r.nodes[rt]
	n := &r.nodes[i]
	n.data = nil
	n.weight = ln.size
	n.lweight = ln.lines
	n.size = ln.size + rn.size
	n.lines = ln.lines + rn.lines
	n.height = 1 + max(ln.height, rn.height)
}

func (r *Rope) setChildren(i, left, right int32) {
	r.nodes[i].left = left
	r.nodes[i].right = right
	r.pull(i)
}

func (r *Rope) bf(i int32) int {
	n := r.nodes[i]
	return r.nodes[n.left].height - r.nodes[n.right].height
}

// balance restores the height invariant at i after a structural change below
// it. Rotations only change tree shape; observable content is untouched.
func (r *Rope) balance(i int32) int32 {
	for {
		switch f := r.bf(i); {
		case f > 1:
			l := r.nodes[i].left
			if r.nodes[r.nodes[l].left].height < r.nodes[r.nodes[l].right].height {
				r.nodes[i].left = r.rotateLeft(l)
			}
			i = r.rotateRight(i)
		case f < -1:
			rt := r.nodes[i].right
			if r.nodes[r.nodes[rt].right].height < r.nodes[r.nodes[rt].left].height {
				r.nodes[i].right = r.rotateRight(rt)
			}
			i = r.rotateLeft(i)
		default:
			return i
		}
	}
}

func (r *Rope) rotateRight(i int32) int32 {
	l := r.nodes[i].left
	r.nodes[i].left = r.nodes[l].right
	r.pull(i)
	r.nodes[l].right = i
	r.pull(l)
	return l
}

func (r *Rope) rotateLeft(i int32) int32 {
	rt := r.nodes[i].right
	r.nodes[i].right = r.nodes[rt].left
	r.pull(i)
	r.nodes[rt].left = i
	r.pull(rt)
	return rt
}

// buildChunks constructs a balanced subtree over the given leaf chunks and
// returns its root. Chunks are adopted without copying.
func (r *Rope) buildChunks(chunks [][]byte) int32 {
	level := make([]int32, 0, len(chunks))
	for _, c := range chunks {
		i := r.alloc(node{left: none, right: none})
		r.setLeaf(i, c)
		level = append(level, i)
	}
	for len(level) > 1 {
		var parents []int32
		for j := 0; j < len(level); j += 2 {
			if j+1 == len(level) {
				parents = append(parents, level[j])
				break
			}
			p := r.alloc(node{})
			r.setChildren(p, level[j], level[j+1])
			parents = append(parents, p)
		}
		level = parents
	}
	return level[0]
}

// splitChunks cuts data into pieces of at most maxLeaf bytes.
func splitChunks(data []byte) [][]byte {
	var chunks [][]byte
	for len(data) > maxLeaf {
		chunks = append(chunks, data[:maxLeaf])
		data = data[maxLeaf:]
	}
	return append(chunks, data)
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
