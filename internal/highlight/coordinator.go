package highlight

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// LineStatus is the scan state of one line.
type LineStatus uint8

const (
	// Unscanned lines have never produced spans.
	Unscanned LineStatus = iota
	// Pending lines have a scan in flight.
	Pending
	// Fresh spans match the current content.
	Fresh
	// Stale spans are from an older content or carry state; they still
	// render until the rescan lands.
	Stale
)

func (s LineStatus) String() string {
	switch s {
	case Unscanned:
		return "unscanned"
	case Pending:
		return "pending"
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// Buffer is the read surface the coordinator scans. Version changes on
// every mutation; results computed against an older version are discarded.
type Buffer interface {
	LineCount() int
	Line(index int) ([]byte, error)
	Version() uint64
}

type lineEntry struct {
	status LineStatus
	spans  []Span
	in     State // carry state the spans were scanned with
	out    State // carry state left for the next line
}

// Coordinator tracks per-line scan state for one buffer and schedules
// rescans for the viewport plus a prefetch margin. Collect, Apply and the
// accessors run on the owner's goroutine; only Compute runs work in
// parallel.
type Coordinator struct {
	engine Engine
	buf    Buffer
	lines  []lineEntry

	top, bottom int // viewport line range, inclusive
	margin      int
}

// DefaultMargin is the prefetch distance above and below the viewport.
const DefaultMargin = 16

// NewCoordinator builds a coordinator over buf with every line unscanned.
func NewCoordinator(engine Engine, buf Buffer, margin int) *Coordinator {
	if margin < 0 {
		margin = DefaultMargin
	}
	return &Coordinator{
		engine: engine,
		buf:    buf,
		lines:  make([]lineEntry, buf.LineCount()),
		margin: margin,
	}
}

// SetViewport records the visible line range, inclusive on both ends.
func (c *Coordinator) SetViewport(top, bottom int) {
	c.top, c.bottom = top, bottom
}

// Invalidate is the buffer's change notification: line is the first line
// touched by an edit and lineDelta the change in total line count. The
// touched line goes stale; added lines splice in as unscanned, removed
// lines drop. Untouched lines keep their status.
func (c *Coordinator) Invalidate(line, lineDelta int) {
	if line < 0 || line >= len(c.lines) {
		return
	}
	c.markStale(line)
	switch {
	case lineDelta > 0:
		fresh := make([]lineEntry, lineDelta)
		c.lines = append(c.lines[:line+1], append(fresh, c.lines[line+1:]...)...)
	case lineDelta < 0:
		end := min(line+1-lineDelta, len(c.lines))
		c.lines = append(c.lines[:line+1], c.lines[end:]...)
	}
}

func (c *Coordinator) markStale(line int) {
	e := &c.lines[line]
	if e.status != Unscanned {
		e.status = Stale
	}
}

// SpansFor returns the most recent spans for a line and their status.
// Stale spans are intentionally returned as-is so the renderer never
// flashes unstyled text.
func (c *Coordinator) SpansFor(line int) ([]Span, LineStatus) {
	if line < 0 || line >= len(c.lines) {
		return nil, Unscanned
	}
	e := c.lines[line]
	return e.spans, e.status
}

// Status returns the scan status of a line.
func (c *Coordinator) Status(line int) LineStatus {
	if line < 0 || line >= len(c.lines) {
		return Unscanned
	}
	return c.lines[line].status
}

// ────────────────────────────────────────
// Scheduling
// ────────────────────────────────────────

// Job is a run of consecutive lines to scan, captured with the content and
// carry state valid at collect time.
type Job struct {
	Version uint64
	Start   int
	Lines   [][]byte
	In      State
}

// LineResult is the scan output for one line of a job.
type LineResult struct {
	Spans []Span
	In    State
	Out   State
}

// Result carries a completed job back to Apply.
type Result struct {
	Version uint64
	Start   int
	Lines   []LineResult
}

// Collect gathers the lines that need scanning into jobs and marks them
// pending. Each job is a maximal run of consecutive schedulable lines with
// its carry-in captured up front. Unscanned lines are only picked up inside
// the viewport plus margin; stale lines are rescanned wherever they sit so
// open constructs converge past the viewport edge.
func (c *Coordinator) Collect() []Job {
	if len(c.lines) != c.buf.LineCount() {
		// Line bookkeeping desynced from the buffer; resync rather
		// than scan with wrong indices.
		log.Warn().
			Int("tracked", len(c.lines)).
			Int("actual", c.buf.LineCount()).
			Msg("highlight line table out of sync, resetting")
		c.lines = make([]lineEntry, c.buf.LineCount())
	}

	lo := max(c.top-c.margin, 0)
	hi := min(c.bottom+c.margin, len(c.lines)-1)
	version := c.buf.Version()

	var jobs []Job
	for i := 0; i < len(c.lines); i++ {
		if !c.wants(i, lo, hi) || !c.inKnown(i) {
			continue
		}
		job := Job{Version: version, Start: i, In: c.carryIn(i)}
		for i < len(c.lines) && c.wants(i, lo, hi) {
			text, err := c.buf.Line(i)
			if err != nil {
				break
			}
			job.Lines = append(job.Lines, text)
			c.lines[i].status = Pending
			i++
		}
		if len(job.Lines) > 0 {
			jobs = append(jobs, job)
		}
	}
	return jobs
}

func (c *Coordinator) wants(line, lo, hi int) bool {
	switch c.lines[line].status {
	case Stale:
		return true
	case Unscanned:
		return line >= lo && line <= hi
	}
	return false
}

// inKnown reports whether a run may start at line. A fresh predecessor
// supplies its carry-out; an unscanned one is assumed to carry nothing,
// which the convergence check in Apply corrects if a later scan disproves
// it. Stale and pending predecessors are about to change, so runs wait.
func (c *Coordinator) inKnown(line int) bool {
	if line == 0 {
		return true
	}
	switch c.lines[line-1].status {
	case Fresh, Unscanned:
		return true
	}
	return false
}

func (c *Coordinator) carryIn(line int) State {
	if line == 0 {
		return nil
	}
	return c.lines[line-1].out
}

// Compute scans jobs on a bounded worker pool. Lines within a job are
// sequential because each needs the previous line's carry state; jobs are
// independent.
func Compute(ctx context.Context, engine Engine, jobs []Job, workers int) ([]Result, error) {
	if workers < 1 {
		workers = 1
	}
	results := make([]Result, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = runJob(engine, job)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func runJob(engine Engine, job Job) Result {
	res := Result{Version: job.Version, Start: job.Start}
	in := job.In
	for _, text := range job.Lines {
		spans, out := engine.HighlightLine(text, in)
		res.Lines = append(res.Lines, LineResult{Spans: spans, In: in, Out: out})
		in = out
	}
	return res
}

// Apply integrates a completed result. Results from an older buffer version
// are discarded and their lines re-marked stale so the next Collect
// reschedules them. A fresh line whose carry-out no longer matches the next
// line's carry-in marks that neighbor stale, which is how a state change
// ripples downstream until it converges.
func (c *Coordinator) Apply(res Result) {
	if res.Version != c.buf.Version() {
		for i := res.Start; i < res.Start+len(res.Lines) && i < len(c.lines); i++ {
			if c.lines[i].status == Pending {
				c.lines[i].status = Stale
			}
		}
		return
	}
	for k, lr := range res.Lines {
		i := res.Start + k
		if i >= len(c.lines) {
			break
		}
		e := &c.lines[i]
		e.status = Fresh
		e.spans = lr.Spans
		e.in = lr.In
		e.out = lr.Out

		if next := i + 1; next < len(c.lines) && c.lines[next].status == Fresh &&
			!StateEqual(lr.Out, c.lines[next].in) {
			c.lines[next].status = Stale
		}
	}
}

// Sync runs Collect, Compute and Apply to a fixed point. It is the
// synchronous driver used by tests and by callers without their own
// message loop.
func (c *Coordinator) Sync(ctx context.Context, workers int) error {
	for {
		jobs := c.Collect()
		if len(jobs) == 0 {
			return nil
		}
		results, err := Compute(ctx, c.engine, jobs, workers)
		if err != nil {
			return err
		}
		for _, res := range results {
			c.Apply(res)
		}
	}
}
