// Package highlight provides per-line syntax highlighting with explicit
// carry state, plus the coordinator that schedules asynchronous rescans
// around a viewport. The engine is decoupled from any TUI component: spans
// carry resolved colors and the renderer decides how to paint them.
package highlight

import (
	"bytes"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Span is a styled byte range within one line. Ranges tile the line in
// order without gaps or overlap.
type Span struct {
	Start, End int
	Color      string // "#rrggbb" foreground, "" for the default
	Bold       bool
	Italic     bool
}

// State is the opaque scanner state carried from one line into the next.
// nil means no multi-line construct is open. States compare bytewise: equal
// output states mean downstream lines need no rescan.
type State []byte

// Engine scans a single line given the state left by the previous line.
// Implementations must be pure: same line and state, same result.
type Engine interface {
	HighlightLine(line []byte, in State) ([]Span, State)
}

// StateEqual reports whether two carry states are interchangeable.
func StateEqual(a, b State) bool { return bytes.Equal(a, b) }

// ────────────────────────────────────────
// Chroma-backed engine
// ────────────────────────────────────────

// Chroma adapts a Chroma lexer to the line-at-a-time Engine contract.
// Chroma tokenizes whole texts, so the carry state is the raw text of the
// unterminated construct: each line is tokenized with its carry prefix and
// only the spans falling inside the line are kept.
type Chroma struct {
	lexer chroma.Lexer
	style *chroma.Style
}

// NewChroma builds an engine for a Chroma language and theme name. Unknown
// languages fall back to plain text, unknown themes to Chroma's default.
func NewChroma(language, theme string) *Chroma {
	lex := lexers.Get(language)
	if lex == nil {
		lex = lexers.Fallback
	}
	return &Chroma{
		lexer: chroma.Coalesce(lex),
		style: styles.Get(theme),
	}
}

// HighlightLine scans one line. The returned spans cover the line exactly;
// a tokenization failure yields a single unstyled span.
func (e *Chroma) HighlightLine(line []byte, in State) ([]Span, State) {
	src := string(in) + string(line)
	prefix := len(in)

	it, err := e.lexer.Tokenise(nil, src)
	if err != nil {
		return plainSpans(line), nil
	}

	var spans []Span
	off := 0
	for tok := it(); tok != chroma.EOF; tok = it() {
		start, end := off, off+len(tok.Value)
		off = end
		if end <= prefix || start >= len(src) {
			continue
		}
		s := Span{
			Start: max(start-prefix, 0),
			End:   min(end-prefix, len(line)),
		}
		entry := e.style.Get(tok.Type)
		if entry.Colour.IsSet() {
			s.Color = entry.Colour.String()
		}
		s.Bold = entry.Bold == chroma.Yes
		s.Italic = entry.Italic == chroma.Yes

		// Runs of identically styled tokens collapse into one span.
		if n := len(spans); n > 0 && spans[n-1].End == s.Start && sameStyle(spans[n-1], s) {
			spans[n-1].End = s.End
		} else {
			spans = append(spans, s)
		}
	}
	if len(spans) == 0 && len(line) > 0 {
		spans = plainSpans(line)
	}
	return spans, e.carryState(src)
}

func sameStyle(a, b Span) bool {
	return a.Color == b.Color && a.Bold == b.Bold && a.Italic == b.Italic
}

// carryState detects an unterminated multi-line construct by tokenizing the
// text with a one-character probe line appended. When the probe character
// lands inside a comment or string token, the construct is still open and
// the whole text plus the consumed newline becomes the carry, so the next
// line tokenizes with the construct's opening delimiter in scope. The carry
// accretes one line per scan while a construct stays open, which is what
// drives stale propagation downstream until it closes.
//
// Lexers that only match fully terminated constructs never flag the probe,
// so those languages degrade to line-local highlighting instead of breaking.
func (e *Chroma) carryState(src string) State {
	if src == "" {
		return nil
	}
	probe := src + "\na"
	it, err := e.lexer.Tokenise(nil, probe)
	if err != nil {
		return nil
	}
	probeAt := len(probe) - 1
	off := 0
	for tok := it(); tok != chroma.EOF; tok = it() {
		start, end := off, off+len(tok.Value)
		off = end
		if start > probeAt || end <= probeAt {
			continue
		}
		if tok.Type.InCategory(chroma.Comment) || tok.Type.InSubCategory(chroma.LiteralString) {
			return State(src + "\n")
		}
		return nil
	}
	return nil
}

func plainSpans(line []byte) []Span {
	if len(line) == 0 {
		return nil
	}
	return []Span{{Start: 0, End: len(line)}}
}
