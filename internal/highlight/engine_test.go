package highlight

import (
	"testing"
)

func checkTiling(t *testing.T, spans []Span, lineLen int) {
	t.Helper()
	if lineLen == 0 {
		if len(spans) != 0 {
			t.Errorf("empty line should have no spans, got %v", spans)
		}
		return
	}
	if len(spans) == 0 {
		t.Fatalf("line of %d bytes has no spans", lineLen)
	}
	if spans[0].Start != 0 {
		t.Errorf("first span starts at %d, want 0", spans[0].Start)
	}
	for i := 1; i < len(spans); i++ {
		if spans[i].Start != spans[i-1].End {
			t.Errorf("gap or overlap between span %d (end %d) and span %d (start %d)",
				i-1, spans[i-1].End, i, spans[i].Start)
		}
	}
	if last := spans[len(spans)-1]; last.End != lineLen {
		t.Errorf("last span ends at %d, want %d", last.End, lineLen)
	}
}

func TestChromaSpansTileLine(t *testing.T) {
	e := NewChroma("go", "monokai")

	lines := []string{
		"package main",
		"func add(a, b int) int { return a + b }",
		"\tx := \"hello\" // trailing",
		"",
		"}",
	}
	for _, line := range lines {
		spans, _ := e.HighlightLine([]byte(line), nil)
		checkTiling(t, spans, len(line))
	}
}

func TestChromaStylesKeywords(t *testing.T) {
	e := NewChroma("go", "monokai")

	spans, _ := e.HighlightLine([]byte("package main"), nil)
	styled := false
	for _, s := range spans {
		if s.Color != "" {
			styled = true
		}
	}
	if !styled {
		t.Errorf("expected at least one colored span, got %+v", spans)
	}
}

func TestChromaUnknownLanguageFallsBack(t *testing.T) {
	e := NewChroma("no-such-language", "monokai")

	line := []byte("just some words")
	spans, state := e.HighlightLine(line, nil)
	checkTiling(t, spans, len(line))
	if state != nil {
		t.Errorf("plain text should not carry state, got %q", state)
	}
}

func TestChromaCarryAcrossDocstring(t *testing.T) {
	e := NewChroma("python", "monokai")

	// Opening a triple-quoted string leaves a carry.
	_, open := e.HighlightLine([]byte(`x = """first`), nil)
	if open == nil {
		t.Fatal("unterminated docstring should produce a carry state")
	}

	// The interior line stays inside the string and keeps a carry.
	spans, mid := e.HighlightLine([]byte("second"), open)
	if mid == nil {
		t.Fatal("docstring interior should keep the carry state")
	}
	checkTiling(t, spans, len("second"))
	if spans[0].Color == "" {
		t.Errorf("docstring interior should be string-styled, got %+v", spans)
	}

	// The closing line terminates the string and clears the carry.
	_, closed := e.HighlightLine([]byte(`end"""`), mid)
	if closed != nil {
		t.Errorf("terminated docstring should clear the carry, got %q", closed)
	}

	// The line after the construct scans state-free again.
	_, after := e.HighlightLine([]byte("y = 1"), closed)
	if after != nil {
		t.Errorf("line after the construct should have no carry, got %q", after)
	}
}

func TestChromaIsPure(t *testing.T) {
	e := NewChroma("python", "monokai")

	line := []byte(`x = """open`)
	spans1, state1 := e.HighlightLine(line, nil)
	spans2, state2 := e.HighlightLine(line, nil)

	if len(spans1) != len(spans2) {
		t.Fatalf("span counts differ: %d vs %d", len(spans1), len(spans2))
	}
	for i := range spans1 {
		if spans1[i] != spans2[i] {
			t.Errorf("span %d differs: %+v vs %+v", i, spans1[i], spans2[i])
		}
	}
	if !StateEqual(state1, state2) {
		t.Errorf("states differ: %q vs %q", state1, state2)
	}
}

func TestStateEqual(t *testing.T) {
	tests := []struct {
		a, b State
		want bool
	}{
		{nil, nil, true},
		{nil, State(""), true},
		{State("x"), State("x"), true},
		{State("x"), State("y"), false},
		{State("x"), nil, false},
	}
	for _, tt := range tests {
		if got := StateEqual(tt.a, tt.b); got != tt.want {
			t.Errorf("StateEqual(%q, %q) got %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"main.go", "go"},
		{"script.PY", "python"},
		{"src/app.tsx", "tsx"},
		{"notes.md", "markdown"},
		{"Dockerfile", "docker"},
		{"Makefile", "make"},
		{"Gemfile", "ruby"},
		{"README", "text"},
		{"archive.tar.gz", "text"},
	}
	for _, tt := range tests {
		if got := DetectLanguage(tt.path); got != tt.want {
			t.Errorf("DetectLanguage(%q) got %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestThemePalette(t *testing.T) {
	p1 := ThemePalette("monokai")
	p2 := ThemePalette("monokai")
	if p1 != p2 {
		t.Errorf("palette must be deterministic: %+v vs %+v", p1, p2)
	}
	if p1.Bg == "" || p1.Fg == "" {
		t.Errorf("palette missing base colors: %+v", p1)
	}
	if p1.Bg == p1.Fg {
		t.Errorf("bg and fg should differ, both %q", p1.Bg)
	}
}
