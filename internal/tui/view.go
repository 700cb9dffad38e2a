package tui

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"

	"github.com/skeinedit/skein/internal/editor"
	"github.com/skeinedit/skein/internal/highlight"
)

// ---------------------------------------------------------------------------
// View
// ---------------------------------------------------------------------------

func (m Model) View() tea.View {
	v := tea.NewView(m.renderContent())
	v.AltScreen = true
	return v
}

func (m Model) renderContent() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder
	m.renderTabBar(&b)

	doc, dv := m.activeView()
	gutterW := 0
	if m.cfg.UI.LineNumbersOrDefault() && doc != nil {
		gutterW = len(fmt.Sprint(doc.LineCount())) + 1
	}
	textW := m.width - gutterW
	if textW < 1 {
		textW = 1
	}

	for row := 0; row < m.editorHeight(); row++ {
		b.WriteByte('\n')
		if doc == nil {
			b.WriteString(m.styles.BgFill.Render(strings.Repeat(" ", m.width)))
			continue
		}
		lineIdx := dv.top + row
		if lineIdx >= doc.LineCount() {
			b.WriteString(m.styles.Gutter.Render("~"))
			b.WriteString(m.styles.BgFill.Render(strings.Repeat(" ", m.width-1)))
			continue
		}
		if gutterW > 0 {
			b.WriteString(m.styles.Gutter.Render(fmt.Sprintf("%*d ", gutterW-1, lineIdx+1)))
		}
		b.WriteString(m.renderLine(doc, dv, lineIdx, textW))
	}

	b.WriteByte('\n')
	m.renderBottomBar(&b)
	return b.String()
}

// ---------------------------------------------------------------------------
// Tab bar
// ---------------------------------------------------------------------------

func (m Model) renderTabBar(b *strings.Builder) {
	active := m.tabs.Active()
	var row strings.Builder
	for _, d := range m.tabs.Documents() {
		label := " " + d.Title()
		if d.Dirty() {
			label += "*"
		}
		label += " "
		if active != nil && d.ID() == active.ID() {
			row.WriteString(m.styles.TabActive.Render(label))
		} else {
			row.WriteString(m.styles.TabIdle.Render(label))
		}
		row.WriteString(m.styles.Border.Render("│"))
	}
	line := row.String()
	lw := lipgloss.Width(line)
	if lw > m.width {
		line = ansi.Truncate(line, m.width, "")
		lw = lipgloss.Width(line)
	}
	b.WriteString(line)
	if lw < m.width {
		b.WriteString(m.styles.BgFill.Render(strings.Repeat(" ", m.width-lw)))
	}
}

// ---------------------------------------------------------------------------
// Editor lines
// ---------------------------------------------------------------------------

// renderLine composites one buffer line: syntax spans under a selection
// overlay under the cursor cell. All offsets are byte positions within the
// line; cut points split it into uniformly styled segments.
func (m Model) renderLine(doc *editor.Document, dv *docView, lineIdx, width int) string {
	line, err := doc.Line(lineIdx)
	if err != nil {
		return m.styles.BgFill.Render(strings.Repeat(" ", width))
	}
	lineStart, lineEnd, _ := doc.LineRange(lineIdx)
	spans, _ := dv.coord.SpansFor(lineIdx)

	selA, selB := -1, -1
	if s, e, ok := doc.Selection(); ok && s <= lineEnd && e > lineStart {
		selA = max(s-lineStart, 0)
		selB = min(e-lineStart, len(line))
	}

	curA, curB := -1, -1
	cursorAtEOL := false
	if c := doc.Cursor(); c >= lineStart && c <= lineEnd {
		curA = c - lineStart
		if curA == len(line) {
			cursorAtEOL = true
		} else {
			_, size := utf8.DecodeRune(line[curA:])
			curB = curA + size
		}
	}

	cuts := []int{0, len(line)}
	for _, sp := range spans {
		cuts = append(cuts, clampCut(sp.Start, len(line)), clampCut(sp.End, len(line)))
	}
	if selA >= 0 {
		cuts = append(cuts, selA, selB)
	}
	if curB > 0 {
		cuts = append(cuts, curA, curB)
	}
	sort.Ints(cuts)

	tab := strings.Repeat(" ", m.cfg.UI.TabWidthOrDefault())
	var b strings.Builder
	for i := 1; i < len(cuts); i++ {
		a, z := cuts[i-1], cuts[i]
		if a == z {
			continue
		}
		text := strings.ReplaceAll(string(line[a:z]), "\t", tab)
		b.WriteString(m.segmentStyle(a, spans, selA, selB, curA, curB).Render(text))
	}
	if cursorAtEOL {
		b.WriteString(m.styles.Cursor.Render(" "))
	}

	out := b.String()
	ow := lipgloss.Width(out)
	if ow > width {
		out = ansi.Truncate(out, width, "")
		ow = lipgloss.Width(out)
	}
	if ow < width {
		out += m.styles.BgFill.Render(strings.Repeat(" ", width-ow))
	}
	return out
}

// segmentStyle resolves the style for the segment starting at byte a.
// Cursor wins over selection wins over syntax.
func (m Model) segmentStyle(a int, spans []highlight.Span, selA, selB, curA, curB int) lipgloss.Style {
	if curB > 0 && a >= curA && a < curB {
		return m.styles.Cursor
	}
	if selA >= 0 && a >= selA && a < selB {
		return m.styles.Selection
	}
	for _, sp := range spans {
		if sp.Start <= a && a < sp.End {
			return m.styles.spanStyle(sp, m.palette.Fg)
		}
	}
	return m.styles.Text
}

func clampCut(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}

// ---------------------------------------------------------------------------
// Bottom bar (status or prompt)
// ---------------------------------------------------------------------------

func (m Model) renderBottomBar(b *strings.Builder) {
	if m.prompt.kind != promptNone {
		m.renderPromptBar(b)
		return
	}

	doc, _ := m.activeView()
	left := ""
	sty := m.styles.Status
	switch {
	case strings.HasPrefix(m.status, "error:"):
		left = m.status
		sty = m.styles.StatusErr
	case m.status != "":
		left = m.status
	case doc != nil:
		left = doc.Title()
		if doc.Dirty() {
			left += " [+]"
		}
	}

	right := ""
	if doc != nil {
		row, col := lineCol(doc)
		right = fmt.Sprintf("%s  %d:%d", highlight.DetectLanguage(doc.Path()), row+1, col+1)
	}
	if m.scanning {
		right = strings.TrimSpace(m.spinner.View()) + " " + right
	}

	pad := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	line := left + strings.Repeat(" ", max(pad, 1)) + right
	if lipgloss.Width(line) > m.width {
		line = ansi.Truncate(line, m.width, "")
	}
	b.WriteString(sty.Render(line))
}

func (m Model) renderPromptBar(b *strings.Builder) {
	label := ""
	switch m.prompt.kind {
	case promptSearch:
		label = "find: "
	case promptOpen:
		label = "open: "
	case promptSaveAs:
		label = "save as: "
	}
	line := label + m.prompt.input
	b.WriteString(m.styles.Prompt.Render(line))
	b.WriteString(m.styles.Cursor.Render(" "))
	fill := m.width - lipgloss.Width(line) - 1
	if fill > 0 {
		b.WriteString(m.styles.BgFill.Render(strings.Repeat(" ", fill)))
	}
}
