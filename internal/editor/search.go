package editor

import (
	"unicode"
	"unicode/utf8"
)

// Match is one search hit as a byte range.
type Match struct {
	Start, End int
}

// Search finds every case-insensitive occurrence of query, in document
// order. An empty query matches nothing. Folding is per rune with the
// original byte offset of each rune kept alongside, so matches stay valid
// when a rune's lowercase form has a different encoded length.
func (d *Document) Search(query string) []Match {
	if query == "" {
		return nil
	}
	var needle []rune
	for _, r := range query {
		needle = append(needle, unicode.ToLower(r))
	}

	content := d.buf.Bytes()
	runes := make([]rune, 0, len(content))
	offs := make([]int, 0, len(content)+1)
	for i := 0; i < len(content); {
		r, n := utf8.DecodeRune(content[i:])
		runes = append(runes, unicode.ToLower(r))
		offs = append(offs, i)
		i += n
	}
	offs = append(offs, len(content))

	var matches []Match
	for i := 0; i+len(needle) <= len(runes); {
		if !runesEqual(runes[i:i+len(needle)], needle) {
			i++
			continue
		}
		matches = append(matches, Match{Start: offs[i], End: offs[i+len(needle)]})
		i += len(needle)
	}
	return matches
}

func runesEqual(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// NextMatch returns the first match starting at or after pos, wrapping to
// the beginning when none follows. ok is false for an empty match list.
func NextMatch(matches []Match, pos int) (Match, bool) {
	if len(matches) == 0 {
		return Match{}, false
	}
	for _, m := range matches {
		if m.Start >= pos {
			return m, true
		}
	}
	return matches[0], true
}

// PrevMatch returns the last match ending at or before pos, wrapping to the
// end when none precedes.
func PrevMatch(matches []Match, pos int) (Match, bool) {
	if len(matches) == 0 {
		return Match{}, false
	}
	for i := len(matches) - 1; i >= 0; i-- {
		if matches[i].End <= pos {
			return matches[i], true
		}
	}
	return matches[len(matches)-1], true
}
