package pathfind

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ignoreList evaluates gitignore rules in file order; the last matching
// rule wins, as git does it.
type ignoreList struct {
	rules []ignoreRule
}

type ignoreRule struct {
	re      *regexp.Regexp
	negate  bool
	dirOnly bool
}

// loadIgnoreList parses a .gitignore file. A missing or unreadable file
// yields an empty list, which matches nothing.
func loadIgnoreList(path string) *ignoreList {
	list := &ignoreList{}
	f, err := os.Open(path)
	if err != nil {
		return list
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if rule, ok := parseRule(line); ok {
			list.rules = append(list.rules, rule)
		}
	}
	return list
}

func (l *ignoreList) matches(rel string, isDir bool) bool {
	if l == nil || len(l.rules) == 0 {
		return false
	}
	rel = filepath.ToSlash(rel)
	ignored := false
	for _, r := range l.rules {
		target := rel
		if r.dirOnly && !isDir {
			// A dir-only rule still covers files inside that directory.
			target = parentDir(rel)
		}
		if r.re.MatchString(target) {
			ignored = !r.negate
		}
	}
	return ignored
}

func parentDir(rel string) string {
	i := strings.LastIndexByte(rel, '/')
	if i < 0 {
		return ""
	}
	return rel[:i]
}

func parseRule(line string) (ignoreRule, bool) {
	var rule ignoreRule
	if strings.HasPrefix(line, "!") {
		rule.negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		rule.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	re, err := regexp.Compile(globToRegex(line))
	if err != nil {
		return ignoreRule{}, false
	}
	rule.re = re
	return rule, true
}

// globToRegex translates one gitignore glob into an anchored regexp.
// Patterns with a leading slash match from the root only; everything else
// matches at any depth. A match also covers everything under the matched
// path.
func globToRegex(pattern string) string {
	var b strings.Builder
	if strings.HasPrefix(pattern, "/") {
		b.WriteString("^")
		pattern = pattern[1:]
	} else {
		b.WriteString("(^|/)")
	}

	for i := 0; i < len(pattern); {
		switch c := pattern[i]; c {
		case '*':
			switch {
			case strings.HasPrefix(pattern[i:], "**/"):
				b.WriteString("(.*/)?")
				i += 3
			case strings.HasPrefix(pattern[i:], "**"):
				b.WriteString(".*")
				i += 2
			default:
				b.WriteString("[^/]*")
				i++
			}
		case '?':
			b.WriteString("[^/]")
			i++
		case '[':
			end := strings.IndexByte(pattern[i:], ']')
			if end < 0 {
				b.WriteString("\\[")
				i++
				break
			}
			b.WriteString(pattern[i : i+end+1])
			i += end + 1
		case '\\':
			if i+1 < len(pattern) {
				b.WriteByte('\\')
				b.WriteByte(pattern[i+1])
				i += 2
				break
			}
			b.WriteString("\\\\")
			i++
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
			i++
		}
	}

	b.WriteString("(/.*)?$")
	return b.String()
}
