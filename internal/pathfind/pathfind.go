// Package pathfind resolves loosely typed file names to workspace paths.
// The open prompt feeds it whatever the user typed; it walks the tree,
// skips ignored files and ranks candidates by fuzzy match quality.
package pathfind

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Match is one ranked candidate path.
type Match struct {
	Path  string // relative to the search root
	Score int
}

const maxCandidateSize = 10 * 1024 * 1024 // skip blobs that are clearly not source

// Finder walks a root directory and ranks files against typed patterns.
type Finder struct {
	root   string
	ignore *ignoreList
}

// NewFinder builds a finder rooted at dir, honoring dir/.gitignore when
// present.
func NewFinder(dir string) *Finder {
	return &Finder{
		root:   dir,
		ignore: loadIgnoreList(filepath.Join(dir, ".gitignore")),
	}
}

// Find returns up to limit files under the root whose relative path fuzzily
// matches pattern, best match first. A limit of 0 means no cap.
func (f *Finder) Find(ctx context.Context, pattern string, limit int) ([]Match, error) {
	pattern = strings.ToLower(pattern)
	var matches []Match

	err := filepath.WalkDir(f.root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" || f.ignore.matches(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if f.ignore.matches(rel, false) {
			return nil
		}
		if info, err := d.Info(); err != nil || info.Size() > maxCandidateSize {
			return nil
		}
		if score, ok := fuzzyScore(pattern, rel); ok {
			matches = append(matches, Match{Path: rel, Score: score})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Rank scores a known set of paths against pattern without walking the
// filesystem, best match first. Paths that do not match are dropped.
func Rank(pattern string, paths []string) []Match {
	pattern = strings.ToLower(pattern)
	var matches []Match
	for _, p := range paths {
		if score, ok := fuzzyScore(pattern, p); ok {
			matches = append(matches, Match{Path: p, Score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	return matches
}

// fuzzyScore matches pattern as a case-insensitive subsequence of the
// relative path. Runs of consecutive matched characters and hits inside the
// base name score higher; long paths score lower, so "config" finds
// config.go before a deep vendor copy.
func fuzzyScore(pattern, path string) (int, bool) {
	if pattern == "" {
		return 0, true
	}
	lower := strings.ToLower(filepath.ToSlash(path))
	baseStart := strings.LastIndexByte(lower, '/') + 1

	score := 0
	run := 0
	pi := 0
	for i := 0; i < len(lower) && pi < len(pattern); i++ {
		if lower[i] != pattern[pi] {
			run = 0
			continue
		}
		pi++
		run++
		score += run
		if i >= baseStart {
			score += 2
		}
	}
	if pi < len(pattern) {
		return 0, false
	}
	return score - len(lower)/4, true
}
