package editor

import (
	"fmt"
	"strings"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
)

// DiffSinceSave returns a unified diff of the changes since the last save
// point, or an empty string for a clean document.
func (d *Document) DiffSinceSave() string {
	before := string(d.saved)
	after := string(d.buf.Bytes())
	if before == after {
		return ""
	}
	name := d.path
	if name == "" {
		name = d.title
	}
	edits := myers.ComputeEdits(span.URIFromPath(name), before, after)
	return fmt.Sprint(gotextdiff.ToUnified(name, name, before, edits))
}

// DiffStat summarizes the unsaved changes as added and removed line counts.
func (d *Document) DiffStat() (added, removed int) {
	for _, line := range strings.Split(d.DiffSinceSave(), "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			added++
		case strings.HasPrefix(line, "-"):
			removed++
		}
	}
	return added, removed
}
