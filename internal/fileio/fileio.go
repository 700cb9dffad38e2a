// Package fileio loads and saves document files. Large files are memory
// mapped and handed to the rope as copy-on-write segments; edits never
// write through to the mapping, so the pages stay clean until the mapping
// is released on close.
package fileio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"unicode/utf8"

	"golang.org/x/sys/unix"
)

// ErrEncoding is returned when a file is not valid UTF-8.
var ErrEncoding = errors.New("file is not valid UTF-8")

// MmapThreshold is the size at or above which Load maps the file instead
// of reading it into the heap.
const MmapThreshold = 1 << 20

// File is loaded document content. Segments alias the mapping when one
// exists; the caller owns Backing and must Close it when the document
// closes.
type File struct {
	Path     string
	Segments [][]byte
	Backing  io.Closer // nil when the content was read into the heap
}

type mapping struct {
	data []byte
}

func (m *mapping) Close() error {
	if m.data == nil {
		return nil
	}
	data := m.data
	m.data = nil
	return unix.Munmap(data)
}

// Load reads a file for editing. Content below MmapThreshold is read into
// memory; larger files are mapped read-only. Either way the content is
// validated as UTF-8 before a document is built from it.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	size := info.Size()

	if size < MmapThreshold {
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("load %s: %w", path, ErrEncoding)
		}
		return &File{Path: path, Segments: [][]byte{data}}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		unix.Munmap(data)
		return nil, fmt.Errorf("load %s: %w", path, ErrEncoding)
	}
	return &File{Path: path, Segments: [][]byte{data}, Backing: &mapping{data: data}}, nil
}

// SaveAtomic writes content to path through a temporary file in the same
// directory followed by a rename, so a crash mid-write never truncates the
// original.
func SaveAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}

// Saver serializes saves. A save requested while another is writing waits
// its turn instead of racing it; each save writes the snapshot it was
// handed, so the later request wins the final content on disk.
type Saver struct {
	mu sync.Mutex
}

// Save writes one snapshot atomically, one writer at a time.
func (s *Saver) Save(path string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SaveAtomic(path, content)
}
