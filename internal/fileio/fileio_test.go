package fileio

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestLoadSmallFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.txt")
	want := []byte("hello\nworld\n")
	if err := os.WriteFile(path, want, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if f.Backing != nil {
		t.Error("small file should not be mapped")
	}
	if got := bytes.Join(f.Segments, nil); !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoadLargeFileMaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "large.txt")
	line := []byte("0123456789abcdef0123456789abcde\n")
	var content []byte
	for len(content) < MmapThreshold {
		content = append(content, line...)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if f.Backing == nil {
		t.Fatal("large file should be mapped")
	}
	if got := bytes.Join(f.Segments, nil); !bytes.Equal(got, content) {
		t.Error("mapped content mismatch")
	}
	if err := f.Backing.Close(); err != nil {
		t.Errorf("close mapping: %v", err)
	}
	// Double close is harmless.
	if err := f.Backing.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}

func TestLoadRejectsInvalidUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "binary.bin")
	if err := os.WriteFile(path, []byte{0xff, 0xfe, 0x00, 0x80}, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := Load(path); !errors.Is(err, ErrEncoding) {
		t.Errorf("got %v, want ErrEncoding", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v, want ErrNotExist", err)
	}
}

func TestSaveAtomicReplacesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := SaveAtomic(path, []byte("new content")); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != "new content" {
		t.Errorf("got %q, want %q", got, "new content")
	}

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory should only hold the saved file, got %d entries", len(entries))
	}
}

func TestSaveAtomicCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.txt")
	if err := SaveAtomic(path, []byte("x")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("stat: %v", err)
	}
}

func TestSaverSerializesWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	var s Saver

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			content := bytes.Repeat([]byte{byte('a' + n)}, 64)
			if err := s.Save(path, content); err != nil {
				t.Errorf("save %d: %v", n, err)
			}
		}(i)
	}
	wg.Wait()

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	// Whatever save landed last, the file is exactly one writer's
	// snapshot, never interleaved.
	if len(got) != 64 {
		t.Fatalf("length got %d, want 64", len(got))
	}
	for _, b := range got {
		if b != got[0] {
			t.Fatalf("interleaved content: %q", got)
		}
	}
}
