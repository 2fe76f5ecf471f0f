// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pathscout/pathscout/internal/glob"
)

// writeTestEgg creates a small egg-shaped archive and returns its path.
func writeTestEgg(t *testing.T, entries map[string]string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "pkg.egg")
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	zw := zip.NewWriter(f)
	for name, body := range entries {
		h := &zip.FileHeader{Name: name, Method: zip.Deflate}
		h.Modified = time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC)
		w, err := zw.CreateHeader(h)
		if err != nil {
			t.Fatalf("create entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("write entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return p
}

func TestListMatchesNameAndBasename(t *testing.T) {
	t.Parallel()

	egg := writeTestEgg(t, map[string]string{
		"pkg/__init__.py":   "print('hi')",
		"pkg/mod.py":        "x = 1",
		"EGG-INFO/PKG-INFO": "Name: pkg",
	})

	m, err := glob.New("__init__.py", glob.Config{CaseFold: true})
	if err != nil {
		t.Fatalf("glob.New: %v", err)
	}
	got, err := List(egg, m)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("List returned %d entries, want 1: %v", len(got), got)
	}
	e := got[0]
	if e.Name != "pkg/__init__.py" {
		t.Errorf("entry name = %q", e.Name)
	}
	if e.Size != int64(len("print('hi')")) {
		t.Errorf("entry size = %d", e.Size)
	}
	if e.ModTime.IsZero() {
		t.Errorf("entry mtime is zero")
	}
}

func TestListNilMatcherReturnsAll(t *testing.T) {
	t.Parallel()

	egg := writeTestEgg(t, map[string]string{
		"a.py": "1",
		"b.py": "2",
	})
	got, err := List(egg, nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("List returned %d entries, want 2", len(got))
	}
}

func TestListEmptyArchive(t *testing.T) {
	t.Parallel()

	egg := writeTestEgg(t, nil)
	got, err := List(egg, nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("empty archive produced %d entries", len(got))
	}
}

func TestListMalformed(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "broken.zip")
	if err := os.WriteFile(p, []byte("this is not a zip"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := List(p, nil)
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("List error = %v, want ErrMalformed", err)
	}
}

func TestContains(t *testing.T) {
	t.Parallel()

	egg := writeTestEgg(t, map[string]string{"pkg/__init__.py": ""})
	if !Contains(egg, "pkg/__init__.py") {
		t.Errorf("Contains() = false for present entry")
	}
	if Contains(egg, "pkg/missing.py") {
		t.Errorf("Contains() = true for absent entry")
	}
}

func TestDisplayPath(t *testing.T) {
	t.Parallel()

	got := DisplayPath(filepath.FromSlash("/site/pkg.egg"), "pkg/__init__.py")
	want := filepath.FromSlash("/site/pkg.egg") + "!pkg/__init__.py"
	if got != want {
		t.Errorf("DisplayPath() = %q, want %q", got, want)
	}
}
