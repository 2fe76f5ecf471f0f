// SPDX-License-Identifier: MPL-2.0

package pathlist

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func testCanonicalizer(t *testing.T, caseFold bool) *Canonicalizer {
	t.Helper()
	return NewCanonicalizer(
		WithWorkingDir(filepath.FromSlash("/work")),
		WithCaseFolding(caseFold),
		WithGetenv(func(name string) string {
			switch name {
			case "ROOT":
				return filepath.FromSlash("/opt/root")
			default:
				return ""
			}
		}),
	)
}

func TestCanonicalizeIdempotent(t *testing.T) {
	t.Parallel()

	c := testCanonicalizer(t, false)
	inputs := []string{
		"/usr/include",
		"relative/dir",
		"/a/b/../c/./d",
		"$ROOT/lib",
		"%ROOT%/share",
	}
	for _, in := range inputs {
		once := c.Canonicalize(in)
		twice := c.Canonicalize(once)
		if once != twice {
			t.Errorf("Canonicalize(%q): not idempotent: %q then %q", in, once, twice)
		}
	}
}

func TestCanonicalizeExpandsAndCleans(t *testing.T) {
	t.Parallel()

	c := testCanonicalizer(t, false)

	got := c.Canonicalize("$ROOT/lib/../include")
	want := filepath.FromSlash("/opt/root/include")
	if got != want {
		t.Errorf("Canonicalize() = %q, want %q", got, want)
	}

	got = c.Canonicalize("sub/dir")
	want = filepath.FromSlash("/work/sub/dir")
	if got != want {
		t.Errorf("Canonicalize(relative) = %q, want %q", got, want)
	}
}

func TestLowerDrive(t *testing.T) {
	t.Parallel()

	if got := lowerDrive(`C:\MinGW\bin`); got != `c:\MinGW\bin` {
		t.Errorf("lowerDrive() = %q", got)
	}
	if got := lowerDrive("/usr/lib"); got != "/usr/lib" {
		t.Errorf("lowerDrive() changed a rooted path: %q", got)
	}
}

func TestDedupMarksLaterDuplicates(t *testing.T) {
	t.Parallel()

	c := testCanonicalizer(t, false)
	l := &List{Owner: "gcc includes"}
	l.Append(c, "/u/inc/a")
	l.Append(c, "/u/inc/b")
	l.Append(c, "/u/inc/a")
	l.Dedup(c)

	if l.Entries[0].DuplicateOf != nil || l.Entries[1].DuplicateOf != nil {
		t.Fatalf("first occurrences must not be marked")
	}
	if l.Entries[2].DuplicateOf == nil || *l.Entries[2].DuplicateOf != 0 {
		t.Fatalf("third entry should duplicate ordinal 0, got %v", l.Entries[2].DuplicateOf)
	}

	compact := l.Compact()
	if compact.Len() != 2 {
		t.Fatalf("Compact() length = %d, want 2", compact.Len())
	}
	// Compaction is stable and restamps ordinals.
	for i, e := range compact.Entries {
		if e.Origin.Ordinal != i {
			t.Errorf("entry %d ordinal = %d", i, e.Origin.Ordinal)
		}
	}
	if !strings.HasSuffix(compact.Entries[0].CanonicalPath, "a") ||
		!strings.HasSuffix(compact.Entries[1].CanonicalPath, "b") {
		t.Errorf("Compact() changed order: %v", compact.Entries)
	}
}

func TestDedupCaseInsensitive(t *testing.T) {
	t.Parallel()

	c := testCanonicalizer(t, true)
	l := &List{Owner: "INCLUDE"}
	l.Append(c, `C:\Foo\Bar`)
	l.Append(c, `c:\foo\bar`)
	l.Dedup(c)

	compact := l.Compact()
	if compact.Len() != 1 {
		t.Fatalf("Compact() length = %d, want 1", compact.Len())
	}
}

func TestDedupUniqueCanonicalKeysAfterCompaction(t *testing.T) {
	t.Parallel()

	c := testCanonicalizer(t, false)
	l := &List{Owner: "mixed"}
	for _, p := range []string{"/a", "/b", "/a/../a", "/b", "/c"} {
		l.Append(c, p)
	}
	l.Dedup(c)
	compact := l.Compact()

	seen := make(map[string]bool)
	for _, e := range compact.Entries {
		key := c.CompareKey(e.CanonicalPath)
		if seen[key] {
			t.Fatalf("duplicate canonical key %q survived compaction", key)
		}
		seen[key] = true
	}
	if compact.Len() != 3 {
		t.Errorf("Compact() length = %d, want 3", compact.Len())
	}
}

func TestFromEnvList(t *testing.T) {
	t.Parallel()

	c := testCanonicalizer(t, false)
	sep := string(filepath.ListSeparator)
	l := FromEnvList(c, "PATH", "/bin"+sep+sep+"/usr/bin")
	if l.Len() != 2 {
		t.Fatalf("FromEnvList() length = %d, want 2", l.Len())
	}
	if l.Entries[1].Origin.List != "PATH" || l.Entries[1].Origin.Ordinal != 1 {
		t.Errorf("origin = %v", l.Entries[1].Origin)
	}
}

func TestIsArchivePath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		path string
		want bool
	}{
		{"pkg.egg", true},
		{"wheel.WHL", true},
		{"lib.zip", true},
		{"app.jar", true},
		{"dir", false},
		{"script.py", false},
	}
	for _, tc := range cases {
		if got := IsArchivePath(tc.path); got != tc.want {
			t.Errorf("IsArchivePath(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestIsCWD(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("fixture paths are unix-shaped")
	}
	c := testCanonicalizer(t, false)
	if !c.IsCWD(c.Canonicalize(".")) {
		t.Errorf("IsCWD(canonical \".\") = false")
	}
	if c.IsCWD(c.Canonicalize("/elsewhere")) {
		t.Errorf("IsCWD(/elsewhere) = true")
	}
}
