// SPDX-License-Identifier: MPL-2.0

package fsys

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pathscout/pathscout/internal/pathlist"
)

func testCanon() *pathlist.Canonicalizer {
	return pathlist.NewCanonicalizer(pathlist.WithWorkingDir("/"))
}

func TestFakeListDirImpliesParents(t *testing.T) {
	t.Parallel()

	fake := &Fake{Files: map[string]Info{
		"/u/inc/stdio.h":     {Kind: KindFile, Size: 42},
		"/u/inc/sys/types.h": {Kind: KindFile},
	}}

	entries, err := fake.ListDir("/u/inc")
	if err != nil {
		t.Fatalf("ListDir() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("ListDir() returned %d entries, want 2", len(entries))
	}
	if got, want := entries[0].Name, "stdio.h"; got != want {
		t.Errorf("entries[0].Name = %q, want %q", got, want)
	}
	if entries[0].Kind != KindFile {
		t.Errorf("entries[0].Kind = %v, want KindFile", entries[0].Kind)
	}
	if got, want := entries[1].Name, "sys"; got != want {
		t.Errorf("entries[1].Name = %q, want %q", got, want)
	}
	if entries[1].Kind != KindDir {
		t.Errorf("entries[1].Kind = %v, want KindDir", entries[1].Kind)
	}
}

func TestFakeListDirMissing(t *testing.T) {
	t.Parallel()

	fake := &Fake{Files: map[string]Info{}}
	if _, err := fake.ListDir("/nowhere"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ListDir(missing) error = %v, want os.ErrNotExist", err)
	}
}

func TestFakeStatImpliedDirectory(t *testing.T) {
	t.Parallel()

	fake := &Fake{Files: map[string]Info{
		"/u/inc/stdio.h": {Kind: KindFile},
	}}

	info, err := fake.Stat("/u/inc")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Kind != KindDir {
		t.Errorf("Stat(implied dir).Kind = %v, want KindDir", info.Kind)
	}
	if !fake.Exists("/u/inc/stdio.h") {
		t.Error("Exists(file) = false, want true")
	}
	if fake.Exists("/u/gone") {
		t.Error("Exists(missing) = true, want false")
	}
}

func TestFakeReadFile(t *testing.T) {
	t.Parallel()

	fake := &Fake{
		Files:    map[string]Info{"/u/a.cfg": {Kind: KindFile}},
		Contents: map[string][]byte{"/u/a.cfg": []byte("-I/u/inc")},
	}

	body, err := fake.ReadFile("/u/a.cfg")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got, want := string(body), "-I/u/inc"; got != want {
		t.Errorf("ReadFile() = %q, want %q", got, want)
	}
	if _, err := fake.ReadFile("/u/gone"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadFile(missing) error = %v, want os.ErrNotExist", err)
	}
}

func TestClassifyStampsKinds(t *testing.T) {
	t.Parallel()

	fake := &Fake{Files: map[string]Info{
		"/u/inc/stdio.h": {Kind: KindFile},
		"/u/mods.zip":    {Kind: KindFile},
		"/u/plain.txt":   {Kind: KindFile},
	}}

	canon := testCanon()
	list := &pathlist.List{Owner: "test"}
	for _, raw := range []string{"/u/inc", "/u/mods.zip", "/u/gone", "/u/plain.txt"} {
		list.Append(canon, raw)
	}
	Classify(fake, list)

	want := []pathlist.EntryKind{
		pathlist.KindDirectory,
		pathlist.KindArchive,
		pathlist.KindMissing,
		pathlist.KindMissing,
	}
	for i, w := range want {
		if got := list.Entries[i].Kind; got != w {
			t.Errorf("entry %d (%s): Kind = %v, want %v", i, list.Entries[i].RawPath, got, w)
		}
	}
}

func TestOSRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "hello.txt")
	if err := os.WriteFile(file, []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	var fsx OS

	info, err := fsx.Stat(file)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Kind != KindFile || info.Size != 2 {
		t.Errorf("Stat() = %+v, want regular file of 2 bytes", info)
	}

	entries, err := fsx.ListDir(dir)
	if err != nil {
		t.Fatalf("ListDir() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "hello.txt" {
		t.Errorf("ListDir() = %+v, want single hello.txt entry", entries)
	}

	if !fsx.Exists(file) {
		t.Error("Exists(file) = false, want true")
	}
	if fsx.Exists(filepath.Join(dir, "gone")) {
		t.Error("Exists(missing) = true, want false")
	}

	body, err := fsx.ReadFile(file)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(body) != "hi" {
		t.Errorf("ReadFile() = %q, want %q", body, "hi")
	}
}
