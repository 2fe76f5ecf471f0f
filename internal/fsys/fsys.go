// SPDX-License-Identifier: MPL-2.0

// Package fsys defines the filesystem surface the search core depends on and
// the OS-backed implementation of it. Probes and the matcher accept the
// interface so tests can substitute fixtures without touching the disk.
package fsys

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pathscout/pathscout/internal/pathlist"
)

// FileKind classifies a stat result.
type FileKind int

const (
	// KindFile is a regular file.
	KindFile FileKind = iota
	// KindDir is a directory.
	KindDir
	// KindOther is anything else (device, socket, symlink target gone).
	KindOther
)

type (
	// DirEntry is one directory-listing record.
	DirEntry struct {
		Name    string
		Kind    FileKind
		Size    int64
		ModTime time.Time
	}

	// Info is a stat result.
	Info struct {
		Kind    FileKind
		Size    int64
		ModTime time.Time
	}

	// Filesystem is the read-only view the core needs. Implementations
	// return entries in whatever order the underlying store yields them;
	// the matcher must not impose its own ordering.
	Filesystem interface {
		// ListDir enumerates the immediate children of path.
		ListDir(path string) ([]DirEntry, error)
		// Stat describes a single path.
		Stat(path string) (Info, error)
		// Exists reports whether the path names anything at all.
		Exists(path string) bool
		// Getwd returns the process working directory.
		Getwd() (string, error)
		// ReadFile returns the full contents of a regular file. Used for
		// toolchain configuration files and content-grep mode.
		ReadFile(path string) ([]byte, error)
	}
)

// OS is the production Filesystem backed by the os package.
type OS struct{}

// ListDir implements Filesystem.
func (OS) ListDir(path string) ([]DirEntry, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	out := make([]DirEntry, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			// Entry vanished between readdir and stat; skip it.
			continue
		}
		out = append(out, DirEntry{
			Name:    e.Name(),
			Kind:    kindOf(info.Mode()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return out, nil
}

// Stat implements Filesystem.
func (OS) Stat(path string) (Info, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Info{}, err
	}
	return Info{Kind: kindOf(info.Mode()), Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Exists implements Filesystem.
func (OS) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Getwd implements Filesystem.
func (OS) Getwd() (string, error) { return os.Getwd() }

// ReadFile implements Filesystem.
func (OS) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

func kindOf(mode fs.FileMode) FileKind {
	switch {
	case mode.IsRegular():
		return KindFile
	case mode.IsDir():
		return KindDir
	default:
		return KindOther
	}
}

// Classify stamps each entry of the list with its filesystem kind: archive
// file, directory, or missing. Anything else (regular non-archive file,
// device) is treated as missing for search purposes.
func Classify(fsx Filesystem, list *pathlist.List) {
	for i := range list.Entries {
		e := &list.Entries[i]
		info, err := fsx.Stat(e.CanonicalPath)
		switch {
		case err != nil:
			e.Kind = pathlist.KindMissing
		case info.Kind == KindDir:
			e.Kind = pathlist.KindDirectory
		case info.Kind == KindFile && pathlist.IsArchivePath(e.CanonicalPath):
			e.Kind = pathlist.KindArchive
		default:
			e.Kind = pathlist.KindMissing
		}
	}
}

// Fake is an in-memory Filesystem for tests. Populate Files with full paths
// (slash-separated) mapped to their Info; directories are implied by their
// children but may also be listed explicitly. Contents, when set, backs
// ReadFile for the same keys.
type Fake struct {
	Files    map[string]Info
	Contents map[string][]byte
	Cwd      string
}

// ListDir implements Filesystem over the fixture map. Children are returned
// in sorted order to keep tests deterministic.
func (f *Fake) ListDir(path string) ([]DirEntry, error) {
	prefix := filepath.ToSlash(filepath.Clean(path)) + "/"
	seen := map[string]DirEntry{}
	for p, info := range f.Files {
		p = filepath.ToSlash(p)
		if len(p) <= len(prefix) || p[:len(prefix)] != prefix {
			continue
		}
		rest := p[len(prefix):]
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			seen[rest[:i]] = DirEntry{Name: rest[:i], Kind: KindDir}
			continue
		}
		seen[rest] = DirEntry{Name: rest, Kind: info.Kind, Size: info.Size, ModTime: info.ModTime}
	}
	if len(seen) == 0 && !f.Exists(path) {
		return nil, os.ErrNotExist
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]DirEntry, 0, len(names))
	for _, n := range names {
		out = append(out, seen[n])
	}
	return out, nil
}

// Stat implements Filesystem over the fixture map.
func (f *Fake) Stat(path string) (Info, error) {
	p := filepath.ToSlash(filepath.Clean(path))
	if info, ok := f.Files[p]; ok {
		return info, nil
	}
	// Implied directory?
	prefix := p + "/"
	for q := range f.Files {
		if len(q) > len(prefix) && filepath.ToSlash(q)[:len(prefix)] == prefix {
			return Info{Kind: KindDir}, nil
		}
	}
	return Info{}, os.ErrNotExist
}

// Exists implements Filesystem.
func (f *Fake) Exists(path string) bool {
	_, err := f.Stat(path)
	return err == nil
}

// Getwd implements Filesystem.
func (f *Fake) Getwd() (string, error) {
	if f.Cwd == "" {
		return "/", nil
	}
	return f.Cwd, nil
}

// ReadFile implements Filesystem.
func (f *Fake) ReadFile(path string) ([]byte, error) {
	p := filepath.ToSlash(filepath.Clean(path))
	if body, ok := f.Contents[p]; ok {
		return body, nil
	}
	if _, ok := f.Files[p]; ok {
		return nil, nil
	}
	return nil, os.ErrNotExist
}
