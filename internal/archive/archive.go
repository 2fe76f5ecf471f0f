// SPDX-License-Identifier: MPL-2.0

// Package archive lists the table of contents of zip-style archives (zip,
// egg, whl, jar). Only the central directory is read; entry bodies are never
// decompressed. Interpreter module paths routinely point into such archives,
// so the matcher descends into them through this package.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/pathscout/pathscout/internal/glob"
)

// ErrMalformed is the sentinel error wrapped by MalformedError.
var ErrMalformed = errors.New("malformed archive")

// MalformedError is returned when a file cannot be opened as a zip archive.
// Callers treat the archive as empty and warn; the run continues.
type MalformedError struct {
	Path  string
	Cause error
}

// Error implements the error interface.
func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed archive %s: %v", e.Path, e.Cause)
}

// Unwrap returns ErrMalformed so callers can use errors.Is.
func (e *MalformedError) Unwrap() error { return ErrMalformed }

// Entry is one central-directory record. Name always uses forward slashes.
type Entry struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// List opens the archive read-only and returns the entries whose name or
// basename satisfies the matcher. Directory placeholder records are skipped.
// A nil matcher returns every entry.
func List(archivePath string, m *glob.Matcher) ([]Entry, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, &MalformedError{Path: archivePath, Cause: err}
	}
	defer r.Close()

	var out []Entry
	for _, f := range r.File {
		name := strings.ReplaceAll(f.Name, `\`, "/")
		if strings.HasSuffix(name, "/") {
			continue
		}
		if m != nil && !m.Match(name) && !m.Match(path.Base(name)) {
			continue
		}
		out = append(out, Entry{
			Name:    name,
			Size:    int64(f.UncompressedSize64),
			ModTime: f.Modified,
		})
	}
	return out, nil
}

// Contains reports whether the archive's central directory holds the exact
// entry name (forward-slash form).
func Contains(archivePath, name string) bool {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return false
	}
	defer r.Close()
	for _, f := range r.File {
		if strings.ReplaceAll(f.Name, `\`, "/") == name {
			return true
		}
	}
	return false
}

// DisplayPath renders an archive hit as "archive!inner", the notation used
// in reports. The archive half keeps its native separators; the inner half
// is always forward-slashed.
func DisplayPath(archivePath, inner string) string {
	return archivePath + "!" + inner
}
