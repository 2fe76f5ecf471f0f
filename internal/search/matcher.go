// SPDX-License-Identifier: MPL-2.0

package search

import (
	"bufio"
	"bytes"
	"path/filepath"
	"regexp"

	"github.com/charmbracelet/log"

	"github.com/pathscout/pathscout/internal/archive"
	"github.com/pathscout/pathscout/internal/fsys"
	"github.com/pathscout/pathscout/internal/glob"
	"github.com/pathscout/pathscout/internal/ignore"
	"github.com/pathscout/pathscout/internal/pathlist"
)

// defaultMaxDepth bounds recursive traversal; deep trees beyond it are cut
// off rather than walked to exhaustion.
const defaultMaxDepth = 16

// Matcher walks one path list and emits a match event per hit. Entries are
// visited in list order; directory contents in filesystem order.
type Matcher struct {
	FS     fsys.Filesystem
	Ignore *ignore.Registry
	Logger *log.Logger
	// Recursive walks matched directories depth-first, bounded by MaxDepth
	// (defaultMaxDepth when zero).
	Recursive bool
	MaxDepth  int
	// Grep, when set, restricts file hits to those whose content matches
	// and attaches the first matching line to the record.
	Grep *regexp.Regexp

	// missingSeen holds the canonical paths already reported as missing,
	// so a path shared by several lists warns once per run.
	missingSeen map[string]bool
}

func (m *Matcher) maxDepth() int {
	if m.MaxDepth > 0 {
		return m.MaxDepth
	}
	return defaultMaxDepth
}

// Match walks the list against the pattern and reports every hit, returning
// the number of matches emitted. Duplicate entries are skipped; the ignore
// section scopes the rules consulted for this list.
func (m *Matcher) Match(list *pathlist.List, section ignore.Section, pat *glob.Matcher, report ReportFunc) int {
	count := 0
	for _, entry := range list.Entries {
		if entry.DuplicateOf != nil {
			continue
		}
		if m.Ignore.Lookup(section, entry.CanonicalPath) {
			continue
		}
		switch entry.Kind {
		case pathlist.KindMissing:
			if !m.missingSeen[entry.CanonicalPath] {
				if m.missingSeen == nil {
					m.missingSeen = make(map[string]bool)
				}
				m.missingSeen[entry.CanonicalPath] = true
				m.Logger.Debug("path entry missing; skipped", "path", entry.CanonicalPath)
			}
		case pathlist.KindDirectory:
			count += m.matchDir(entry.CanonicalPath, entry.Origin, section, pat, report, 0)
		case pathlist.KindArchive:
			count += m.matchArchive(entry.CanonicalPath, entry.Origin, pat, report)
		}
	}
	return count
}

func (m *Matcher) matchDir(dir string, origin pathlist.Origin, section ignore.Section, pat *glob.Matcher, report ReportFunc, depth int) int {
	entries, err := m.FS.ListDir(dir)
	if err != nil {
		m.Logger.Debug("directory unreadable; skipped", "path", dir, "err", err)
		return 0
	}
	count := 0
	for _, de := range entries {
		if de.Name == "." || de.Name == ".." {
			continue
		}
		full := filepath.Join(dir, de.Name)
		if m.Ignore.Lookup(section, de.Name) || m.Ignore.Lookup(section, full) {
			continue
		}
		if pat.Match(de.Name) {
			if rec, ok := m.buildRecord(full, de, origin); ok {
				report(matchEvent(rec))
				count++
			}
		}
		if de.Kind == fsys.KindDir && m.Recursive && depth+1 < m.maxDepth() {
			count += m.matchDir(full, origin, section, pat, report, depth+1)
		}
	}
	return count
}

// buildRecord assembles the record for a directory hit, applying grep mode:
// with a content pattern set, only files whose content matches survive.
func (m *Matcher) buildRecord(full string, de fsys.DirEntry, origin pathlist.Origin) (MatchRecord, bool) {
	rec := MatchRecord{
		Path:    full,
		Size:    de.Size,
		ModTime: de.ModTime,
		Kind:    MatchFile,
		Origin:  origin,
	}
	if de.Kind == fsys.KindDir {
		rec.Kind = MatchDirectory
	}
	if m.Grep == nil {
		return rec, true
	}
	if rec.Kind != MatchFile {
		return MatchRecord{}, false
	}
	hit := m.grepFile(full)
	if hit == nil {
		return MatchRecord{}, false
	}
	rec.ContentMatch = hit
	return rec, true
}

func (m *Matcher) grepFile(path string) *ContentMatch {
	body, err := m.FS.ReadFile(path)
	if err != nil {
		m.Logger.Debug("file unreadable in grep mode; skipped", "path", path, "err", err)
		return nil
	}
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if m.Grep.Match(scanner.Bytes()) {
			return &ContentMatch{LineNumber: lineNo, Line: scanner.Text()}
		}
	}
	return nil
}

func (m *Matcher) matchArchive(archivePath string, origin pathlist.Origin, pat *glob.Matcher, report ReportFunc) int {
	if m.Grep != nil {
		// Content scanning does not descend into archives.
		return 0
	}
	entries, err := archive.List(archivePath, pat)
	if err != nil {
		m.Logger.Warn("archive unreadable; treated as empty",
			"path", archivePath, "err", err)
		return 0
	}
	count := 0
	for _, e := range entries {
		report(matchEvent(MatchRecord{
			Path:    archive.DisplayPath(archivePath, e.Name),
			Size:    e.Size,
			ModTime: e.ModTime,
			Kind:    MatchArchiveEntry,
			Origin:  origin,
		}))
		count++
	}
	return count
}
