// SPDX-License-Identifier: MPL-2.0

package pathlist

import (
	"fmt"
	"path/filepath"
	"strings"
)

// EntryKind classifies a path entry by what the filesystem says it is.
type EntryKind int

const (
	// KindMissing marks an entry whose path does not exist.
	KindMissing EntryKind = iota
	// KindDirectory marks an entry that is a directory.
	KindDirectory
	// KindArchive marks an entry that is a zip-style archive file.
	KindArchive
)

// String returns a human-readable kind name.
func (k EntryKind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindDirectory:
		return "directory"
	case KindArchive:
		return "archive"
	default:
		return "unknown"
	}
}

// archiveExtensions are the file suffixes treated as searchable archives.
var archiveExtensions = []string{".zip", ".egg", ".whl", ".jar"}

// IsArchivePath reports whether the path names a zip-style archive by
// extension. The check is case-insensitive.
func IsArchivePath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, a := range archiveExtensions {
		if ext == a {
			return true
		}
	}
	return false
}

type (
	// Origin identifies the source list an entry belongs to and its position
	// in that list. It travels with every match record so the report can say
	// which path list (and which slot in it) produced a hit.
	Origin struct {
		// List names the producing list, e.g. "gcc includes" or "PATH".
		List string
		// Ordinal is the zero-based position within the list.
		Ordinal int
	}

	// Entry is one element of a search path.
	Entry struct {
		// Kind is the filesystem classification of the entry.
		Kind EntryKind
		// RawPath is the path exactly as received from its source.
		RawPath string
		// CanonicalPath is RawPath after expansion and normalization.
		CanonicalPath string
		// Origin records the producing list and the entry's slot in it.
		Origin Origin
		// IsCWD is true when CanonicalPath equals the process working directory.
		IsCWD bool
		// DuplicateOf, when non-nil, is the ordinal of the earlier entry in the
		// same list that shares this entry's canonical path.
		DuplicateOf *int
	}

	// List is an ordered sequence of entries belonging to one owner.
	List struct {
		// Owner identifies who produced the list: a compiler or interpreter
		// identifier, or an environment-variable name.
		Owner string
		// Entries are in source order. After Dedup, no two entries with a nil
		// DuplicateOf share a canonical comparison key.
		Entries []Entry
	}
)

// String renders the origin as "list[ordinal]".
func (o Origin) String() string {
	return fmt.Sprintf("%s[%d]", o.List, o.Ordinal)
}

// Append adds a raw path to the list, canonicalizing it with c and stamping
// its origin ordinal. The entry kind is left as KindMissing; callers classify
// entries against the filesystem once the list is assembled.
func (l *List) Append(c *Canonicalizer, raw string) {
	canon := c.Canonicalize(raw)
	l.Entries = append(l.Entries, Entry{
		Kind:          KindMissing,
		RawPath:       raw,
		CanonicalPath: canon,
		Origin:        Origin{List: l.Owner, Ordinal: len(l.Entries)},
		IsCWD:         c.IsCWD(canon),
	})
}

// Len returns the number of entries, duplicates included.
func (l *List) Len() int { return len(l.Entries) }

// FromEnvList builds a list by splitting an os.PathListSeparator-delimited
// value, the shape of PATH, INCLUDE and LIB. Empty components are dropped.
func FromEnvList(c *Canonicalizer, owner, value string) *List {
	l := &List{Owner: owner}
	for _, part := range filepath.SplitList(value) {
		if strings.TrimSpace(part) == "" {
			continue
		}
		l.Append(c, part)
	}
	return l
}
