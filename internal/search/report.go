// SPDX-License-Identifier: MPL-2.0

// Package search walks discovered path lists against the user's pattern and
// drives a whole query end to end: ignore rules, cache, probes, matching,
// reporting.
package search

import (
	"time"

	"github.com/pathscout/pathscout/internal/pathlist"
)

// MatchKind classifies one hit.
type MatchKind int

const (
	// MatchFile is a regular file inside a searched directory.
	MatchFile MatchKind = iota
	// MatchDirectory is a directory whose own name matched.
	MatchDirectory
	// MatchArchiveEntry is a member of a searched archive.
	MatchArchiveEntry
)

// String names the kind for logs and tests.
func (k MatchKind) String() string {
	switch k {
	case MatchFile:
		return "file"
	case MatchDirectory:
		return "directory"
	case MatchArchiveEntry:
		return "archive-entry"
	default:
		return "unknown"
	}
}

type (
	// ContentMatch describes the first grep hit inside a matched file.
	ContentMatch struct {
		LineNumber int
		Line       string
	}

	// MatchRecord is one hit handed to the reporting callback. For archive
	// members Path is rendered "archive!inner" with the inner name
	// forward-slashed.
	MatchRecord struct {
		Path    string
		Size    int64
		ModTime time.Time
		Kind    MatchKind
		Origin  pathlist.Origin
		// ContentMatch is set only in grep mode.
		ContentMatch *ContentMatch
	}

	// Event is the tagged union delivered to the reporting callback: a
	// section header announcing the next path list, or a match.
	Event struct {
		// Title is non-empty for section headers and empty for matches.
		Title string
		Match MatchRecord
	}

	// ReportFunc receives every event of a run, in emission order: headers
	// before their matches, lists in driver scheduling order, directory
	// contents in filesystem order.
	ReportFunc func(Event)
)

// IsHeader reports whether the event is a section header.
func (e Event) IsHeader() bool { return e.Title != "" }

// headerEvent builds a section-header event.
func headerEvent(title string) Event { return Event{Title: title} }

// matchEvent builds a match event.
func matchEvent(rec MatchRecord) Event { return Event{Match: rec} }
