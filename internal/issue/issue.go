// SPDX-License-Identifier: MPL-2.0

// Package issue names the recoverable failure classes of a search run and
// attaches user-facing guidance to them. All classes except PatternSyntax
// are recovered locally: the run continues and returns its best-effort match
// set.
package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

// Kind identifies a failure class from the error taxonomy.
type Kind int

const (
	// ConfigMalformed: a line in the ignore or cache file does not parse.
	ConfigMalformed Kind = iota + 1
	// MissingEnvVar: a probe depends on an environment variable that is unset.
	MissingEnvVar
	// SpawnFailed: a probe child failed to start or timed out.
	SpawnFailed
	// ProbeCrash: a probe child produced a runtime-error signature.
	ProbeCrash
	// ArchiveMalformed: an archive could not be opened; treated as empty.
	ArchiveMalformed
	// CacheStale: a cached path no longer exists; entry deleted, live probe follows.
	CacheStale
	// PatternSyntax: the user's glob is ill-formed. Aborts the run.
	PatternSyntax
	// HostMismatch: embedded interpreter bitness disagrees with the host.
	HostMismatch
)

// String returns the taxonomy name of the kind.
func (k Kind) String() string {
	switch k {
	case ConfigMalformed:
		return "ConfigMalformed"
	case MissingEnvVar:
		return "MissingEnvVar"
	case SpawnFailed:
		return "SpawnFailed"
	case ProbeCrash:
		return "ProbeCrash"
	case ArchiveMalformed:
		return "ArchiveMalformed"
	case CacheStale:
		return "CacheStale"
	case PatternSyntax:
		return "PatternSyntax"
	case HostMismatch:
		return "HostMismatch"
	default:
		return "Unknown"
	}
}

// Fatal reports whether the kind aborts the run instead of degrading it.
func (k Kind) Fatal() bool { return k == PatternSyntax }

// MarkdownMsg is a markdown-bodied explanation shown for an issue.
type MarkdownMsg string

// Issue pairs a failure class with rendered guidance.
type Issue struct {
	kind  Kind
	mdMsg MarkdownMsg
	hints []string
}

// Kind returns the issue's failure class.
func (i *Issue) Kind() Kind { return i.kind }

// MarkdownMsg returns the raw markdown body.
func (i *Issue) MarkdownMsg() MarkdownMsg { return i.mdMsg }

// Hints returns a copy of the remediation hints.
func (i *Issue) Hints() []string { return slices.Clone(i.hints) }

// render is swapped out by tests.
var render = glamour.Render

// Render produces the terminal-ready form of the issue body.
func (i *Issue) Render(stylePath string) (string, error) {
	md := string(i.mdMsg)
	if len(i.hints) > 0 {
		md += "\n"
		for _, h := range i.hints {
			md += "\n- " + h
		}
	}
	return render(md, stylePath)
}

// catalog holds the guidance shown per kind. Brief on purpose; the
// ActionableError carrying the issue supplies the specifics.
var catalog = map[Kind]*Issue{
	ConfigMalformed: {
		kind:  ConfigMalformed,
		mdMsg: "A configuration line could not be parsed and was skipped.",
		hints: []string{"Check the ignore file for unbalanced quotes or missing '='."},
	},
	MissingEnvVar: {
		kind:  MissingEnvVar,
		mdMsg: "A probe needed an environment variable that is not set; its path list is empty.",
		hints: []string{"Run the toolchain's environment setup script first (e.g. vcvarsall.bat)."},
	},
	SpawnFailed: {
		kind:  SpawnFailed,
		mdMsg: "A compiler or interpreter probe failed to start or timed out.",
		hints: []string{"Verify the executable still exists on PATH.", "Re-run with --verbose to see the probe command line."},
	},
	ProbeCrash: {
		kind:  ProbeCrash,
		mdMsg: "An interpreter crashed while reporting its module search path.",
		hints: []string{"Run the interpreter by hand to reproduce the crash.", "Suppress it with an ignore rule if it is broken beyond repair."},
	},
	ArchiveMalformed: {
		kind:  ArchiveMalformed,
		mdMsg: "An archive on a module search path is not a readable zip file; it was treated as empty.",
	},
	CacheStale: {
		kind:  CacheStale,
		mdMsg: "A cached probe result pointed at a file that no longer exists; the entry was dropped and the probe re-ran.",
	},
	PatternSyntax: {
		kind:  PatternSyntax,
		mdMsg: "The search pattern is not a valid glob.",
		hints: []string{"Close every '[' character class.", "Quote the pattern so the shell does not eat wildcards."},
	},
	HostMismatch: {
		kind:  HostMismatch,
		mdMsg: "An interpreter's runtime library does not match this process's bitness; the probe fell back to external mode.",
	},
}

// Lookup returns the catalog issue for a kind, or nil for unknown kinds.
func Lookup(kind Kind) *Issue {
	return catalog[kind]
}
