// SPDX-License-Identifier: MPL-2.0

// Package glob provides the shell-style wildcard matching used by the
// matcher and the ignore registry. Matching is delegated to
// github.com/bmatcuk/doublestar; this package adds the case policy, the
// path-mode switch, and up-front pattern validation.
package glob

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrBadPattern is the sentinel error wrapped by BadPatternError.
var ErrBadPattern = errors.New("ill-formed pattern")

// BadPatternError is returned when a glob pattern cannot be compiled, e.g.
// an unterminated character class. A bad user pattern aborts the whole run.
type BadPatternError struct {
	Pattern string
}

// Error implements the error interface.
func (e *BadPatternError) Error() string {
	return fmt.Sprintf("ill-formed pattern %q", e.Pattern)
}

// Unwrap returns ErrBadPattern so callers can use errors.Is.
func (e *BadPatternError) Unwrap() error { return ErrBadPattern }

type (
	// Matcher evaluates one pattern against candidate names. The zero value
	// is not usable; build one with New.
	Matcher struct {
		pattern  string
		folded   string
		caseFold bool
		pathMode bool
	}

	// Config selects the matching semantics.
	Config struct {
		// CaseFold makes matching case-insensitive. Callers default this to
		// the host filesystem's behavior.
		CaseFold bool
		// PathMode keeps '*' and '?' from crossing the path separator, so
		// "a*/b" matches path components rather than raw runs of characters.
		// Off, the pattern is matched against the name as a flat string.
		PathMode bool
	}
)

// New validates pattern and returns a Matcher for it. The supported
// operators are '*', '?' and '[set]' with '!'/'^' negation and ranges;
// escaping is not part of the dialect, so backslashes in the pattern are
// treated as separators on Windows-shaped candidates, never as escapes.
func New(pattern string, cfg Config) (*Matcher, error) {
	// doublestar reports bad patterns lazily from Match, so an unterminated
	// class has to be caught here, before any filesystem work happens.
	if err := validate(pattern); err != nil {
		return nil, err
	}
	return &Matcher{
		pattern:  normalize(pattern),
		folded:   strings.ToLower(normalize(pattern)),
		caseFold: cfg.CaseFold,
		pathMode: cfg.PathMode,
	}, nil
}

// Pattern returns the pattern the matcher was built from.
func (m *Matcher) Pattern() string { return m.pattern }

// Match reports whether name satisfies the pattern.
func (m *Matcher) Match(name string) bool {
	pattern := m.pattern
	candidate := normalize(name)
	if m.caseFold {
		pattern = m.folded
		candidate = strings.ToLower(candidate)
	}
	if !m.pathMode {
		// Flatten separators so '*' may cross them.
		candidate = strings.ReplaceAll(candidate, "/", "\x00")
		pattern = strings.ReplaceAll(pattern, "/", "\x00")
	}
	ok, err := doublestar.Match(pattern, candidate)
	if err != nil {
		// New validated the pattern; an error here means the candidate
		// contains no match either way.
		return false
	}
	return ok
}

// normalize maps backslash separators to forward slashes so one pattern
// dialect serves both native and archive-internal names.
func normalize(s string) string {
	return strings.ReplaceAll(s, `\`, "/")
}

// validate rejects patterns with unterminated or empty character classes.
func validate(pattern string) error {
	for i := 0; i < len(pattern); i++ {
		if pattern[i] != '[' {
			continue
		}
		j := i + 1
		if j < len(pattern) && (pattern[j] == '!' || pattern[j] == '^') {
			j++
		}
		// A ']' directly after the opener (or negation) is a literal member.
		if j < len(pattern) && pattern[j] == ']' {
			j++
		}
		for j < len(pattern) && pattern[j] != ']' {
			j++
		}
		if j >= len(pattern) || j == i+1 {
			return &BadPatternError{Pattern: pattern}
		}
		i = j
	}
	return nil
}
