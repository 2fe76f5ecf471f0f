// SPDX-License-Identifier: MPL-2.0

// Package ignore implements the section-scoped suppression rules the driver
// consults before probing or reporting anything. Rules live in an INI-like
// file ("[Section]" headers, repeated "ignore = PATTERN" lines) in the user
// config directory.
package ignore

import (
	"os"
	"path"
	"strings"

	"github.com/charmbracelet/log"
	ini "github.com/go-ini/ini"

	"github.com/pathscout/pathscout/internal/glob"
)

// Section names the rule buckets the core consults.
type Section string

const (
	// SectionCompiler suppresses compiler records and their path entries.
	SectionCompiler Section = "Compiler"
	// SectionPython suppresses Python interpreter records and entries.
	SectionPython Section = "Python"
	// SectionLua suppresses Lua interpreter records and entries.
	SectionLua Section = "Lua"
	// SectionShell suppresses shell interpreter records and entries.
	SectionShell Section = "Shell"
	// SectionRegistry suppresses registry-derived locations.
	SectionRegistry Section = "Registry"
	// SectionPEResources suppresses PE resource reporting.
	SectionPEResources Section = "PE-resources"
)

// knownSections are the buckets Lookup will ever consult. Rules under other
// headers are retained but dormant.
var knownSections = map[Section]bool{
	SectionCompiler:    true,
	SectionPython:      true,
	SectionLua:         true,
	SectionShell:       true,
	SectionRegistry:    true,
	SectionPEResources: true,
}

type (
	rule struct {
		pattern  string
		anchored bool
		matcher  *glob.Matcher
	}

	// Registry answers "is this value ignored in that section?". The zero
	// value ignores nothing; Load populates it from a config file.
	Registry struct {
		rules  map[Section][]rule
		logger *log.Logger
	}
)

// New returns an empty registry. A nil logger falls back to log.Default().
func New(logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{
		rules:  make(map[Section][]rule),
		logger: logger,
	}
}

// Load reads rules from the given file. A missing file is not an error;
// malformed lines and ill-formed patterns are warned about and skipped.
func (r *Registry) Load(configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil
	}
	f, err := ini.LoadSources(ini.LoadOptions{
		AllowShadows:            true,
		SkipUnrecognizableLines: true,
	}, configPath)
	if err != nil {
		r.logger.Warn("cannot parse ignore file", "path", configPath, "err", err)
		return nil
	}

	for _, sec := range f.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		section := Section(sec.Name())
		if !knownSections[section] {
			r.logger.Warn("unknown ignore section; rules kept but unused", "section", sec.Name())
		}
		key := sec.Key("ignore")
		if key == nil {
			continue
		}
		for _, pattern := range key.ValueWithShadows() {
			pattern = strings.TrimSpace(pattern)
			if pattern == "" {
				continue
			}
			r.Add(section, pattern)
		}
	}
	return nil
}

// Add registers one pattern under a section. A leading slash (or a drive
// letter) anchors the pattern to the full path; otherwise it is matched
// against basenames. Ill-formed patterns are warned about and dropped.
func (r *Registry) Add(section Section, pattern string) {
	anchored := anchorsFullPath(pattern)
	m, err := glob.New(pattern, glob.Config{CaseFold: true, PathMode: false})
	if err != nil {
		r.logger.Warn("skipping ill-formed ignore pattern", "section", string(section), "pattern", pattern)
		return
	}
	r.rules[section] = append(r.rules[section], rule{
		pattern:  pattern,
		anchored: anchored,
		matcher:  m,
	})
}

// Lookup reports whether value is suppressed in the section. Matching is
// case-insensitive; anchored rules see the full slash-normalized value,
// unanchored rules its basename.
func (r *Registry) Lookup(section Section, value string) bool {
	if !knownSections[section] {
		return false
	}
	rules := r.rules[section]
	if len(rules) == 0 {
		return false
	}
	full := strings.ReplaceAll(value, `\`, "/")
	base := path.Base(full)
	for _, rl := range rules {
		if rl.anchored {
			if rl.matcher.Match(full) {
				return true
			}
			continue
		}
		if rl.matcher.Match(base) || rl.matcher.Match(full) {
			return true
		}
	}
	return false
}

// Len returns the number of rules held for the section.
func (r *Registry) Len(section Section) int { return len(r.rules[section]) }

// anchorsFullPath reports whether the pattern addresses a full path rather
// than a basename.
func anchorsFullPath(pattern string) bool {
	if strings.HasPrefix(pattern, "/") || strings.HasPrefix(pattern, `\`) {
		return true
	}
	// Drive-letter form, e.g. "c:/mingw/*".
	return len(pattern) >= 2 && pattern[1] == ':'
}
