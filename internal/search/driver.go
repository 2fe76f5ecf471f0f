// SPDX-License-Identifier: MPL-2.0

package search

import (
	"context"
	"regexp"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pathscout/pathscout/internal/cache"
	"github.com/pathscout/pathscout/internal/compiler"
	"github.com/pathscout/pathscout/internal/fsys"
	"github.com/pathscout/pathscout/internal/glob"
	"github.com/pathscout/pathscout/internal/ignore"
	"github.com/pathscout/pathscout/internal/interp"
	"github.com/pathscout/pathscout/internal/issue"
	"github.com/pathscout/pathscout/internal/pathlist"
	"github.com/pathscout/pathscout/internal/peinfo"
	"github.com/pathscout/pathscout/internal/spawn"
)

// DomainTag selects one searchable domain.
type DomainTag string

const (
	// DomainCompilerInclude searches compiler include directories.
	DomainCompilerInclude DomainTag = "compilers-include"
	// DomainCompilerLibrary searches compiler library directories.
	DomainCompilerLibrary DomainTag = "compilers-library"
	// DomainInterpreters searches interpreter module paths.
	DomainInterpreters DomainTag = "interpreters"
)

// Selector narrows the interpreter domain: every discovered interpreter,
// only the per-family defaults, or one variant by name.
type Selector string

const (
	// SelectorAll probes and searches every discovered interpreter.
	SelectorAll Selector = "all"
	// SelectorDefault keeps only the first interpreter of each family.
	SelectorDefault Selector = "default"
)

type (
	// Flags are the per-run switches.
	Flags struct {
		// CaseSensitive turns off the platform-default case folding.
		CaseSensitive bool
		// Recursive walks matched directories depth-first.
		Recursive bool
		// NoCache skips both adopting and persisting probe results.
		NoCache bool
		// Grep is an optional content pattern; file hits must contain it.
		Grep string
	}

	// Options describe one query.
	Options struct {
		// Pattern is the filename glob to search for.
		Pattern string
		// Domains are searched in the order given.
		Domains []DomainTag
		// InterpreterSelector defaults to SelectorAll.
		InterpreterSelector Selector
		// EnvVars names additional PATH-style variables to search.
		EnvVars []string
		Flags   Flags
	}

	// Driver runs one query end to end: load ignore rules, open the cache,
	// adopt or probe each selected domain, match, report, flush.
	Driver struct {
		FS     fsys.Filesystem
		Canon  *pathlist.Canonicalizer
		Runner spawn.Runner
		Logger *log.Logger
		Getenv func(string) string
		// IgnorePath and CachePath locate the two on-disk stores; either
		// may be empty or missing.
		IgnorePath string
		CachePath  string
		// Timeout caps each probe spawn; zero means spawn.DefaultTimeout.
		Timeout time.Duration
		// RequestedBitness narrows compiler library probes.
		RequestedBitness peinfo.Bitness
	}
)

// Run executes the query and reports every section header and match through
// the callback, returning the number of matches. The only error returned is
// an ill-formed pattern; everything else is recovered with a warning.
func (d *Driver) Run(ctx context.Context, opts Options, report ReportFunc) (int, error) {
	pat, err := glob.New(opts.Pattern, glob.Config{
		CaseFold: !opts.Flags.CaseSensitive && patternFoldDefault(),
		PathMode: false,
	})
	if err != nil {
		return 0, issue.NewErrorContext().
			WithKind(issue.PatternSyntax).
			WithOperation("compile search pattern").
			WithResource(opts.Pattern).
			Wrap(err).
			BuildError()
	}
	var grep *regexp.Regexp
	if opts.Flags.Grep != "" {
		grep, err = regexp.Compile(opts.Flags.Grep)
		if err != nil {
			return 0, issue.NewErrorContext().
				WithKind(issue.PatternSyntax).
				WithOperation("compile content pattern").
				WithResource(opts.Flags.Grep).
				Wrap(err).
				BuildError()
		}
	}

	reg := ignore.New(d.Logger)
	if d.IgnorePath != "" {
		if err := reg.Load(d.IgnorePath); err != nil {
			d.Logger.Warn("ignore rules unavailable", "path", d.IgnorePath, "err", err)
		}
	}
	c := cache.Open(d.CachePath, d.Logger)
	useCache := !opts.Flags.NoCache

	matcher := &Matcher{
		FS:        d.FS,
		Ignore:    reg,
		Logger:    d.Logger,
		Recursive: opts.Flags.Recursive,
		Grep:      grep,
	}

	var compilers []*compiler.Record
	count := 0
	for _, domain := range opts.Domains {
		switch domain {
		case DomainCompilerInclude, DomainCompilerLibrary:
			if compilers == nil {
				compilers = d.compilerRecords(ctx, reg, c, useCache)
			}
			count += d.matchCompilers(compilers, domain, matcher, pat, report)
		case DomainInterpreters:
			records := d.interpreterRecords(ctx, reg, c, useCache)
			records = selectInterpreters(records, opts.InterpreterSelector)
			count += d.matchInterpreters(records, matcher, pat, report)
		default:
			d.Logger.Warn("unknown search domain; skipped", "domain", string(domain))
		}
	}
	count += d.matchEnvVars(opts.EnvVars, matcher, pat, report)

	if useCache {
		if err := c.Flush(); err != nil {
			d.Logger.Warn("probe cache not persisted", "path", d.CachePath, "err", err)
		}
	}
	return count, nil
}

// compilerRecords discovers the installed toolchains and fills their path
// lists, adopting cached probe results where the executable is unchanged.
func (d *Driver) compilerRecords(ctx context.Context, reg *ignore.Registry, c *cache.Cache, useCache bool) []*compiler.Record {
	disc := &compiler.Discoverer{
		FS: d.FS, Canon: d.Canon, Ignore: reg, Logger: d.Logger, Getenv: d.Getenv,
	}
	records := disc.Discover()

	store := &compiler.Store{Cache: c, FS: d.FS, Canon: d.Canon, Logger: d.Logger}
	cached := map[string]*compiler.Record{}
	if useCache {
		for _, rec := range store.Load() {
			cached[rec.ID()] = rec
		}
	}

	prober := &compiler.Prober{
		Runner: d.Runner, FS: d.FS, Canon: d.Canon, Logger: d.Logger,
		Getenv: d.Getenv, Timeout: d.Timeout, RequestedBitness: d.RequestedBitness,
	}
	for _, rec := range records {
		if rec.Ignored {
			continue
		}
		if prev, ok := cached[rec.ID()]; ok &&
			prev.State == compiler.StateProbed && prev.FullPath == rec.FullPath {
			rec.IncludePaths = prev.IncludePaths
			rec.LibraryPaths = prev.LibraryPaths
			rec.State = compiler.StateProbed
			continue
		}
		prober.Probe(ctx, rec)
	}
	if useCache {
		store.Save(records)
	}
	return records
}

func (d *Driver) matchCompilers(records []*compiler.Record, domain DomainTag, matcher *Matcher, pat *glob.Matcher, report ReportFunc) int {
	count := 0
	for _, rec := range records {
		if rec.Ignored || rec.State != compiler.StateProbed {
			continue
		}
		list := rec.IncludePaths
		if domain == DomainCompilerLibrary {
			list = rec.LibraryPaths
		}
		if list == nil || list.Len() == 0 {
			continue
		}
		d.classify(list)
		report(headerEvent(list.Owner))
		count += matcher.Match(list, ignore.SectionCompiler, pat, report)
	}
	return count
}

// interpreterRecords mirrors compilerRecords for the interpreter domain,
// with per-family cache sections.
func (d *Driver) interpreterRecords(ctx context.Context, reg *ignore.Registry, c *cache.Cache, useCache bool) []*interp.Record {
	disc := &interp.Discoverer{
		FS: d.FS, Canon: d.Canon, Ignore: reg, Logger: d.Logger, Getenv: d.Getenv,
	}
	records := disc.Discover()

	store := &interp.Store{Cache: c, FS: d.FS, Canon: d.Canon, Logger: d.Logger}
	cached := map[string]*interp.Record{}
	if useCache {
		for _, section := range interpSections() {
			for _, rec := range store.Load(section) {
				cached[rec.ID()] = rec
			}
		}
	}

	prober := &interp.Prober{
		Runner: d.Runner, FS: d.FS, Canon: d.Canon, Logger: d.Logger,
		Timeout: d.Timeout,
	}
	defer func() {
		if err := prober.Close(); err != nil {
			d.Logger.Warn("embedded runtime teardown failed", "err", err)
		}
	}()
	for _, rec := range records {
		if rec.Ignored {
			continue
		}
		if prev, ok := cached[rec.ID()]; ok &&
			prev.State == interp.StateProbed && prev.Executable == rec.Executable {
			rec.Version = prev.Version
			rec.HomeDir = prev.HomeDir
			rec.UserSiteDir = prev.UserSiteDir
			rec.ModuleSearchPath = prev.ModuleSearchPath
			rec.InstalledModules = prev.InstalledModules
			rec.State = interp.StateProbed
			continue
		}
		prober.Probe(ctx, rec)
	}
	if useCache {
		for _, section := range interpSections() {
			var group []*interp.Record
			for _, rec := range records {
				if rec.Variant.Section() == section {
					group = append(group, rec)
				}
			}
			store.Save(section, group)
		}
	}
	return records
}

func (d *Driver) matchInterpreters(records []*interp.Record, matcher *Matcher, pat *glob.Matcher, report ReportFunc) int {
	count := 0
	for _, rec := range records {
		if rec.Ignored || rec.State != interp.StateProbed {
			continue
		}
		list := rec.ModuleSearchPath
		if list == nil || list.Len() == 0 {
			continue
		}
		report(headerEvent(list.Owner))
		count += matcher.Match(list, rec.Variant.Section(), pat, report)
	}
	return count
}

// matchEnvVars searches PATH-style environment variables named explicitly by
// the user. Env lists carry no ignore section of their own.
func (d *Driver) matchEnvVars(names []string, matcher *Matcher, pat *glob.Matcher, report ReportFunc) int {
	count := 0
	for _, name := range names {
		value := d.Getenv(name)
		if value == "" {
			d.Logger.Warn("environment variable unset; nothing to search", "var", name)
			continue
		}
		list := pathlist.FromEnvList(d.Canon, name, value)
		list.Dedup(d.Canon)
		d.classify(list)
		report(headerEvent(name))
		count += matcher.Match(list, ignore.Section(""), pat, report)
	}
	return count
}

// classify stamps filesystem kinds on entries that have none yet. Cached
// lists are re-classified so stale directories degrade to missing.
func (d *Driver) classify(list *pathlist.List) {
	fsys.Classify(d.FS, list)
}

func selectInterpreters(records []*interp.Record, sel Selector) []*interp.Record {
	switch sel {
	case "", SelectorAll:
		return records
	case SelectorDefault:
		var out []*interp.Record
		for _, rec := range records {
			if rec.IsDefault {
				out = append(out, rec)
			}
		}
		return out
	default:
		var out []*interp.Record
		for _, rec := range records {
			if rec.Variant == interp.Variant(sel) {
				out = append(out, rec)
			}
		}
		return out
	}
}

func interpSections() []ignore.Section {
	return []ignore.Section{ignore.SectionPython, ignore.SectionLua, ignore.SectionShell}
}

// patternFoldDefault is the platform default for name matching: fold case
// where the filesystem does.
func patternFoldDefault() bool { return pathlist.FoldsCase() }
