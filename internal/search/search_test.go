// SPDX-License-Identifier: MPL-2.0

package search

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pathscout/pathscout/internal/fsys"
	"github.com/pathscout/pathscout/internal/glob"
	"github.com/pathscout/pathscout/internal/ignore"
	"github.com/pathscout/pathscout/internal/issue"
	"github.com/pathscout/pathscout/internal/pathlist"
	"github.com/pathscout/pathscout/internal/spawn"
)

func testLogger() *log.Logger { return log.New(io.Discard) }

func testCanon(t *testing.T) *pathlist.Canonicalizer {
	t.Helper()
	return pathlist.NewCanonicalizer(
		pathlist.WithWorkingDir("/work"),
		pathlist.WithGetenv(func(string) string { return "" }),
		pathlist.WithCaseFolding(false),
	)
}

func mustGlob(t *testing.T, pattern string) *glob.Matcher {
	t.Helper()
	m, err := glob.New(pattern, glob.Config{CaseFold: true})
	if err != nil {
		t.Fatalf("glob.New(%q): %v", pattern, err)
	}
	return m
}

// collect gathers events for order-sensitive assertions.
type collect struct {
	events []Event
}

func (c *collect) report(e Event) { c.events = append(c.events, e) }

func (c *collect) matchPaths() []string {
	var out []string
	for _, e := range c.events {
		if !e.IsHeader() {
			out = append(out, e.Match.Path)
		}
	}
	return out
}

func (c *collect) headers() []string {
	var out []string
	for _, e := range c.events {
		if e.IsHeader() {
			out = append(out, e.Title)
		}
	}
	return out
}

func listOf(t *testing.T, canon *pathlist.Canonicalizer, fsx fsys.Filesystem, owner string, dirs ...string) *pathlist.List {
	t.Helper()
	l := &pathlist.List{Owner: owner}
	for _, dir := range dirs {
		l.Append(canon, dir)
	}
	l.Dedup(canon)
	fsys.Classify(fsx, l)
	return l
}

func TestMatcherDirectoryHits(t *testing.T) {
	t.Parallel()
	canon := testCanon(t)
	fsx := &fsys.Fake{Files: map[string]fsys.Info{
		"/u/inc/a/stdio.h":  {Kind: fsys.KindFile, Size: 120},
		"/u/inc/a/stdlib.h": {Kind: fsys.KindFile, Size: 340},
		"/u/inc/a/notes":    {Kind: fsys.KindFile},
		"/u/inc/b/stdio.h":  {Kind: fsys.KindFile, Size: 99},
	}}
	list := listOf(t, canon, fsx, "gcc includes", "/u/inc/a", "/u/inc/b")

	m := &Matcher{FS: fsx, Ignore: ignore.New(testLogger()), Logger: testLogger()}
	var c collect
	count := m.Match(list, ignore.SectionCompiler, mustGlob(t, "std*.h"), c.report)

	want := []string{"/u/inc/a/stdio.h", "/u/inc/a/stdlib.h", "/u/inc/b/stdio.h"}
	if got := c.matchPaths(); !reflect.DeepEqual(got, want) {
		t.Errorf("match paths = %v, want %v", got, want)
	}
	if count != len(want) {
		t.Errorf("count = %d, want %d", count, len(want))
	}
	for _, e := range c.events {
		if !e.IsHeader() && e.Match.Origin.List != "gcc includes" {
			t.Errorf("Origin.List = %q, want gcc includes", e.Match.Origin.List)
		}
	}
}

func TestMatcherSkipsMissingAndDuplicates(t *testing.T) {
	t.Parallel()
	canon := testCanon(t)
	fsx := &fsys.Fake{Files: map[string]fsys.Info{
		"/u/inc/a/stdio.h": {Kind: fsys.KindFile},
	}}
	list := listOf(t, canon, fsx, "gcc includes", "/u/inc/a", "/u/gone", "/u/inc/a")

	m := &Matcher{FS: fsx, Ignore: ignore.New(testLogger()), Logger: testLogger()}
	var c collect
	m.Match(list, ignore.SectionCompiler, mustGlob(t, "stdio.h"), c.report)

	if got := c.matchPaths(); len(got) != 1 {
		t.Errorf("match paths = %v, want exactly one hit", got)
	}
}

func TestMatcherIgnoreWins(t *testing.T) {
	t.Parallel()
	canon := testCanon(t)
	fsx := &fsys.Fake{Files: map[string]fsys.Info{
		"/u/bin/ipy.exe":     {Kind: fsys.KindFile},
		"/u/bin/python3.exe": {Kind: fsys.KindFile},
	}}
	reg := ignore.New(testLogger())
	reg.Add(ignore.SectionPython, "ipy.exe")
	list := listOf(t, canon, fsx, "PATH", "/u/bin")

	m := &Matcher{FS: fsx, Ignore: reg, Logger: testLogger()}
	var c collect
	m.Match(list, ignore.SectionPython, mustGlob(t, "*.exe"), c.report)

	want := []string{"/u/bin/python3.exe"}
	if got := c.matchPaths(); !reflect.DeepEqual(got, want) {
		t.Errorf("match paths = %v, want %v", got, want)
	}
}

func TestMatcherRecursionIsBoundedAndOrdered(t *testing.T) {
	t.Parallel()
	canon := testCanon(t)
	fsx := &fsys.Fake{Files: map[string]fsys.Info{
		"/u/root/a.lua":          {Kind: fsys.KindFile},
		"/u/root/sub/b.lua":      {Kind: fsys.KindFile},
		"/u/root/sub/deep/c.lua": {Kind: fsys.KindFile},
	}}
	list := listOf(t, canon, fsx, "lua path", "/u/root")

	m := &Matcher{
		FS: fsx, Ignore: ignore.New(testLogger()), Logger: testLogger(),
		Recursive: true, MaxDepth: 2,
	}
	var c collect
	m.Match(list, ignore.SectionLua, mustGlob(t, "*.lua"), c.report)

	want := []string{"/u/root/a.lua", "/u/root/sub/b.lua"}
	if got := c.matchPaths(); !reflect.DeepEqual(got, want) {
		t.Errorf("match paths = %v, want %v (depth bound at 2)", got, want)
	}
}

func writeTestEgg(t *testing.T, entries map[string]string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "pkg.egg")
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	zw := zip.NewWriter(f)
	for name, body := range entries {
		h := &zip.FileHeader{Name: name, Method: zip.Deflate}
		h.Modified = time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC)
		w, err := zw.CreateHeader(h)
		if err != nil {
			t.Fatalf("create entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("write entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return p
}

func TestMatcherArchiveDescent(t *testing.T) {
	t.Parallel()
	egg := writeTestEgg(t, map[string]string{
		"pkg/__init__.py":   "print('hi')",
		"EGG-INFO/PKG-INFO": "Name: pkg",
	})
	canon := testCanon(t)
	list := listOf(t, canon, fsys.OS{}, "python3 module path", egg)

	m := &Matcher{FS: fsys.OS{}, Ignore: ignore.New(testLogger()), Logger: testLogger()}
	var c collect
	count := m.Match(list, ignore.SectionPython, mustGlob(t, "__init__.py"), c.report)

	if count != 1 {
		t.Fatalf("count = %d, want 1; paths %v", count, c.matchPaths())
	}
	e := c.events[0].Match
	if e.Kind != MatchArchiveEntry {
		t.Errorf("Kind = %v, want %v", e.Kind, MatchArchiveEntry)
	}
	if want := egg + "!pkg/__init__.py"; e.Path != want {
		t.Errorf("Path = %q, want %q", e.Path, want)
	}
}

func TestMatcherGrepFiltersAndAnnotates(t *testing.T) {
	t.Parallel()
	canon := testCanon(t)
	fsx := &fsys.Fake{
		Files: map[string]fsys.Info{
			"/u/inc/a/stdio.h":  {Kind: fsys.KindFile},
			"/u/inc/a/stdarg.h": {Kind: fsys.KindFile},
		},
		Contents: map[string][]byte{
			"/u/inc/a/stdio.h":  []byte("int printf(const char *fmt, ...);\n"),
			"/u/inc/a/stdarg.h": []byte("typedef __builtin_va_list va_list;\n"),
		},
	}
	list := listOf(t, canon, fsx, "gcc includes", "/u/inc/a")

	m := &Matcher{
		FS: fsx, Ignore: ignore.New(testLogger()), Logger: testLogger(),
		Grep: regexp.MustCompile(`printf`),
	}
	var c collect
	m.Match(list, ignore.SectionCompiler, mustGlob(t, "std*.h"), c.report)

	if got := c.matchPaths(); !reflect.DeepEqual(got, []string{"/u/inc/a/stdio.h"}) {
		t.Fatalf("match paths = %v, want only stdio.h", got)
	}
	cm := c.events[0].Match.ContentMatch
	if cm == nil || cm.LineNumber != 1 || !strings.Contains(cm.Line, "printf") {
		t.Errorf("ContentMatch = %+v, want line 1 containing printf", cm)
	}
}

func TestMatcherWarnsOncePerMissingPath(t *testing.T) {
	t.Parallel()
	canon := testCanon(t)
	fsx := &fsys.Fake{Files: map[string]fsys.Info{}}

	var logBuf bytes.Buffer
	lg := log.New(&logBuf)
	lg.SetLevel(log.DebugLevel)
	m := &Matcher{FS: fsx, Ignore: ignore.New(testLogger()), Logger: lg}

	// The same vanished directory shows up on two lists; it is reported
	// once, not once per entry per list.
	first := listOf(t, canon, fsx, "gcc includes", "/u/gone")
	second := listOf(t, canon, fsx, "g++ includes", "/u/gone", "/u/also-gone")
	var c collect
	m.Match(first, ignore.SectionCompiler, mustGlob(t, "*"), c.report)
	m.Match(second, ignore.SectionCompiler, mustGlob(t, "*"), c.report)

	if got := strings.Count(logBuf.String(), "path entry missing"); got != 2 {
		t.Errorf("missing-path log lines = %d, want 2 (one per distinct path):\n%s",
			got, logBuf.String())
	}
}

func TestMatcherGrepNeverOpensArchives(t *testing.T) {
	t.Parallel()
	canon := testCanon(t)
	fsx := &fsys.Fake{Files: map[string]fsys.Info{
		"/u/mods/broken.zip": {Kind: fsys.KindFile},
	}}
	list := listOf(t, canon, fsx, "python3 module path", "/u/mods/broken.zip")

	var logBuf bytes.Buffer
	m := &Matcher{
		FS: fsx, Ignore: ignore.New(testLogger()), Logger: log.New(&logBuf),
		Grep: regexp.MustCompile(`printf`),
	}
	var c collect
	if count := m.Match(list, ignore.SectionPython, mustGlob(t, "*"), c.report); count != 0 {
		t.Errorf("count = %d, want 0 (archives are not content-scanned)", count)
	}
	// The archive is skipped before it is read: a content scan must not
	// open (and warn about) a file that is not even a valid zip.
	if strings.Contains(logBuf.String(), "archive unreadable") {
		t.Errorf("grep-mode match read the archive: %s", logBuf.String())
	}
}

// driverFixture wires a Driver over fakes: one gcc on PATH whose probe
// reports /u/inc/a twice and /u/inc/b.
func driverFixture(t *testing.T, dir string) (*Driver, *fakeRunner) {
	t.Helper()
	fsx := &fsys.Fake{Files: map[string]fsys.Info{
		"/u/bin/gcc":        {Kind: fsys.KindFile},
		"/u/inc/a/stdio.h":  {Kind: fsys.KindFile, Size: 120},
		"/u/inc/b/stdint.h": {Kind: fsys.KindFile, Size: 80},
		"/u/lib/x/libc.a":   {Kind: fsys.KindFile},
	}}
	runner := &fakeRunner{results: map[string]spawn.Result{
		"-v": {StderrLines: []string{
			"#include <...> search starts here:",
			" /u/inc/a",
			" /u/inc/a",
			" /u/inc/b",
			"End of search list.",
		}},
		"-print-search-dirs": {StdoutLines: []string{"libraries: =/u/lib/x"}},
	}}
	env := map[string]string{"PATH": "/u/bin"}
	d := &Driver{
		FS:         fsx,
		Canon:      testCanon(t),
		Runner:     runner,
		Logger:     testLogger(),
		Getenv:     func(k string) string { return env[k] },
		CachePath:  filepath.Join(dir, "probe.cache"),
		IgnorePath: filepath.Join(dir, "ignore.conf"),
	}
	return d, runner
}

type fakeRunner struct {
	results map[string]spawn.Result
	calls   []spawn.Request
}

func (f *fakeRunner) Run(_ context.Context, req spawn.Request) (spawn.Result, error) {
	f.calls = append(f.calls, req)
	if len(req.Args) > 0 {
		if res, ok := f.results[req.Args[0]]; ok {
			return res, nil
		}
	}
	return spawn.Result{}, nil
}

func TestDriverCompilerIncludeSearch(t *testing.T) {
	t.Parallel()
	d, _ := driverFixture(t, t.TempDir())
	var c collect
	count, err := d.Run(context.Background(), Options{
		Pattern: "std*.h",
		Domains: []DomainTag{DomainCompilerInclude},
	}, c.report)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if got, want := c.headers(), []string{"gcc includes"}; !reflect.DeepEqual(got, want) {
		t.Errorf("headers = %v, want %v", got, want)
	}
	want := []string{"/u/inc/a/stdio.h", "/u/inc/b/stdint.h"}
	if got := c.matchPaths(); !reflect.DeepEqual(got, want) {
		t.Errorf("match paths = %v, want %v (duplicate dir searched once)", got, want)
	}
}

func TestDriverCacheReuseProducesIdenticalOutput(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	opts := Options{Pattern: "std*.h", Domains: []DomainTag{DomainCompilerInclude}}

	d1, r1 := driverFixture(t, dir)
	var first collect
	if _, err := d1.Run(context.Background(), opts, first.report); err != nil {
		t.Fatalf("first Run() error: %v", err)
	}
	if len(r1.calls) == 0 {
		t.Fatal("first run should probe")
	}

	d2, r2 := driverFixture(t, dir)
	var second collect
	if _, err := d2.Run(context.Background(), opts, second.report); err != nil {
		t.Fatalf("second Run() error: %v", err)
	}
	if len(r2.calls) != 0 {
		t.Errorf("second run spawned %d probes, want 0 (cache adopted)", len(r2.calls))
	}
	// Full events, provenance included: the probe output carries a duplicate
	// ahead of a unique dir, so a list that was only marked (not compacted)
	// would report /u/inc/b with ordinal 2 fresh but ordinal 1 after the
	// densely renumbered cache rows are reloaded.
	if !reflect.DeepEqual(first.events, second.events) {
		t.Errorf("cached run events %+v differ from fresh run %+v",
			second.events, first.events)
	}
	for _, e := range first.events {
		if e.IsHeader() || e.Match.Path != "/u/inc/b/stdint.h" {
			continue
		}
		if got, want := e.Match.Origin.Ordinal, 1; got != want {
			t.Errorf("stdint.h Origin.Ordinal = %d, want %d", got, want)
		}
	}
}

func TestDriverNoCacheAlwaysProbes(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	opts := Options{
		Pattern: "std*.h",
		Domains: []DomainTag{DomainCompilerInclude},
		Flags:   Flags{NoCache: true},
	}
	d1, _ := driverFixture(t, dir)
	if _, err := d1.Run(context.Background(), opts, func(Event) {}); err != nil {
		t.Fatalf("first Run() error: %v", err)
	}
	d2, r2 := driverFixture(t, dir)
	if _, err := d2.Run(context.Background(), opts, func(Event) {}); err != nil {
		t.Fatalf("second Run() error: %v", err)
	}
	if len(r2.calls) == 0 {
		t.Error("no-cache run should probe again")
	}
}

func TestDriverBadPatternAborts(t *testing.T) {
	t.Parallel()
	d, _ := driverFixture(t, t.TempDir())
	_, err := d.Run(context.Background(), Options{Pattern: "[abc"}, func(Event) {})
	if err == nil {
		t.Fatal("Run() with ill-formed pattern should fail")
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.Kind != issue.PatternSyntax {
		t.Errorf("error = %v, want ActionableError with PatternSyntax kind", err)
	}
}

func TestDriverZeroMatchesIsNotAnError(t *testing.T) {
	t.Parallel()
	d, _ := driverFixture(t, t.TempDir())
	count, err := d.Run(context.Background(), Options{
		Pattern: "no-such-file-*",
		Domains: []DomainTag{DomainCompilerInclude},
	}, func(Event) {})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestDriverEnvVarDomain(t *testing.T) {
	t.Parallel()
	fsx := &fsys.Fake{Files: map[string]fsys.Info{
		"/u/tools/fmt": {Kind: fsys.KindFile},
	}}
	env := map[string]string{"TOOLPATH": "/u/tools"}
	d := &Driver{
		FS:        fsx,
		Canon:     testCanon(t),
		Runner:    &fakeRunner{},
		Logger:    testLogger(),
		Getenv:    func(k string) string { return env[k] },
		CachePath: filepath.Join(t.TempDir(), "probe.cache"),
	}
	var c collect
	count, err := d.Run(context.Background(), Options{
		Pattern: "fmt",
		EnvVars: []string{"TOOLPATH", "UNSET_VAR"},
	}, c.report)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
	if got, want := c.headers(), []string{"TOOLPATH"}; !reflect.DeepEqual(got, want) {
		t.Errorf("headers = %v, want %v", got, want)
	}
}

func TestDriverIgnoredCompilerNeverSpawns(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	ignorePath := filepath.Join(dir, "ignore.conf")
	if err := os.WriteFile(ignorePath, []byte("[Compiler]\nignore = gcc\n"), 0o644); err != nil {
		t.Fatalf("write ignore file: %v", err)
	}
	d, runner := driverFixture(t, dir)
	var c collect
	count, err := d.Run(context.Background(), Options{
		Pattern: "std*.h",
		Domains: []DomainTag{DomainCompilerInclude},
	}, c.report)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(runner.calls) != 0 {
		t.Errorf("ignored compiler spawned %d probes, want 0", len(runner.calls))
	}
	if count != 0 {
		t.Errorf("count = %d, want 0 matches from an ignored compiler", count)
	}
}
