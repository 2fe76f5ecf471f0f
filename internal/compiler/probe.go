// SPDX-License-Identifier: MPL-2.0

package compiler

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pathscout/pathscout/internal/fsys"
	"github.com/pathscout/pathscout/internal/pathlist"
	"github.com/pathscout/pathscout/internal/peinfo"
	"github.com/pathscout/pathscout/internal/spawn"
)

// Prober runs the per-family discovery strategy against one record at a
// time. All failures are recovered: the record transitions to Failed (or
// Probed with empty lists for environment-strategy families) and the run
// continues.
type Prober struct {
	Runner spawn.Runner
	FS     fsys.Filesystem
	Canon  *pathlist.Canonicalizer
	Logger *log.Logger
	Getenv func(string) string
	// Timeout caps each probe spawn; zero means spawn.DefaultTimeout.
	Timeout time.Duration
	// RequestedBitness, when not unknown, adds -m32/-m64 to spawn-strategy
	// probes so the returned library paths match the requested word size.
	RequestedBitness peinfo.Bitness
	// GOOS is overridable for tests; empty means runtime.GOOS.
	GOOS string
}

func (p *Prober) goos() string {
	if p.GOOS != "" {
		return p.GOOS
	}
	return runtime.GOOS
}

// Probe fills the record's include and library path lists. Ignored records
// and records already past Discovered are left untouched.
func (p *Prober) Probe(ctx context.Context, rec *Record) {
	if rec.Ignored || rec.State != StateDiscovered {
		return
	}
	spec, ok := families[rec.Family]
	if !ok {
		p.Logger.Warn("no probe strategy for family", "family", string(rec.Family))
		rec.markFailed()
		return
	}
	switch spec.strategy {
	case strategySpawn:
		p.probeSpawn(ctx, rec, spec)
	case strategyEnv:
		p.probeEnv(rec)
	case strategyConfigFile:
		p.probeConfigFile(rec)
	case strategyRoot:
		p.probeRoot(rec)
	}
}

// probeSpawn asks a GNU/LLVM driver for its lists: a -v preprocessor run
// for includes, -print-search-dirs for libraries. The polluting environment
// variables are unset around both spawns and restored even on failure.
func (p *Prober) probeSpawn(ctx context.Context, rec *Record, spec familySpec) {
	snap := spawn.PushUnset(pollutingEnvVars...)
	defer snap.Pop()

	incArgs := []string{"-v", "-E", "-x", spec.language, devNull(p.goos())}
	libArgs := []string{"-print-search-dirs"}
	if flag := p.bitnessFlag(spec); flag != "" {
		incArgs = append(incArgs, flag)
		libArgs = append(libArgs, flag)
	}

	incRes, err := p.Runner.Run(ctx, spawn.Request{
		Exe: rec.FullPath, Args: incArgs, Timeout: p.Timeout,
	})
	if err != nil {
		p.Logger.Warn("compiler probe failed to run",
			"compiler", rec.ShortName, "err", err)
		rec.markFailed()
		return
	}
	if incRes.ExitCode != 0 {
		p.Logger.Warn("compiler probe exited non-zero",
			"compiler", rec.ShortName,
			"exit", incRes.ExitCode,
			"error", parseErrorFragment(incRes.LastStderrLine()))
		rec.markFailed()
		return
	}

	// gcc prints the include block on stderr; clang-cl mirrors it on
	// stdout. Offer both.
	incDirs := parseIncludeBlock(append(incRes.StderrLines, incRes.StdoutLines...))

	var libDirs []string
	libRes, err := p.Runner.Run(ctx, spawn.Request{
		Exe: rec.FullPath, Args: libArgs, Timeout: p.Timeout,
	})
	if err != nil || libRes.ExitCode != 0 {
		// Includes already parsed; a library-probe failure degrades the
		// record rather than failing it.
		p.Logger.Warn("library search-dir probe failed",
			"compiler", rec.ShortName)
	} else {
		libDirs = parseLibraryDirs(append(libRes.StdoutLines, libRes.StderrLines...), listSeparator(p.goos()))
	}

	if p.goos() == "windows" {
		incDirs = p.rerootCygwin(rec, incDirs)
		libDirs = p.rerootCygwin(rec, libDirs)
	}
	if spec.cxx {
		incDirs = p.appendCxxDir(incDirs)
	}

	rec.markProbed(
		p.buildList(rec.ListOwner("includes"), incDirs),
		p.buildList(rec.ListOwner("libraries"), libDirs),
	)
}

// probeEnv serves MSVC: the documented INCLUDE and LIB variables hold the
// directory lists. A missing variable warns and yields an empty list; the
// record still counts as probed.
func (p *Prober) probeEnv(rec *Record) {
	inc := p.envList(rec, rec.IncludeEnv, "includes")
	lib := p.envList(rec, rec.LibraryEnv, "libraries")
	rec.markProbed(inc, lib)
}

func (p *Prober) envList(rec *Record, envName, kind string) *pathlist.List {
	value := p.Getenv(envName)
	if value == "" {
		p.Logger.Warn("environment variable unset; path list empty",
			"compiler", rec.ShortName, "var", envName)
		return &pathlist.List{Owner: rec.ListOwner(kind)}
	}
	l := pathlist.FromEnvList(p.Canon, rec.ListOwner(kind), value)
	l.Dedup(p.Canon)
	return l.Compact()
}

// probeConfigFile serves Borland: a .cfg file beside the executable lists
// include and library directories as -I and -L lines.
func (p *Prober) probeConfigFile(rec *Record) {
	cfgPath := strings.TrimSuffix(rec.FullPath, filepath.Ext(rec.FullPath)) + ".cfg"
	body, err := p.FS.ReadFile(cfgPath)
	if err != nil {
		p.Logger.Warn("compiler config file unreadable; falling back to environment",
			"compiler", rec.ShortName, "path", cfgPath)
		p.probeEnv(rec)
		return
	}
	var incDirs, libDirs []string
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "-I"):
			incDirs = append(incDirs, splitCfgDirs(line[2:])...)
		case strings.HasPrefix(line, "-L"):
			libDirs = append(libDirs, splitCfgDirs(line[2:])...)
		}
	}
	rec.markProbed(
		p.buildList(rec.ListOwner("includes"), incDirs),
		p.buildList(rec.ListOwner("libraries"), libDirs),
	)
}

// probeRoot serves Watcom: everything hangs off the WATCOM root variable.
func (p *Prober) probeRoot(rec *Record) {
	root := p.Getenv("WATCOM")
	if root == "" {
		p.Logger.Warn("WATCOM is unset; path lists empty", "compiler", rec.ShortName)
		rec.markProbed(
			&pathlist.List{Owner: rec.ListOwner("includes")},
			&pathlist.List{Owner: rec.ListOwner("libraries")},
		)
		return
	}
	incDirs := []string{filepath.Join(root, "h")}
	if p.goos() == "windows" {
		incDirs = append(incDirs, filepath.Join(root, "h", "nt"))
	}
	libDirs := []string{filepath.Join(root, "lib386")}
	if p.goos() == "windows" {
		libDirs = append(libDirs, filepath.Join(root, "lib386", "nt"))
	}
	rec.markProbed(
		p.buildList(rec.ListOwner("includes"), incDirs),
		p.buildList(rec.ListOwner("libraries"), libDirs),
	)
}

// rerootCygwin tags the record as Cygwin-rooted when any reported directory
// is Cygwin-shaped and prefixes those directories with the detected root so
// they resolve on a Windows filesystem. The root is the grandparent of the
// executable (C:\cygwin64\bin\gcc.exe -> C:\cygwin64).
func (p *Prober) rerootCygwin(rec *Record, dirs []string) []string {
	tagged := rec.CygwinRoot != ""
	for _, dir := range dirs {
		if looksCygwin(dir) {
			tagged = true
			break
		}
	}
	if !tagged {
		return dirs
	}
	if rec.CygwinRoot == "" {
		rec.CygwinRoot = filepath.Dir(filepath.Dir(rec.FullPath))
	}
	out := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		if looksCygwin(dir) {
			out = append(out, filepath.Join(rec.CygwinRoot, filepath.FromSlash(dir)))
			continue
		}
		out = append(out, dir)
	}
	return out
}

// appendCxxDir adds the first c++ header subdirectory found under the
// reported include directories; C++ drivers keep their language headers one
// level below the C search list.
func (p *Prober) appendCxxDir(dirs []string) []string {
	for _, dir := range dirs {
		sub := filepath.Join(dir, "c++")
		info, err := p.FS.Stat(sub)
		if err == nil && info.Kind == fsys.KindDir {
			return append(dirs, sub)
		}
	}
	return dirs
}

func (p *Prober) buildList(owner string, dirs []string) *pathlist.List {
	l := &pathlist.List{Owner: owner}
	for _, dir := range dirs {
		l.Append(p.Canon, dir)
	}
	l.Dedup(p.Canon)
	return l.Compact()
}

func (p *Prober) bitnessFlag(spec familySpec) string {
	if !spec.bitnessFlag {
		return ""
	}
	switch p.RequestedBitness {
	case peinfo.Bitness32:
		return "-m32"
	case peinfo.Bitness64:
		return "-m64"
	default:
		return ""
	}
}

// splitCfgDirs splits a Borland cfg directory argument, which may be quoted
// and may hold several directories separated by semicolons.
func splitCfgDirs(arg string) []string {
	arg = strings.Trim(strings.TrimSpace(arg), `"`)
	var out []string
	for _, dir := range strings.Split(arg, ";") {
		if dir = strings.TrimSpace(dir); dir != "" {
			out = append(out, dir)
		}
	}
	return out
}

// devNull is the platform's empty-input pseudo file, handed to -E probes.
func devNull(goos string) string {
	if goos == "windows" {
		return "NUL"
	}
	return os.DevNull
}

// listSeparator is the separator inside a "libraries: =" list.
func listSeparator(goos string) byte {
	if goos == "windows" {
		return ';'
	}
	return ':'
}
