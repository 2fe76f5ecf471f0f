// SPDX-License-Identifier: MPL-2.0

package interp

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pathscout/pathscout/internal/fsys"
	"github.com/pathscout/pathscout/internal/pathlist"
	"github.com/pathscout/pathscout/internal/peinfo"
	"github.com/pathscout/pathscout/internal/spawn"
)

// versionTriple matches "3.12.1" and also the two-part "5.4" Lua reports.
var versionTriple = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)

// Prober fills an interpreter record's module search path, home and user
// site directories, and installed-module inventory. Embeddable flavours run
// in-process when their bitness matches the host; everything else spawns the
// interpreter with short inline programs.
type Prober struct {
	Runner spawn.Runner
	FS     fsys.Filesystem
	Canon  *pathlist.Canonicalizer
	Logger *log.Logger
	// Timeout caps each probe spawn or in-process script; zero means
	// spawn.DefaultTimeout.
	Timeout time.Duration
	// HostBitness defaults to peinfo.Host(); injected for tests.
	HostBitness peinfo.Bitness
	// NewRuntime builds the embedded runtime for a record; injected for
	// tests. Nil means the built-in shell runtime over the process
	// environment.
	NewRuntime func(rec *Record) EmbeddedRuntime

	// active is the single live embedded runtime. Finalized before a
	// different record initializes its own, and by Close at end of run.
	active EmbeddedRuntime
}

func (p *Prober) host() peinfo.Bitness {
	if p.HostBitness != peinfo.BitnessUnknown {
		return p.HostBitness
	}
	return peinfo.Host()
}

func (p *Prober) timeout() time.Duration {
	if p.Timeout > 0 {
		return p.Timeout
	}
	return spawn.DefaultTimeout
}

// Close finalizes any live embedded runtime. Call once at end of run.
func (p *Prober) Close() error {
	if p.active == nil {
		return nil
	}
	err := p.active.Finalize()
	p.active = nil
	return err
}

// Probe runs the full probe sequence for one record: version, home, user
// site, module search path, installed modules. Ignored records and records
// past Discovered are left untouched.
func (p *Prober) Probe(ctx context.Context, rec *Record) {
	if rec.Ignored || rec.State != StateDiscovered {
		return
	}
	spec, ok := variants[rec.Variant]
	if !ok {
		p.Logger.Warn("no probe programs for variant", "variant", string(rec.Variant))
		rec.markFailed()
		return
	}

	run := p.chooseMode(ctx, rec)
	out, err := run(ctx, spec.versionProgram)
	if err != nil {
		p.Logger.Warn("version probe failed", "interpreter", rec.ShortName, "err", err)
		rec.markFailed()
		return
	}
	if crash := crashText(spec, out); crash != "" {
		p.Logger.Warn("interpreter crashed during version probe",
			"interpreter", rec.ShortName, "crash", crash)
		rec.markFailed()
		return
	}
	rec.Version = parseVersion(strings.TrimSpace(firstLine(out)))
	if !rec.Version.Known {
		// An interpreter whose version cannot be read is not trusted
		// in-process.
		rec.IsEmbeddable = false
	}

	if !spec.homeProgram.empty() {
		if out, err := run(ctx, spec.homeProgram); err == nil && crashText(spec, out) == "" {
			rec.HomeDir = strings.TrimSpace(firstLine(out))
		}
	}
	if !spec.userSiteProgram.empty() {
		if out, err := run(ctx, spec.userSiteProgram); err == nil && crashText(spec, out) == "" {
			rec.UserSiteDir = strings.TrimSpace(firstLine(out))
		}
	}

	out, err = run(ctx, spec.pathProgram)
	if err != nil {
		p.Logger.Warn("module-path probe failed", "interpreter", rec.ShortName, "err", err)
		rec.markFailed()
		return
	}
	if crash := crashText(spec, out); crash != "" {
		p.Logger.Warn("interpreter crashed during module-path probe",
			"interpreter", rec.ShortName, "crash", crash)
		rec.markFailed()
		return
	}
	searchPath := p.buildSearchPath(rec, out)

	var modules []Module
	if !spec.modulesProgram.empty() {
		out, err := run(ctx, spec.modulesProgram)
		switch {
		case err != nil:
			p.Logger.Warn("installed-modules probe failed",
				"interpreter", rec.ShortName, "err", err)
		case crashText(spec, out) != "":
			p.Logger.Warn("interpreter crashed during installed-modules probe",
				"interpreter", rec.ShortName, "crash", crashText(spec, out))
		default:
			modules = parseModules(out)
		}
	}

	rec.markProbed(searchPath, modules)
}

// runFunc executes one probe program and returns its combined output lines.
type runFunc func(ctx context.Context, prog program) ([]string, error)

// chooseMode picks embedded or external execution for the record, applying
// the host-bitness rule: an embeddable runtime whose bitness is known and
// differs from the host demotes to external with one warning, without
// attempting the load.
func (p *Prober) chooseMode(ctx context.Context, rec *Record) runFunc {
	if rec.IsEmbeddable {
		if rec.Bitness != peinfo.BitnessUnknown && rec.Bitness != p.host() {
			p.Logger.Warn("interpreter bitness differs from host; using external mode",
				"interpreter", rec.ShortName,
				"interpreter-bitness", rec.Bitness.String(),
				"host-bitness", p.host().String())
		} else if rt := p.initRuntime(ctx, rec); rt != nil {
			return func(ctx context.Context, prog program) ([]string, error) {
				return p.runEmbedded(ctx, rt, prog)
			}
		}
	}
	return func(ctx context.Context, prog program) ([]string, error) {
		return p.runExternal(ctx, rec, prog)
	}
}

func (p *Prober) initRuntime(ctx context.Context, rec *Record) EmbeddedRuntime {
	if p.active != nil {
		if err := p.active.Finalize(); err != nil {
			p.Logger.Warn("failed to finalize previous embedded runtime", "err", err)
		}
		p.active = nil
	}
	var rt EmbeddedRuntime
	if p.NewRuntime != nil {
		rt = p.NewRuntime(rec)
	} else {
		rt = newShellRuntime(nil)
	}
	if err := rt.Initialize(ctx); err != nil {
		p.Logger.Warn("embedded runtime init failed; using external mode",
			"interpreter", rec.ShortName, "err", err)
		return nil
	}
	p.active = rt
	return rt
}

func (p *Prober) runEmbedded(ctx context.Context, rt EmbeddedRuntime, prog program) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()
	rt.ResetStdout()
	if err := rt.RunScript(ctx, prog.src); err != nil {
		return nil, err
	}
	out := rt.CaptureStdout()
	rt.ResetStdout()
	return splitOutput(out), nil
}

func (p *Prober) runExternal(ctx context.Context, rec *Record, prog program) ([]string, error) {
	res, err := p.Runner.Run(ctx, spawn.Request{
		Exe:     rec.Executable,
		Args:    prog.args(),
		Timeout: p.Timeout,
	})
	if err != nil {
		return nil, err
	}
	// Stderr is appended so crash signatures are visible to the caller.
	return append(res.StdoutLines, res.StderrLines...), nil
}

// buildSearchPath turns one-entry-per-line probe output into a classified
// path list. Entries naming archives keep kind Archive so match queries
// descend into them.
func (p *Prober) buildSearchPath(rec *Record, lines []string) *pathlist.List {
	l := &pathlist.List{Owner: rec.ListOwner()}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		l.Append(p.Canon, line)
	}
	l.Dedup(p.Canon)
	l = l.Compact()
	fsys.Classify(p.FS, l)
	return l
}

// parseModules parses "name;version;location;metadata-path" lines. Lines
// with fewer than two separators are skipped.
func parseModules(lines []string) []Module {
	var out []Module
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, ";", 4)
		if len(fields) < 3 {
			continue
		}
		m := Module{
			Name:     fields[0],
			Version:  fields[1],
			Location: fields[2],
		}
		if len(fields) == 4 {
			m.MetadataPath = fields[3]
		}
		m.IsArchive = pathlist.IsArchivePath(m.Location)
		out = append(out, m)
	}
	return out
}

// parseVersion extracts the leading version triple from a probe's output.
// A missing patch component parses as zero; no digits at all yields an
// unknown version.
func parseVersion(s string) Version {
	m := versionTriple.FindStringSubmatch(s)
	if m == nil {
		return Version{}
	}
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	patch := 0
	if m[3] != "" {
		patch, _ = strconv.Atoi(m[3])
	}
	return Version{Major: major, Minor: minor, Patch: patch, Known: true}
}

// crashText returns the first output line carrying a crash signature, or "".
func crashText(spec variantSpec, lines []string) string {
	for _, line := range lines {
		for _, sig := range spec.crashSignatures {
			if strings.HasPrefix(line, sig) {
				return line
			}
		}
	}
	return ""
}

func firstLine(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return lines[0]
}

func splitOutput(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
