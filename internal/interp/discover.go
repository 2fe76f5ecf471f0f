// SPDX-License-Identifier: MPL-2.0

package interp

import (
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/pathscout/pathscout/internal/fsys"
	"github.com/pathscout/pathscout/internal/ignore"
	"github.com/pathscout/pathscout/internal/pathlist"
	"github.com/pathscout/pathscout/internal/peinfo"
)

// Discoverer scans PATH for known interpreter executables and builds their
// records. It performs no probing; see Prober.
type Discoverer struct {
	FS     fsys.Filesystem
	Canon  *pathlist.Canonicalizer
	Ignore *ignore.Registry
	Logger *log.Logger
	// Getenv is injected for tests.
	Getenv func(string) string
	// BitnessOf defaults to peinfo.Of; injected for tests.
	BitnessOf func(string) peinfo.Bitness
	// GOOS is overridable for tests; empty means runtime.GOOS.
	GOOS string
}

func (d *Discoverer) goos() string {
	if d.GOOS != "" {
		return d.GOOS
	}
	return runtime.GOOS
}

// Discover walks PATH once per variant and returns a record per interpreter
// found. The first record of each ignore section becomes the section
// default; on Windows a COMSPEC naming a known shell takes that role for the
// shell family instead.
func (d *Discoverer) Discover() []*Record {
	bitnessOf := d.BitnessOf
	if bitnessOf == nil {
		bitnessOf = peinfo.Of
	}

	pathDirs := pathlist.FromEnvList(d.Canon, "PATH", d.Getenv("PATH"))
	pathDirs.Dedup(d.Canon)
	dirs := pathDirs.Compact()

	var records []*Record
	defaulted := map[ignore.Section]bool{}
	for _, variant := range AllVariants() {
		spec := variants[variant]
		for _, name := range spec.exeNames {
			exe := d.findOnPath(dirs, name)
			if exe == "" {
				continue
			}
			rec := &Record{
				Variant:      variant,
				ShortName:    filepath.Base(exe),
				Executable:   exe,
				Bitness:      bitnessOf(exe),
				IsEmbeddable: spec.embeddable,
				State:        StateDiscovered,
			}
			if d.Ignore.Lookup(spec.section, rec.ShortName) ||
				d.Ignore.Lookup(spec.section, rec.Executable) {
				rec.Ignored = true
			}
			if !rec.Ignored && !defaulted[spec.section] {
				rec.IsDefault = true
				defaulted[spec.section] = true
			}
			records = append(records, rec)
			break // one executable per variant
		}
	}
	d.applyComspecDefault(records)
	return records
}

// applyComspecDefault moves the shell-family default to the interpreter
// COMSPEC names, when the variable points at one we discovered.
func (d *Discoverer) applyComspecDefault(records []*Record) {
	if d.goos() != "windows" {
		return
	}
	comspec := d.Getenv("COMSPEC")
	if comspec == "" {
		return
	}
	want := strings.ToLower(filepath.Base(comspec))
	var shells []*Record
	for _, rec := range records {
		if rec.Variant == VariantShell {
			shells = append(shells, rec)
		}
	}
	for _, rec := range shells {
		if strings.ToLower(rec.ShortName) == want {
			for _, other := range shells {
				other.IsDefault = false
			}
			rec.IsDefault = true
			return
		}
	}
}

func (d *Discoverer) findOnPath(dirs *pathlist.List, name string) string {
	for _, ext := range d.exeSuffixes() {
		for _, entry := range dirs.Entries {
			candidate := filepath.Join(entry.CanonicalPath, name+ext)
			info, err := d.FS.Stat(candidate)
			if err != nil || info.Kind != fsys.KindFile {
				continue
			}
			return candidate
		}
	}
	return ""
}

func (d *Discoverer) exeSuffixes() []string {
	if d.goos() == "windows" {
		return []string{".exe", ".bat", ".cmd"}
	}
	return []string{""}
}
