// SPDX-License-Identifier: MPL-2.0

package compiler

import (
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"

	"github.com/pathscout/pathscout/internal/fsys"
	"github.com/pathscout/pathscout/internal/ignore"
	"github.com/pathscout/pathscout/internal/pathlist"
	"github.com/pathscout/pathscout/internal/peinfo"
)

// Discoverer scans PATH for known toolchain drivers and builds their
// records. It performs no probing; see Prober.
type Discoverer struct {
	FS     fsys.Filesystem
	Canon  *pathlist.Canonicalizer
	Ignore *ignore.Registry
	Logger *log.Logger
	// Getenv defaults to os.Getenv through the canonicalizer's environment;
	// injected for tests.
	Getenv func(string) string
	// BitnessOf defaults to peinfo.Of; injected for tests.
	BitnessOf func(string) peinfo.Bitness
}

// Discover walks PATH once and returns a record per toolchain executable
// found, in family order, prefixed cross builds after the plain names.
// Records matching a [Compiler] ignore rule come back with Ignored set so
// the driver can report the suppression without probing.
func (d *Discoverer) Discover() []*Record {
	bitnessOf := d.BitnessOf
	if bitnessOf == nil {
		bitnessOf = peinfo.Of
	}

	pathDirs := pathlist.FromEnvList(d.Canon, "PATH", d.Getenv("PATH"))
	pathDirs.Dedup(d.Canon)
	dirs := pathDirs.Compact()

	var records []*Record
	for _, family := range AllFamilies() {
		spec := families[family]
		for _, name := range candidateNames(spec) {
			fullPath := d.findOnPath(dirs, name)
			if fullPath == "" {
				continue
			}
			rec := &Record{
				Family:     family,
				ShortName:  exeBase(fullPath),
				FullPath:   fullPath,
				IncludeEnv: spec.includeEnv,
				LibraryEnv: spec.libraryEnv,
				Bitness:    bitnessOf(fullPath),
				State:      StateDiscovered,
			}
			if d.Ignore.Lookup(ignore.SectionCompiler, rec.ShortName) ||
				d.Ignore.Lookup(ignore.SectionCompiler, rec.FullPath) {
				rec.Ignored = true
			}
			records = append(records, rec)
		}
	}
	return records
}

// candidateNames expands a family's executable names with the cross-prefix
// sweep where the family participates in it.
func candidateNames(spec familySpec) []string {
	names := append([]string(nil), spec.exeNames...)
	if spec.prefixSweep {
		for _, prefix := range crossPrefixes {
			for _, name := range spec.exeNames {
				names = append(names, prefix+name)
			}
		}
	}
	return names
}

// findOnPath returns the absolute path of the first PATH entry holding the
// named executable, or "".
func (d *Discoverer) findOnPath(dirs *pathlist.List, name string) string {
	for _, ext := range exeSuffixes() {
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

// exeSuffixes lists the executable suffixes tried per platform, most
// specific first.
func exeSuffixes() []string {
	if runtime.GOOS == "windows" {
		return []string{".exe", ".bat", ".cmd"}
	}
	return []string{""}
}

// exeBase is the basename including any .exe suffix, the form users see in
// reports and write in ignore rules.
func exeBase(path string) string {
	return filepath.Base(path)
}
