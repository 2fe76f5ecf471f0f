// SPDX-License-Identifier: MPL-2.0

package interp

import (
	"fmt"

	"github.com/pathscout/pathscout/internal/pathlist"
	"github.com/pathscout/pathscout/internal/peinfo"
)

// ProbeState tracks a record through a run:
//
//	Unknown --exe found on PATH--> Discovered
//	Discovered --probe succeeds--> Probed
//	Discovered --probe fails   --> Failed
//	Probed/Failed --exe disappears between runs--> Unknown (cache row dropped)
type ProbeState int

const (
	// StateUnknown: no executable located yet.
	StateUnknown ProbeState = iota
	// StateDiscovered: executable found, not probed.
	StateDiscovered
	// StateProbed: probe ran and produced a module search path.
	StateProbed
	// StateFailed: probe crashed or timed out; not retried this run.
	StateFailed
)

// String names the state for logs.
func (s ProbeState) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateDiscovered:
		return "discovered"
	case StateProbed:
		return "probed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("ProbeState(%d)", int(s))
	}
}

// Version is an interpreter version triple. Known is false when the version
// probe output could not be parsed; such records run external-only.
type Version struct {
	Major, Minor, Patch int
	Known               bool
}

// String renders "3.12.1", or "unknown".
func (v Version) String() string {
	if !v.Known {
		return "unknown"
	}
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

type (
	// Module is one installed package reported by an interpreter.
	Module struct {
		Name    string
		Version string
		// Location is the directory or archive holding the package.
		Location string
		// MetadataPath points at the package-metadata file, when known.
		MetadataPath string
		// IsArchive is true when Location names an archive.
		IsArchive bool
	}

	// Record is one discovered interpreter.
	Record struct {
		Variant Variant
		// ShortName is the executable basename, the form users see in
		// reports and write in ignore rules.
		ShortName string
		// Executable is the absolute path found on PATH.
		Executable string
		Version    Version
		// Bitness of the executable. Embedded mode requires equality
		// with the host process.
		Bitness peinfo.Bitness
		// IsDefault marks the first interpreter of its section on PATH.
		IsDefault bool
		// IsEmbeddable is the flavour capability, before the bitness check.
		IsEmbeddable bool
		Ignored      bool
		// HomeDir is the installation root; UserSiteDir the per-user
		// install directory, when the flavour has one.
		HomeDir     string
		UserSiteDir string

		State            ProbeState
		ModuleSearchPath *pathlist.List
		InstalledModules []Module
	}
)

// ID keys the record in logs and in the cache: "python3/python3.exe".
func (r *Record) ID() string {
	return string(r.Variant) + "/" + r.ShortName
}

// ListOwner names the record's module search path in reports.
func (r *Record) ListOwner() string {
	return r.ShortName + " module path"
}

func (r *Record) markProbed(path *pathlist.List, modules []Module) {
	r.ModuleSearchPath = path
	r.InstalledModules = modules
	r.State = StateProbed
}

// markFailed transitions Discovered -> Failed, leaving an empty list so
// reporting code never nil-checks.
func (r *Record) markFailed() {
	r.ModuleSearchPath = &pathlist.List{Owner: r.ListOwner()}
	r.InstalledModules = nil
	r.State = StateFailed
}

// Invalidate resets a cached record whose executable disappeared.
func (r *Record) Invalidate() {
	r.Executable = ""
	r.ModuleSearchPath = nil
	r.InstalledModules = nil
	r.State = StateUnknown
}
