// SPDX-License-Identifier: MPL-2.0

package compiler

import (
	"fmt"

	"github.com/pathscout/pathscout/internal/pathlist"
	"github.com/pathscout/pathscout/internal/peinfo"
)

// ProbeState tracks a record through its lifecycle:
//
//	Unknown --exe found on PATH--> Discovered
//	Discovered --probe succeeds--> Probed
//	Discovered --probe fails   --> Failed
//	Probed/Failed --exe disappears between runs--> Unknown (cache dropped)
type ProbeState int

const (
	// StateUnknown: no executable located yet.
	StateUnknown ProbeState = iota
	// StateDiscovered: executable found, not probed.
	StateDiscovered
	// StateProbed: probe ran and produced path lists (possibly empty).
	StateProbed
	// StateFailed: probe ran and failed; not retried this run.
	StateFailed
)

// String returns the state name.
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
		return "invalid"
	}
}

// Record is one discovered toolchain driver.
type Record struct {
	// Family is the toolchain lineage; drives probe dispatch.
	Family Family
	// ShortName is the executable basename as found on PATH.
	ShortName string
	// FullPath is the absolute executable path; empty when state is Unknown.
	FullPath string
	// IncludeEnv and LibraryEnv name the env vars this toolchain consults.
	IncludeEnv string
	LibraryEnv string
	// Ignored suppresses probing and reporting for the whole run.
	Ignored bool
	// Bitness is the executable's word size, when determinable.
	Bitness peinfo.Bitness
	// State is the probe lifecycle position.
	State ProbeState
	// CygwinRoot is non-empty when the toolchain reports Cygwin-shaped
	// paths; those paths are re-rooted under it.
	CygwinRoot string

	// IncludePaths and LibraryPaths are filled by a successful probe (or
	// adopted from the cache). Nil until then.
	IncludePaths *pathlist.List
	LibraryPaths *pathlist.List
}

// ID is the stable identity a record is cached under.
func (r *Record) ID() string {
	return fmt.Sprintf("%s/%s", r.Family, r.ShortName)
}

// ListOwner names the record's path lists in reports, e.g. "gcc includes".
func (r *Record) ListOwner(kind string) string {
	return fmt.Sprintf("%s %s", r.ShortName, kind)
}

// markProbed transitions Discovered -> Probed once the lists are attached.
func (r *Record) markProbed(inc, lib *pathlist.List) {
	r.IncludePaths = inc
	r.LibraryPaths = lib
	r.State = StateProbed
}

// markFailed transitions Discovered -> Failed, leaving empty lists so
// callers can still range over them.
func (r *Record) markFailed() {
	r.IncludePaths = &pathlist.List{Owner: r.ListOwner("includes")}
	r.LibraryPaths = &pathlist.List{Owner: r.ListOwner("libraries")}
	r.State = StateFailed
}

// Invalidate returns the record to Unknown when its executable disappeared
// between runs. The caller drops the matching cache keys.
func (r *Record) Invalidate() {
	r.FullPath = ""
	r.IncludePaths = nil
	r.LibraryPaths = nil
	r.State = StateUnknown
}
