// SPDX-License-Identifier: MPL-2.0

package compiler

import (
	"errors"
	"fmt"
)

// ErrInvalidFamily is the sentinel error wrapped by InvalidFamilyError.
var ErrInvalidFamily = errors.New("invalid compiler family")

// Family identifies a toolchain lineage. The probing strategy, the
// environment variables a toolchain consults, and the recognized executable
// names are all dispatched on it.
type Family string

const (
	// FamilyGnuC is gcc and prefixed cross-gcc builds.
	FamilyGnuC Family = "gnu-c"
	// FamilyGnuCxx is g++ and prefixed cross-g++ builds.
	FamilyGnuCxx Family = "gnu-c++"
	// FamilyMsvc is the Microsoft compiler (cl.exe).
	FamilyMsvc Family = "msvc"
	// FamilyClang is clang and clang-cl.
	FamilyClang Family = "clang"
	// FamilyIntel is the Intel LLVM-based compilers (icx, dpcpp).
	FamilyIntel Family = "intel"
	// FamilyBorland is the Borland/Embarcadero compilers (bcc32).
	FamilyBorland Family = "borland"
	// FamilyWatcom is Open Watcom (wcc386, wcl386).
	FamilyWatcom Family = "watcom"
)

// InvalidFamilyError is returned when a Family value is not recognized.
type InvalidFamilyError struct {
	Value Family
}

// Error implements the error interface.
func (e *InvalidFamilyError) Error() string {
	return fmt.Sprintf("invalid compiler family %q", string(e.Value))
}

// Unwrap returns ErrInvalidFamily so callers can use errors.Is.
func (e *InvalidFamilyError) Unwrap() error { return ErrInvalidFamily }

// IsValid reports whether the Family is one of the recognized lineages.
func (f Family) IsValid() bool {
	_, ok := families[f]
	return ok
}

// String returns the family tag.
func (f Family) String() string { return string(f) }

// probeStrategy selects how a family's directories are discovered.
type probeStrategy int

const (
	// strategySpawn asks the compiler itself (GNU/LLVM -v run).
	strategySpawn probeStrategy = iota
	// strategyEnv reads the documented environment variables.
	strategyEnv
	// strategyConfigFile reads a configuration file beside the executable.
	strategyConfigFile
	// strategyRoot derives directories from a single root variable.
	strategyRoot
)

// familySpec is the per-family dispatch record.
type familySpec struct {
	strategy probeStrategy
	// exeNames are the unprefixed executable basenames (without .exe).
	exeNames []string
	// includeEnv / libraryEnv name the env vars the toolchain consults for
	// extra include and library directories.
	includeEnv string
	libraryEnv string
	// language is the -x argument for spawn-strategy include probes.
	language string
	// cxx marks C++ drivers, which get the c++ header subdirectory scan.
	cxx bool
	// prefixSweep enables probing prefixed cross builds of the exe names.
	prefixSweep bool
	// bitnessFlag reports whether the driver accepts -m32/-m64.
	bitnessFlag bool
}

// families is the dispatch table. Order of exeNames matters: the first name
// found on PATH becomes the family's default record.
var families = map[Family]familySpec{
	FamilyGnuC: {
		strategy:    strategySpawn,
		exeNames:    []string{"gcc", "cc"},
		includeEnv:  "C_INCLUDE_PATH",
		libraryEnv:  "LIBRARY_PATH",
		language:    "c",
		prefixSweep: true,
		bitnessFlag: true,
	},
	FamilyGnuCxx: {
		strategy:    strategySpawn,
		exeNames:    []string{"g++", "c++"},
		includeEnv:  "CPLUS_INCLUDE_PATH",
		libraryEnv:  "LIBRARY_PATH",
		language:    "c++",
		cxx:         true,
		prefixSweep: true,
		bitnessFlag: true,
	},
	FamilyClang: {
		strategy:    strategySpawn,
		exeNames:    []string{"clang", "clang++", "clang-cl"},
		includeEnv:  "C_INCLUDE_PATH",
		libraryEnv:  "LIBRARY_PATH",
		language:    "c",
		bitnessFlag: true,
	},
	FamilyIntel: {
		strategy:    strategySpawn,
		exeNames:    []string{"icx", "icpx", "dpcpp"},
		includeEnv:  "C_INCLUDE_PATH",
		libraryEnv:  "LIBRARY_PATH",
		language:    "c",
		bitnessFlag: true,
	},
	FamilyMsvc: {
		strategy:   strategyEnv,
		exeNames:   []string{"cl"},
		includeEnv: "INCLUDE",
		libraryEnv: "LIB",
	},
	FamilyBorland: {
		strategy:   strategyConfigFile,
		exeNames:   []string{"bcc32", "bcc32c"},
		includeEnv: "INCLUDE",
		libraryEnv: "LIB",
	},
	FamilyWatcom: {
		strategy:   strategyRoot,
		exeNames:   []string{"wcc386", "wcl386", "wcc"},
		includeEnv: "WATCOM",
		libraryEnv: "WATCOM",
	},
}

// pollutingEnvVars are cleared for the duration of a spawn-strategy probe so
// user environment does not leak into the reported built-in lists.
var pollutingEnvVars = []string{
	"C_INCLUDE_PATH",
	"CPLUS_INCLUDE_PATH",
	"CPATH",
	"LIBRARY_PATH",
}

// crossPrefixes are the toolchain triplet prefixes swept in addition to the
// unprefixed GNU names. The set is fixed at build time; individual prefixed
// records can be suppressed through the ignore registry.
var crossPrefixes = []string{
	"x86_64-w64-mingw32-",
	"i686-w64-mingw32-",
	"arm-none-eabi-",
	"avr-",
}

// AllFamilies lists the families in their reporting order.
func AllFamilies() []Family {
	return []Family{
		FamilyGnuC, FamilyGnuCxx, FamilyClang, FamilyIntel,
		FamilyMsvc, FamilyBorland, FamilyWatcom,
	}
}
