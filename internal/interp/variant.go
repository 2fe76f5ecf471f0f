// SPDX-License-Identifier: MPL-2.0

package interp

import (
	"errors"
	"fmt"

	"github.com/pathscout/pathscout/internal/ignore"
)

// Variant identifies one interpreter flavour and major lineage.
type Variant string

const (
	// VariantPython2 is CPython 2.x.
	VariantPython2 Variant = "python2"
	// VariantPython3 is CPython 3.x.
	VariantPython3 Variant = "python3"
	// VariantPyPy is PyPy (any lineage).
	VariantPyPy Variant = "pypy"
	// VariantIronPython is IronPython; external mode only.
	VariantIronPython Variant = "ironpython"
	// VariantLua is the reference Lua interpreter.
	VariantLua Variant = "lua"
	// VariantLuaJIT is LuaJIT.
	VariantLuaJIT Variant = "luajit"
	// VariantShell is the POSIX-shell family (sh, bash, zsh); the only
	// variant with an in-process embedded runtime.
	VariantShell Variant = "shell"
)

// ErrInvalidVariant is the sentinel wrapped by InvalidVariantError.
var ErrInvalidVariant = errors.New("invalid interpreter variant")

// InvalidVariantError reports an unrecognized variant tag, typically from a
// stale cache row or a bad selector.
type InvalidVariantError struct {
	Variant string
}

// Error implements the error interface.
func (e *InvalidVariantError) Error() string {
	return fmt.Sprintf("%q is not a recognized interpreter variant", e.Variant)
}

// Unwrap returns ErrInvalidVariant so callers can use errors.Is.
func (e *InvalidVariantError) Unwrap() error { return ErrInvalidVariant }

// String returns the variant tag.
func (v Variant) String() string { return string(v) }

// IsValid reports whether the Variant is one of the recognized flavours.
func (v Variant) IsValid() bool {
	_, ok := variants[v]
	return ok
}

// Section returns the ignore-registry section consulted for this variant.
func (v Variant) Section() ignore.Section {
	return variants[v].section
}

// variantSpec is one row of the dispatch table: how to find the interpreter
// and which programs to feed it.
type variantSpec struct {
	// exeNames are the executable basenames to look for, preferred first.
	exeNames []string
	// section scopes the ignore rules consulted for this variant.
	section ignore.Section
	// embeddable marks flavours with an in-process runtime.
	embeddable bool
	// versionProgram prints the version triple as "MAJOR.MINOR.PATCH".
	versionProgram program
	// pathProgram prints one module-search entry per line.
	pathProgram program
	// modulesProgram prints one "name;version;location;metadata-path" line
	// per installed package. Empty for flavours without a package database.
	modulesProgram program
	// homeProgram prints the interpreter's installation root.
	homeProgram program
	// userSiteProgram prints the per-user install directory. Empty when the
	// flavour has none.
	userSiteProgram program
	// crashSignatures are stdout/stderr prefixes that mark a runtime crash
	// rather than a usable answer.
	crashSignatures []string
}

// program is an inline script plus the flag that feeds it to the
// interpreter's command line.
type program struct {
	flag string
	src  string
}

func (p program) empty() bool { return p.src == "" }

// args builds the interpreter argument list for the program.
func (p program) args() []string { return []string{p.flag, p.src} }

const (
	pyVersionSrc = `import sys; sys.stdout.write("%d.%d.%d" % sys.version_info[:3])`
	pyPathSrc    = `import sys
for p in sys.path:
    if p: sys.stdout.write(p + "\n")`
	pyModulesSrc = `import sys
try:
    from importlib import metadata
    for d in metadata.distributions():
        loc = str(d.locate_file("")) if hasattr(d, "locate_file") else ""
        meta = str(getattr(d, "_path", ""))
        sys.stdout.write("%s;%s;%s;%s\n" % (d.metadata["Name"], d.version, loc, meta))
except ImportError:
    import pkg_resources
    for d in pkg_resources.working_set:
        sys.stdout.write("%s;%s;%s;\n" % (d.project_name, d.version, d.location))`
	pyHomeSrc     = `import sys; sys.stdout.write(sys.prefix)`
	pyUserSiteSrc = `import site, sys; sys.stdout.write(site.USER_SITE or "")`

	luaVersionSrc = `local v = (jit and jit.version) or _VERSION; io.write(v:match("(%d+%.%d+%.?%d*)") or "")`
	luaPathSrc    = `for t in string.gmatch(package.path .. ";" .. package.cpath, "[^;]+") do
  local dir = t:match("^(.-)[^/\\]*%?") or t
  if dir ~= "" then io.write(dir, "\n") end
end`
	luaModulesSrc = `for name in pairs(package.loaded) do
  io.write(name, ";;", (package.searchpath and package.searchpath(name, package.path)) or "", ";\n")
end`
	luaHomeSrc = `io.write(arg and arg[-1] or "")`

	shVersionSrc = `v=${BASH_VERSION:-${ZSH_VERSION:-}}; printf '%s' "${v%%[^0-9.]*}"`
	shPathSrc    = `IFS=:
for p in $FPATH; do [ -n "$p" ] && printf '%s\n' "$p"; done`
	shHomeSrc = `printf '%s' "${SHELL_SESSION_DIR:-$HOME}"`
)

var pythonCrashSignatures = []string{"Traceback (", "ImportError:"}

// variants is the dispatch table. Python variants share the probe programs;
// only the executable names differ.
var variants = map[Variant]variantSpec{
	VariantPython3: {
		exeNames:        []string{"python3", "python"},
		section:         ignore.SectionPython,
		versionProgram:  program{"-c", pyVersionSrc},
		pathProgram:     program{"-c", pyPathSrc},
		modulesProgram:  program{"-c", pyModulesSrc},
		homeProgram:     program{"-c", pyHomeSrc},
		userSiteProgram: program{"-c", pyUserSiteSrc},
		crashSignatures: pythonCrashSignatures,
	},
	VariantPython2: {
		exeNames:        []string{"python2"},
		section:         ignore.SectionPython,
		versionProgram:  program{"-c", pyVersionSrc},
		pathProgram:     program{"-c", pyPathSrc},
		modulesProgram:  program{"-c", pyModulesSrc},
		homeProgram:     program{"-c", pyHomeSrc},
		userSiteProgram: program{"-c", pyUserSiteSrc},
		crashSignatures: pythonCrashSignatures,
	},
	VariantPyPy: {
		exeNames:        []string{"pypy3", "pypy"},
		section:         ignore.SectionPython,
		versionProgram:  program{"-c", pyVersionSrc},
		pathProgram:     program{"-c", pyPathSrc},
		modulesProgram:  program{"-c", pyModulesSrc},
		homeProgram:     program{"-c", pyHomeSrc},
		userSiteProgram: program{"-c", pyUserSiteSrc},
		crashSignatures: pythonCrashSignatures,
	},
	VariantIronPython: {
		exeNames:        []string{"ipy", "ipy64"},
		section:         ignore.SectionPython,
		versionProgram:  program{"-c", pyVersionSrc},
		pathProgram:     program{"-c", pyPathSrc},
		homeProgram:     program{"-c", pyHomeSrc},
		crashSignatures: pythonCrashSignatures,
	},
	VariantLua: {
		exeNames:        []string{"lua", "lua5.4", "lua5.3", "lua5.1"},
		section:         ignore.SectionLua,
		versionProgram:  program{"-e", luaVersionSrc},
		pathProgram:     program{"-e", luaPathSrc},
		modulesProgram:  program{"-e", luaModulesSrc},
		homeProgram:     program{"-e", luaHomeSrc},
		crashSignatures: []string{"lua: "},
	},
	VariantLuaJIT: {
		exeNames:        []string{"luajit"},
		section:         ignore.SectionLua,
		versionProgram:  program{"-e", luaVersionSrc},
		pathProgram:     program{"-e", luaPathSrc},
		modulesProgram:  program{"-e", luaModulesSrc},
		homeProgram:     program{"-e", luaHomeSrc},
		crashSignatures: []string{"luajit: ", "lua: "},
	},
	VariantShell: {
		exeNames:       []string{"bash", "zsh", "sh"},
		section:        ignore.SectionShell,
		embeddable:     true,
		versionProgram: program{"-c", shVersionSrc},
		pathProgram:    program{"-c", shPathSrc},
		homeProgram:    program{"-c", shHomeSrc},
	},
}

// AllVariants returns the variants in probe order: concrete lineages before
// their generic fallbacks.
func AllVariants() []Variant {
	return []Variant{
		VariantPython3, VariantPython2, VariantPyPy, VariantIronPython,
		VariantLua, VariantLuaJIT,
		VariantShell,
	}
}
