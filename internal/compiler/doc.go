// SPDX-License-Identifier: MPL-2.0

// Package compiler discovers installed C/C++ toolchains on PATH and probes
// each one for its built-in include and library search directories. GNU and
// LLVM family compilers are asked directly (a -v preprocessor run plus
// -print-search-dirs); MSVC, Borland and Watcom answer through their
// documented environment variables and configuration files. Results are
// persisted in the probe cache so a second run with an unchanged toolchain
// set spawns nothing.
package compiler
