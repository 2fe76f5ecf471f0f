// SPDX-License-Identifier: MPL-2.0

// Package interp discovers script interpreters on PATH and probes each one
// for its module search path, its per-user install directory, and its
// installed-module inventory. Probing runs in one of two modes: external
// (spawn the interpreter with a short program and parse its stdout) or
// embedded (run the program in-process through a hosted runtime, currently
// the POSIX-shell family). Results persist in the probe cache across runs.
package interp
