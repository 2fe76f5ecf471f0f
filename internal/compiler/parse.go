// SPDX-License-Identifier: MPL-2.0

package compiler

import (
	"strings"
)

const (
	includeBlockStart = "#include <...> search starts here:"
	includeBlockEnd   = "End of search list."
	librariesPrefix   = "libraries: ="
)

// parseIncludeBlock extracts the include directories a GNU/LLVM driver
// prints between the canonical delimiters. Lines inside the block are
// indented; surrounding annotations like "(framework directory)" are
// stripped. Both stdout and stderr lines may be offered; gcc prints the
// block on stderr.
func parseIncludeBlock(lines []string) []string {
	var dirs []string
	inBlock := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == includeBlockStart:
			inBlock = true
		case trimmed == includeBlockEnd:
			inBlock = false
		case inBlock && trimmed != "":
			dirs = append(dirs, strings.TrimSuffix(trimmed, " (framework directory)"))
		}
	}
	return dirs
}

// parseLibraryDirs extracts the library directories from -print-search-dirs
// output: the "libraries: =" line holds an os.PathListSeparator-delimited
// list. The leading '=' marks sysroot-relative paths and is not part of any
// directory.
func parseLibraryDirs(lines []string, listSeparator byte) []string {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, librariesPrefix) {
			continue
		}
		raw := strings.TrimPrefix(trimmed, librariesPrefix)
		var dirs []string
		for _, dir := range strings.Split(raw, string(listSeparator)) {
			dir = strings.TrimSpace(strings.TrimPrefix(dir, "="))
			if dir != "" {
				dirs = append(dirs, dir)
			}
		}
		return dirs
	}
	return nil
}

// parseErrorFragment pulls the message after the last "error:" marker out
// of a failed probe's final stderr line, for the warning shown to the user.
// The whole line comes back when no marker is present.
func parseErrorFragment(line string) string {
	if i := strings.LastIndex(line, "error:"); i >= 0 {
		return strings.TrimSpace(line[i+len("error:"):])
	}
	return strings.TrimSpace(line)
}

// looksCygwin reports whether a reported directory lives in a Cygwin
// filesystem view.
func looksCygwin(dir string) bool {
	return strings.HasPrefix(dir, "/usr/") || strings.HasPrefix(dir, "/cygdrive/")
}
