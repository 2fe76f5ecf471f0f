// SPDX-License-Identifier: MPL-2.0

package pathlist

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// canonicalCacheSize bounds the memoization table. Search runs touch the same
// directories many times (once per ignore lookup, once per match), so the
// table stays small in practice.
const canonicalCacheSize = 4096

// windowsEnvRef matches %NAME% environment references.
var windowsEnvRef = regexp.MustCompile(`%([A-Za-z_][A-Za-z0-9_]*)%`)

// Canonicalizer turns raw path strings into their canonical form: environment
// references expanded, "." and ".." resolved, the path made absolute, and a
// Windows drive letter lowered. Canonicalize is idempotent. Results are
// memoized because the matcher canonicalizes the same candidates repeatedly.
type Canonicalizer struct {
	cache   *lru.Cache[string, string]
	cwd     string
	getenv  func(string) string
	caseFld bool
}

// Option configures a Canonicalizer.
type Option func(*Canonicalizer)

// WithGetenv overrides the environment lookup used for reference expansion.
func WithGetenv(fn func(string) string) Option {
	return func(c *Canonicalizer) { c.getenv = fn }
}

// WithWorkingDir overrides the working directory used for IsCWD and for
// making relative paths absolute.
func WithWorkingDir(dir string) Option {
	return func(c *Canonicalizer) { c.cwd = dir }
}

// WithCaseFolding forces case-insensitive comparison keys on or off. The
// default follows the host: on for Windows and macOS, off elsewhere.
func WithCaseFolding(on bool) Option {
	return func(c *Canonicalizer) { c.caseFld = on }
}

// NewCanonicalizer builds a Canonicalizer with host defaults.
func NewCanonicalizer(opts ...Option) *Canonicalizer {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	c := &Canonicalizer{
		cwd:     cwd,
		getenv:  os.Getenv,
		caseFld: FoldsCase(),
	}
	for _, opt := range opts {
		opt(c)
	}
	// lru.New only fails for a non-positive size.
	c.cache, _ = lru.New[string, string](canonicalCacheSize)
	return c
}

// FoldsCase reports whether the host filesystem compares names
// case-insensitively.
func FoldsCase() bool {
	return runtime.GOOS == "windows" || runtime.GOOS == "darwin"
}

// Canonicalize returns the canonical form of path.
func (c *Canonicalizer) Canonicalize(path string) string {
	if canon, ok := c.cache.Get(path); ok {
		return canon
	}
	canon := c.canonicalize(path)
	c.cache.Add(path, canon)
	// Canonical forms map to themselves so the idempotence law holds even
	// when the environment changes mid-run.
	c.cache.Add(canon, canon)
	return canon
}

func (c *Canonicalizer) canonicalize(path string) string {
	expanded := c.expandEnv(path)
	expanded = filepath.FromSlash(expanded)
	if !filepath.IsAbs(expanded) {
		expanded = filepath.Join(c.cwd, expanded)
	}
	cleaned := filepath.Clean(expanded)
	return lowerDrive(cleaned)
}

// CompareKey returns the string used for duplicate detection and ignore
// matching: the canonical path, case-folded when the host filesystem ignores
// case. Path component casing is otherwise preserved in CanonicalPath.
func (c *Canonicalizer) CompareKey(canonical string) string {
	if c.caseFld {
		return strings.ToLower(canonical)
	}
	return canonical
}

// IsCWD reports whether the canonical path names the working directory.
func (c *Canonicalizer) IsCWD(canonical string) bool {
	return c.CompareKey(canonical) == c.CompareKey(lowerDrive(filepath.Clean(c.cwd)))
}

// ToUnix renders a canonical path with forward slashes for display.
func ToUnix(path string) string {
	return strings.ReplaceAll(path, `\`, "/")
}

// expandEnv expands both $NAME/${NAME} and %NAME% references. Unknown
// references expand to the empty string, matching os.Expand.
func (c *Canonicalizer) expandEnv(path string) string {
	expanded := os.Expand(path, c.getenv)
	return windowsEnvRef.ReplaceAllStringFunc(expanded, func(ref string) string {
		return c.getenv(ref[1 : len(ref)-1])
	})
}

// lowerDrive lowers a leading Windows drive letter ("C:\x" -> "c:\x").
func lowerDrive(path string) string {
	if len(path) >= 2 && path[1] == ':' && path[0] >= 'A' && path[0] <= 'Z' {
		return string(path[0]+'a'-'A') + path[1:]
	}
	return path
}
