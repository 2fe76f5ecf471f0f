// SPDX-License-Identifier: MPL-2.0

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pathscout/pathscout/internal/cache"
	"github.com/pathscout/pathscout/internal/config"
	"github.com/pathscout/pathscout/internal/fsys"
	"github.com/pathscout/pathscout/internal/issue"
	"github.com/pathscout/pathscout/internal/pathlist"
	"github.com/pathscout/pathscout/internal/search"
	"github.com/pathscout/pathscout/internal/spawn"

	"github.com/spf13/cobra"
)

var (
	searchCaseSensitive bool
	searchRecursive     bool
	searchUnixPaths     bool
	searchNoCache       bool
	searchGrep          string
	searchIncludes      bool
	searchLibraries     bool
	searchInterpreters  bool
	searchInterpSel     string
	searchEnvVars       []string
	searchBitness       string

	searchCmd = &cobra.Command{
		Use:   "search <pattern>",
		Short: "Search developer search paths for files matching a glob",
		Long: `Search developer search paths for files matching a glob pattern.

The pattern matches file names, not full paths ('*' never crosses a
path separator unless --recursive descends there). When no domain flag
is given, every domain is searched: compiler include directories,
compiler library directories, and interpreter module paths.

Exit status is 0 when at least one match was found, 1 when nothing
matched, and 2 on a fatal error such as a malformed pattern.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args[0])
		},
	}
)

func init() {
	flags := searchCmd.Flags()

	flags.BoolVar(&searchCaseSensitive, "case-sensitive", false, "match case-sensitively even on case-folding platforms")
	flags.BoolVarP(&searchRecursive, "recursive", "r", false, "descend into subdirectories of each search path")
	flags.BoolVarP(&searchUnixPaths, "unix", "u", false, "print matches with forward slashes")
	flags.BoolVar(&searchNoCache, "no-cache", false, "probe everything fresh and do not persist results")
	flags.StringVar(&searchGrep, "grep", "", "only report files whose content matches this regular expression")

	flags.BoolVar(&searchIncludes, "includes", false, "search compiler include directories")
	flags.BoolVar(&searchLibraries, "libraries", false, "search compiler library directories")
	flags.BoolVar(&searchInterpreters, "interpreters", false, "search interpreter module paths")
	flags.StringVar(&searchInterpSel, "interp", "all", "interpreter selector: all, default, or a variant name")
	flags.StringSliceVar(&searchEnvVars, "env", nil, "additional PATH-style environment variables to search")
	flags.StringVar(&searchBitness, "bitness", "", "restrict compiler library probes: auto, 32, or 64")
}

func runSearch(cmd *cobra.Command, pattern string) error {
	cfg := appCfg

	bitness := cfg.Bitness
	if searchBitness != "" {
		bitness = config.Bitness(searchBitness)
		if !bitness.IsValid() {
			cmd.SilenceUsage = true
			return &ExitError{Code: exitFatal, Err: &config.InvalidBitnessError{Value: bitness}}
		}
	}

	ignorePath, err := config.IgnoreFilePath()
	if err != nil {
		logger.Warn("ignore file unavailable", "error", err)
	}
	cachePath := ""
	if dir, err := config.CacheDir(); err != nil {
		logger.Warn("cache directory unavailable", "error", err)
	} else {
		cachePath = filepath.Join(dir, cache.FileName)
	}
	if !searchNoCache && cfg.UseCache {
		if err := config.EnsureCacheDir(); err != nil {
			logger.Warn("cannot create cache directory", "error", err)
		}
	}

	driver := &search.Driver{
		FS:               fsys.OS{},
		Canon:            pathlist.NewCanonicalizer(pathlist.WithCaseFolding(!flagOrCfg(searchCaseSensitive, cfg.CaseSensitive) && pathlist.FoldsCase())),
		Runner:           spawn.Exec{},
		Logger:           logger,
		Getenv:           os.Getenv,
		IgnorePath:       ignorePath,
		CachePath:        cachePath,
		Timeout:          time.Duration(cfg.ProbeTimeoutSeconds) * time.Second,
		RequestedBitness: bitness.Requested(),
	}

	opts := search.Options{
		Pattern:             pattern,
		Domains:             selectedDomains(),
		InterpreterSelector: search.Selector(searchInterpSel),
		EnvVars:             append(append([]string(nil), cfg.EnvVars...), searchEnvVars...),
		Flags: search.Flags{
			CaseSensitive: flagOrCfg(searchCaseSensitive, cfg.CaseSensitive),
			Recursive:     flagOrCfg(searchRecursive, cfg.Recursive),
			NoCache:       searchNoCache || !cfg.UseCache,
			Grep:          searchGrep,
		},
	}

	unix := flagOrCfg(searchUnixPaths, cfg.UnixPaths)
	count, err := driver.Run(cmd.Context(), opts, func(ev search.Event) {
		renderEvent(ev, unix)
	})
	if err != nil {
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
		var ae *issue.ActionableError
		if errors.As(err, &ae) {
			if guidance := issue.Lookup(ae.Kind); guidance != nil {
				if rendered, rerr := guidance.Render(glamourStyle(cfg.UI.ColorScheme)); rerr == nil {
					fmt.Fprint(os.Stderr, rendered)
				}
			}
		}
		return &ExitError{Code: exitFatal, Err: err}
	}
	if count == 0 {
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		fmt.Fprintln(os.Stderr, SubtitleStyle.Render("no matches"))
		return &ExitError{Code: exitNoMatches, Err: errors.New("no matches")}
	}
	logger.Debug("search finished", "matches", count)
	return nil
}

// selectedDomains returns the domains named by flags, or every domain when
// none was selected.
func selectedDomains() []search.DomainTag {
	var domains []search.DomainTag
	if searchIncludes {
		domains = append(domains, search.DomainCompilerInclude)
	}
	if searchLibraries {
		domains = append(domains, search.DomainCompilerLibrary)
	}
	if searchInterpreters {
		domains = append(domains, search.DomainInterpreters)
	}
	if len(domains) == 0 {
		domains = []search.DomainTag{
			search.DomainCompilerInclude,
			search.DomainCompilerLibrary,
			search.DomainInterpreters,
		}
	}
	return domains
}

// flagOrCfg prefers an explicitly set flag over the configured default.
func flagOrCfg(flag, cfg bool) bool { return flag || cfg }

// glamourStyle maps the configured color scheme to a glamour style name.
func glamourStyle(scheme config.ColorScheme) string {
	switch scheme {
	case config.ColorSchemeDark:
		return "dark"
	case config.ColorSchemeLight:
		return "light"
	default:
		return "auto"
	}
}

func renderEvent(ev search.Event, unix bool) {
	if ev.IsHeader() {
		fmt.Println(SectionStyle.Render(ev.Title))
		return
	}
	m := ev.Match
	path := m.Path
	if unix {
		path = pathlist.ToUnix(path)
	}
	line := "  " + MatchStyle.Render(path)
	if m.Kind == search.MatchDirectory {
		line += DetailStyle.Render("  <dir>")
	} else {
		line += DetailStyle.Render(fmt.Sprintf("  %d bytes  %s", m.Size, m.ModTime.Format("2006-01-02 15:04")))
	}
	fmt.Println(line)
	if m.ContentMatch != nil {
		fmt.Println(DetailStyle.Render(clipToColumns(fmt.Sprintf("    %d: %s", m.ContentMatch.LineNumber, m.ContentMatch.Line))))
	}
}

// clipToColumns truncates a report line to the terminal width advertised by
// COLUMNS, so long grep hits do not wrap and break the match list.
func clipToColumns(s string) string {
	cols, err := strconv.Atoi(os.Getenv("COLUMNS"))
	if err != nil || cols <= 4 {
		return s
	}
	if len(s) <= cols {
		return s
	}
	return s[:cols-3] + "..."
}
