// SPDX-License-Identifier: MPL-2.0

// Package main implements the pathscout CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/pathscout/pathscout/internal/config"
	"github.com/pathscout/pathscout/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// appCfg holds the loaded configuration, populated by initRootConfig.
	appCfg = config.DefaultConfig()
	// logger is the shared CLI logger, writing to stderr.
	logger = log.New(os.Stderr)

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "pathscout",
		Short: "Find files across compiler and interpreter search paths",
		Long: TitleStyle.Render("pathscout") + SubtitleStyle.Render(" - Find files across compiler and interpreter search paths") + `

pathscout discovers the compilers and script interpreters installed on
this machine, probes each one for its search directories (include paths,
library paths, module paths), and then looks for files matching a glob
pattern inside those directories - including inside zip-style archives
on interpreter paths.

Probe results are cached between runs so repeated searches are fast.

` + SubtitleStyle.Render("Examples:") + `
  pathscout search "std*.h"                 Search every domain
  pathscout search --libraries "libfoo*"    Compiler library dirs only
  pathscout search --interp python3 "json*" One interpreter's modules
  pathscout search -r --grep "dlopen" "*.h" Grep file contents
  pathscout cache clear                     Forget all probe results`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/pathscout/config.toml)")

	// Add subcommands
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(configCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Use fang.Execute for enhanced Cobra styling
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(exitFatal)
	}
}

// initRootConfig reads in config file and ENV variables if set.
func initRootConfig() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		// Always surface config loading errors; a malformed file falls
		// back to defaults rather than aborting the run.
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
	}
	if cfg != nil {
		appCfg = cfg
	}

	// Apply verbose from config if not set via flag
	if !verbose {
		verbose = appCfg.UI.Verbose
	}
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
