// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pathscout/pathscout/internal/cache"
	"github.com/pathscout/pathscout/internal/config"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the persistent probe cache",
	Long: `Inspect or clear the persistent probe cache.

Probe results (compiler include/library directories, interpreter module
paths and installed modules) are cached between runs. The cache lives in:
  - Linux: ~/.cache/pathscout/probe.cache
  - macOS: ~/Library/Caches/pathscout/probe.cache
  - Windows: %LOCALAPPDATA%\pathscout\probe.cache`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	cacheCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print every cached probe entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showCache()
		},
	})

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete the cache file so every tool is re-probed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return clearCache()
		},
	})

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the cache file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cacheFilePath()
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	})
}

func cacheFilePath() (string, error) {
	dir, err := config.CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, cache.FileName), nil
}

func showCache() error {
	path, err := cacheFilePath()
	if err != nil {
		return err
	}
	c := cache.Open(path, logger)

	sections := c.Sections()
	if len(sections) == 0 {
		fmt.Println(SubtitleStyle.Render("cache is empty"))
		return nil
	}
	for _, section := range sections {
		fmt.Println(SectionStyle.Render("[" + section + "]"))
		for _, key := range c.Keys(section) {
			var raw string
			if c.Get(section, key, "%s", &raw) == 1 {
				fmt.Printf("  %s = %s\n", key, DetailStyle.Render(raw))
			}
		}
	}
	return nil
}

func clearCache() error {
	path, err := cacheFilePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			fmt.Println(SubtitleStyle.Render("cache is already empty"))
			return nil
		}
		return fmt.Errorf("failed to remove cache file: %w", err)
	}
	fmt.Println("Cache cleared: " + DetailStyle.Render(path))
	return nil
}
