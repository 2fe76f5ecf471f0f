// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"

	"github.com/pathscout/pathscout/internal/config"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage pathscout configuration",
	Long: `Manage pathscout configuration.

Configuration is stored in:
  - Linux: ~/.config/pathscout/config.toml
  - macOS: ~/Library/Application Support/pathscout/config.toml
  - Windows: %APPDATA%\pathscout\config.toml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig()
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfigFile()
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFilePath()
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	})
}

func configFilePath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.DefaultConfigPath()
}

func showConfig() error {
	body, err := toml.Marshal(appCfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	fmt.Print(string(body))
	return nil
}

func initConfigFile() error {
	path, err := configFilePath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		fmt.Println(WarningStyle.Render("Config file already exists: ") + path)
		return nil
	}
	if err := config.Save(config.DefaultConfig(), path); err != nil {
		return err
	}
	fmt.Println("Created config file: " + DetailStyle.Render(path))
	return nil
}
