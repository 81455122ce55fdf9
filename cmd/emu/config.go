package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or initialize configuration",
	Long: `Show the effective configuration after the config file, EMU_* environment
variables and flags are applied.

Examples:
  emu config
  EMU_MODS_DIR=/games/celeste/Mods emu config
  emu config init -l /games/celeste/Mods`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to config.yaml",
	Long: `Write the effective configuration to config.yaml in the config directory
(~/.config/emu, or the directory of --config).

Examples:
  emu config init -l /games/celeste/Mods --no-journal`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	dir := configDir()
	if err := cfg.Save(dir); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", filepath.Join(dir, "config.yaml"))
	return nil
}
