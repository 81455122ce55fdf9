package main

import (
	"errors"
	"fmt"

	"github.com/DonovanMods/everest-mod-updater/internal/domain"
	"github.com/DonovanMods/everest-mod-updater/internal/steam"

	"github.com/spf13/cobra"
)

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Find Celeste's Mods folder in your Steam libraries",
	Long: `Search the local Steam libraries for a Celeste install and print its Mods folder.

Set STEAM_ROOT to search a Steam installation in a non-standard location.

Examples:
  emu locate
  emu update --mods "$(emu locate)"`,
	Args: cobra.NoArgs,
	RunE: runLocate,
}

func init() {
	rootCmd.AddCommand(locateCmd)
}

func runLocate(cmd *cobra.Command, args []string) error {
	dir, err := steam.FindModsDir(steam.Roots())
	if errors.Is(err, domain.ErrModsDirNotFound) {
		fmt.Fprintln(cmd.ErrOrStderr(), "No Steam install of Celeste with a Mods folder was found.")
		return err
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), dir)
	return nil
}
