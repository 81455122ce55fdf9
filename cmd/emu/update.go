package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/DonovanMods/everest-mod-updater/internal/domain"

	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update installed mods and their dependencies",
	Long: `Update every installed mod that has a newer version in the Everest catalog,
and install any dependency that is not installed yet.

Updates replace the mod's directory with the freshly downloaded archive.
The run stops at the first failure.

Examples:
  emu update
  emu update -l ~/.steam/steam/steamapps/common/Celeste/Mods`,
	Args: cobra.NoArgs,
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	service, err := initService(cmd)
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer service.Close()

	out := cmd.OutOrStdout()

	resolution, err := service.Update(context.Background())
	if errors.Is(err, domain.ErrModsDirNotFound) {
		printMissingModsDir(cmd, service)
		return nil
	}
	if err != nil {
		return err
	}

	if len(resolution.Installed) == 0 {
		fmt.Fprintf(out, "%s All %d mod(s) are up to date.\n", colorGreen("✓"), len(resolution.Have))
		return nil
	}

	fmt.Fprintf(out, "%s Installed %d mod(s): %s\n", colorGreen("✓"), len(resolution.Installed), strings.Join(resolution.Installed, ", "))
	return nil
}
