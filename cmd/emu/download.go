package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/DonovanMods/everest-mod-updater/internal/domain"

	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download <identifier>",
	Short: "Download and install a new mod",
	Long: `Download a mod and install it into the mods directory.

The identifier is a mod name from the Everest catalog, a GameBanana mod id,
or a GameBanana link. /dl/ links to files the catalog does not know yet are
downloaded directly. Dependencies are installed by the next 'emu update'.

Examples:
  emu download SpringCollab2020
  emu download 150813
  emu download https://gamebanana.com/mods/150813
  emu download https://gamebanana.com/dl/484937`,
	Args: cobra.ExactArgs(1),
	RunE: runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	service, err := initService(cmd)
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer service.Close()

	out := cmd.OutOrStdout()

	mod, err := service.Download(context.Background(), args[0])
	if errors.Is(err, domain.ErrModsDirNotFound) {
		printMissingModsDir(cmd, service)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s Installed %s %s\n", colorGreen("✓"), mod.Name, mod.Version)
	fmt.Fprintln(out, "Mod installed. Run an update to pull in any dependencies.")
	return nil
}
