package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/DonovanMods/everest-mod-updater/internal/domain"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show installed mods and available updates",
	Long: `Compare every installed mod with the Everest catalog without downloading
anything.

Examples:
  emu status
  emu status -l celeste/Mods`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	service, err := initService(cmd)
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer service.Close()

	out := cmd.OutOrStdout()

	statuses, err := service.Status(context.Background())
	if errors.Is(err, domain.ErrModsDirNotFound) {
		printMissingModsDir(cmd, service)
		return nil
	}
	if err != nil {
		return err
	}

	if len(statuses) == 0 {
		fmt.Fprintf(out, "No mods installed in %s\n", service.ModsDir())
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MOD\tINSTALLED\tCATALOG\tUPDATED\tSTATUS")
	fmt.Fprintln(w, "---\t---------\t-------\t-------\t------")

	var updates int
	for _, s := range statuses {
		catalog := s.CatalogVersion
		state := colorGreen("up to date")
		switch {
		case catalog == "":
			catalog = "-"
			state = colorYellow("not in catalog")
		case s.NeedsUpdate:
			state = colorYellow("update available")
			updates++
		}
		updated := "-"
		if !s.LastInstalled.IsZero() {
			updated = humanize.Time(s.LastInstalled)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", truncate(s.Name, 40), s.LocalVersion, catalog, updated, state)
	}
	w.Flush()

	fmt.Fprintf(out, "\nTotal: %d mod(s), %d update(s) available\n", len(statuses), updates)
	if updates > 0 {
		fmt.Fprintln(out, "Run 'emu update' to install them.")
	}

	return nil
}

// truncate shortens s to maxLen runes, marking the cut with "..."
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
