package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/DonovanMods/everest-mod-updater/internal/domain"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [mod]",
	Short: "Show recent install attempts",
	Long: `Show the install journal, newest first. Every update and download records
one entry per mod it tried to install, including failures.

Examples:
  emu history
  emu history SpringCollab2020
  emu history --limit 50`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of entries (0 for all)")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	service, err := initService(cmd)
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer service.Close()

	out := cmd.OutOrStdout()

	var modName string
	if len(args) > 0 {
		modName = args[0]
	}

	records, err := service.History(modName, historyLimit)
	if errors.Is(err, domain.ErrJournalDisabled) {
		fmt.Fprintln(out, "The install journal is disabled.")
		return nil
	}
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Fprintln(out, "No installs recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tMOD\tVERSION\tSOURCE\tRESULT")
	fmt.Fprintln(w, "----\t---\t-------\t------\t------")
	for _, rec := range records {
		result := colorGreen(string(rec.Status))
		if rec.Status == domain.InstallFailed {
			result = colorRed(string(rec.Status)) + ": " + rec.Error
		}
		source := rec.URL
		if source == "" {
			source = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			humanize.Time(rec.InstalledAt),
			truncate(rec.ModName, 40),
			valueOrDash(rec.Version),
			truncate(source, 50),
			result,
		)
	}
	w.Flush()

	return nil
}

func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
