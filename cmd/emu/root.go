package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/DonovanMods/everest-mod-updater/internal/core"
	"github.com/DonovanMods/everest-mod-updater/internal/steam"
	"github.com/DonovanMods/everest-mod-updater/internal/storage/config"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version = "0.3.0"

	// Global flags
	configFile string
	modsDir    string
	dataDir    string
	logLevel   string
	verbose    bool
	noJournal  bool
	noColor    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "emu",
	Short: "Everest mod updater - keep Celeste mods up to date",
	Long: `emu downloads, updates and verifies Everest mods for Celeste.

It reads the manifest of every installed mod, compares versions with the
Everest update catalog, and installs whatever is missing or outdated,
including new dependencies.

Use subcommands for operations. Run 'emu --help' for available commands.`,
	Version:       version,
	SilenceUsage:  true, // Runtime errors should not print usage
	SilenceErrors: true, // We handle error output in Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ~/.config/emu/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&modsDir, "mods", "l", "", "location of your mods (default: celeste/Mods)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory for the install journal (default: ~/.local/share/emu)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default: info)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (same as --log-level debug)")
	rootCmd.PersistentFlags().BoolVar(&noJournal, "no-journal", false, "do not record installs in the journal")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// colorEnabled returns true if colored output should be used (respects --no-color and NO_COLOR env).
// NO_COLOR: if set (any value), color is disabled per https://no-color.org
func colorEnabled() bool {
	if noColor {
		return false
	}
	return os.Getenv("NO_COLOR") == ""
}

var (
	greenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	redStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	yellowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

func colorize(style lipgloss.Style, s string) string {
	if !colorEnabled() {
		return s
	}
	return style.Render(s)
}

func colorGreen(s string) string  { return colorize(greenStyle, s) }
func colorRed(s string) string    { return colorize(redStyle, s) }
func colorYellow(s string) string { return colorize(yellowStyle, s) }

// Execute runs the root command. Exit codes: 0 = success, 1 = error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig layers the config file, EMU_* environment variables and the
// command line flags
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadFile(configFile)
	} else {
		cfg, err = config.Load(config.DefaultConfigDir())
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.Overlay(cmd.Flags()); err != nil {
		return nil, err
	}

	if verbose {
		cfg.LogLevel = "debug"
	}
	if noJournal {
		cfg.Journal = false
	}

	return cfg, nil
}

// configDir is where 'emu config init' writes config.yaml
func configDir() string {
	if configFile != "" {
		return filepath.Dir(configFile)
	}
	return config.DefaultConfigDir()
}

func newLogger(cmd *cobra.Command, level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	return log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		Prefix:          "emu",
		Level:           lvl,
		ReportTimestamp: lvl == log.DebugLevel,
	}), nil
}

// initService creates and initializes the core service
func initService(cmd *cobra.Command) (*core.Service, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cmd, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	progress := newProgressRenderer(cmd.ErrOrStderr(), logger)

	return core.NewService(core.ServiceConfig{
		Config:   cfg,
		Logger:   logger,
		Progress: progress.Update,
	})
}

// printMissingModsDir reports a missing mods directory; the run ends normally
func printMissingModsDir(cmd *cobra.Command, svc *core.Service) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Mods directory %s does not exist. Use --mods to point at your Celeste/Mods folder.\n", svc.ModsDir())
	if dir, err := steam.FindModsDir(steam.Roots()); err == nil {
		fmt.Fprintf(out, "Found a Steam install of Celeste: emu --mods %q\n", dir)
	}
}
