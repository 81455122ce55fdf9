package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/DonovanMods/everest-mod-updater/internal/domain"
	"github.com/DonovanMods/everest-mod-updater/internal/source/everest"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g. EMU_MODS_DIR
const EnvPrefix = "EMU"

// Config holds global application settings
type Config struct {
	ModsDir       string `yaml:"mods_dir"`
	UpdateURL     string `yaml:"update_url"`
	MirrorPattern string `yaml:"mirror_pattern"`
	LevelsetsFile string `yaml:"disabled_levelsets_file"`
	DataDir       string `yaml:"data_dir"`
	LogLevel      string `yaml:"log_level"`
	Journal       bool   `yaml:"journal"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		ModsDir:       "celeste/Mods",
		UpdateURL:     everest.DefaultUpdateURL,
		MirrorPattern: everest.DefaultMirrorPattern,
		LevelsetsFile: "disabledlevelsets.txt",
		DataDir:       DefaultDataDir(),
		LogLevel:      "info",
		Journal:       true,
	}
}

// DefaultConfigDir returns ~/.config/emu, or .emu when the home directory is unknown
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".emu"
	}
	return filepath.Join(home, ".config", "emu")
}

// DefaultDataDir returns ~/.local/share/emu, or .emu when the home directory is unknown
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".emu"
	}
	return filepath.Join(home, ".local", "share", "emu")
}

// Load reads config.yaml from the given directory. A missing file yields defaults.
func Load(configDir string) (*Config, error) {
	cfg := Default()

	configPath := filepath.Join(configDir, "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := cfg.decode(data); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads an explicitly named config file, which must exist
func LoadFile(path string) (*Config, error) {
	path, err := ParseConfigPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := cfg.decode(data); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("%w: parsing config: %v", domain.ErrInvalidConfig, err)
	}
	return c.Validate()
}

// Validate checks values that would otherwise fail much later
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ModsDir) == "" {
		return fmt.Errorf("%w: mods_dir cannot be empty", domain.ErrInvalidConfig)
	}
	if strings.Count(c.MirrorPattern, "%d") != 1 {
		return fmt.Errorf("%w: mirror_pattern must contain exactly one %%d", domain.ErrInvalidConfig)
	}
	return nil
}

// flagKeys maps command-line flag names to config keys
var flagKeys = map[string]string{
	"mods":      "mods_dir",
	"data":      "data_dir",
	"log-level": "log_level",
}

// Overlay applies EMU_* environment variables and explicitly set flags on
// top of the file values. Precedence: flag > environment > file > default.
func (c *Config) Overlay(flags *pflag.FlagSet) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("mods_dir", c.ModsDir)
	v.SetDefault("update_url", c.UpdateURL)
	v.SetDefault("mirror_pattern", c.MirrorPattern)
	v.SetDefault("disabled_levelsets_file", c.LevelsetsFile)
	v.SetDefault("data_dir", c.DataDir)
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("journal", c.Journal)

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	c.ModsDir = v.GetString("mods_dir")
	c.UpdateURL = v.GetString("update_url")
	c.MirrorPattern = v.GetString("mirror_pattern")
	c.LevelsetsFile = v.GetString("disabled_levelsets_file")
	c.DataDir = v.GetString("data_dir")
	c.LogLevel = v.GetString("log_level")
	c.Journal = v.GetBool("journal")

	return c.Validate()
}

// Save writes configuration to the given directory
func (c *Config) Save(configDir string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}
