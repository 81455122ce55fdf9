// Package config loads emu settings from config.yaml, EMU_* environment
// variables and command-line flags, plus the disabled levelsets list.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ParseConfigPath validates a config file path and returns it cleaned and absolute.
// Relative paths are resolved against the working directory. It returns an error if:
//   - The path is empty
//   - The file does not exist
//   - The path points to a directory instead of a file
//   - The file does not have a .yaml or .yml extension
func ParseConfigPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("config path cannot be empty")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.New("config file does not exist")
		}
		return "", err
	}

	if info.IsDir() {
		return "", errors.New("config path is a directory, not a file")
	}

	ext := strings.ToLower(filepath.Ext(abs))
	if ext != ".yaml" && ext != ".yml" {
		return "", errors.New("config file must have .yaml or .yml extension")
	}

	return abs, nil
}
