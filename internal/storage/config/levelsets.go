package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// LoadDisabledLevelsets reads the newline separated list of mods whose
// bundled maps are moved aside after install. A missing file means none.
func LoadDisabledLevelsets(path string) (map[string]bool, error) {
	disabled := make(map[string]bool)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return disabled, nil
		}
		return nil, fmt.Errorf("reading disabled levelsets: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		disabled[name] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading disabled levelsets: %w", err)
	}

	return disabled, nil
}
