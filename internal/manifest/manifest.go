// Package manifest reads everest.yaml files, the self-description every
// installed mod carries at the root of its directory.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/DonovanMods/everest-mod-updater/internal/domain"

	"gopkg.in/yaml.v3"
)

// Filenames tried, in order, when looking for a mod's manifest
var Filenames = []string{"everest.yaml", "everest.yml"}

type rawDependency struct {
	Name    string `yaml:"Name"`
	Version string `yaml:"Version"`
}

type rawMod struct {
	Name         string          `yaml:"Name"`
	Version      string          `yaml:"Version"`
	Dependencies []rawDependency `yaml:"Dependencies"`
}

// Parse decodes manifest content. A manifest must describe exactly one mod;
// multi-mod packages are not supported.
func Parse(data []byte) (*domain.LocalMod, error) {
	var mods []rawMod
	if err := yaml.Unmarshal(data, &mods); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrManifest, err)
	}

	if len(mods) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one mod definition, found %d", domain.ErrManifest, len(mods))
	}

	raw := mods[0]
	if raw.Name == "" {
		return nil, fmt.Errorf("%w: missing Name", domain.ErrManifest)
	}
	if raw.Version == "" {
		return nil, fmt.Errorf("%w: %s: missing Version", domain.ErrManifest, raw.Name)
	}

	mod := &domain.LocalMod{
		Name:    raw.Name,
		Version: raw.Version,
	}
	for i, dep := range raw.Dependencies {
		if dep.Name == "" {
			return nil, fmt.Errorf("%w: %s: dependency %d has no Name", domain.ErrManifest, raw.Name, i)
		}
		mod.Dependencies = append(mod.Dependencies, domain.Dependency{Name: dep.Name, Version: dep.Version})
	}

	return mod, nil
}

// Load reads the manifest of the mod installed in modDir.
// Returns (nil, nil) when the directory has no manifest at all.
func Load(modDir string) (*domain.LocalMod, error) {
	for _, name := range Filenames {
		path := filepath.Join(modDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("%w: reading %s: %v", domain.ErrManifest, path, err)
		}

		mod, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		mod.Path = modDir
		return mod, nil
	}

	return nil, nil
}

// ScanOne re-reads a single freshly installed mod. Unlike Load, a missing
// manifest is an error here.
func ScanOne(modDir string) (*domain.LocalMod, error) {
	mod, err := Load(modDir)
	if err != nil {
		return nil, err
	}
	if mod == nil {
		return nil, fmt.Errorf("%w: no %s in %s", domain.ErrManifest, Filenames[0], modDir)
	}
	return mod, nil
}

// Scan builds the installed-mod map from the immediate subdirectories of root.
// Directories without a manifest are skipped (cache folders, disabled
// levelsets). Directories with an invalid manifest are left out of the map
// and reported together in the returned error.
func Scan(root string) (map[string]*domain.LocalMod, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading mods directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	mods := make(map[string]*domain.LocalMod)
	var errs []error
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		mod, err := Load(filepath.Join(root, entry.Name()))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if mod == nil {
			continue
		}
		mods[mod.Name] = mod
	}

	return mods, errors.Join(errs...)
}
