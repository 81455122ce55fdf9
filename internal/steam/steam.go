// Package steam finds Celeste's Mods folder inside local Steam libraries.
package steam

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/DonovanMods/everest-mod-updater/internal/domain"
)

// CelesteAppID is Celeste's Steam application id
const CelesteAppID = "504230"

// Roots returns candidate Steam installation roots in search order.
// STEAM_ROOT, when set, is tried first.
func Roots() []string {
	var candidates []string
	if p := os.Getenv("STEAM_ROOT"); p != "" {
		candidates = append(candidates, p)
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, ".steam", "steam"),
			filepath.Join(home, ".local", "share", "Steam"),
			filepath.Join(home, ".var", "app", "com.valvesoftware.Steam", ".local", "share", "Steam"),
		)
	}

	var roots []string
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			roots = append(roots, p)
		}
	}
	return roots
}

// LibraryPaths returns every library listed in the root's libraryfolders.vdf.
// A root without the file is its own single library.
func LibraryPaths(steamRoot string) ([]string, error) {
	vdfPath := filepath.Join(steamRoot, "steamapps", "libraryfolders.vdf")
	f, err := os.Open(vdfPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{steamRoot}, nil
		}
		return nil, fmt.Errorf("reading libraryfolders: %w", err)
	}
	defer f.Close()

	root, err := ParseVDF(f)
	if err != nil {
		return nil, fmt.Errorf("parsing libraryfolders: %w", err)
	}

	// Entries are keyed "0", "1", ... in order
	folders := root.Map("libraryfolders")
	var paths []string
	for i := 0; ; i++ {
		entry := folders.Map(fmt.Sprint(i))
		if entry == nil {
			break
		}
		if p := entry.String("path"); p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return []string{steamRoot}, nil
	}
	return paths, nil
}

// FindModsDir returns the Mods folder of the first Celeste install found in
// the libraries of roots. Returns domain.ErrModsDirNotFound if there is none.
func FindModsDir(roots []string) (string, error) {
	for _, root := range roots {
		libraries, err := LibraryPaths(root)
		if err != nil {
			continue
		}
		for _, lib := range libraries {
			if dir, ok := celesteModsDir(lib); ok {
				return dir, nil
			}
		}
	}
	return "", fmt.Errorf("%w: no Celeste install in Steam libraries", domain.ErrModsDirNotFound)
}

func celesteModsDir(library string) (string, bool) {
	f, err := os.Open(filepath.Join(library, "steamapps", "appmanifest_"+CelesteAppID+".acf"))
	if err != nil {
		return "", false
	}
	defer f.Close()

	manifest, err := ParseAppManifest(f)
	if err != nil || manifest.InstallDir == "" {
		return "", false
	}

	mods := filepath.Join(library, "steamapps", "common", manifest.InstallDir, "Mods")
	if info, err := os.Stat(mods); err != nil || !info.IsDir() {
		return "", false
	}
	return mods, true
}
