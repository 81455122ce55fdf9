package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/DonovanMods/everest-mod-updater/internal/domain"
	"github.com/DonovanMods/everest-mod-updater/internal/manifest"

	"github.com/charmbracelet/log"
)

// CatalogLookup finds the published entry for a mod. *everest.Catalog satisfies it.
type CatalogLookup interface {
	EntryByName(ctx context.Context, name string) (*domain.CatalogEntry, error)
}

// InstallFunc installs one mod from its catalog entry. (*Installer).Install
// has this signature.
type InstallFunc func(ctx context.Context, name string, entry *domain.CatalogEntry) error

// Resolution summarizes a completed resolve
type Resolution struct {
	Have      []string // Every mod considered, sorted, built-ins excluded
	Installed []string // Mods installed or updated, in install order
}

// Resolver walks the installed mods and their dependencies, installing
// whatever is missing or outdated
type Resolver struct {
	catalog CatalogLookup
	logger  *log.Logger
}

// NewResolver creates a new resolver
func NewResolver(catalog CatalogLookup, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Resolver{
		catalog: catalog,
		logger:  logger,
	}
}

// Resolve brings root up to date. Mods are taken from the wanted set in name
// order and moved to have before being looked at, so each name is handled at
// most once and dependency cycles terminate. The first failure aborts the run.
func (r *Resolver) Resolve(ctx context.Context, root string, install InstallFunc) (*Resolution, error) {
	local, err := manifest.Scan(root)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	have := make(map[string]bool)
	wanted := make(map[string]bool)
	for name, mod := range local {
		for _, n := range append([]string{name}, mod.DependencyNames()...) {
			if !domain.IsBuiltin(n) {
				wanted[n] = true
			}
		}
	}

	result := &Resolution{}
	for len(wanted) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := nextWanted(wanted)
		delete(wanted, name)
		have[name] = true
		result.Have = append(result.Have, name)

		installed, err := r.resolveOne(ctx, root, name, local, install)
		if err != nil {
			return nil, err
		}
		if installed == nil {
			continue
		}

		result.Installed = append(result.Installed, name)
		local[name] = installed
		for _, dep := range installed.DependencyNames() {
			if domain.IsBuiltin(dep) || have[dep] || wanted[dep] {
				continue
			}
			r.logger.Infof("%s has new dependency %s", name, dep)
			wanted[dep] = true
		}
	}

	sort.Strings(result.Have)
	return result, nil
}

// resolveOne installs name if needed and returns its fresh manifest, or nil
// when nothing was installed
func (r *Resolver) resolveOne(ctx context.Context, root, name string, local map[string]*domain.LocalMod, install InstallFunc) (*domain.LocalMod, error) {
	current := local[name]

	entry, err := r.catalog.EntryByName(ctx, name)
	if err != nil {
		if !errors.Is(err, domain.ErrModNotFound) {
			return nil, err
		}
		if current == nil {
			return nil, fmt.Errorf("%w: %s is not installed and not in the catalog", domain.ErrUnresolvedDependency, name)
		}
		r.logger.Debug("Not in catalog, keeping installed version", "mod", name, "version", current.Version)
		return nil, nil
	}

	need, err := NeedsInstall(current, entry)
	if err != nil {
		return nil, fmt.Errorf("comparing versions of %s: %w", name, err)
	}
	if !need {
		r.logger.Debug("Up to date", "mod", name, "version", current.Version)
		return nil, nil
	}

	if current == nil {
		r.logger.Info("Installing missing dependency", "mod", name, "version", entry.Version)
	} else {
		r.logger.Info("Updating", "mod", name, "from", current.Version, "to", entry.Version)
	}

	if err := install(ctx, name, entry); err != nil {
		return nil, fmt.Errorf("installing %s: %w", name, err)
	}

	installed, err := manifest.ScanOne(filepath.Join(root, name))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrPostInstallManifest, name, err)
	}
	return installed, nil
}

// NeedsInstall reports whether entry should replace current. A missing local
// mod always needs installing; a mod the catalog does not know never does.
func NeedsInstall(current *domain.LocalMod, entry *domain.CatalogEntry) (bool, error) {
	if current == nil {
		return true, nil
	}
	if entry == nil {
		return false, nil
	}
	return domain.IsNewerVersion(current.Version, entry.Version)
}

// nextWanted picks the smallest name so selection is deterministic
func nextWanted(wanted map[string]bool) string {
	var next string
	first := true
	for name := range wanted {
		if first || name < next {
			next = name
			first = false
		}
	}
	return next
}
