package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/DonovanMods/everest-mod-updater/internal/domain"
	"github.com/DonovanMods/everest-mod-updater/internal/manifest"
	"github.com/DonovanMods/everest-mod-updater/internal/source/everest"

	"github.com/charmbracelet/log"
)

const (
	mapsDir         = "Maps"
	disabledMapsDir = "_Maps"
)

// Journal receives one record per install attempt. *db.DB satisfies it.
type Journal interface {
	RecordInstall(rec domain.InstallRecord) error
}

// InstallerConfig holds everything an Installer needs besides its downloader
type InstallerConfig struct {
	Root              string          // Mods directory
	DisabledLevelsets map[string]bool // Mods whose Maps get renamed to _Maps
	MirrorPattern     string          // Direct download mirror, one %d for the file id
	Journal           Journal         // Optional
	RunID             string          // Journal run the records belong to
	Logger            *log.Logger
	Progress          ProgressFunc
}

// Installer downloads, verifies and unpacks mod archives into the mods
// directory, replacing whatever was installed there before
type Installer struct {
	downloader *Downloader
	extractor  *Extractor
	cfg        InstallerConfig
}

// NewInstaller creates a new installer
func NewInstaller(downloader *Downloader, cfg InstallerConfig) *Installer {
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	if cfg.MirrorPattern == "" {
		cfg.MirrorPattern = everest.DefaultMirrorPattern
	}
	return &Installer{
		downloader: downloader,
		extractor:  NewExtractor(),
		cfg:        cfg,
	}
}

// Install replaces <root>/<name> with the contents of the entry's archive.
// A failed transfer returns domain.ErrDownloadFailed and a bad archive
// domain.ErrIntegrityMismatch; in both cases the existing install is left
// alone. Extraction failures happen after the old install was removed.
func (i *Installer) Install(ctx context.Context, name string, entry *domain.CatalogEntry) error {
	usedURL, err := i.install(ctx, name, entry)
	i.record(name, entry.Version, usedURL, entry.Checksum(), err)
	return err
}

// InstallDirect installs a mod the catalog does not know yet. The archive is
// fetched from the mirror copy of fileID, falling back to link, and unpacked
// under a placeholder directory that is renamed once the manifest names the mod.
func (i *Installer) InstallDirect(ctx context.Context, link string, fileID int64) (*domain.LocalMod, error) {
	entry := &domain.CatalogEntry{
		Name:   domain.PendingDownloadName,
		URL:    link,
		FileID: fileID,
	}
	if fileID > 0 {
		entry.MirrorURL = fmt.Sprintf(i.cfg.MirrorPattern, fileID)
	}

	usedURL, err := i.install(ctx, domain.PendingDownloadName, entry)
	if err != nil {
		i.record(link, "", usedURL, "", err)
		return nil, err
	}

	pending := filepath.Join(i.cfg.Root, domain.PendingDownloadName)
	mod, err := manifest.ScanOne(pending)
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", domain.ErrPostInstallManifest, link, err)
		i.record(link, "", usedURL, "", err)
		return nil, err
	}

	target := filepath.Join(i.cfg.Root, mod.Name)
	if err := os.Rename(pending, target); err != nil {
		err = fmt.Errorf("renaming %s to %s: %w", pending, mod.Name, err)
		i.record(mod.Name, mod.Version, usedURL, "", err)
		return nil, err
	}
	mod.Path = target

	i.disableLevels(mod.Name, target)
	i.record(mod.Name, mod.Version, usedURL, "", nil)

	return mod, nil
}

// install runs the pipeline and returns the URL the archive came from
func (i *Installer) install(ctx context.Context, name string, entry *domain.CatalogEntry) (string, error) {
	logger := i.cfg.Logger.With("mod", name)
	archive := filepath.Join(i.cfg.Root, name+domain.ArchiveExt)

	usedURL, err := i.fetch(ctx, name, entry, archive)
	if err != nil {
		logger.Error("Download failed", "error", err)
		return "", err
	}

	if _, err := os.Stat(archive); err != nil {
		logger.Error("Downloaded archive is missing", "path", archive)
		return usedURL, fmt.Errorf("%w: %s: archive missing after download", domain.ErrDownloadFailed, name)
	}

	if checksum := entry.Checksum(); checksum != "" {
		digest, err := FileDigest(archive)
		if err != nil {
			return usedURL, fmt.Errorf("verifying %s: %w", name, err)
		}
		if digest != checksum {
			logger.Error("Checksum mismatch, keeping the installed version", "expected", checksum, "actual", digest, "archive", archive)
			return usedURL, fmt.Errorf("%w: %s: expected %s, got %s", domain.ErrIntegrityMismatch, name, checksum, digest)
		}
	} else {
		logger.Warn("No checksum published, installing unverified")
	}

	target := filepath.Join(i.cfg.Root, name)
	if _, err := os.Stat(target); os.IsNotExist(err) {
		logger.Infof("Note: %s has no existing version.", name)
	}
	if err := os.RemoveAll(target); err != nil {
		return usedURL, fmt.Errorf("removing old install of %s: %w", name, err)
	}
	if err := os.MkdirAll(target, 0755); err != nil {
		return usedURL, fmt.Errorf("creating install directory for %s: %w", name, err)
	}

	if err := i.extractor.Extract(archive, target); err != nil {
		return usedURL, fmt.Errorf("installing %s: %w", name, err)
	}

	i.disableLevels(name, target)

	if err := os.Remove(archive); err != nil {
		return usedURL, fmt.Errorf("removing archive %s: %w", archive, err)
	}

	logger.Info("Installed", "version", entry.Version)
	return usedURL, nil
}

// fetch tries the mirror first and the canonical URL second. Only transfer
// failures move on to the next candidate.
func (i *Installer) fetch(ctx context.Context, name string, entry *domain.CatalogEntry, archive string) (string, error) {
	urls := entry.URLs()
	if len(urls) == 0 {
		return "", fmt.Errorf("%w: %s: no download URL", domain.ErrDownloadFailed, name)
	}

	var errs []error
	for _, u := range urls {
		i.cfg.Logger.Info("Downloading", "mod", name, "url", u)
		_, err := i.downloader.Download(ctx, DownloadRequest{
			URL:          u,
			Label:        name,
			DestPath:     archive,
			ExpectedSize: entry.Size,
		}, i.cfg.Progress)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, domain.ErrTransfer) {
			return "", err
		}
		i.cfg.Logger.Warn("Download failed, trying next URL", "mod", name, "url", u, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", u, err))
	}

	return "", fmt.Errorf("%w: %s: %w", domain.ErrDownloadFailed, name, errors.Join(errs...))
}

// disableLevels renames Maps to _Maps for mods listed as disabled levelsets
func (i *Installer) disableLevels(name, target string) {
	if !i.cfg.DisabledLevelsets[name] {
		return
	}

	maps := filepath.Join(target, mapsDir)
	disabled := filepath.Join(target, disabledMapsDir)

	if _, err := os.Stat(maps); err != nil {
		return
	}
	if _, err := os.Stat(disabled); err == nil {
		i.cfg.Logger.Warn("Not disabling levelset, _Maps already exists", "mod", name)
		return
	}

	if err := os.Rename(maps, disabled); err != nil {
		i.cfg.Logger.Warn("Could not disable levelset", "mod", name, "error", err)
		return
	}
	i.cfg.Logger.Info("Disabled levelset", "mod", name)
}

func (i *Installer) record(name, version, url, checksum string, installErr error) {
	if i.cfg.Journal == nil || i.cfg.RunID == "" {
		return
	}

	rec := domain.InstallRecord{
		RunID:       i.cfg.RunID,
		ModName:     name,
		Version:     version,
		URL:         url,
		Checksum:    checksum,
		Status:      domain.InstallSucceeded,
		InstalledAt: time.Now(),
	}
	if installErr != nil {
		rec.Status = domain.InstallFailed
		rec.Error = installErr.Error()
	}

	if err := i.cfg.Journal.RecordInstall(rec); err != nil {
		i.cfg.Logger.Warn("Could not record install", "mod", name, "error", err)
	}
}
