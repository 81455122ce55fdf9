package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/DonovanMods/everest-mod-updater/internal/domain"
	"github.com/DonovanMods/everest-mod-updater/internal/manifest"
	"github.com/DonovanMods/everest-mod-updater/internal/source/everest"
	"github.com/DonovanMods/everest-mod-updater/internal/storage/config"
	"github.com/DonovanMods/everest-mod-updater/internal/storage/db"

	"github.com/charmbracelet/log"
)

// JournalFile is the name of the install journal inside the data directory
const JournalFile = "emu.db"

// ServiceConfig holds configuration for the core service
type ServiceConfig struct {
	Config     *config.Config
	HTTPClient *http.Client // Optional, defaults to http.DefaultClient
	Logger     *log.Logger  // Optional
	Progress   ProgressFunc // Optional download progress callback
}

// Service is the main orchestrator for update and download runs
type Service struct {
	config     *config.Config
	catalog    *everest.Catalog
	downloader *Downloader
	db         *db.DB // nil when the journal is disabled
	logger     *log.Logger
	progress   ProgressFunc
}

// NewService creates a new core service instance
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Config == nil {
		cfg.Config = config.Default()
	}
	if err := cfg.Config.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}

	s := &Service{
		config:     cfg.Config,
		catalog:    everest.New(cfg.HTTPClient, cfg.Config.UpdateURL),
		downloader: NewDownloader(cfg.HTTPClient),
		logger:     cfg.Logger,
		progress:   cfg.Progress,
	}

	if cfg.Config.Journal {
		if err := os.MkdirAll(cfg.Config.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
		database, err := db.New(filepath.Join(cfg.Config.DataDir, JournalFile))
		if err != nil {
			return nil, fmt.Errorf("opening journal: %w", err)
		}
		s.db = database
	}

	return s, nil
}

// Close releases resources held by the service
func (s *Service) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// ModsDir returns the mods directory the service manages
func (s *Service) ModsDir() string {
	return s.config.ModsDir
}

// Catalog returns the remote catalog, fetched on first use
func (s *Service) Catalog() *everest.Catalog {
	return s.catalog
}

// CheckModsDir returns domain.ErrModsDirNotFound unless the mods directory exists
func (s *Service) CheckModsDir() error {
	info, err := os.Stat(s.config.ModsDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", domain.ErrModsDirNotFound, s.config.ModsDir)
	}
	return nil
}

// Update installs every missing dependency and every mod with a newer
// catalog version
func (s *Service) Update(ctx context.Context) (*Resolution, error) {
	if err := s.CheckModsDir(); err != nil {
		return nil, err
	}

	installer, err := s.newInstaller("update")
	if err != nil {
		return nil, err
	}

	return NewResolver(s.catalog, s.logger).Resolve(ctx, s.config.ModsDir, installer.Install)
}

// Download installs a single mod named by identifier: a mod name, a
// GameBanana mod id, or a GameBanana link. Dependencies are left for the
// next update.
func (s *Service) Download(ctx context.Context, identifier string) (*domain.LocalMod, error) {
	if err := s.CheckModsDir(); err != nil {
		return nil, err
	}

	id, err := ParseIdentifier(identifier)
	if err != nil {
		return nil, err
	}

	installer, err := s.newInstaller("download")
	if err != nil {
		return nil, err
	}

	entry, err := s.lookup(ctx, id)
	if errors.Is(err, domain.ErrModNotFound) && id.Kind == IdentifierFileLink {
		s.logger.Info("File not in catalog, attempting direct download", "link", id.Link)
		return installer.InstallDirect(ctx, id.Link, id.ID)
	}
	if err != nil {
		return nil, err
	}

	if err := installer.Install(ctx, entry.Name, entry); err != nil {
		return nil, err
	}

	mod, err := manifest.ScanOne(filepath.Join(s.config.ModsDir, entry.Name))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrPostInstallManifest, entry.Name, err)
	}
	return mod, nil
}

func (s *Service) lookup(ctx context.Context, id Identifier) (*domain.CatalogEntry, error) {
	var (
		entry *domain.CatalogEntry
		err   error
	)
	switch id.Kind {
	case IdentifierName:
		entry, err = s.catalog.EntryByName(ctx, id.Name)
	case IdentifierFileLink:
		entry, err = s.catalog.EntryByFileID(ctx, id.ID)
	default:
		entry, err = s.catalog.EntryByID(ctx, id.ID)
	}
	if errors.Is(err, domain.ErrModNotFound) {
		return nil, fmt.Errorf("could not identify mod %s: %w", id.Raw, err)
	}
	return entry, err
}

// Status compares every installed mod with the catalog without downloading
// anything. Mods with an unreadable manifest are skipped with a warning.
func (s *Service) Status(ctx context.Context) ([]domain.ModStatus, error) {
	if err := s.CheckModsDir(); err != nil {
		return nil, err
	}

	local, err := manifest.Scan(s.config.ModsDir)
	if local == nil {
		return nil, err
	}
	if err != nil {
		s.logger.Warn("Some mods could not be read", "error", err)
	}

	// Fail early on an unreachable catalog instead of once per mod
	if _, err := s.catalog.Entries(ctx); err != nil {
		return nil, err
	}

	statuses := make([]domain.ModStatus, 0, len(local))
	for _, mod := range local {
		status := domain.ModStatus{
			Name:         mod.Name,
			LocalVersion: mod.Version,
		}

		entry, err := s.catalog.EntryByName(ctx, mod.Name)
		switch {
		case errors.Is(err, domain.ErrModNotFound):
		case err != nil:
			return nil, err
		default:
			status.CatalogVersion = entry.Version
			need, err := NeedsInstall(mod, entry)
			if err != nil {
				s.logger.Warn("Cannot compare versions", "mod", mod.Name, "error", err)
			}
			status.NeedsUpdate = need
		}

		if s.db != nil {
			rec, err := s.db.LastInstall(mod.Name)
			switch {
			case err == nil:
				status.LastInstalled = rec.InstalledAt
			case !errors.Is(err, domain.ErrModNotFound):
				s.logger.Warn("Cannot read install journal", "mod", mod.Name, "error", err)
			}
		}

		statuses = append(statuses, status)
	}

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses, nil
}

// History returns journal entries newest first, optionally for one mod
func (s *Service) History(modName string, limit int) ([]domain.InstallRecord, error) {
	if s.db == nil {
		return nil, domain.ErrJournalDisabled
	}
	return s.db.ListInstalls(modName, limit)
}

// newInstaller prepares an installer for one run, opening a journal run
// when the journal is enabled
func (s *Service) newInstaller(command string) (*Installer, error) {
	disabled, err := config.LoadDisabledLevelsets(s.config.LevelsetsFile)
	if err != nil {
		return nil, err
	}

	cfg := InstallerConfig{
		Root:              s.config.ModsDir,
		DisabledLevelsets: disabled,
		MirrorPattern:     s.config.MirrorPattern,
		Logger:            s.logger,
		Progress:          s.progress,
	}

	if s.db != nil {
		runID, err := s.db.StartRun(command, s.config.ModsDir)
		if err != nil {
			return nil, err
		}
		cfg.Journal = s.db
		cfg.RunID = runID
	}

	return NewInstaller(s.downloader, cfg), nil
}

// IdentifierKind says how a download identifier is looked up
type IdentifierKind int

const (
	IdentifierName       IdentifierKind = iota // Catalog mod name
	IdentifierPackageID                        // GameBanana mod id, bare or from a /mods/ link
	IdentifierFileLink                         // GameBanana /dl/ link carrying a file id
)

// Identifier is a parsed download argument
type Identifier struct {
	Raw  string
	Kind IdentifierKind
	Name string
	ID   int64
	Link string
}

// ParseIdentifier classifies a download argument. Digits are a GameBanana mod
// id; an http(s) URL must end in a numeric id; anything else is a mod name.
func ParseIdentifier(raw string) (Identifier, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identifier{}, fmt.Errorf("%w: empty identifier", domain.ErrModNotFound)
	}

	id := Identifier{Raw: raw}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
		id.Kind = IdentifierPackageID
		id.ID = n
		return id, nil
	}

	if u, err := url.Parse(raw); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		last := segments[len(segments)-1]
		n, err := strconv.ParseInt(last, 10, 64)
		if err != nil || n <= 0 {
			return Identifier{}, fmt.Errorf("%w: no numeric id in %s", domain.ErrModNotFound, raw)
		}

		id.ID = n
		id.Link = raw
		id.Kind = IdentifierPackageID
		if len(segments) >= 2 && segments[len(segments)-2] == "dl" {
			id.Kind = IdentifierFileLink
		}
		return id, nil
	}

	id.Kind = IdentifierName
	id.Name = raw
	return id, nil
}
