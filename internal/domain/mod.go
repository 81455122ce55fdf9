package domain

import "time"

// Names of the host application and its loader. Both are always present and
// are never downloaded.
const (
	BuiltinCeleste = "Celeste"
	BuiltinEverest = "Everest"
)

// PendingDownloadName is the placeholder directory used by direct downloads
// until the mod's manifest reveals its real name.
const PendingDownloadName = "_pending_download"

// ArchiveExt is the extension of downloaded mod archives
const ArchiveExt = ".zip"

// IsBuiltin reports whether name refers to the game or its loader
func IsBuiltin(name string) bool {
	return name == BuiltinCeleste || name == BuiltinEverest
}

// CatalogEntry is one mod as published in the remote update catalog
type CatalogEntry struct {
	Name      string
	Version   string
	URL       string   // Canonical download location
	MirrorURL string   // Mirror download location, tried first
	Size      int64    // Declared archive size in bytes (0 if unknown)
	Checksums []string // xxHash64 hex digests, normally exactly one
	PackageID int64    // GameBanana mod id (0 if unknown)
	FileID    int64    // GameBanana file id (0 if unknown)
}

// Checksum returns the digest the archive must match, or "" when the catalog
// does not publish one. A handful of entries carry several digests; only the
// first is used.
func (e *CatalogEntry) Checksum() string {
	if len(e.Checksums) == 0 {
		return ""
	}
	return e.Checksums[0]
}

// URLs returns the download candidates in the order they should be tried
func (e *CatalogEntry) URLs() []string {
	var urls []string
	for _, u := range []string{e.MirrorURL, e.URL} {
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// Dependency is a mod named in another mod's manifest. Version is recorded
// but never enforced.
type Dependency struct {
	Name    string
	Version string
}

// LocalMod is an installed mod as described by its manifest
type LocalMod struct {
	Name         string
	Version      string
	Path         string // Install directory
	Dependencies []Dependency
}

// DependencyNames returns the names of all declared dependencies
func (m *LocalMod) DependencyNames() []string {
	names := make([]string, 0, len(m.Dependencies))
	for _, dep := range m.Dependencies {
		names = append(names, dep.Name)
	}
	return names
}

// InstallStatus is the outcome of one install attempt
type InstallStatus string

const (
	InstallSucceeded InstallStatus = "installed"
	InstallFailed    InstallStatus = "failed"
)

// InstallRecord is one entry of the install journal
type InstallRecord struct {
	RunID       string
	ModName     string
	Version     string
	URL         string // URL the archive was fetched from (empty if none succeeded)
	Checksum    string
	Status      InstallStatus
	Error       string
	InstalledAt time.Time
}

// ModStatus compares an installed mod with its catalog entry
type ModStatus struct {
	Name           string
	LocalVersion   string
	CatalogVersion string // Empty when the catalog does not know the mod
	NeedsUpdate    bool
	LastInstalled  time.Time // Zero when the journal has no successful install
}
