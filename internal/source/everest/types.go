package everest

import (
	"fmt"

	"github.com/DonovanMods/everest-mod-updater/internal/domain"
)

// catalogEntry mirrors one value of everest_update.yaml. Fields the
// updater does not use (GameBananaType, LastUpdate, ...) are ignored.
type catalogEntry struct {
	Version          string   `yaml:"Version"`
	URL              string   `yaml:"URL"`
	MirrorURL        string   `yaml:"MirrorURL"`
	Size             int64    `yaml:"Size"`
	XXHash           []string `yaml:"xxHash"`
	GameBananaID     int64    `yaml:"GameBananaId"`
	GameBananaFileID int64    `yaml:"GameBananaFileId"`
}

// toDomain validates required fields and converts to a domain.CatalogEntry
func (e catalogEntry) toDomain(name string) (*domain.CatalogEntry, error) {
	switch {
	case e.Version == "":
		return nil, fmt.Errorf("%w: %s: missing Version", domain.ErrCatalogUnavailable, name)
	case e.URL == "":
		return nil, fmt.Errorf("%w: %s: missing URL", domain.ErrCatalogUnavailable, name)
	case e.MirrorURL == "":
		return nil, fmt.Errorf("%w: %s: missing MirrorURL", domain.ErrCatalogUnavailable, name)
	}

	return &domain.CatalogEntry{
		Name:      name,
		Version:   e.Version,
		URL:       e.URL,
		MirrorURL: e.MirrorURL,
		Size:      e.Size,
		Checksums: e.XXHash,
		PackageID: e.GameBananaID,
		FileID:    e.GameBananaFileID,
	}, nil
}
