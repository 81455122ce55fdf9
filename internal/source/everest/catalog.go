// Package everest fetches the Everest mod update catalog.
package everest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/DonovanMods/everest-mod-updater/internal/domain"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultUpdateURL serves a plain-text pointer to the current catalog
	DefaultUpdateURL = "https://everestapi.github.io/modupdater.txt"

	// DefaultMirrorPattern builds a mirror URL from a GameBanana file id
	DefaultMirrorPattern = "https://celestemodupdater.0x0a.de/banana-mirror/%d.zip"
)

// maxRedirectorSize bounds the pointer document; it only ever holds one URL
const maxRedirectorSize = 4 * 1024

// Catalog is the remote list of published mods. It is fetched on first use
// and kept for the lifetime of the value; there is no refresh.
type Catalog struct {
	httpClient *http.Client
	updateURL  string

	once      sync.Once
	loadErr   error
	byName    map[string]*domain.CatalogEntry
	byPackage map[int64]*domain.CatalogEntry
	byFile    map[int64]*domain.CatalogEntry
	names     []string
}

// New creates a catalog that resolves its location through updateURL
// If httpClient is nil, http.DefaultClient is used
func New(httpClient *http.Client, updateURL string) *Catalog {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if updateURL == "" {
		updateURL = DefaultUpdateURL
	}
	return &Catalog{
		httpClient: httpClient,
		updateURL:  updateURL,
	}
}

// EntryByName returns the catalog entry for a mod name.
// Returns domain.ErrModNotFound if the catalog does not list it.
func (c *Catalog) EntryByName(ctx context.Context, name string) (*domain.CatalogEntry, error) {
	if err := c.load(ctx); err != nil {
		return nil, err
	}
	entry, ok := c.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrModNotFound, name)
	}
	return entry, nil
}

// EntryByID returns the entry published for a GameBanana mod id
func (c *Catalog) EntryByID(ctx context.Context, id int64) (*domain.CatalogEntry, error) {
	if err := c.load(ctx); err != nil {
		return nil, err
	}
	entry, ok := c.byPackage[id]
	if !ok {
		return nil, fmt.Errorf("%w: GameBanana id %d", domain.ErrModNotFound, id)
	}
	return entry, nil
}

// EntryByFileID returns the entry whose current download is the given
// GameBanana file id
func (c *Catalog) EntryByFileID(ctx context.Context, id int64) (*domain.CatalogEntry, error) {
	if err := c.load(ctx); err != nil {
		return nil, err
	}
	entry, ok := c.byFile[id]
	if !ok {
		return nil, fmt.Errorf("%w: GameBanana file id %d", domain.ErrModNotFound, id)
	}
	return entry, nil
}

// Entries returns every catalog entry sorted by name
func (c *Catalog) Entries(ctx context.Context) ([]*domain.CatalogEntry, error) {
	if err := c.load(ctx); err != nil {
		return nil, err
	}
	entries := make([]*domain.CatalogEntry, 0, len(c.names))
	for _, name := range c.names {
		entries = append(entries, c.byName[name])
	}
	return entries, nil
}

// load performs the two-hop fetch once. A failure is remembered and
// returned to every later caller.
func (c *Catalog) load(ctx context.Context) error {
	c.once.Do(func() {
		c.loadErr = c.fetch(ctx)
	})
	return c.loadErr
}

func (c *Catalog) fetch(ctx context.Context) error {
	pointer, err := c.get(ctx, c.updateURL, maxRedirectorSize)
	if err != nil {
		return fmt.Errorf("%w: fetching update location: %v", domain.ErrCatalogUnavailable, err)
	}

	catalogURL := strings.TrimSpace(string(pointer))
	if catalogURL == "" {
		return fmt.Errorf("%w: update location %s is empty", domain.ErrCatalogUnavailable, c.updateURL)
	}

	data, err := c.get(ctx, catalogURL, -1)
	if err != nil {
		return fmt.Errorf("%w: fetching catalog: %v", domain.ErrCatalogUnavailable, err)
	}

	return c.parse(data)
}

func (c *Catalog) parse(data []byte) error {
	var raw map[string]catalogEntry
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: parsing catalog: %v", domain.ErrCatalogUnavailable, err)
	}
	if len(raw) == 0 {
		return fmt.Errorf("%w: catalog is empty", domain.ErrCatalogUnavailable)
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	byName := make(map[string]*domain.CatalogEntry, len(raw))
	byPackage := make(map[int64]*domain.CatalogEntry)
	byFile := make(map[int64]*domain.CatalogEntry)
	for _, name := range names {
		entry, err := raw[name].toDomain(name)
		if err != nil {
			return err
		}
		byName[name] = entry

		// Ids are expected to be unique; on a clash the name that sorts first wins
		if entry.PackageID != 0 {
			if _, exists := byPackage[entry.PackageID]; !exists {
				byPackage[entry.PackageID] = entry
			}
		}
		if entry.FileID != 0 {
			if _, exists := byFile[entry.FileID]; !exists {
				byFile[entry.FileID] = entry
			}
		}
	}

	c.byName = byName
	c.byPackage = byPackage
	c.byFile = byFile
	c.names = names
	return nil
}

// get performs a GET and returns the body; limit < 0 means unbounded
func (c *Catalog) get(ctx context.Context, url string, limit int64) (_ []byte, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing response body: %w", cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var body io.Reader = resp.Body
	if limit >= 0 {
		body = io.LimitReader(resp.Body, limit)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return data, nil
}
