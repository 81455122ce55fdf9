package core_test

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/DonovanMods/everest-mod-updater/internal/domain"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/require"
)

// buildZip returns an in-memory zip archive holding files
func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return buf.Bytes()
}

// manifestYAML renders an everest.yaml declaring one mod
func manifestYAML(name, version string, deps ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- Name: %s\n  Version: %s\n", name, version)
	if len(deps) > 0 {
		b.WriteString("  Dependencies:\n")
		for _, dep := range deps {
			fmt.Fprintf(&b, "    - Name: %s\n      Version: 1.0.0\n", dep)
		}
	}
	return b.String()
}

// modArchive builds the archive of a mod with a manifest plus extra files
func modArchive(t *testing.T, name, version string, extra map[string]string, deps ...string) []byte {
	files := map[string]string{"everest.yaml": manifestYAML(name, version, deps...)}
	for k, v := range extra {
		files[k] = v
	}
	return buildZip(t, files)
}

// writeLocalMod creates <root>/<name> with a manifest and extra files
func writeLocalMod(t *testing.T, root, name, version string, extra map[string]string, deps ...string) {
	t.Helper()

	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "everest.yaml"), []byte(manifestYAML(name, version, deps...)), 0644))
	for rel, content := range extra {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func digestOf(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// fileServer serves fixed bodies by path and counts requests. Unknown paths 404.
type fileServer struct {
	*httptest.Server

	mu    sync.Mutex
	files map[string][]byte
	hits  map[string]int
}

func newFileServer(t *testing.T) *fileServer {
	fs := &fileServer{
		files: make(map[string][]byte),
		hits:  make(map[string]int),
	}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		fs.hits[r.URL.Path]++
		body, ok := fs.files[r.URL.Path]
		fs.mu.Unlock()

		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(body)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fileServer) serve(path string, body []byte) string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.files[path] = body
	return fs.URL + path
}

func (fs *fileServer) hitCount(path string) int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.hits[path]
}

// memJournal collects install records in memory
type memJournal struct {
	records []domain.InstallRecord
}

func (j *memJournal) RecordInstall(rec domain.InstallRecord) error {
	j.records = append(j.records, rec)
	return nil
}

// fakeCatalog is an in-memory catalog keyed by mod name
type fakeCatalog map[string]*domain.CatalogEntry

func (c fakeCatalog) EntryByName(_ context.Context, name string) (*domain.CatalogEntry, error) {
	entry, ok := c[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrModNotFound, name)
	}
	return entry, nil
}
