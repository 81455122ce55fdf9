package core_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DonovanMods/everest-mod-updater/internal/core"
	"github.com/DonovanMods/everest-mod-updater/internal/domain"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInstall writes the manifest each mod will have after install.
// Mods without an entry in after are "installed" without a manifest.
type fakeInstall struct {
	root  string
	after map[string][]string // name -> dependencies declared by the new version
	calls []string
	fail  map[string]error
}

func (f *fakeInstall) install(_ context.Context, name string, entry *domain.CatalogEntry) error {
	f.calls = append(f.calls, name)
	if err := f.fail[name]; err != nil {
		return err
	}

	dir := filepath.Join(f.root, name)
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	deps, ok := f.after[name]
	if !ok {
		return nil
	}
	return os.WriteFile(filepath.Join(dir, "everest.yaml"), []byte(manifestYAML(name, entry.Version, deps...)), 0644)
}

type catalogFunc func(ctx context.Context, name string) (*domain.CatalogEntry, error)

func (f catalogFunc) EntryByName(ctx context.Context, name string) (*domain.CatalogEntry, error) {
	return f(ctx, name)
}

func TestNeedsInstall(t *testing.T) {
	tests := []struct {
		name    string
		local   *domain.LocalMod
		entry   *domain.CatalogEntry
		want    bool
		wantErr error
	}{
		{name: "not installed", local: nil, entry: &domain.CatalogEntry{Version: "1.0.0"}, want: true},
		{name: "not in catalog", local: &domain.LocalMod{Version: "1.0.0"}, entry: nil, want: false},
		{name: "catalog newer", local: &domain.LocalMod{Version: "1.0.0"}, entry: &domain.CatalogEntry{Version: "1.1.0"}, want: true},
		{name: "same version", local: &domain.LocalMod{Version: "1.0.0"}, entry: &domain.CatalogEntry{Version: "1.0.0"}, want: false},
		{name: "catalog older", local: &domain.LocalMod{Version: "2.0.0"}, entry: &domain.CatalogEntry{Version: "1.9.9"}, want: false},
		{name: "numeric not lexical", local: &domain.LocalMod{Version: "1.9.0"}, entry: &domain.CatalogEntry{Version: "1.10.0"}, want: true},
		{name: "unparseable local", local: &domain.LocalMod{Version: "banana"}, entry: &domain.CatalogEntry{Version: "1.0.0"}, wantErr: domain.ErrInvalidVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := core.NeedsInstall(tt.local, tt.entry)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_UpdatesOnlyNewerMods(t *testing.T) {
	root := t.TempDir()
	writeLocalMod(t, root, "ModA", "1.0.0", map[string]string{"old.txt": "old"}, "ModB", "Everest")
	writeLocalMod(t, root, "ModB", "1.0.0", map[string]string{"keep.txt": "keep"})

	srv := newFileServer(t)
	catalog := fakeCatalog{
		"ModA": {Name: "ModA", Version: "1.1.0", MirrorURL: srv.serve("/mirror/1.zip", modArchive(t, "ModA", "1.1.0", nil, "ModB"))},
		"ModB": {Name: "ModB", Version: "1.0.0", MirrorURL: srv.URL + "/mirror/2.zip"},
	}

	installer := newTestInstaller(root, core.InstallerConfig{})
	resolution, err := core.NewResolver(catalog, nil).Resolve(context.Background(), root, installer.Install)
	require.NoError(t, err)

	want := &core.Resolution{Have: []string{"ModA", "ModB"}, Installed: []string{"ModA"}}
	if diff := cmp.Diff(want, resolution); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 1, srv.hitCount("/mirror/1.zip"))
	assert.Equal(t, 0, srv.hitCount("/mirror/2.zip"), "ModB must not be downloaded")
	assert.NoFileExists(t, filepath.Join(root, "ModA", "old.txt"))
	assert.FileExists(t, filepath.Join(root, "ModB", "keep.txt"))
}

func TestResolver_DiscoversNewDependencies(t *testing.T) {
	root := t.TempDir()
	writeLocalMod(t, root, "ModA", "1.0.0", nil)

	catalog := fakeCatalog{
		"ModA": {Name: "ModA", Version: "1.1.0"},
		"ModC": {Name: "ModC", Version: "0.5.0"},
		"ModD": {Name: "ModD", Version: "2.0.0"},
	}
	fake := &fakeInstall{root: root, after: map[string][]string{
		"ModA": {"ModC", "Celeste"},
		"ModC": {"ModD"},
		"ModD": nil,
	}}

	resolution, err := core.NewResolver(catalog, nil).Resolve(context.Background(), root, fake.install)
	require.NoError(t, err)

	assert.Equal(t, []string{"ModA", "ModC", "ModD"}, fake.calls)
	assert.Equal(t, []string{"ModA", "ModC", "ModD"}, resolution.Have)
	assert.Equal(t, []string{"ModA", "ModC", "ModD"}, resolution.Installed)
}

func TestResolver_CycleTerminates(t *testing.T) {
	root := t.TempDir()
	writeLocalMod(t, root, "ModA", "1.0.0", nil, "ModB")
	writeLocalMod(t, root, "ModB", "1.0.0", nil, "ModA")

	catalog := fakeCatalog{
		"ModA": {Name: "ModA", Version: "1.0.0"},
		"ModB": {Name: "ModB", Version: "1.0.0"},
	}
	fake := &fakeInstall{root: root}

	resolution, err := core.NewResolver(catalog, nil).Resolve(context.Background(), root, fake.install)
	require.NoError(t, err)

	assert.Empty(t, fake.calls)
	assert.Equal(t, []string{"ModA", "ModB"}, resolution.Have)
}

func TestResolver_CycleDiscoveredDuringInstall(t *testing.T) {
	root := t.TempDir()
	writeLocalMod(t, root, "ModA", "1.0.0", nil)

	catalog := fakeCatalog{
		"ModA": {Name: "ModA", Version: "2.0.0"},
		"ModB": {Name: "ModB", Version: "1.0.0"},
	}
	fake := &fakeInstall{root: root, after: map[string][]string{
		"ModA": {"ModB"},
		"ModB": {"ModA"},
	}}

	resolution, err := core.NewResolver(catalog, nil).Resolve(context.Background(), root, fake.install)
	require.NoError(t, err)

	assert.Equal(t, []string{"ModA", "ModB"}, fake.calls, "each mod installed exactly once")
	assert.Equal(t, []string{"ModA", "ModB"}, resolution.Have)
}

func TestResolver_BuiltinsNeverLookedUp(t *testing.T) {
	root := t.TempDir()
	writeLocalMod(t, root, "ModA", "1.0.0", nil, "Everest", "Celeste")

	var looked []string
	catalog := catalogFunc(func(_ context.Context, name string) (*domain.CatalogEntry, error) {
		looked = append(looked, name)
		return &domain.CatalogEntry{Name: name, Version: "1.0.0"}, nil
	})

	_, err := core.NewResolver(catalog, nil).Resolve(context.Background(), root, (&fakeInstall{root: root}).install)
	require.NoError(t, err)
	assert.Equal(t, []string{"ModA"}, looked)
}

func TestResolver_BuiltinsDeclaredAfterInstallIgnored(t *testing.T) {
	root := t.TempDir()
	writeLocalMod(t, root, "ModA", "1.0.0", nil)

	var looked []string
	catalog := catalogFunc(func(_ context.Context, name string) (*domain.CatalogEntry, error) {
		looked = append(looked, name)
		return &domain.CatalogEntry{Name: name, Version: "2.0.0"}, nil
	})
	fake := &fakeInstall{root: root, after: map[string][]string{"ModA": {"Everest", "Celeste"}}}

	resolution, err := core.NewResolver(catalog, nil).Resolve(context.Background(), root, fake.install)
	require.NoError(t, err)
	assert.Equal(t, []string{"ModA"}, looked)
	assert.Equal(t, []string{"ModA"}, resolution.Have)
}

func TestResolver_UnresolvedDependency(t *testing.T) {
	root := t.TempDir()
	writeLocalMod(t, root, "ModA", "1.0.0", nil, "Ghost")

	catalog := fakeCatalog{"ModA": {Name: "ModA", Version: "1.0.0"}}

	_, err := core.NewResolver(catalog, nil).Resolve(context.Background(), root, (&fakeInstall{root: root}).install)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnresolvedDependency)
	assert.Contains(t, err.Error(), "Ghost")
}

func TestResolver_CatalogLagLeavesLocalModAlone(t *testing.T) {
	root := t.TempDir()
	writeLocalMod(t, root, "LocalOnly", "3.0.0", nil)

	fake := &fakeInstall{root: root}
	resolution, err := core.NewResolver(fakeCatalog{}, nil).Resolve(context.Background(), root, fake.install)
	require.NoError(t, err)

	assert.Empty(t, fake.calls)
	assert.Equal(t, []string{"LocalOnly"}, resolution.Have)
	assert.Empty(t, resolution.Installed)
}

func TestResolver_InstallFailureAborts(t *testing.T) {
	root := t.TempDir()
	writeLocalMod(t, root, "ModA", "1.0.0", nil)
	writeLocalMod(t, root, "ModB", "1.0.0", nil)

	catalog := fakeCatalog{
		"ModA": {Name: "ModA", Version: "1.1.0"},
		"ModB": {Name: "ModB", Version: "1.1.0"},
	}
	fake := &fakeInstall{
		root: root,
		fail: map[string]error{"ModA": domain.ErrIntegrityMismatch},
	}

	_, err := core.NewResolver(catalog, nil).Resolve(context.Background(), root, fake.install)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIntegrityMismatch)
	assert.Equal(t, []string{"ModA"}, fake.calls, "ModB is not attempted after ModA fails")
}

func TestResolver_PostInstallManifestMissing(t *testing.T) {
	root := t.TempDir()
	writeLocalMod(t, root, "ModA", "1.0.0", nil, "Broken")

	catalog := fakeCatalog{
		"ModA":   {Name: "ModA", Version: "1.0.0"},
		"Broken": {Name: "Broken", Version: "1.0.0"},
	}

	_, err := core.NewResolver(catalog, nil).Resolve(context.Background(), root, (&fakeInstall{root: root}).install)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPostInstallManifest)
	assert.ErrorIs(t, err, domain.ErrManifest)
}

func TestResolver_BadLocalManifestAborts(t *testing.T) {
	root := t.TempDir()
	writeLocalMod(t, root, "ModA", "1.0.0", nil)
	bad := filepath.Join(root, "Multi")
	require.NoError(t, os.MkdirAll(bad, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(bad, "everest.yaml"), []byte(manifestYAML("X", "1.0.0")+manifestYAML("Y", "1.0.0")), 0644))

	fake := &fakeInstall{root: root}
	_, err := core.NewResolver(fakeCatalog{}, nil).Resolve(context.Background(), root, fake.install)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrManifest)
	assert.Empty(t, fake.calls)
}

func TestResolver_CatalogUnavailableAborts(t *testing.T) {
	root := t.TempDir()
	writeLocalMod(t, root, "ModA", "1.0.0", nil)

	catalog := catalogFunc(func(context.Context, string) (*domain.CatalogEntry, error) {
		return nil, errors.Join(domain.ErrCatalogUnavailable, errors.New("HTTP 503"))
	})

	_, err := core.NewResolver(catalog, nil).Resolve(context.Background(), root, (&fakeInstall{root: root}).install)
	assert.ErrorIs(t, err, domain.ErrCatalogUnavailable)
}

func TestResolver_CancelledContext(t *testing.T) {
	root := t.TempDir()
	writeLocalMod(t, root, "ModA", "1.0.0", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := core.NewResolver(fakeCatalog{}, nil).Resolve(ctx, root, (&fakeInstall{root: root}).install)
	assert.ErrorIs(t, err, context.Canceled)
}
