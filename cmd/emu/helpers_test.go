package main

import (
	"archive/zip"
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// resetFlags restores every flag of the command tree to its default so tests
// do not leak values into each other
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// executeCommand runs rootCmd with args in an isolated home directory and
// returns what it printed to stdout
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("NO_COLOR", "1")
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return stdout.String(), err
}

// testMod is a mod available from the test server
type testMod struct {
	name    string
	version string
	id      int
}

func (m testMod) archive(t *testing.T) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, err := w.Create("everest.yaml")
	require.NoError(t, err)
	fmt.Fprintf(fw, "- Name: %s\n  Version: %s\n", m.name, m.version)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// newCatalogServer serves the redirector, a catalog listing mods, and their
// archives at /mirror/<id>.zip
func newCatalogServer(t *testing.T, mods ...testMod) *httptest.Server {
	t.Helper()

	archives := make(map[string][]byte)
	for _, m := range mods {
		archives[fmt.Sprintf("/mirror/%d.zip", m.id)] = m.archive(t)
	}

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/modupdater.txt":
			fmt.Fprintln(w, server.URL+"/everest_update.yaml")
		case "/everest_update.yaml":
			for _, m := range mods {
				fmt.Fprintf(w, "%s:\n  Version: %s\n  GameBananaId: %d\n  URL: %s/dl/%d\n  MirrorURL: %s/mirror/%d.zip\n",
					m.name, m.version, m.id, server.URL, m.id, server.URL, m.id)
			}
		default:
			body, ok := archives[r.URL.Path]
			if !ok {
				http.NotFound(w, r)
				return
			}
			w.Write(body)
		}
	}))
	t.Cleanup(server.Close)

	t.Setenv("EMU_UPDATE_URL", server.URL+"/modupdater.txt")
	t.Setenv("EMU_MIRROR_PATTERN", server.URL+"/mirror/%d.zip")
	return server
}

// writeMod installs a mod manifest under root
func writeMod(t *testing.T, root, name, version string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "everest.yaml"),
		[]byte(fmt.Sprintf("- Name: %s\n  Version: %s\n", name, version)), 0644))
}
