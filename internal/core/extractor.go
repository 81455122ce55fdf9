package core

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/DonovanMods/everest-mod-updater/internal/domain"
)

// Extractor unpacks mod archives
type Extractor struct{}

// NewExtractor creates a new Extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract extracts a zip archive into destDir, preserving its directory
// structure. All failures wrap domain.ErrExtract.
func (e *Extractor) Extract(archivePath, destDir string) error {
	if !e.CanExtract(archivePath) {
		return fmt.Errorf("%w: unsupported archive format: %s", domain.ErrExtract, filepath.Ext(archivePath))
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("%w: creating destination directory: %v", domain.ErrExtract, err)
	}

	if err := e.extractZip(archivePath, destDir); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrExtract, err)
	}
	return nil
}

// CanExtract returns true if the extractor can handle the given filename
func (e *Extractor) CanExtract(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), domain.ArchiveExt)
}

func (e *Extractor) extractZip(archivePath, destDir string) (err error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("opening zip: %w", err)
	}
	defer func() {
		if cerr := r.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing zip: %w", cerr)
		}
	}()

	for _, f := range r.File {
		if err := e.extractZipFile(f, destDir); err != nil {
			return err
		}
	}

	return nil
}

func (e *Extractor) extractZipFile(f *zip.File, destDir string) (err error) {
	destPath, err := e.sanitizePath(destDir, f.Name)
	if err != nil {
		return err
	}

	if f.FileInfo().IsDir() {
		// 0755 regardless of the archived mode so files can be written below it
		return os.MkdirAll(destPath, 0755)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", f.Name, err)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening file %s in archive: %w", f.Name, err)
	}
	defer func() {
		if cerr := rc.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing archive entry %s: %w", f.Name, cerr)
		}
	}()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}
	outFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode|0200)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", destPath, err)
	}
	defer func() {
		if cerr := outFile.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing file %s: %w", destPath, cerr)
		}
	}()

	if _, err = io.Copy(outFile, rc); err != nil {
		return fmt.Errorf("writing file %s: %w", destPath, err)
	}

	return nil
}

// sanitizePath ensures the extracted file path is within the destination directory
// This prevents "zip slip" attacks where malicious archives contain paths like "../../../etc/passwd"
func (e *Extractor) sanitizePath(destDir, filePath string) (string, error) {
	// Archives built on Windows may use backslashes
	cleanPath := filepath.Clean(filepath.FromSlash(strings.ReplaceAll(filePath, `\`, "/")))
	if filepath.IsAbs(cleanPath) {
		return "", fmt.Errorf("path traversal detected: %s", filePath)
	}

	destPath := filepath.Join(destDir, cleanPath)

	base := filepath.Clean(destDir)
	if destPath != base && !strings.HasPrefix(destPath, base+string(os.PathSeparator)) {
		return "", fmt.Errorf("path traversal detected: %s", filePath)
	}

	return destPath, nil
}
