package core

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/DonovanMods/everest-mod-updater/internal/domain"
)

// downloadChunkSize is the size of each read from the response body
const downloadChunkSize = 64 * 1024

// DownloadProgress represents the current state of a download
type DownloadProgress struct {
	Label      string  // Caller supplied name, usually the mod name
	TotalBytes int64   // Total size in bytes (0 if unknown)
	Downloaded int64   // Bytes downloaded so far
	Percentage float64 // Completion percentage (0-100)
	Done       bool    // True on the final call after the stream ended
}

// ProgressFunc is called after every chunk with progress updates
type ProgressFunc func(DownloadProgress)

// DownloadRequest describes a single file transfer
type DownloadRequest struct {
	URL   string
	Label string
	// DestPath is the output file. When empty the name is taken from the
	// Content-Disposition header or the URL and placed in DestDir.
	DestPath     string
	DestDir      string
	ExpectedSize int64 // Overrides Content-Length when > 0
}

// DownloadResult contains the outcome of a download
type DownloadResult struct {
	Path string // Final file path
	Size int64  // Bytes downloaded
}

// Downloader handles HTTP file downloads with progress tracking
type Downloader struct {
	httpClient *http.Client
}

// NewDownloader creates a new Downloader with the given HTTP client
// If httpClient is nil, http.DefaultClient is used
func NewDownloader(httpClient *http.Client) *Downloader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Downloader{
		httpClient: httpClient,
	}
}

// Download fetches req.URL and streams it to disk.
// Network and HTTP status failures are reported as domain.ErrTransfer so the
// caller can move on to another mirror; there is no retry here.
func (d *Downloader) Download(ctx context.Context, req DownloadRequest, progressFn ProgressFunc) (_ *DownloadResult, err error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", domain.ErrTransfer, err)
	}

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransfer, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing response body: %w", cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP error: %d %s", domain.ErrTransfer, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	destPath := req.DestPath
	if destPath == "" {
		name := filenameFromResponse(resp, req.URL)
		if name == "" {
			return nil, fmt.Errorf("%w: %s", domain.ErrNaming, req.URL)
		}
		destPath = filepath.Join(req.DestDir, name)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return nil, fmt.Errorf("creating directory: %w", err)
	}

	// Write to a temporary file first so a broken transfer never leaves a
	// truncated archive under the final name
	tempPath := destPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	defer func() {
		file.Close()
		os.Remove(tempPath)
	}()

	totalBytes := req.ExpectedSize
	if totalBytes <= 0 && resp.ContentLength > 0 {
		totalBytes = resp.ContentLength
	}

	reader := &progressReader{
		reader:     resp.Body,
		label:      req.Label,
		totalBytes: totalBytes,
		progressFn: progressFn,
	}

	buf := make([]byte, downloadChunkSize)
	written, err := io.CopyBuffer(onlyWriter{file}, reader, buf)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", domain.ErrTransfer, err)
	}
	reader.finish()

	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("closing file: %w", err)
	}

	if err := os.Rename(tempPath, destPath); err != nil {
		return nil, fmt.Errorf("renaming file: %w", err)
	}

	return &DownloadResult{
		Path: destPath,
		Size: written,
	}, nil
}

var looseFilename = regexp.MustCompile(`filename\*?=([^;]+)`)

// filenameFromResponse picks an output name from Content-Disposition,
// falling back to the last segment of the URL path
func filenameFromResponse(resp *http.Response, rawURL string) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := safeBase(params["filename"]); name != "" {
				return name
			}
		} else if m := looseFilename.FindStringSubmatch(cd); m != nil {
			// Servers send unquoted names with spaces, which ParseMediaType rejects
			if name := safeBase(m[1]); name != "" {
				return name
			}
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return safeBase(path.Base(u.Path))
}

// safeBase strips any directory component so a server cannot choose where
// the file is written
func safeBase(name string) string {
	name = strings.TrimSpace(strings.Trim(name, `"`))
	if name == "" {
		return ""
	}
	name = filepath.Base(filepath.FromSlash(name))
	switch name {
	case ".", "..", string(filepath.Separator):
		return ""
	}
	return name
}

// onlyWriter hides ReadFrom on *os.File so io.CopyBuffer uses our fixed
// size buffer instead of delegating the whole copy
type onlyWriter struct {
	w io.Writer
}

func (o onlyWriter) Write(p []byte) (int, error) {
	return o.w.Write(p)
}

// progressReader wraps an io.Reader to track download progress
type progressReader struct {
	reader     io.Reader
	label      string
	totalBytes int64
	downloaded int64
	progressFn ProgressFunc
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.downloaded += int64(n)
		r.report(false)
	}
	return n, err
}

func (r *progressReader) finish() {
	r.report(true)
}

func (r *progressReader) report(done bool) {
	if r.progressFn == nil {
		return
	}
	progress := DownloadProgress{
		Label:      r.label,
		TotalBytes: r.totalBytes,
		Downloaded: r.downloaded,
		Done:       done,
	}
	if r.totalBytes > 0 {
		progress.Percentage = float64(r.downloaded) / float64(r.totalBytes) * 100
	}
	r.progressFn(progress)
}
