// Package archive downloads IRS e-file ZIP archives and expands them into a
// scratch workspace on local disk.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Fetcher downloads archives over HTTP with a hard size cap. Archives are
// streamed to disk rather than buffered, since a single IRS drop can run to
// hundreds of megabytes.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewFetcher creates a Fetcher with the given request timeout and maximum
// archive size in bytes.
func NewFetcher(timeout time.Duration, maxBytes int64) *Fetcher {
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Download fetches the archive at rawURL into dest and returns the number of
// bytes written. Responses larger than the configured cap are rejected.
func (f *Fetcher) Download(ctx context.Context, rawURL, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSpace(rawURL), nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/zip, application/octet-stream;q=0.9, */*;q=0.1")

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch archive: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("fetch archive: http %d", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("create archive file: %w", err)
	}
	// Read one byte past the cap so an at-cap archive is distinguishable
	// from an oversized one.
	written, err := io.Copy(out, io.LimitReader(resp.Body, f.maxBytes+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("save archive: %w", err)
	}
	if written > f.maxBytes {
		return 0, fmt.Errorf("archive too large (over %d bytes)", f.maxBytes)
	}
	return written, nil
}

// Workspace is a temporary directory holding one downloaded archive and its
// extracted contents. Close removes everything.
type Workspace struct {
	root string
}

// NewWorkspace creates a fresh scratch directory under baseDir, or under the
// system temp directory when baseDir is empty.
func NewWorkspace(baseDir string) (*Workspace, error) {
	root, err := os.MkdirTemp(baseDir, "efile-*")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{root: root}, nil
}

// Root returns the workspace directory.
func (w *Workspace) Root() string {
	return w.root
}

// ArchivePath returns where the downloaded archive is stored.
func (w *Workspace) ArchivePath() string {
	return filepath.Join(w.root, "archive.zip")
}

func (w *Workspace) extractRoot() string {
	return filepath.Join(w.root, "extracted")
}

// Close removes the workspace and everything in it.
func (w *Workspace) Close() error {
	return os.RemoveAll(w.root)
}

// Expand unpacks the ZIP at archivePath into the workspace and returns the
// number of files extracted. Directory entries are skipped; entries whose
// names would escape the extraction root are rejected.
func (w *Workspace) Expand(archivePath string) (int, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return 0, fmt.Errorf("open archive: %w", err)
	}
	defer reader.Close()

	root := w.extractRoot()
	if err := os.MkdirAll(root, 0o755); err != nil {
		return 0, fmt.Errorf("create extraction dir: %w", err)
	}

	count := 0
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		if err := extractEntry(entry, root); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func extractEntry(entry *zip.File, root string) error {
	dest := filepath.Join(root, filepath.FromSlash(entry.Name))
	if !strings.HasPrefix(dest, root+string(os.PathSeparator)) {
		return fmt.Errorf("archive entry escapes extraction root: %s", entry.Name)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create entry dir: %w", err)
	}

	rc, err := entry.Open()
	if err != nil {
		return fmt.Errorf("open archive entry %s: %w", entry.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("extract %s: %w", entry.Name, err)
	}
	return out.Close()
}

// XMLFiles walks the extracted tree and returns every .xml file, matched
// case-insensitively, in ascending path order. The ordering makes repeated
// runs of the same archive visit documents identically.
func (w *Workspace) XMLFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(w.extractRoot(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".xml") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan workspace: %w", err)
	}
	sort.Strings(files)
	return files, nil
}
