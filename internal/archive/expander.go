// Package archive downloads zip archives, extracts them into scratch space,
// and fans their members out as individual document candidates.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/regwatch/dreal-scraper/internal/document"
	"github.com/regwatch/dreal-scraper/internal/ledger"
	"github.com/regwatch/dreal-scraper/internal/scrape"
	"go.uber.org/zap"
)

// Expander implements scrape.Expander. Scratch space is transient: the
// archive body is deleted right after extraction, unsupported entries during
// the manifest walk, member files by the sink, and the whole root at run end.
type Expander struct {
	fetcher     scrape.Fetcher
	ledger      *ledger.Ledger
	scratchRoot string
	logger      *zap.Logger
}

// New builds an Expander rooted at scratchRoot.
func New(fetcher scrape.Fetcher, ldg *ledger.Ledger, scratchRoot string, logger *zap.Logger) *Expander {
	return &Expander{
		fetcher:     fetcher,
		ledger:      ldg,
		scratchRoot: scratchRoot,
		logger:      logger,
	}
}

// Expand fetches the archive at c.SourceFileURL, extracts it, builds the
// manifest of supported members, and returns one candidate per manifest
// entry not yet recorded in the ledger. Members inherit the archive's
// metadata, including its Last-Modified stamp.
func (x *Expander) Expand(ctx context.Context, c *document.Candidate) (scrape.Batch, error) {
	page, err := x.fetcher.Get(ctx, c.SourceFileURL)
	if err != nil {
		return scrape.Batch{}, fmt.Errorf("download archive %s: %w", c.SourceFileURL, err)
	}

	if err := os.MkdirAll(x.scratchRoot, 0o750); err != nil {
		return scrape.Batch{}, fmt.Errorf("create scratch root %s: %w", x.scratchRoot, err)
	}

	zipName := document.DeriveFilename(c.SourceFileURL)
	zipPath := filepath.Join(x.scratchRoot, zipName)
	if err := os.WriteFile(zipPath, page.Body, 0o600); err != nil {
		return scrape.Batch{}, fmt.Errorf("write archive body %s: %w", zipPath, err)
	}

	extractDir := filepath.Join(x.scratchRoot, strings.TrimSuffix(zipName, filepath.Ext(zipName)))
	err = extractAll(zipPath, extractDir)
	// The archive body is dead weight once extracted; drop it even on error.
	if rmErr := os.Remove(zipPath); rmErr != nil {
		x.logger.Warn("Failed to delete downloaded archive", zap.String("path", zipPath), zap.Error(rmErr))
	}
	if err != nil {
		return scrape.Batch{}, fmt.Errorf("extract archive %s: %w", zipName, err)
	}

	manifest, err := x.buildManifest(extractDir)
	if err != nil {
		return scrape.Batch{}, fmt.Errorf("build manifest for %s: %w", zipName, err)
	}
	x.logger.Info("Expanded archive",
		zap.String("url", c.SourceFileURL),
		zap.Int("supported_files", len(manifest)))

	batch := scrape.Batch{Dir: extractDir}
	for _, rel := range manifest {
		if x.ledger.ContainsDocument(ledger.MemberKey(c.SourceFileURL, rel)) {
			continue
		}
		batch.Members = append(batch.Members, &document.Candidate{
			Project:         c.Project,
			SourcePageURL:   c.SourcePageURL,
			SourceFileURL:   c.SourceFileURL,
			SourceFilename:  filepath.Base(rel),
			Authority:       c.Authority,
			CategoryLocal:   c.CategoryLocal,
			DepartmentCode:  c.DepartmentCode,
			TargetYear:      c.TargetYear,
			LastModified:    c.LastModified,
			RawLastModified: c.RawLastModified,
			Archive: &document.ArchiveContext{
				URL:          c.SourceFileURL,
				LocalPath:    filepath.Join(extractDir, filepath.FromSlash(rel)),
				RelativePath: rel,
				Manifest:     manifest,
			},
		})
	}
	return batch, nil
}

// RemoveDir deletes one archive's extraction directory.
func (x *Expander) RemoveDir(dir string) {
	if dir == "" {
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		x.logger.Warn("Failed to remove extraction dir", zap.String("dir", dir), zap.Error(err))
	}
}

// CleanupRoot removes the whole scratch root. Called once at run end so no
// orphaned space survives abnormal termination.
func (x *Expander) CleanupRoot() {
	if err := os.RemoveAll(x.scratchRoot); err != nil {
		x.logger.Warn("Failed to remove scratch root", zap.String("dir", x.scratchRoot), zap.Error(err))
	}
}

// buildManifest walks the extraction dir and returns the sorted, deduplicated
// relative paths of supported document types. Unsupported files are deleted
// on the spot to conserve scratch space.
func (x *Expander) buildManifest(extractDir string) ([]string, error) {
	seen := make(map[string]struct{})
	err := filepath.WalkDir(extractDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(extractDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !document.SupportedExtension(rel) {
			if rmErr := os.Remove(path); rmErr != nil {
				x.logger.Warn("Failed to delete unsupported file", zap.String("path", path), zap.Error(rmErr))
			}
			return nil
		}
		seen[rel] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, err
	}

	manifest := make([]string, 0, len(seen))
	for rel := range seen {
		manifest = append(manifest, rel)
	}
	sort.Strings(manifest)
	return manifest, nil
}

// extractAll unpacks the zip at zipPath into destDir, refusing entries that
// would escape it.
func extractAll(zipPath, destDir string) error {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer reader.Close()

	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return fmt.Errorf("create extraction dir: %w", err)
	}

	for _, entry := range reader.File {
		if err := extractEntry(entry, destDir); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(entry *zip.File, destDir string) error {
	target := filepath.Join(destDir, filepath.FromSlash(entry.Name))
	if !strings.HasPrefix(filepath.Clean(target)+string(os.PathSeparator), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return fmt.Errorf("zip entry %q escapes extraction dir", entry.Name)
	}
	if entry.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o750)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("create dir for %s: %w", entry.Name, err)
	}

	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("open zip entry %s: %w", entry.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("extract %s: %w", entry.Name, err)
	}
	return dst.Close()
}
