// Package mirror keeps a directory of Markdown files in step with the article
// store. Saved articles are written out as <namespace>/<slug>.md with YAML
// front matter; edited files are imported back through the wiki service.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/starford/langthil/internal/apperr"
	"github.com/starford/langthil/internal/checksum"
	"github.com/starford/langthil/internal/models"
	"github.com/starford/langthil/internal/parser"
	"github.com/starford/langthil/internal/storage"
	"github.com/starford/langthil/internal/wikipath"
)

// Importer saves articles read from the vault.
type Importer interface {
	ArticleAt(ctx context.Context, p wikipath.WikiPath, publishedOnly bool) (*models.Article, error)
	ImportArticle(ctx context.Context, a *models.Article, tags []string) error
}

// Checksums remembers the last imported or exported content of each file.
type Checksums interface {
	VaultChecksum(ctx context.Context, path string) (string, error)
	SetVaultChecksum(ctx context.Context, path, checksum string) error
	DeleteVaultChecksum(ctx context.Context, path string) error
	AllVaultChecksums(ctx context.Context) (map[string]string, error)
}

// Mirror exports and imports vault files.
type Mirror struct {
	fs       storage.Provider
	sums     Checksums
	importer Importer
	logger   *slog.Logger
}

// New creates a mirror over fs.
func New(fs storage.Provider, sums Checksums, importer Importer, logger *slog.Logger) *Mirror {
	return &Mirror{fs: fs, sums: sums, importer: importer, logger: logger}
}

// Export writes a to the vault, then records its checksum so the watcher
// skips the write. A failed write records nothing.
func (m *Mirror) Export(ctx context.Context, a *models.Article) error {
	data, err := parser.EncodeDocument(parser.DocumentMeta{
		Title:     a.Title,
		Published: a.Published,
		Publish:   a.IsPublished,
		NSFW:      a.IsNSFW,
		Spoiler:   a.IsSpoiler,
		Tags:      a.TagSlugs(),
	}, a.Markdown)
	if err != nil {
		return err
	}
	rel, err := m.fs.WriteArticle(a.Path(), data)
	if err != nil {
		return fmt.Errorf("mirror: export %s: %w", a.Path(), err)
	}
	return m.sums.SetVaultChecksum(ctx, rel, checksum.Sum(data))
}

// Import parses data as the vault file rel and saves it. The existing article
// at the same path keeps its ID and first publish time.
func (m *Mirror) Import(ctx context.Context, rel string, data []byte) (*models.Article, error) {
	p, err := storage.ArticlePath(rel)
	if err != nil {
		return nil, err
	}
	doc, err := parser.ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("mirror: %s: %w", rel, err)
	}

	a, err := m.importer.ArticleAt(ctx, p, false)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		a = &models.Article{}
	case err != nil:
		return nil, err
	}

	a.Namespace = p.Namespace
	a.Slug = p.Slug
	a.Title = doc.Meta.Title
	if a.Title == "" {
		a.Title = p.Slug
	}
	a.Markdown = strings.TrimRight(doc.Body, "\n")
	a.IsPublished = doc.Meta.Publish
	a.IsNSFW = doc.Meta.NSFW
	a.IsSpoiler = doc.Meta.Spoiler
	if a.Published == nil && doc.Meta.Published != nil {
		t := doc.Meta.Published.UTC()
		a.Published = &t
	}

	if err := m.importer.ImportArticle(ctx, a, doc.Meta.Tags); err != nil {
		return nil, err
	}
	if err := m.sums.SetVaultChecksum(ctx, rel, checksum.Sum(data)); err != nil {
		return nil, err
	}
	return a, nil
}

// importIfChanged reads rel and imports it unless its checksum is already known.
func (m *Mirror) importIfChanged(ctx context.Context, rel string) (bool, error) {
	data, err := m.fs.Read(rel)
	if err != nil {
		return false, err
	}
	known, err := m.sums.VaultChecksum(ctx, rel)
	if err != nil {
		return false, err
	}
	if !checksum.Changed(known, data) {
		return false, nil
	}
	if _, err := m.Import(ctx, rel, data); err != nil {
		return false, err
	}
	return true, nil
}

type pending struct {
	rel  string
	data []byte
}

// Sync imports every vault file whose content differs from the recorded
// checksum. Files are read concurrently and imported in order. Per-file
// failures are logged and skipped.
func (m *Mirror) Sync(ctx context.Context) (int, error) {
	files, err := m.fs.List("")
	if err != nil {
		return 0, err
	}
	known, err := m.sums.AllVaultChecksums(ctx)
	if err != nil {
		return 0, err
	}

	var changed []models.VaultFile
	for _, f := range files {
		if known[f.Path] != f.Checksum {
			changed = append(changed, f)
		}
	}

	reads := make([]pending, len(changed))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, f := range changed {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := m.fs.Read(f.Path)
			if err != nil {
				m.logger.Warn("sync: read failed", slog.String("path", f.Path), slog.String("error", err.Error()))
				return nil
			}
			reads[i] = pending{rel: f.Path, data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	imported := 0
	for _, r := range reads {
		if r.data == nil {
			continue
		}
		if _, err := m.Import(ctx, r.rel, r.data); err != nil {
			m.logger.Warn("sync: import failed", slog.String("path", r.rel), slog.String("error", err.Error()))
			continue
		}
		imported++
		m.logger.Debug("sync: imported", slog.String("path", r.rel))
	}

	// Forget files that disappeared so they import again if restored.
	disk := make(map[string]struct{}, len(files))
	for _, f := range files {
		disk[f.Path] = struct{}{}
	}
	for p := range known {
		if _, ok := disk[p]; !ok {
			if err := m.sums.DeleteVaultChecksum(ctx, p); err != nil {
				m.logger.Warn("sync: forget failed", slog.String("path", p), slog.String("error", err.Error()))
			}
		}
	}
	return imported, nil
}
