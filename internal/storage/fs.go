package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/langthil/internal/checksum"
	"github.com/starford/langthil/internal/models"
	"github.com/starford/langthil/internal/wikipath"
)

// Ext is the extension of article files.
const Ext = ".md"

const tempPattern = ".langthil-tmp-*"

// FS is a vault directory on the local disk.
type FS struct {
	root string
}

var _ Provider = (*FS)(nil)

// NewFS opens the vault at root, which must be an existing directory.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute vault directory.
func (f *FS) Root() string { return f.root }

// IsArticleFile reports whether name is a visible Markdown file.
func IsArticleFile(name string) bool {
	base := filepath.Base(name)
	return strings.HasSuffix(base, Ext) && !strings.HasPrefix(base, ".")
}

// abs resolves rel inside the vault, refusing anything that climbs out.
func (f *FS) abs(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	p := filepath.Join(f.root, filepath.FromSlash(rel))
	if p != f.root && !strings.HasPrefix(p, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path escapes vault root: %s", rel)
	}
	return p, nil
}

// Rel implements Provider.
func (f *FS) Rel(abs string) (string, error) {
	rel, err := filepath.Rel(f.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: %s is outside the vault", abs)
	}
	return filepath.ToSlash(rel), nil
}

// List walks dir for article files. Hidden files and directories are
// skipped, as are files whose names do not form an article path.
func (f *FS) List(dir string) ([]models.VaultFile, error) {
	base, err := f.abs(dir)
	if err != nil {
		return nil, err
	}
	var out []models.VaultFile
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if p != base && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsArticleFile(d.Name()) {
			return nil
		}
		rel, err := f.Rel(p)
		if err != nil {
			return err
		}
		article, err := ArticlePath(rel)
		if err != nil {
			return nil
		}
		file, err := f.describe(p, rel, article)
		if err != nil {
			return err
		}
		out = append(out, file)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	return out, nil
}

func (f *FS) describe(abs, rel string, article wikipath.WikiPath) (models.VaultFile, error) {
	info, err := os.Stat(abs)
	if err != nil {
		return models.VaultFile{}, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return models.VaultFile{}, err
	}
	return models.VaultFile{
		Path:      rel,
		Article:   article,
		Checksum:  checksum.Sum(data),
		UpdatedAt: info.ModTime(),
	}, nil
}

// Read returns the raw bytes of a vault file.
func (f *FS) Read(path string) ([]byte, error) {
	p, err := f.abs(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// ReadArticle returns the file of the article at p.
func (f *FS) ReadArticle(p wikipath.WikiPath) ([]byte, error) {
	return f.Read(ArticleFile(p))
}

// WriteArticle implements Provider.
func (f *FS) WriteArticle(p wikipath.WikiPath, content []byte) (string, error) {
	rel := ArticleFile(p)
	return rel, f.Write(rel, content)
}

// Write replaces path through a synced temp file and a rename, so readers
// and the watcher never see a half-written article.
func (f *FS) Write(path string, content []byte) (err error) {
	target, err := f.abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err = os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("storage: rename into %s: %w", path, err)
	}
	return nil
}
