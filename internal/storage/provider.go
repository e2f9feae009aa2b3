// Package storage holds the vault directory: one Markdown file per article,
// laid out as <namespace>/<slug>.md.
package storage

import (
	"github.com/starford/langthil/internal/models"
	"github.com/starford/langthil/internal/wikipath"
)

// Provider is the interface for vault file operations. Paths are relative to
// the vault root and use "/".
type Provider interface {
	// Root returns the absolute vault directory.
	Root() string
	// Rel maps an absolute file name inside the vault to its relative path.
	Rel(abs string) (string, error)
	// List returns every article file under dir.
	List(dir string) ([]models.VaultFile, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path.
	Write(path string, content []byte) error
	// WriteArticle writes the file of the article at p and returns its path.
	WriteArticle(p wikipath.WikiPath, content []byte) (string, error)
}
