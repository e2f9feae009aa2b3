package models

import (
	"time"

	"github.com/starford/langthil/internal/wikipath"
)

// VaultFile describes a Markdown file in the vault mirror and the article it
// holds.
type VaultFile struct {
	Path      string            `json:"path"`
	Article   wikipath.WikiPath `json:"article"`
	Checksum  string            `json:"checksum"`
	UpdatedAt time.Time         `json:"updated_at"`
}
