package storage

import (
	"path"
	"strings"

	"github.com/starford/langthil/internal/wikipath"
)

// ArticleFile returns the vault-relative file that holds the article at p.
func ArticleFile(p wikipath.WikiPath) string {
	return p.String() + Ext
}

// ArticlePath maps a vault-relative file back to an article path. The file
// name goes through the same normalisation as any other path, so
// "Lore/Red Dragon.md" is the article lore/red-dragon.
func ArticlePath(rel string) (wikipath.WikiPath, error) {
	rel = strings.TrimSuffix(path.Clean(strings.ReplaceAll(rel, "\\", "/")), Ext)
	return wikipath.Parse(rel)
}
