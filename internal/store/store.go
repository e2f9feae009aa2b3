package store

import "github.com/starford/langthil/internal/wikipath"

// SearchResult represents one search hit.
type SearchResult struct {
	Namespace string `json:"namespace"`
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	Snippet   string `json:"snippet"`
}

// Path returns the address of the hit.
func (r SearchResult) Path() wikipath.WikiPath {
	return wikipath.WikiPath{Namespace: r.Namespace, Slug: r.Slug}
}
