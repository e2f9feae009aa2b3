package wiki

import (
	"context"

	"github.com/starford/langthil/internal/wikipath"
)

// FindTemplate returns the Markdown of the nearest _template article, looking
// in namespace and then each ancestor up to the root. Unpublished templates
// count.
func (s *Service) FindTemplate(ctx context.Context, namespace string) (string, bool, error) {
	for _, p := range TemplateCandidates(namespace) {
		a, err := s.find(ctx, p, false)
		if err != nil {
			return "", false, err
		}
		if a != nil {
			return a.Markdown, true, nil
		}
	}
	return "", false, nil
}

// TemplateCandidates lists the template paths checked for namespace, nearest
// first. The root appears exactly once, last.
func TemplateCandidates(namespace string) []wikipath.WikiPath {
	ns := wikipath.NormalizeNamespace(namespace)
	var out []wikipath.WikiPath
	for {
		out = append(out, wikipath.WikiPath{Namespace: ns, Slug: wikipath.TemplateSlug})
		if ns == "" {
			return out
		}
		ns = wikipath.ParentNamespace(ns)
	}
}
