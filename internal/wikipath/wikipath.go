// Package wikipath parses and normalizes (namespace, slug) wiki addresses.
package wikipath

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/langthil/internal/apperr"
)

const (
	// Separator joins namespace segments and the slug.
	Separator = "/"
	// SpecialPrefix marks slugs that bypass publish and content-warning rules.
	SpecialPrefix = "special:"
	// TemplateSlug is the slug looked up when seeding new articles in a namespace.
	TemplateSlug = "_template"

	viewPrefix = "/wiki/"
	newPrefix  = "/new/"
)

var (
	sepRe      = regexp.MustCompile(`[^\p{L}\p{N}_]+`)
	stripRe    = regexp.MustCompile(`[^a-z0-9_-]`)
	collapseRe = regexp.MustCompile(`-{2,}`)
)

// InvalidPathError is returned when a non-empty raw path normalizes to an empty slug.
type InvalidPathError struct {
	Raw string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("wikipath: %q does not yield a slug", e.Raw)
}

// Unwrap lets callers match with errors.Is(err, apperr.ErrInvalidPath).
func (e *InvalidPathError) Unwrap() error { return apperr.ErrInvalidPath }

// WikiPath is a normalized article address. The zero value is the root.
type WikiPath struct {
	Namespace string
	Slug      string
}

// New builds a WikiPath from already-split components, normalizing both.
func New(namespace, slug string) WikiPath {
	return WikiPath{
		Namespace: NormalizeNamespace(namespace),
		Slug:      TransformSlug(slug),
	}
}

// Parse splits raw on "/" into namespace segments and a trailing slug. Every
// segment is normalized on its own; "?" and "#" are ordinary characters here.
func Parse(raw string) (WikiPath, error) {
	trimmed := strings.TrimSpace(raw)

	var segments []string
	for _, s := range strings.Split(trimmed, Separator) {
		if strings.TrimSpace(s) != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) == 0 {
		if strings.TrimSpace(raw) != "" {
			return WikiPath{}, &InvalidPathError{Raw: raw}
		}
		return WikiPath{}, nil
	}

	slug := TransformSlug(segments[len(segments)-1])
	if slug == "" {
		return WikiPath{}, &InvalidPathError{Raw: raw}
	}
	return WikiPath{
		Namespace: NormalizeNamespace(strings.Join(segments[:len(segments)-1], Separator)),
		Slug:      slug,
	}, nil
}

// TransformSlug lowercases text, turns whitespace and punctuation runs into
// "-", drops anything outside [a-z0-9_-] and trims stray separators. The
// special: marker survives as a prefix.
func TransformSlug(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))

	prefix := ""
	if strings.HasPrefix(s, SpecialPrefix) {
		prefix = SpecialPrefix
		s = s[len(SpecialPrefix):]
	}

	s = sepRe.ReplaceAllString(s, "-")
	s = stripRe.ReplaceAllString(s, "")
	s = collapseRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return ""
	}
	return prefix + s
}

// NormalizeNamespace applies TransformSlug to every segment of ns and drops
// the ones that come out empty.
func NormalizeNamespace(ns string) string {
	var out []string
	for _, seg := range strings.Split(ns, Separator) {
		if t := TransformSlug(seg); t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, Separator)
}

// ParentNamespace strips the last segment of ns. Root-level namespaces yield "".
func ParentNamespace(ns string) string {
	ns = strings.Trim(ns, Separator)
	i := strings.LastIndex(ns, Separator)
	if i < 0 {
		return ""
	}
	return ns[:i]
}

// JoinPath joins namespace and slug, stripping leading separators so root
// articles render as a bare slug.
func JoinPath(namespace, slug string) string {
	return strings.TrimLeft(namespace+Separator+slug, Separator)
}

// IsSpecial reports whether slug lives in the special namespace.
func IsSpecial(slug string) bool {
	return strings.HasPrefix(strings.ToLower(slug), SpecialPrefix)
}

// String returns the joined namespace/slug form.
func (p WikiPath) String() string {
	return JoinPath(p.Namespace, p.Slug)
}

// Equal compares both components case-insensitively.
func (p WikiPath) Equal(o WikiPath) bool {
	return strings.EqualFold(p.Namespace, o.Namespace) && strings.EqualFold(p.Slug, o.Slug)
}

// URL returns the canonical view URL of the path.
func (p WikiPath) URL() string {
	return viewPrefix + p.String()
}

// NewURL returns the URL offering to create an article at the path.
func (p WikiPath) NewURL() string {
	return newPrefix + p.String()
}

// ValidateSlug reports whether s is already in canonical slug form.
func ValidateSlug(s string) error {
	if s == "" || TransformSlug(s) != s {
		return fmt.Errorf("slug %q is not normalized", s)
	}
	return nil
}

// Resolve parses a link target relative to namespace. Targets starting with
// "/" are absolute.
func Resolve(namespace, target string) (WikiPath, error) {
	if !strings.HasPrefix(strings.TrimSpace(target), Separator) {
		target = JoinPath(namespace, target)
	}
	return Parse(target)
}
