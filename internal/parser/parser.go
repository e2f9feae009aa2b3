// Package parser extracts redirect directives, wikilinks and vault front matter from Markdown.
package parser

import (
	"regexp"
	"strings"
)

var (
	redirectRe = regexp.MustCompile(`(?i)^\[\[REDIRECT:(.*?)\]\]`)
	wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)
)

// RedirectTarget returns the target of a leading [[REDIRECT:target]] directive.
// Surrounding whitespace of the body is ignored; the match is case-insensitive.
func RedirectTarget(markdown string) (string, bool) {
	m := redirectRe.FindStringSubmatch(strings.TrimSpace(markdown))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// RedirectDirective builds the body of a redirect stub pointing at target.
func RedirectDirective(target string) string {
	return "[[REDIRECT:" + target + "]]"
}

// Link is a single [[target|label]] occurrence.
type Link struct {
	Raw    string
	Target string
	Label  string
}

// FindLinks returns every wikilink in body in order of appearance. Redirect
// directives are not links.
func FindLinks(body string) []Link {
	matches := wikilinkRe.FindAllStringSubmatch(body, -1)
	out := make([]Link, 0, len(matches))
	for _, m := range matches {
		raw := m[1]
		if strings.HasPrefix(strings.ToUpper(raw), "REDIRECT:") {
			continue
		}
		target, label := raw, ""
		if i := strings.Index(raw, "|"); i >= 0 {
			target, label = raw[:i], strings.TrimSpace(raw[i+1:])
		}
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if label == "" {
			label = target
		}
		out = append(out, Link{Raw: m[0], Target: target, Label: label})
	}
	return out
}

// ExtractLinks returns deduplicated wikilink targets.
func ExtractLinks(body string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, l := range FindLinks(body) {
		if _, ok := seen[l.Target]; ok {
			continue
		}
		seen[l.Target] = struct{}{}
		out = append(out, l.Target)
	}
	return out
}

// ReplaceLinks rewrites every wikilink in body with the result of fn.
func ReplaceLinks(body string, fn func(Link) string) string {
	return wikilinkRe.ReplaceAllStringFunc(body, func(raw string) string {
		links := FindLinks(raw)
		if len(links) == 0 {
			return raw
		}
		return fn(links[0])
	})
}

// DeriveTitle returns the first H1 heading of body, or empty string.
func DeriveTitle(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
