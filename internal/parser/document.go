package parser

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

// DocumentMeta is the front matter of a vault file.
type DocumentMeta struct {
	Title     string     `yaml:"title"`
	Published *time.Time `yaml:"published,omitempty"`
	Publish   bool       `yaml:"publish"`
	NSFW      bool       `yaml:"nsfw,omitempty"`
	Spoiler   bool       `yaml:"spoiler,omitempty"`
	Tags      []string   `yaml:"tags,omitempty"`
}

// Document is a parsed vault file.
type Document struct {
	Meta DocumentMeta
	Body string
}

// ParseDocument splits front matter from the Markdown body. Files without
// front matter are all body; the title then falls back to the first H1.
func ParseDocument(data []byte) (*Document, error) {
	var meta DocumentMeta
	body, err := frontmatter.Parse(bytes.NewReader(data), &meta)
	if err != nil {
		return nil, fmt.Errorf("parser: front matter: %w", err)
	}
	doc := &Document{Meta: meta, Body: strings.TrimLeft(string(body), "\r\n")}
	if doc.Meta.Title == "" {
		doc.Meta.Title = DeriveTitle(doc.Body)
	}
	return doc, nil
}

// EncodeDocument renders meta as YAML front matter followed by body.
func EncodeDocument(meta DocumentMeta, body string) ([]byte, error) {
	out, err := yaml.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("parser: encode front matter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(out)
	buf.WriteString("---\n\n")
	buf.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
