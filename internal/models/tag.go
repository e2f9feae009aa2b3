package models

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/langthil/internal/wikipath"
)

// Tag groups articles. Description is Markdown.
type Tag struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
}

// Validate checks field constraints.
func (t *Tag) Validate() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.Name, validation.Required, validation.RuneLength(1, MaxTitleLength)),
		validation.Field(&t.Slug, validation.Required, validation.By(func(any) error {
			return wikipath.ValidateSlug(t.Slug)
		})),
	)
}
