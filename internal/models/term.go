package models

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// MaxTermLength bounds glossary terms.
const MaxTermLength = 100

// Term is a glossary entry. Definition is Markdown.
type Term struct {
	ID         string `json:"id"`
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// Validate checks field constraints.
func (t *Term) Validate() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.Term, validation.Required, validation.RuneLength(1, MaxTermLength)),
		validation.Field(&t.Definition, validation.Required),
	)
}
