// Package validation audits authored content before it is shipped.
//
// Content passes through three stages: structural checks of the raw YAML
// documents against a JSON Schema, field checks of the decoded records with
// struct tags, and semantic checks across the whole bundle (references,
// wiring sequences, code annotations, unlock rules).
package validation

import (
	"github.com/axiometa/academy/internal/content"
	"github.com/axiometa/academy/pkg/schema"
)

// Validator checks a content bundle. Errors block shipping; warnings are
// surfaced for content review.
type Validator interface {
	Validate(b *content.Bundle) *schema.ValidationResult
}
