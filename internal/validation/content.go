package validation

import (
	"fmt"
	"sort"

	"github.com/axiometa/academy/internal/catalog"
	"github.com/axiometa/academy/internal/content"
	"github.com/axiometa/academy/internal/expressions"
	"github.com/axiometa/academy/pkg/schema"
)

// RuleCompiler compiles lesson unlock rules.
type RuleCompiler interface {
	Compile(expression string) error
}

// ContentValidator orchestrates the three-stage content audit:
// 1. Structural (JSON Schema over raw documents)
// 2. Field (struct tags on decoded records)
// 3. Semantic (cross references, sequences, rules)
type ContentValidator struct {
	jsonSchema *JSONSchemaValidator
	fields     *FieldValidator
	rules      RuleCompiler
}

// NewContentValidator creates a ContentValidator. Unlock rules are compiled
// with the CEL environment lessons are unlocked with.
func NewContentValidator() (*ContentValidator, error) {
	jsv, err := NewJSONSchemaValidator()
	if err != nil {
		return nil, err
	}
	cel, err := expressions.NewCELEngine()
	if err != nil {
		return nil, err
	}
	return &ContentValidator{
		jsonSchema: jsv,
		fields:     NewFieldValidator(),
		rules:      cel,
	}, nil
}

// Validate runs every stage and aggregates the issues. Unlike definition
// validation, stages do not short-circuit.
func (cv *ContentValidator) Validate(b *content.Bundle) *schema.ValidationResult {
	if b == nil {
		r := &schema.ValidationResult{}
		r.AddError("/", schema.IssueSchema, "content bundle is nil")
		return r
	}

	result := validateStructural(cv.jsonSchema, b)
	result.Merge(validateFields(cv.fields, b))
	result.Merge(validateSemantic(b, catalog.New(b), cv.rules))
	return result
}

// validateStructural checks each raw document against the schema for its file.
func validateStructural(jsv *JSONSchemaValidator, b *content.Bundle) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	names := make([]string, 0, len(b.Raw))
	for name := range b.Raw {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		kind, ok := KindOf(name)
		if !ok {
			result.AddWarning(name, schema.IssueSchema, "file is not a known content document")
			continue
		}
		violations, err := jsv.Violations(kind, b.Raw[name])
		if err != nil {
			result.AddError(name, schema.IssueSchema, err.Error())
			continue
		}
		for _, v := range violations {
			result.AddError(name+"#"+v.Location, schema.IssueSchema, v.Message)
		}
	}
	return result
}

// lessonPath names lesson i for issue paths.
func lessonPath(b *content.Bundle, i int, l *schema.Lesson) string {
	if l.ID != "" {
		return fmt.Sprintf("lessons[%s]", l.ID)
	}
	if f := b.LessonFile(i); f != "" {
		return f
	}
	return fmt.Sprintf("lessons[%d]", i)
}
