package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/axiometa/academy/internal/content"
	"github.com/axiometa/academy/pkg/schema"
)

// FieldValidator applies the `validate` struct tags of the typed content records.
type FieldValidator struct {
	v *validator.Validate
}

// NewFieldValidator creates a FieldValidator that reports fields by their YAML names.
func NewFieldValidator() *FieldValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &FieldValidator{v: v}
}

// Struct checks a single record, returning one message per failed field.
func (fv *FieldValidator) Struct(record any) []Violation {
	err := fv.v.Struct(record)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Violation{{Location: "/", Message: err.Error()}}
	}
	out := make([]Violation, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		out = append(out, Violation{
			Location: fe.Field(),
			Message:  fmt.Sprintf("%s fails %q (got %v)", fe.Field(), rule, fe.Value()),
		})
	}
	return out
}

func validateFields(fv *FieldValidator, b *content.Bundle) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	add := func(prefix string, vs []Violation) {
		for _, v := range vs {
			result.AddError(prefix+"."+v.Location, schema.IssueField, v.Message)
		}
	}
	for i, k := range b.Kits {
		add(fmt.Sprintf("kits[%d]", i), fv.Struct(k))
	}
	for i, bd := range b.Boards {
		add(fmt.Sprintf("boards[%d]", i), fv.Struct(bd))
	}
	for i, m := range b.Modules {
		add(fmt.Sprintf("modules[%d]", i), fv.Struct(m))
	}
	for i, l := range b.Lessons {
		add(lessonPath(b, i, l), fv.Struct(l))
	}
	return result
}
