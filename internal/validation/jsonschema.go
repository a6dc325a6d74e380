package validation

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/axiometa/academy/pkg/schema"
)

const contentSchemaURL = "https://academy.axiometa.io/schemas/content.json"

// DocKind names the shape of one content file.
type DocKind string

const (
	DocKits    DocKind = "kitsDoc"
	DocBoards  DocKind = "boardsDoc"
	DocModules DocKind = "modulesDoc"
	DocLesson  DocKind = "lesson"
)

// contentSchemaJSON describes every authored content file. Each step is
// checked against the branch for its type; unknown types only need id and type.
const contentSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://academy.axiometa.io/schemas/content.json",
  "$defs": {
    "id": { "type": "string", "minLength": 1 },
    "idList": { "type": "array", "items": { "$ref": "#/$defs/id" } },
    "text": { "type": "string" },
    "color": { "type": "string", "pattern": "^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$" },

    "kitsDoc": {
      "type": "object",
      "required": ["kits"],
      "properties": {
        "kits": { "type": "array", "items": { "$ref": "#/$defs/kit" } }
      },
      "additionalProperties": false
    },
    "kit": {
      "type": "object",
      "required": ["id", "name", "board", "lesson_board", "difficulty"],
      "properties": {
        "id": { "$ref": "#/$defs/id" },
        "name": { "$ref": "#/$defs/id" },
        "description": { "$ref": "#/$defs/text" },
        "image": { "$ref": "#/$defs/text" },
        "board": { "$ref": "#/$defs/id" },
        "lesson_board": { "$ref": "#/$defs/id" },
        "difficulty": { "enum": ["Beginner", "Intermediate", "Advanced"] },
        "estimated_time": { "$ref": "#/$defs/text" },
        "modules": { "$ref": "#/$defs/idList" },
        "available": { "type": "boolean" },
        "featured": { "type": "boolean" },
        "color": { "$ref": "#/$defs/color" },
        "accent_color": { "$ref": "#/$defs/color" }
      },
      "additionalProperties": false
    },

    "boardsDoc": {
      "type": "object",
      "required": ["boards"],
      "properties": {
        "boards": { "type": "array", "items": { "$ref": "#/$defs/board" } }
      },
      "additionalProperties": false
    },
    "board": {
      "type": "object",
      "required": ["id", "name", "lesson_board"],
      "properties": {
        "id": { "$ref": "#/$defs/id" },
        "name": { "$ref": "#/$defs/id" },
        "display_name": { "$ref": "#/$defs/text" },
        "available": { "type": "boolean" },
        "fqbn": { "$ref": "#/$defs/text" },
        "lesson_count": { "type": "integer", "minimum": 0 },
        "lesson_board": { "$ref": "#/$defs/id" }
      },
      "additionalProperties": false
    },

    "modulesDoc": {
      "type": "object",
      "required": ["modules"],
      "properties": {
        "modules": { "type": "array", "items": { "$ref": "#/$defs/module" } }
      },
      "additionalProperties": false
    },
    "module": {
      "type": "object",
      "required": ["id", "name", "category"],
      "properties": {
        "id": { "$ref": "#/$defs/id" },
        "sku": { "$ref": "#/$defs/id" },
        "name": { "$ref": "#/$defs/id" },
        "image": { "$ref": "#/$defs/text" },
        "description": { "$ref": "#/$defs/text" },
        "category": { "enum": ["Tools", "Dev Boards", "Passives", "Modules"] },
        "purchase_url": { "type": "string", "format": "uri" }
      },
      "additionalProperties": false
    },

    "lesson": {
      "type": "object",
      "required": ["id", "title", "board", "type", "steps"],
      "properties": {
        "id": { "$ref": "#/$defs/id" },
        "title": { "$ref": "#/$defs/id" },
        "board": { "$ref": "#/$defs/id" },
        "type": { "$ref": "#/$defs/id" },
        "xp_reward": { "type": "integer", "minimum": 0 },
        "required_modules": { "$ref": "#/$defs/idList" },
        "thumbnail": { "$ref": "#/$defs/text" },
        "unlock": { "$ref": "#/$defs/text" },
        "steps": { "type": "array", "minItems": 1, "items": { "$ref": "#/$defs/step" } }
      },
      "additionalProperties": false
    },

    "step": {
      "type": "object",
      "required": ["id", "type"],
      "properties": {
        "id": { "$ref": "#/$defs/id" },
        "type": { "$ref": "#/$defs/id" },
        "title": { "$ref": "#/$defs/text" }
      },
      "allOf": [
        {
          "if": { "properties": { "type": { "const": "info" } }, "required": ["type"] },
          "then": { "properties": { "content": { "$ref": "#/$defs/text" } } }
        },
        {
          "if": { "properties": { "type": { "const": "hardware" } }, "required": ["type"] },
          "then": { "properties": { "module_ids": { "$ref": "#/$defs/idList" } } }
        },
        {
          "if": { "properties": { "type": { "const": "wiring-step" } }, "required": ["type"] },
          "then": {
            "properties": {
              "instruction": { "$ref": "#/$defs/text" },
              "image": { "$ref": "#/$defs/text" },
              "images": {
                "type": "array",
                "items": {
                  "type": "object",
                  "required": ["src"],
                  "properties": {
                    "src": { "$ref": "#/$defs/id" },
                    "label": { "$ref": "#/$defs/text" }
                  },
                  "additionalProperties": false
                }
              },
              "kit_item_id": { "$ref": "#/$defs/id" },
              "step_number": { "type": "integer", "minimum": 1 },
              "total_steps": { "type": "integer", "minimum": 1 }
            }
          }
        },
        {
          "if": { "properties": { "type": { "const": "interactive-concept" } }, "required": ["type"] },
          "then": {
            "properties": {
              "description": { "$ref": "#/$defs/text" },
              "component": { "$ref": "#/$defs/text" },
              "config": { "type": "object" },
              "show_controls": { "type": "boolean" },
              "auto_play": { "type": "boolean" }
            }
          }
        },
        {
          "if": { "properties": { "type": { "const": "code-explanation" } }, "required": ["type"] },
          "then": {
            "properties": {
              "code": { "$ref": "#/$defs/text" },
              "explanations": {
                "type": "array",
                "items": {
                  "type": "object",
                  "required": ["line", "explanation"],
                  "properties": {
                    "line": { "type": "integer", "minimum": 0 },
                    "highlight": { "$ref": "#/$defs/text" },
                    "explanation": { "$ref": "#/$defs/text" }
                  },
                  "additionalProperties": false
                }
              }
            }
          }
        },
        {
          "if": { "properties": { "type": { "const": "upload" } }, "required": ["type"] },
          "then": {
            "properties": {
              "instruction": { "$ref": "#/$defs/text" },
              "code": { "$ref": "#/$defs/text" }
            }
          }
        },
        {
          "if": { "properties": { "type": { "const": "challenge" } }, "required": ["type"] },
          "then": {
            "properties": {
              "instruction": { "$ref": "#/$defs/text" },
              "hints": { "type": "array", "items": { "$ref": "#/$defs/text" } },
              "code": { "$ref": "#/$defs/text" }
            }
          }
        },
        {
          "if": { "properties": { "type": { "const": "connection-check" } }, "required": ["type"] },
          "then": {
            "properties": {
              "instruction": { "$ref": "#/$defs/text" },
              "confirm_text": { "$ref": "#/$defs/text" },
              "troubleshoot_text": { "$ref": "#/$defs/text" },
              "troubleshoot_tips": {
                "type": "array",
                "items": {
                  "type": "object",
                  "required": ["title"],
                  "properties": {
                    "title": { "$ref": "#/$defs/text" },
                    "description": { "$ref": "#/$defs/text" }
                  },
                  "additionalProperties": false
                }
              }
            }
          }
        },
        {
          "if": { "properties": { "type": { "const": "verification" } }, "required": ["type"] },
          "then": {
            "properties": {
              "instruction": { "$ref": "#/$defs/text" },
              "image": { "$ref": "#/$defs/text" },
              "confirm_text": { "$ref": "#/$defs/text" },
              "troubleshoot_text": { "$ref": "#/$defs/text" },
              "show_serial_monitor": { "type": "boolean" },
              "troubleshoot_tips": {
                "type": "array",
                "items": {
                  "type": "object",
                  "required": ["title"],
                  "properties": {
                    "title": { "$ref": "#/$defs/text" },
                    "description": { "$ref": "#/$defs/text" }
                  },
                  "additionalProperties": false
                }
              }
            }
          }
        },
        {
          "if": { "properties": { "type": { "const": "completion" } }, "required": ["type"] },
          "then": {
            "properties": {
              "content": { "$ref": "#/$defs/text" },
              "next_lesson": {
                "oneOf": [
                  { "type": "integer", "minimum": 1 },
                  { "$ref": "#/$defs/id" }
                ]
              }
            }
          }
        }
      ]
    }
  }
}`

// Violation is one leaf failure of a schema check.
type Violation struct {
	Location string `json:"location"`
	Message  string `json:"message"`
}

// JSONSchemaValidator checks raw content documents against the content schema.
// Compiled schemas are cached per document kind.
type JSONSchemaValidator struct {
	mu       sync.RWMutex
	compiler *jsonschema.Compiler
	cache    map[DocKind]*jsonschema.Schema
	printer  *message.Printer
}

// NewJSONSchemaValidator registers the content schema and compiles the lesson
// schema eagerly so a broken schema fails at construction.
func NewJSONSchemaValidator() (*JSONSchemaValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(contentSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal content schema: %w", err)
	}
	if err := c.AddResource(contentSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add content schema resource: %w", err)
	}

	v := &JSONSchemaValidator{
		compiler: c,
		cache:    make(map[DocKind]*jsonschema.Schema),
		printer:  message.NewPrinter(language.English),
	}
	if _, err := v.getOrCompile(DocLesson); err != nil {
		return nil, err
	}
	return v, nil
}

// KindOf maps a content file path to its document kind.
func KindOf(name string) (DocKind, bool) {
	switch {
	case name == "kits.yaml":
		return DocKits, true
	case name == "boards.yaml":
		return DocBoards, true
	case name == "modules.yaml":
		return DocModules, true
	case path.Dir(name) == "lessons" && path.Ext(name) == ".yaml":
		return DocLesson, true
	}
	return "", false
}

// ValidateDocument checks one decoded document. It returns nil when the
// document conforms and a VALIDATION_ERROR listing violations otherwise.
func (v *JSONSchemaValidator) ValidateDocument(kind DocKind, doc any) error {
	violations, err := v.Violations(kind, doc)
	if err != nil {
		return err
	}
	return violationsError(violations)
}

// Violations returns every leaf failure of doc against the schema for kind.
func (v *JSONSchemaValidator) Violations(kind DocKind, doc any) ([]Violation, error) {
	compiled, err := v.getOrCompile(kind)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "no schema for %s", kind).WithCause(err)
	}
	value, err := toJSONValue(doc)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "failed to serialize document").WithCause(err)
	}
	if err := compiled.Validate(value); err != nil {
		verr, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return []Violation{{Location: "/", Message: err.Error()}}, nil
		}
		return v.collectViolations(verr), nil
	}
	return nil, nil
}

// getOrCompile returns a cached compiled schema or compiles and caches it.
func (v *JSONSchemaValidator) getOrCompile(kind DocKind) (*jsonschema.Schema, error) {
	v.mu.RLock()
	if cached, ok := v.cache[kind]; ok {
		v.mu.RUnlock()
		return cached, nil
	}
	v.mu.RUnlock()

	v.mu.Lock()
	defer v.mu.Unlock()

	// Double-check after acquiring write lock.
	if cached, ok := v.cache[kind]; ok {
		return cached, nil
	}

	compiled, err := v.compiler.Compile(contentSchemaURL + "#/$defs/" + string(kind))
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", kind, err)
	}
	v.cache[kind] = compiled
	return compiled, nil
}

// toJSONValue round-trips a decoded document through JSON so numbers become
// json.Number, which the jsonschema library requires.
func toJSONValue(doc any) (any, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// collectViolations walks a ValidationError tree and keeps the leaves.
func (v *JSONSchemaValidator) collectViolations(verr *jsonschema.ValidationError) []Violation {
	if len(verr.Causes) == 0 {
		loc := "/" + strings.Join(verr.InstanceLocation, "/")
		msg := verr.Error()
		if verr.ErrorKind != nil {
			msg = verr.ErrorKind.LocalizedString(v.printer)
		}
		return []Violation{{Location: loc, Message: msg}}
	}

	var out []Violation
	for _, cause := range verr.Causes {
		out = append(out, v.collectViolations(cause)...)
	}
	return out
}

func violationsError(violations []Violation) error {
	switch len(violations) {
	case 0:
		return nil
	case 1:
		return schema.NewError(schema.ErrCodeValidation,
			violations[0].Location+": "+violations[0].Message).
			WithDetails(map[string]any{"violations": violations})
	}
	return schema.NewErrorf(schema.ErrCodeValidation, "validation failed with %d errors", len(violations)).
		WithDetails(map[string]any{"violations": violations})
}
