package expressions

import (
	"encoding/json"
	"fmt"
	"sort"
)

// UnlockScope holds the variables visible to a lesson unlock rule.
type UnlockScope struct {
	Completed []string       // completed lesson ids
	Level     int            // learner level
	XP        int            // xp toward the next level
	Lesson    map[string]any // the lesson being checked
}

// Vars returns the CEL activation for the scope. Completed ids are sorted and
// copied so the activation never aliases caller state.
func (s UnlockScope) Vars() map[string]any {
	completed := append([]string{}, s.Completed...)
	sort.Strings(completed)
	return map[string]any{
		"completed": completed,
		"level":     int64(s.Level),
		"xp":        int64(s.XP),
		"lesson":    deepCopyMap(s.Lesson),
	}
}

// CurveScope holds the variables visible to a level curve expression.
type CurveScope struct {
	Level int // level just reached
	Next  int // threshold that was crossed
	XP    int // total xp
}

// Vars returns the expr environment for the scope.
func (s CurveScope) Vars() map[string]any {
	return map[string]any{
		"level": s.Level,
		"next":  s.Next,
		"xp":    s.XP,
	}
}

// ToJSONValue converts typed values (structs, typed slices) into the
// map[string]any / []any / float64 shape that jq and JSON Schema expect.
func ToJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal for query: %w", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("unmarshal for query: %w", err)
	}
	return out, nil
}

// --- Deep copy utilities ---

// deepCopyMap creates a deep copy of a map[string]any.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = deepCopyAny(v)
	}
	return cp
}

// deepCopyAny recursively deep-copies maps and slices; other values are copied by value.
func deepCopyAny(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cp := make([]any, len(val))
		for i, item := range val {
			cp[i] = deepCopyAny(item)
		}
		return cp
	case []string:
		return append([]string{}, val...)
	default:
		return v
	}
}
