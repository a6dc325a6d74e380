package expressions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnlockScope_VarsDoNotAlias(t *testing.T) {
	completed := []string{"b", "a"}
	lesson := map[string]any{"id": "c", "tags": []any{"x"}}
	vars := UnlockScope{Completed: completed, Level: 3, XP: 10, Lesson: lesson}.Vars()

	assert.Equal(t, []string{"a", "b"}, vars["completed"])
	assert.Equal(t, []string{"b", "a"}, completed, "caller slice untouched")
	assert.Equal(t, int64(3), vars["level"])
	assert.Equal(t, int64(10), vars["xp"])

	lesson["id"] = "mutated"
	lesson["tags"].([]any)[0] = "y"
	got := vars["lesson"].(map[string]any)
	assert.Equal(t, "c", got["id"])
	assert.Equal(t, "x", got["tags"].([]any)[0])
}

func TestUnlockScope_NilLesson(t *testing.T) {
	vars := UnlockScope{}.Vars()
	assert.Equal(t, map[string]any{}, vars["lesson"])
	assert.Equal(t, []string{}, vars["completed"])
}

func TestCurveScope_Vars(t *testing.T) {
	assert.Equal(t, map[string]any{"level": 2, "next": 500, "xp": 100}, CurveScope{Level: 2, Next: 500, XP: 100}.Vars())
}

func TestToJSONValue(t *testing.T) {
	type rec struct {
		ID    string   `json:"id"`
		Count int      `json:"count"`
		Tags  []string `json:"tags"`
	}
	v, err := ToJSONValue(rec{ID: "x", Count: 2, Tags: []string{"a"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": "x", "count": float64(2), "tags": []any{"a"}}, v)

	_, err = ToJSONValue(make(chan int))
	assert.Error(t, err)
}
