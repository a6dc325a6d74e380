package expressions

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiometa/academy/pkg/schema"
)

func newCEL(t *testing.T) *CELEngine {
	t.Helper()
	e, err := NewCELEngine()
	require.NoError(t, err)
	return e
}

func TestNewCELEngine(t *testing.T) {
	e := newCEL(t)
	assert.Equal(t, "cel", e.Name())
}

// --- Unlock rules ---

func TestCEL_CompletedMembership(t *testing.T) {
	e := newCEL(t)
	scope := UnlockScope{Completed: []string{"electronics-introduction"}, Level: 1}

	ok, err := e.EvaluateBool(context.Background(), `"electronics-introduction" in completed`, scope.Vars())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.EvaluateBool(context.Background(), `"mcu-breadboard-blinky" in completed`, scope.Vars())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCEL_LevelAndXP(t *testing.T) {
	e := newCEL(t)
	tests := []struct {
		name  string
		scope UnlockScope
		want  bool
	}{
		{"below level", UnlockScope{Level: 1, XP: 450}, false},
		{"at level", UnlockScope{Level: 2}, true},
		{"xp shortcut", UnlockScope{Level: 1, XP: 480}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := e.EvaluateBool(context.Background(), `level >= 2 || xp >= 475`, tt.scope.Vars())
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestCEL_LessonVariable(t *testing.T) {
	e := newCEL(t)
	scope := UnlockScope{
		Completed: []string{"a", "b"},
		Lesson:    map[string]any{"id": "c", "ordinal": int64(3)},
	}
	ok, err := e.EvaluateBool(context.Background(), `size(completed) >= lesson.ordinal - 1`, scope.Vars())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCEL_MissingVariables_DefaultToZero(t *testing.T) {
	e := newCEL(t)
	ok, err := e.EvaluateBool(context.Background(), `size(completed) == 0 && level == 0`, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCEL_PlainIntsAccepted(t *testing.T) {
	e := newCEL(t)
	out, err := e.Evaluate(context.Background(), `level + 1`, map[string]any{"level": 4})
	require.NoError(t, err)
	assert.Equal(t, int64(5), out)
}

// --- Errors ---

func TestCEL_EmptyExpression(t *testing.T) {
	e := newCEL(t)
	_, err := e.Evaluate(context.Background(), "", nil)
	assert.True(t, schema.IsCode(err, schema.ErrCodeExpression))
	assert.Error(t, e.Compile(""))
}

func TestCEL_CompileError(t *testing.T) {
	e := newCEL(t)
	err := e.Compile(`level >=`)
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeExpression))
}

func TestCEL_UndeclaredVariable(t *testing.T) {
	e := newCEL(t)
	assert.Error(t, e.Compile(`steps.foo == 1`))
}

func TestCEL_NonBoolRule(t *testing.T) {
	e := newCEL(t)
	_, err := e.EvaluateBool(context.Background(), `level + 1`, UnlockScope{Level: 1}.Vars())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want bool")
}

func TestCEL_RuntimeError_MissingKey(t *testing.T) {
	e := newCEL(t)
	_, err := e.Evaluate(context.Background(), `lesson.nope == 1`, UnlockScope{}.Vars())
	assert.True(t, schema.IsCode(err, schema.ErrCodeExpression))
}

// --- Caching and concurrency ---

func TestCEL_ProgramCaching(t *testing.T) {
	e := newCEL(t)
	require.NoError(t, e.Compile(`level > 1`))
	_, err := e.Evaluate(context.Background(), `level > 1`, nil)
	require.NoError(t, err)

	e.mu.RLock()
	defer e.mu.RUnlock()
	assert.Len(t, e.cache, 1)
}

func TestCEL_Concurrent(t *testing.T) {
	e := newCEL(t)

	var wg sync.WaitGroup
	errs := make([]error, 64)
	results := make([]bool, 64)
	for i := range 64 {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx], errs[idx] = e.EvaluateBool(context.Background(), `xp >= 0`, UnlockScope{XP: idx}.Vars())
		}(i)
	}
	wg.Wait()

	for i := range 64 {
		assert.NoError(t, errs[i])
		assert.True(t, results[i])
	}
}
