package expressions

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiometa/academy/pkg/schema"
)

func TestNewExprEngine(t *testing.T) {
	e := NewExprEngine()
	assert.Equal(t, "expr", e.Name())
}

// --- Level curves ---

func TestExpr_LevelCurves(t *testing.T) {
	e := NewExprEngine()
	scope := CurveScope{Level: 2, Next: 500, XP: 100}

	tests := []struct {
		expr string
		want int
	}{
		{`next + 500`, 1000},
		{`next * 2`, 1000},
		{`level * 400 + next`, 1300},
		{`let step = 250; next + step * level`, 1000},
		{`level > 5 ? next + 1000 : next + 500`, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := e.EvaluateInt(context.Background(), tt.expr, scope.Vars())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpr_EvaluateInt_AcceptsWholeFloats(t *testing.T) {
	e := NewExprEngine()
	got, err := e.EvaluateInt(context.Background(), `next * 1.5`, CurveScope{Next: 500}.Vars())
	require.NoError(t, err)
	assert.Equal(t, 750, got)
}

func TestExpr_EvaluateInt_RejectsFractions(t *testing.T) {
	e := NewExprEngine()
	_, err := e.EvaluateInt(context.Background(), `next / 3`, CurveScope{Next: 500}.Vars())
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeExpression))
}

func TestExpr_EvaluateInt_RejectsStrings(t *testing.T) {
	e := NewExprEngine()
	_, err := e.EvaluateInt(context.Background(), `"lots"`, nil)
	assert.Error(t, err)
}

// --- Errors ---

func TestExpr_EmptyExpression(t *testing.T) {
	e := NewExprEngine()
	_, err := e.Evaluate(context.Background(), "", nil)
	assert.True(t, schema.IsCode(err, schema.ErrCodeExpression))
}

func TestExpr_CompileError(t *testing.T) {
	e := NewExprEngine()
	_, err := e.Evaluate(context.Background(), `next +* 2`, CurveScope{}.Vars())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile error")
}

func TestExpr_UndefinedVariableIsNil(t *testing.T) {
	e := NewExprEngine()
	out, err := e.Evaluate(context.Background(), `bonus ?? 0`, CurveScope{}.Vars())
	require.NoError(t, err)
	assert.Equal(t, 0, out)
}

// --- Caching and concurrency ---

func TestExpr_Caching(t *testing.T) {
	e := NewExprEngine()
	for i := 0; i < 3; i++ {
		_, err := e.Evaluate(context.Background(), `next + 500`, CurveScope{Next: i}.Vars())
		require.NoError(t, err)
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	assert.Len(t, e.cache, 1)
}

func TestExpr_Concurrent(t *testing.T) {
	e := NewExprEngine()
	var wg sync.WaitGroup
	results := make([]int, 50)
	errs := make([]error, 50)
	for i := range 50 {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx], errs[idx] = e.EvaluateInt(context.Background(), `next + 500`, CurveScope{Next: idx}.Vars())
		}(i)
	}
	wg.Wait()
	for i := range 50 {
		assert.NoError(t, errs[i])
		assert.Equal(t, i+500, results[i])
	}
}
