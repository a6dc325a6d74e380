package expressions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiometa/academy/pkg/schema"
)

func catalogDoc() map[string]any {
	return map[string]any{
		"kits": []any{
			map[string]any{"id": "pixie-m1-beginners", "available": true, "xp": 425},
			map[string]any{"id": "spark-3-starter", "available": false, "xp": 0},
		},
	}
}

func TestNewGoJQEngine(t *testing.T) {
	assert.Equal(t, "jq", NewGoJQEngine().Name())
}

func TestGoJQ_SingleOutput(t *testing.T) {
	e := NewGoJQEngine()
	out, err := e.Evaluate(context.Background(), `.kits | length`, catalogDoc())
	require.NoError(t, err)
	assert.Equal(t, 2, out)
}

func TestGoJQ_MultipleOutputs(t *testing.T) {
	e := NewGoJQEngine()
	out, err := e.Evaluate(context.Background(), `.kits[].id`, catalogDoc())
	require.NoError(t, err)
	assert.Equal(t, []any{"pixie-m1-beginners", "spark-3-starter"}, out)
}

func TestGoJQ_NoOutput(t *testing.T) {
	e := NewGoJQEngine()
	out, err := e.Evaluate(context.Background(), `.kits[] | select(.xp > 1000)`, catalogDoc())
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestGoJQ_IntsNormalized(t *testing.T) {
	e := NewGoJQEngine()
	out, err := e.Evaluate(context.Background(), `.kits[0].xp + 0.5`, catalogDoc())
	require.NoError(t, err)
	assert.Equal(t, 425.5, out)
}

func TestGoJQ_QueryTypedRecords(t *testing.T) {
	type kit struct {
		ID        string `json:"id"`
		Available bool   `json:"available"`
	}
	input, err := ToJSONValue(map[string]any{"kits": []kit{{"a", true}, {"b", false}, {"c", true}}})
	require.NoError(t, err)

	e := NewGoJQEngine()
	got, err := e.Query(context.Background(), `.kits[] | select(.available) | .id`, input)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "c"}, got)
}

func TestGoJQ_QueryEmptyResultIsNonNil(t *testing.T) {
	e := NewGoJQEngine()
	got, err := e.Query(context.Background(), `empty`, map[string]any{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGoJQ_Errors(t *testing.T) {
	e := NewGoJQEngine()
	ctx := context.Background()

	_, err := e.Query(ctx, "", nil)
	assert.True(t, schema.IsCode(err, schema.ErrCodeExpression))

	_, err = e.Query(ctx, `.kits[`, catalogDoc())
	assert.ErrorContains(t, err, "parse error")

	_, err = e.Query(ctx, `.kits | error("boom")`, catalogDoc())
	assert.ErrorContains(t, err, "evaluation failed")
}

func TestGoJQ_EnvSandboxed(t *testing.T) {
	e := NewGoJQEngine()
	out, err := e.Evaluate(context.Background(), `$ENV | length`, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, 0, out)
}
