package expressions

import "context"

// Engine evaluates expressions against a data map.
// Three implementations: CEL (unlock rules), Expr (level curve), GoJQ (catalog queries).
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}
