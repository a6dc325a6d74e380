package catalog

import (
	"context"
	"sync"

	"github.com/axiometa/academy/internal/expressions"
)

// Querier runs jq expressions over the catalog as one JSON document with
// "kits", "boards", "modules" and "lessons" keys.
type Querier struct {
	catalog *Catalog
	jq      *expressions.GoJQEngine

	once sync.Once
	doc  any
	err  error
}

// NewQuerier creates a Querier. The document is built on first use.
func NewQuerier(c *Catalog) *Querier {
	return &Querier{catalog: c, jq: expressions.NewGoJQEngine()}
}

// Document returns the JSON-shaped catalog document.
func (q *Querier) Document() (any, error) {
	q.once.Do(func() {
		q.doc, q.err = expressions.ToJSONValue(map[string]any{
			"kits":    q.catalog.kits,
			"boards":  q.catalog.boards,
			"modules": q.catalog.modules,
			"lessons": q.catalog.lessons,
		})
	})
	return q.doc, q.err
}

// Query evaluates expression against the document and returns every output.
func (q *Querier) Query(ctx context.Context, expression string) ([]any, error) {
	doc, err := q.Document()
	if err != nil {
		return nil, err
	}
	return q.jq.Query(ctx, expression, doc)
}
