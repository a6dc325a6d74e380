// Package catalog provides read-only lookups over loaded academy content.
//
// A Catalog is built once from a content.Bundle and never mutated, so every
// accessor is safe for concurrent use without locking. Slices returned to
// callers are copies.
package catalog

import (
	"github.com/axiometa/academy/internal/content"
	"github.com/axiometa/academy/pkg/schema"
)

// Catalog indexes kits, boards, modules and lessons.
type Catalog struct {
	kits    []schema.Kit
	boards  []schema.Board
	modules []schema.Module
	lessons []*schema.Lesson

	kitByID      map[string]int
	boardByID    map[string]int
	moduleByKey  map[string]int
	lessonByID   map[string]int
	lessonsBoard map[string][]int
}

// New indexes a bundle. Duplicate ids keep their first occurrence.
func New(b *content.Bundle) *Catalog {
	c := &Catalog{
		kits:         b.Kits,
		boards:       b.Boards,
		modules:      b.Modules,
		lessons:      b.Lessons,
		kitByID:      make(map[string]int, len(b.Kits)),
		boardByID:    make(map[string]int, len(b.Boards)),
		moduleByKey:  make(map[string]int, len(b.Modules)*2),
		lessonByID:   make(map[string]int, len(b.Lessons)),
		lessonsBoard: make(map[string][]int),
	}
	for i, k := range c.kits {
		putFirst(c.kitByID, k.ID, i)
	}
	for i, bd := range c.boards {
		putFirst(c.boardByID, bd.ID, i)
	}
	for i, m := range c.modules {
		putFirst(c.moduleByKey, m.ID, i)
	}
	// ids take precedence over skus
	for i, m := range c.modules {
		if m.SKU != "" {
			putFirst(c.moduleByKey, m.SKU, i)
		}
	}
	for i, l := range c.lessons {
		putFirst(c.lessonByID, l.ID, i)
		c.lessonsBoard[l.Board] = append(c.lessonsBoard[l.Board], i)
	}
	return c
}

// Load builds a catalog from the embedded content, or from dir when set.
func Load(dir string) (*Catalog, error) {
	b, err := content.Open(dir)
	if err != nil {
		return nil, err
	}
	return New(b), nil
}

func putFirst(m map[string]int, key string, i int) {
	if _, ok := m[key]; !ok {
		m[key] = i
	}
}

func copyOf[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}
