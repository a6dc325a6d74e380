package catalog

import "github.com/axiometa/academy/pkg/schema"

// Kits returns every kit in catalog order.
func (c *Catalog) Kits() []schema.Kit {
	return copyOf(c.kits)
}

// KitByID returns the kit with the given id.
func (c *Catalog) KitByID(id string) (schema.Kit, bool) {
	i, ok := c.kitByID[id]
	if !ok {
		return schema.Kit{}, false
	}
	return c.kits[i], true
}

// AvailableKits returns the kits that can be purchased, in catalog order.
func (c *Catalog) AvailableKits() []schema.Kit {
	return c.filterKits(func(k schema.Kit) bool { return k.Available })
}

// FeaturedKits returns the kits promoted on the dashboard, in catalog order.
func (c *Catalog) FeaturedKits() []schema.Kit {
	return c.filterKits(func(k schema.Kit) bool { return k.Featured })
}

// KitByBoard returns the first kit, in catalog order, whose board or lesson
// board equals board. When several kits share a board the earliest wins.
func (c *Catalog) KitByBoard(board string) (schema.Kit, bool) {
	for _, k := range c.kits {
		if k.UsesBoard(board) {
			return k, true
		}
	}
	return schema.Kit{}, false
}

func (c *Catalog) filterKits(keep func(schema.Kit) bool) []schema.Kit {
	out := make([]schema.Kit, 0, len(c.kits))
	for _, k := range c.kits {
		if keep(k) {
			out = append(out, k)
		}
	}
	return out
}

// KitLessons returns the lessons written for a kit's lesson board, in catalog order.
func (c *Catalog) KitLessons(kitID string) ([]*schema.Lesson, bool) {
	k, ok := c.KitByID(kitID)
	if !ok {
		return nil, false
	}
	return c.LessonsByBoard(k.LessonBoard), true
}
