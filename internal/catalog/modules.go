package catalog

import (
	"slices"

	"github.com/axiometa/academy/pkg/schema"
)

// Modules returns the registry in catalog order.
func (c *Catalog) Modules() []schema.Module {
	return copyOf(c.modules)
}

// LookupModule finds a module by id or sku.
func (c *Catalog) LookupModule(key string) (schema.Module, bool) {
	if key == "" {
		return schema.Module{}, false
	}
	i, ok := c.moduleByKey[key]
	if !ok {
		return schema.Module{}, false
	}
	return c.modules[i], true
}

// Module returns the module for key, or a placeholder when the registry does not know it.
func (c *Catalog) Module(key string) schema.Module {
	if m, ok := c.LookupModule(key); ok {
		return m
	}
	return schema.PlaceholderModule(key)
}

// ModulesByIDs resolves ids in order, substituting placeholders for unknown ones.
func (c *Catalog) ModulesByIDs(ids []string) []schema.Module {
	out := make([]schema.Module, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.Module(id))
	}
	return out
}

// ModulesByCategory returns registry entries in a category.
func (c *Catalog) ModulesByCategory(category string) []schema.Module {
	var out []schema.Module
	for _, m := range c.modules {
		if m.Category == category {
			out = append(out, m)
		}
	}
	return out
}

// ModuleUsage counts the lessons that list id among their required modules.
func (c *Catalog) ModuleUsage(id string) int {
	n := 0
	for _, l := range c.lessons {
		if slices.Contains(l.RequiredModules, id) {
			n++
		}
	}
	return n
}

// CheckRequired reports which of required are absent from owned.
func CheckRequired(required, owned []string) (hasAll bool, missing []string) {
	for _, id := range required {
		if !slices.Contains(owned, id) {
			missing = append(missing, id)
		}
	}
	return len(missing) == 0, missing
}
