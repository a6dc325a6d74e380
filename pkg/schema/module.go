package schema

import "fmt"

// Module categories used by the registry.
const (
	CategoryTools     = "Tools"
	CategoryDevBoards = "Dev Boards"
	CategoryPassives  = "Passives"
	CategoryModules   = "Modules"
)

// Module is a hardware part referenced by kits, lessons and hardware steps.
type Module struct {
	ID          string `yaml:"id" json:"id" validate:"required"`
	SKU         string `yaml:"sku" json:"sku,omitempty"`
	Name        string `yaml:"name" json:"name" validate:"required"`
	Image       string `yaml:"image" json:"image,omitempty"`
	Description string `yaml:"description" json:"description,omitempty"`
	Category    string `yaml:"category" json:"category" validate:"oneof=Tools 'Dev Boards' Passives Modules"`
	PurchaseURL string `yaml:"purchase_url" json:"purchase_url,omitempty" validate:"omitempty,url"`
	Placeholder bool   `yaml:"-" json:"placeholder,omitempty"`
}

// PlaceholderModule stands in for a module id the registry does not know.
func PlaceholderModule(id string) Module {
	return Module{
		ID:          id,
		Name:        fmt.Sprintf("Unknown module (%s)", id),
		Description: "This part is not in the module registry.",
		Placeholder: true,
	}
}

// Board is a development board lessons are written for.
type Board struct {
	ID          string `yaml:"id" json:"id" validate:"required"`
	Name        string `yaml:"name" json:"name" validate:"required"`
	DisplayName string `yaml:"display_name" json:"display_name,omitempty"`
	Available   bool   `yaml:"available" json:"available"`
	FQBN        string `yaml:"fqbn" json:"fqbn,omitempty"`
	LessonCount int    `yaml:"lesson_count" json:"lesson_count" validate:"gte=0"`
	LessonBoard string `yaml:"lesson_board" json:"lesson_board" validate:"required"`
}
