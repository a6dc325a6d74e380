package schema

// Difficulty grades a kit for the learner.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "Beginner"
	DifficultyIntermediate Difficulty = "Intermediate"
	DifficultyAdvanced     Difficulty = "Advanced"
)

// Valid reports whether d is one of the known grades.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// Kit is a purchasable bundle of hardware modules built around one board.
type Kit struct {
	ID            string     `yaml:"id" json:"id" validate:"required"`
	Name          string     `yaml:"name" json:"name" validate:"required"`
	Description   string     `yaml:"description" json:"description"`
	Image         string     `yaml:"image" json:"image,omitempty"`
	Board         string     `yaml:"board" json:"board" validate:"required"`
	LessonBoard   string     `yaml:"lesson_board" json:"lesson_board" validate:"required"`
	Difficulty    Difficulty `yaml:"difficulty" json:"difficulty" validate:"oneof=Beginner Intermediate Advanced"`
	EstimatedTime string     `yaml:"estimated_time" json:"estimated_time,omitempty"`
	Modules       []string   `yaml:"modules" json:"modules"`
	Available     bool       `yaml:"available" json:"available"`
	Featured      bool       `yaml:"featured" json:"featured"`
	Color         string     `yaml:"color" json:"color,omitempty" validate:"omitempty,hexcolor"`
	AccentColor   string     `yaml:"accent_color" json:"accent_color,omitempty" validate:"omitempty,hexcolor"`
}

// UsesBoard reports whether the kit is built on board, matching either board id.
func (k Kit) UsesBoard(board string) bool {
	return k.Board == board || k.LessonBoard == board
}
