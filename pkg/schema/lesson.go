package schema

// LessonType groups lessons by how they are taught.
type LessonType string

const (
	LessonTypeSimple        LessonType = "simple"
	LessonTypeMCUBreadboard LessonType = "mcu-breadboard"
)

// Lesson is an ordered sequence of steps worth a fixed XP reward.
type Lesson struct {
	ID              string     `yaml:"id" json:"id" validate:"required"`
	Title           string     `yaml:"title" json:"title" validate:"required"`
	Board           string     `yaml:"board" json:"board" validate:"required"`
	Type            LessonType `yaml:"type" json:"type" validate:"required"`
	XPReward        int        `yaml:"xp_reward" json:"xp_reward" validate:"gte=0"`
	RequiredModules []string   `yaml:"required_modules" json:"required_modules"`
	Thumbnail       string     `yaml:"thumbnail" json:"thumbnail,omitempty"`
	// Unlock is an optional CEL rule; when empty the lesson unlocks after its predecessor.
	Unlock string `yaml:"unlock" json:"unlock,omitempty"`
	Steps  []Step `yaml:"steps" json:"steps" validate:"min=1"`
}

// StepIndex returns the position of the step with the given id, or -1.
func (l *Lesson) StepIndex(id string) int {
	for i, s := range l.Steps {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Summary is the lesson without its steps, for listings.
func (l *Lesson) Summary() LessonSummary {
	return LessonSummary{
		ID:              l.ID,
		Title:           l.Title,
		Board:           l.Board,
		Type:            l.Type,
		XPReward:        l.XPReward,
		RequiredModules: l.RequiredModules,
		Thumbnail:       l.Thumbnail,
		StepCount:       len(l.Steps),
	}
}

// LessonSummary is the listing form of a Lesson.
type LessonSummary struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Board           string     `json:"board"`
	Type            LessonType `json:"type"`
	XPReward        int        `json:"xp_reward"`
	RequiredModules []string   `json:"required_modules"`
	Thumbnail       string     `json:"thumbnail,omitempty"`
	StepCount       int        `json:"step_count"`
}

// Visualisation components the lesson player ships.
var knownComponents = map[string]bool{
	"voltage-graph":           true,
	"voltage-divider":         true,
	"potentiometer-knob":      true,
	"button-press-visualizer": true,
	"circuit-flow":            true,
	"transistor-visualizer":   true,
	"ohms-law-circuit":        true,
	"power-ground-visualizer": true,
	"resistor-visualizer":     true,
	"capacitor-visualizer":    true,
	"inductor-visualizer":     true,
	"breadboard-visualizer":   true,
	"pwm-visualizer":          true,
	"thermistor-visualizer":   true,
	"water-flow-analogy":      true,
	"analog-simulator":        true,
}

// KnownComponent reports whether an interactive-concept component can be rendered.
func KnownComponent(name string) bool {
	return knownComponents[name]
}
