package schema

// DefaultLevelStep is the XP added to the next-level threshold on each level-up.
const DefaultLevelStep = 500

// UserProgress is a learner's level state.
type UserProgress struct {
	Level       int `json:"level"`
	XP          int `json:"xp"`
	NextLevelXP int `json:"next_level_xp"`
}

// InitialProgress is the state of a learner who has not completed anything.
func InitialProgress() UserProgress {
	return UserProgress{Level: 1, XP: 0, NextLevelXP: DefaultLevelStep}
}
