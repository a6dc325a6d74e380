// Package progress computes learner levels, XP percentages, lesson unlocks and
// the dashboard view.
package progress

import "github.com/axiometa/academy/pkg/schema"

// XPPercentage is xp as a share of nextLevelXP, clamped to [0, 100].
// A zero or negative threshold reads as full.
func XPPercentage(xp, nextLevelXP int) float64 {
	if nextLevelXP <= 0 {
		return 100
	}
	return clampPercent(float64(xp) / float64(nextLevelXP) * 100)
}

// Percentage is XPPercentage for a progress record.
func Percentage(p schema.UserProgress) float64 {
	return XPPercentage(p.XP, p.NextLevelXP)
}

func clampPercent(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
