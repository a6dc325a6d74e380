package progress

import (
	"context"
	"fmt"
	"strconv"

	"github.com/axiometa/academy/internal/expressions"
	"github.com/axiometa/academy/pkg/schema"
)

// DefaultCurve adds DefaultLevelStep to the threshold on each level-up.
var DefaultCurve = "next + " + strconv.Itoa(schema.DefaultLevelStep)

// maxLevelUps bounds a single award so a pathological curve cannot spin.
const maxLevelUps = 1000

// LevelCurve computes the next level threshold with an expr expression over
// `level` (the level just reached), `next` (the threshold crossed) and `xp`.
type LevelCurve struct {
	expression string
	engine     *expressions.ExprEngine
}

// NewLevelCurve compiles expression (DefaultCurve when empty) and checks that it
// grows the threshold from the initial state.
func NewLevelCurve(expression string) (*LevelCurve, error) {
	if expression == "" {
		expression = DefaultCurve
	}
	c := &LevelCurve{expression: expression, engine: expressions.NewExprEngine()}
	start := schema.InitialProgress()
	if _, err := c.Next(context.Background(), start.Level+1, start.NextLevelXP, start.NextLevelXP); err != nil {
		return nil, err
	}
	return c, nil
}

// Expression returns the curve source.
func (c *LevelCurve) Expression() string { return c.expression }

// Next returns the threshold after reaching level by crossing prev.
func (c *LevelCurve) Next(ctx context.Context, level, prev, xp int) (int, error) {
	scope := expressions.CurveScope{Level: level, Next: prev, XP: xp}
	next, err := c.engine.EvaluateInt(ctx, c.expression, scope.Vars())
	if err != nil {
		return 0, err
	}
	if next <= prev {
		return 0, schema.NewErrorf(schema.ErrCodeExpression,
			"level curve %q does not grow the threshold: %d -> %d at level %d", c.expression, prev, next, level).
			WithDetails(map[string]any{"expression": c.expression, "level": level, "prev": prev, "next": next})
	}
	return next, nil
}

// Award adds xp and applies every level-up it earns. XP is cumulative;
// a level is gained each time it reaches the threshold.
func (c *LevelCurve) Award(ctx context.Context, p schema.UserProgress, xp int) (schema.UserProgress, int, error) {
	if xp < 0 {
		return p, 0, schema.NewErrorf(schema.ErrCodeValidation, "cannot award negative xp %d", xp)
	}
	if p.Level < 1 || p.NextLevelXP < 1 {
		return p, 0, schema.NewErrorf(schema.ErrCodeValidation,
			"invalid progress level=%d next_level_xp=%d", p.Level, p.NextLevelXP)
	}

	out := p
	out.XP += xp
	gained := 0
	for out.XP >= out.NextLevelXP {
		if gained == maxLevelUps {
			return p, 0, fmt.Errorf("level curve %q: more than %d level-ups in one award", c.expression, maxLevelUps)
		}
		out.Level++
		next, err := c.Next(ctx, out.Level, out.NextLevelXP, out.XP)
		if err != nil {
			return p, 0, err
		}
		out.NextLevelXP = next
		gained++
	}
	return out, gained, nil
}
