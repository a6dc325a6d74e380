package catalog

import "github.com/axiometa/academy/pkg/schema"

// Boards returns every board in catalog order.
func (c *Catalog) Boards() []schema.Board {
	return copyOf(c.boards)
}

// Board returns the board with the given id.
func (c *Catalog) Board(id string) (schema.Board, bool) {
	i, ok := c.boardByID[id]
	if !ok {
		return schema.Board{}, false
	}
	return c.boards[i], true
}

// AvailableBoards returns the boards learners can buy today.
func (c *Catalog) AvailableBoards() []schema.Board {
	var out []schema.Board
	for _, b := range c.boards {
		if b.Available {
			out = append(out, b)
		}
	}
	return out
}

// BoardForLessonBoard returns the board whose lessons are tagged lessonBoard.
func (c *Catalog) BoardForLessonBoard(lessonBoard string) (schema.Board, bool) {
	for _, b := range c.boards {
		if b.LessonBoard == lessonBoard {
			return b, true
		}
	}
	return schema.Board{}, false
}

// KnownBoard reports whether id names a board or a lesson board.
func (c *Catalog) KnownBoard(id string) bool {
	if _, ok := c.Board(id); ok {
		return true
	}
	_, ok := c.BoardForLessonBoard(id)
	return ok
}
