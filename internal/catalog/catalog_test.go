package catalog

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiometa/academy/internal/content"
	"github.com/axiometa/academy/pkg/schema"
)

func shipped(t *testing.T) *Catalog {
	t.Helper()
	c, err := Load("")
	require.NoError(t, err)
	return c
}

func kit(id, board string, available, featured bool) schema.Kit {
	return schema.Kit{ID: id, Name: id, Board: board, LessonBoard: board, Available: available, Featured: featured}
}

func TestKitByID_RoundTripsEveryKit(t *testing.T) {
	c := shipped(t)
	for _, k := range c.Kits() {
		got, ok := c.KitByID(k.ID)
		require.True(t, ok)
		assert.Equal(t, k, got)
	}
	_, ok := c.KitByID("nonexistent-id")
	assert.False(t, ok)
	_, ok = c.KitByID("")
	assert.False(t, ok)
}

func TestAvailableAndFeatured_PreserveOrder(t *testing.T) {
	c := New(&content.Bundle{Kits: []schema.Kit{
		kit("a", "x", true, false),
		kit("b", "y", false, true),
		kit("c", "z", true, true),
	}})

	var avail, feat []string
	for _, k := range c.AvailableKits() {
		avail = append(avail, k.ID)
	}
	for _, k := range c.FeaturedKits() {
		feat = append(feat, k.ID)
	}
	assert.Equal(t, []string{"a", "c"}, avail)
	assert.Equal(t, []string{"b", "c"}, feat)
}

func TestShippedKits(t *testing.T) {
	c := shipped(t)
	avail := c.AvailableKits()
	require.Len(t, avail, 1)
	assert.Equal(t, "pixie-m1-beginners", avail[0].ID)

	k, ok := c.KitByBoard("pixie-m1")
	require.True(t, ok)
	assert.Equal(t, "pixie-m1-beginners", k.ID)

	_, ok = c.KitByBoard("esp8266")
	assert.False(t, ok)
}

func TestKitByBoard_FirstMatchWins(t *testing.T) {
	second := kit("second", "shared", true, false)
	second.LessonBoard = "other"
	c := New(&content.Bundle{Kits: []schema.Kit{
		{ID: "first", Board: "board-a", LessonBoard: "shared"},
		second,
	}})

	k, ok := c.KitByBoard("shared")
	require.True(t, ok)
	assert.Equal(t, "first", k.ID)

	k, ok = c.KitByBoard("other")
	require.True(t, ok)
	assert.Equal(t, "second", k.ID)
}

func TestKits_ReturnsCopy(t *testing.T) {
	c := shipped(t)
	ks := c.Kits()
	ks[0].Name = "mutated"
	k, _ := c.KitByID(ks[0].ID)
	assert.NotEqual(t, "mutated", k.Name)
}

func TestDuplicateIDs_KeepFirst(t *testing.T) {
	c := New(&content.Bundle{
		Kits:    []schema.Kit{{ID: "dup", Name: "one"}, {ID: "dup", Name: "two"}},
		Lessons: []*schema.Lesson{{ID: "l", Title: "first"}, {ID: "l", Title: "second"}},
	})
	k, _ := c.KitByID("dup")
	assert.Equal(t, "one", k.Name)
	l, _ := c.Lesson("l")
	assert.Equal(t, "first", l.Title)
}

func TestLessons_ByBoardTypeAndKit(t *testing.T) {
	c := shipped(t)

	pixie := c.LessonsByBoard("pixie-m1")
	require.Len(t, pixie, 4)
	assert.Equal(t, "electronics-introduction", pixie[0].ID)

	assert.Len(t, c.LessonsByType(schema.LessonTypeSimple), 1)
	assert.Len(t, c.LessonsByType(schema.LessonTypeMCUBreadboard), 3)

	kl, ok := c.KitLessons("pixie-m1-beginners")
	require.True(t, ok)
	assert.Len(t, kl, 4)

	kl, ok = c.KitLessons("spark-3-starter")
	require.True(t, ok)
	assert.Empty(t, kl)

	_, ok = c.KitLessons("nope")
	assert.False(t, ok)
}

func TestResolveNext(t *testing.T) {
	c := shipped(t)
	intro, _ := c.Lesson("electronics-introduction")
	blinky, _ := c.Lesson("mcu-breadboard-blinky")
	button, _ := c.Lesson("mcu-breadboard-button")
	pot, _ := c.Lesson("mcu-breadboard-potentiometer")

	next, ok := c.NextLesson(intro)
	require.True(t, ok)
	assert.Equal(t, blinky.ID, next.ID)

	next, ok = c.NextLesson(blinky)
	require.True(t, ok)
	assert.Equal(t, button.ID, next.ID)

	next, ok = c.NextLesson(button)
	require.True(t, ok)
	assert.Equal(t, pot.ID, next.ID)

	_, ok = c.NextLesson(pot)
	assert.False(t, ok, "no next_lesson on the last lesson")

	_, ok = c.ResolveNext(blinky, schema.OrdinalRef(99))
	assert.False(t, ok)
	_, ok = c.ResolveNext(blinky, schema.IDRef("missing"))
	assert.False(t, ok)
	_, ok = c.ResolveNext(blinky, schema.OrdinalRef(2))
	assert.False(t, ok, "a lesson never resolves to itself")

	assert.Equal(t, 2, c.Ordinal(blinky))
	assert.Equal(t, 0, c.Ordinal(&schema.Lesson{ID: "x", Board: "pixie-m1"}))
}

func TestModules(t *testing.T) {
	c := shipped(t)

	m := c.Module("TOOL-BB-001")
	assert.Equal(t, "Breadboard", m.Name)
	assert.False(t, m.Placeholder)

	bySKU := c.Module("AX22-0004")
	assert.Equal(t, "AX22-0004-H1", bySKU.ID)

	unknown := c.Module("FLUX-CAPACITOR")
	assert.True(t, unknown.Placeholder)
	assert.Equal(t, "FLUX-CAPACITOR", unknown.ID)

	_, ok := c.LookupModule("")
	assert.False(t, ok)

	mods := c.ModulesByIDs([]string{"MTA0007", "nope"})
	require.Len(t, mods, 2)
	assert.False(t, mods[0].Placeholder)
	assert.True(t, mods[1].Placeholder)

	assert.Len(t, c.ModulesByCategory(schema.CategoryTools), 2)
	assert.Equal(t, 3, c.ModuleUsage("MTA0007"))
	assert.Equal(t, 0, c.ModuleUsage("THERMISTOR"))
}

func TestCheckRequired(t *testing.T) {
	ok, missing := CheckRequired([]string{"a", "b", "c"}, []string{"b"})
	assert.False(t, ok)
	assert.Equal(t, []string{"a", "c"}, missing)

	ok, missing = CheckRequired([]string{"a"}, []string{"a", "z"})
	assert.True(t, ok)
	assert.Empty(t, missing)
}

func TestBoards(t *testing.T) {
	c := shipped(t)
	b, ok := c.Board("axiometa_pixie_m1")
	require.True(t, ok)
	assert.Equal(t, "pixie-m1", b.LessonBoard)

	assert.Len(t, c.AvailableBoards(), 1)
	b, ok = c.BoardForLessonBoard("spark-3")
	require.True(t, ok)
	assert.Equal(t, "spark_3", b.ID)

	assert.True(t, c.KnownBoard("pixie-m1"))
	assert.True(t, c.KnownBoard("genesis_one"))
	assert.False(t, c.KnownBoard("uno"))
}

func TestConcurrentReads(t *testing.T) {
	c := shipped(t)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = c.KitByID("pixie-m1-beginners")
				_ = c.LessonsByBoard("pixie-m1")
				_ = c.Module("MTA0007")
			}
		}()
	}
	wg.Wait()
}
