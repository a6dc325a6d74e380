package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/axiometa/academy/internal/catalog"
	"github.com/axiometa/academy/internal/diagram"
	"github.com/axiometa/academy/internal/progress"
	"github.com/axiometa/academy/pkg/schema"
)

// runMap prints a lesson map or, for kit:<id>, a fresh learner's kit roadmap.
func runMap(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("map", flag.ContinueOnError)
	format := fs.String("format", "ascii", "output format: ascii, mermaid or png")
	current := fs.Int("current", -1, "step index to mark as current in a lesson map")
	output := fs.String("o", "", "write to file instead of stdout (required for png)")
	contentDir := fs.String("content", "", "content directory (default: embedded)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("map needs one target: a lesson id or kit:<id>")
	}

	cat, err := catalog.Load(*contentDir)
	if err != nil {
		return err
	}
	model, err := buildMapModel(context.Background(), cat, fs.Arg(0), *current)
	if err != nil {
		return err
	}

	var data []byte
	switch *format {
	case "ascii":
		data = []byte(diagram.RenderASCIIAuto(context.Background(), model, toolsDir()))
	case "mermaid":
		data = []byte(diagram.RenderMermaid(model))
	case "png":
		if *output == "" {
			return fmt.Errorf("png output needs -o")
		}
		if data, err = diagram.RenderImage(context.Background(), model); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q", *format)
	}

	if *output != "" {
		return os.WriteFile(*output, data, 0o644)
	}
	_, err = out.Write(data)
	return err
}

func buildMapModel(ctx context.Context, cat *catalog.Catalog, target string, current int) (*diagram.DiagramModel, error) {
	if kitID, ok := strings.CutPrefix(target, "kit:"); ok {
		kit, found := cat.KitByID(kitID)
		if !found {
			return nil, schema.NewErrorf(schema.ErrCodeNotFound, "kit %q not found", kitID)
		}
		u, err := progress.NewUnlocker(nil)
		if err != nil {
			return nil, err
		}
		lessons, _ := cat.KitLessons(kit.ID)
		return diagram.BuildKitRoadmap(kit, u.Statuses(ctx, lessons, nil, schema.InitialProgress())), nil
	}
	l, ok := cat.Lesson(target)
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "lesson %q not found", target)
	}
	return diagram.BuildLessonMap(l, current), nil
}
