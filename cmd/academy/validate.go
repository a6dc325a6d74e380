package main

import (
	"fmt"
	"io"

	"github.com/axiometa/academy/internal/content"
	"github.com/axiometa/academy/internal/validation"
)

// runValidate audits a content directory, or the embedded content when no
// directory is given. It returns the process exit code.
func runValidate(args []string, out io.Writer) int {
	dir := ""
	if len(args) > 0 {
		dir = args[0]
	}

	b, err := content.Open(dir)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return 1
	}
	cv, err := validation.NewContentValidator()
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return 1
	}

	result := cv.Validate(b)
	for _, e := range result.Errors {
		fmt.Fprintf(out, "ERROR   %s [%s] %s\n", e.Path, e.Code, e.Message)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(out, "WARNING %s [%s] %s\n", w.Path, w.Code, w.Message)
	}

	source := dir
	if source == "" {
		source = "embedded content"
	}
	fmt.Fprintf(out, "%s: %d lessons, %d errors, %d warnings\n",
		source, len(b.Lessons), len(result.Errors), len(result.Warnings))
	if !result.Valid() {
		return 1
	}
	return 0
}
