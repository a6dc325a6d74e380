// Package content loads the authored academy content: kits, boards, the
// module registry and lessons. The shipped content is embedded in the binary;
// an authoring checkout can be loaded from disk with LoadDir.
package content

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/axiometa/academy/pkg/schema"
)

//go:embed data
var embedded embed.FS

const (
	kitsFile    = "kits.yaml"
	boardsFile  = "boards.yaml"
	modulesFile = "modules.yaml"
	lessonsGlob = "lessons/*.yaml"
)

// Bundle is every piece of content in load order.
type Bundle struct {
	Kits    []schema.Kit
	Boards  []schema.Board
	Modules []schema.Module
	Lessons []*schema.Lesson
	// Raw holds the undecoded documents keyed by file path, for structural checks.
	Raw map[string]any
	// LessonFiles[i] is the path Lessons[i] was read from, a key of Raw.
	LessonFiles []string
}

type kitsDoc struct {
	Kits []schema.Kit `yaml:"kits"`
}

type boardsDoc struct {
	Boards []schema.Board `yaml:"boards"`
}

type modulesDoc struct {
	Modules []schema.Module `yaml:"modules"`
}

var (
	embeddedOnce   sync.Once
	embeddedBundle *Bundle
	embeddedErr    error
)

// Embedded returns the content compiled into the binary. It is decoded once.
func Embedded() (*Bundle, error) {
	embeddedOnce.Do(func() {
		sub, err := fs.Sub(embedded, "data")
		if err != nil {
			embeddedErr = err
			return
		}
		embeddedBundle, embeddedErr = Load(sub)
	})
	return embeddedBundle, embeddedErr
}

// LoadDir reads content from a directory laid out like the embedded tree.
func LoadDir(dir string) (*Bundle, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("content dir: %w", err)
	}
	return Load(os.DirFS(dir))
}

// Open returns the embedded content when dir is empty, else LoadDir(dir).
func Open(dir string) (*Bundle, error) {
	if dir == "" {
		return Embedded()
	}
	return LoadDir(dir)
}

// Load decodes content from fsys. A YAML syntax error in any file fails the
// load; malformed steps inside an otherwise valid lesson do not.
func Load(fsys fs.FS) (*Bundle, error) {
	b := &Bundle{Raw: make(map[string]any)}

	var kits kitsDoc
	if err := b.decode(fsys, kitsFile, &kits); err != nil {
		return nil, err
	}
	b.Kits = kits.Kits

	var boards boardsDoc
	if err := b.decode(fsys, boardsFile, &boards); err != nil {
		return nil, err
	}
	b.Boards = boards.Boards

	var modules modulesDoc
	if err := b.decode(fsys, modulesFile, &modules); err != nil {
		return nil, err
	}
	b.Modules = modules.Modules

	files, err := fs.Glob(fsys, lessonsGlob)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	sort.Strings(files)
	for _, name := range files {
		var l schema.Lesson
		if err := b.decode(fsys, name, &l); err != nil {
			return nil, err
		}
		b.Lessons = append(b.Lessons, &l)
		b.LessonFiles = append(b.LessonFiles, name)
	}
	return b, nil
}

func (b *Bundle) decode(fsys fs.FS, name string, into any) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return schema.NewErrorf(schema.ErrCodeMalformedContent, "%s: %v", name, err).WithCause(err)
	}
	b.Raw[name] = raw
	if err := yaml.Unmarshal(data, into); err != nil {
		return schema.NewErrorf(schema.ErrCodeMalformedContent, "%s: %v", name, err).WithCause(err)
	}
	return nil
}

// LessonFile returns the file a lesson was loaded from, or "".
func (b *Bundle) LessonFile(i int) string {
	if i < 0 || i >= len(b.LessonFiles) {
		return ""
	}
	return b.LessonFiles[i]
}
