package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"text/template"
	"time"
)

// versions are zero-padded to this width: 000001, 000002, ...
const versionWidth = 6

var pairTemplate = template.Must(template.New("pair").Parse(`-- {{.Name}}{{if .Down}} (rollback){{end}}
-- Created: {{.Created}}
{{- with .Description}}
-- {{.}}
{{- end}}

`))

// Pair is a freshly scaffolded up/down migration.
type Pair struct {
	Version     string
	Name        string
	Description string
	UpPath      string
	DownPath    string
}

// Scaffold writes empty up and down files for the next sequential version
// in dir, e.g. 000002_add_recipe_tags.up.sql. Existing files are never
// overwritten.
func Scaffold(dir, name, description string) (*Pair, error) {
	slug := slugify(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	existing, err := List(dir)
	if err != nil {
		return nil, err
	}
	next, err := nextVersion(existing)
	if err != nil {
		return nil, err
	}

	version := fmt.Sprintf("%0*d", versionWidth, next)
	base := filepath.Join(dir, version+"_"+slug)
	p := &Pair{
		Version:     version,
		Name:        name,
		Description: description,
		UpPath:      base + ".up.sql",
		DownPath:    base + ".down.sql",
	}

	created := time.Now().Format(time.RFC3339)
	if err := writeStub(p.UpPath, p, created, false); err != nil {
		return nil, err
	}
	if err := writeStub(p.DownPath, p, created, true); err != nil {
		_ = os.Remove(p.UpPath)
		return nil, err
	}
	return p, nil
}

func writeStub(path string, p *Pair, created string, down bool) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	err = pairTemplate.Execute(f, map[string]any{
		"Name":        p.Name,
		"Description": p.Description,
		"Created":     created,
		"Down":        down,
	})
	return errors.Join(err, f.Close())
}

func nextVersion(names []string) (uint64, error) {
	var highest uint64
	for _, name := range names {
		prefix, _, _ := strings.Cut(name, "_")
		v, err := strconv.ParseUint(prefix, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("migration %q has a non-numeric version", name)
		}
		highest = max(highest, v)
	}
	return highest + 1, nil
}

// slugify lowercases name, keeps ASCII letters and digits, and joins the
// words with single underscores.
func slugify(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	})
	out := words[:0]
	for _, w := range words {
		w = strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
				return r
			case r >= 'A' && r <= 'Z':
				return r + 'a' - 'A'
			}
			return -1
		}, w)
		if w != "" {
			out = append(out, w)
		}
	}
	return strings.Join(out, "_")
}

// List returns the base names of the up migrations in dir in version
// order. A missing directory has none.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if base, ok := strings.CutSuffix(e.Name(), ".up.sql"); ok && !e.IsDir() {
			names = append(names, base)
		}
	}
	slices.Sort(names)
	return names, nil
}
