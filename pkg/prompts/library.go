// Package prompts holds the prompt templates used by the completion backend.
//
// Every operator has a YAML template under templates/, embedded in the binary.
// A directory of YAML files can override or extend them by name. Requests for
// an operator without a template fall back to "universal".
package prompts

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Universal is the name of the fallback template.
const Universal = "universal"

//go:embed templates/*.yaml
var builtin embed.FS

// Library is a named set of templates. Safe for concurrent use.
type Library struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{templates: make(map[string]Template)}
}

// Builtin returns a library holding the embedded templates.
func Builtin() (*Library, error) {
	lib := NewLibrary()
	sub, err := fs.Sub(builtin, "templates")
	if err != nil {
		return nil, err
	}
	if err := lib.Load(sub); err != nil {
		return nil, fmt.Errorf("failed to load builtin prompts: %w", err)
	}
	return lib, nil
}

// MustBuiltin is like Builtin but panics on error.
func MustBuiltin() *Library {
	lib, err := Builtin()
	if err != nil {
		panic(err)
	}
	return lib
}

// Load reads every .yaml/.yml file at the root of fsys. Templates without a
// name take the file name. Loaded templates replace existing ones.
func (l *Library) Load(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("failed to read prompts: %w", err)
	}

	loaded := make(map[string]Template)
	for _, entry := range entries {
		ext := strings.ToLower(path.Ext(entry.Name()))
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		data, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}

		var t Template
		if err := yaml.Unmarshal(data, &t); err != nil {
			return fmt.Errorf("failed to parse %s: %w", entry.Name(), err)
		}
		if t.Name == "" {
			t.Name = strings.TrimSuffix(entry.Name(), path.Ext(entry.Name()))
		}
		if err := t.Validate(); err != nil {
			return err
		}
		loaded[t.Name] = t
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for name, t := range loaded {
		l.templates[name] = t
	}
	return nil
}

// LoadDir is Load over a directory on disk.
func (l *Library) LoadDir(dir string) error {
	return l.Load(os.DirFS(dir))
}

// Add stores t under its name.
func (l *Library) Add(t Template) error {
	if t.Name == "" {
		return fmt.Errorf("template name is required")
	}
	if err := t.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.templates[t.Name] = t
	return nil
}

// Lookup returns a copy of the template stored under name.
func (l *Library) Lookup(name string) (Template, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.templates[name]
	if !ok {
		return Template{}, false
	}
	return t.Clone(), true
}

// For returns the template for an operator, falling back to Universal.
func (l *Library) For(operator string) (Template, bool) {
	if t, ok := l.Lookup(operator); ok {
		return t, true
	}
	return l.Lookup(Universal)
}

// Names returns the template names, sorted.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.templates))
	for name := range l.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
