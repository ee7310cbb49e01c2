// Package contextpack loads scope entries from YAML or TOML files.
//
// A pack groups what would otherwise be pushed by hand onto a scope:
//
//	texts:
//	  - The reader is a new customer.
//	roles:
//	  - role: audience
//	    text: children
//	exemplars:
//	  - input: capital of Italy?
//	    output: Rome
//	strategies:
//	  - Answer in one word.
//	guards:
//	  - name: arithmetic
//	    input: {s: "2+2"}
//	    expected: "4"
//	  - name: year
//	    input: {s: "moon landing"}
//	    type: int
//
// Files are decoded into generic maps first and then into a Pack with
// mapstructure, so both formats share the same field names and the same
// strictness: unknown keys are rejected.
package contextpack

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/aretw0/semop/pkg/domain"
	"github.com/aretw0/semop/pkg/schema"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a pack file.
type Format string

const (
	YAML Format = "yaml"
	TOML Format = "toml"
)

// FormatOf infers the format from a file extension. Unknown extensions are YAML.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return TOML
	}
	return YAML
}

// Role is context text scoped to a named role.
type Role struct {
	Role string `mapstructure:"role"`
	Text string `mapstructure:"text"`
}

// Exemplar is an input/output pair.
type Exemplar struct {
	Input  any `mapstructure:"input"`
	Output any `mapstructure:"output"`
}

// Guard is a guard case. Files can pin an expected value or, with Type,
// only the shape of the output (see package schema).
type Guard struct {
	Name     string         `mapstructure:"name"`
	Input    map[string]any `mapstructure:"input"`
	Expected any            `mapstructure:"expected"`
	Type     string         `mapstructure:"type"`
}

func (g Guard) toDomain() (domain.Guard, error) {
	out := domain.Guard{Name: g.Name, Input: g.Input, Expected: g.Expected}
	if g.Type != "" {
		t, err := schema.Parse(g.Type)
		if err != nil {
			return out, err
		}
		out.Checker = schema.Checker(t)
	}
	return out, out.Validate()
}

// Pack is the decoded content of a pack file.
type Pack struct {
	Texts      []string   `mapstructure:"texts"`
	Roles      []Role     `mapstructure:"roles"`
	Exemplars  []Exemplar `mapstructure:"exemplars"`
	Strategies []string   `mapstructure:"strategies"`
	Guards     []Guard    `mapstructure:"guards"`
}

// Decode converts a generic map into a Pack.
func Decode(raw map[string]any) (*Pack, error) {
	var pack Pack
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &pack,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid context pack: %w", err)
	}
	for i, g := range pack.Guards {
		if _, err := g.toDomain(); err != nil {
			return nil, fmt.Errorf("invalid context pack: guard %d: %w", i, err)
		}
	}
	return &pack, nil
}

// Parse decodes data in the given format.
func Parse(data []byte, format Format) (*Pack, error) {
	raw := make(map[string]any)
	switch format {
	case TOML:
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to parse toml context pack: %w", err)
		}
	case YAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse yaml context pack: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown context pack format %q", format)
	}
	return Decode(raw)
}

// Load reads a pack file, choosing the format from its extension.
func Load(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read context pack: %w", err)
	}
	return Parse(data, FormatOf(path))
}

// LoadFS reads a pack file from fsys.
func LoadFS(fsys fs.FS, name string) (*Pack, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read context pack: %w", err)
	}
	return Parse(data, FormatOf(name))
}

// Entries flattens the pack into scope entries: texts, roles, exemplars,
// strategies, then guards.
func (p *Pack) Entries() []domain.Entry {
	var entries []domain.Entry
	for _, t := range p.Texts {
		entries = append(entries, domain.TextEntry(t))
	}
	for _, r := range p.Roles {
		entries = append(entries, domain.RoleEntry(r.Role, r.Text))
	}
	for _, e := range p.Exemplars {
		entries = append(entries, domain.ExemplarEntry(e.Input, e.Output))
	}
	for _, s := range p.Strategies {
		entries = append(entries, domain.StrategyEntry(s))
	}
	for _, g := range p.Guards {
		guard, _ := g.toDomain()
		entries = append(entries, domain.GuardEntry(guard))
	}
	return entries
}

// Merge appends the entries of several packs, in order.
func Merge(packs ...*Pack) []domain.Entry {
	var entries []domain.Entry
	for _, p := range packs {
		if p != nil {
			entries = append(entries, p.Entries()...)
		}
	}
	return entries
}
