package prompts

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/aretw0/semop/pkg/domain"
)

// Template describes how one operator is turned into a conversation.
type Template struct {
	Name string `yaml:"name"`
	// Instruction becomes the system message.
	Instruction string `yaml:"instruction"`
	// Input renders the request input into the user message.
	Input string `yaml:"input"`
	// Output renders structured exemplar outputs. Plain outputs are printed as is.
	Output string `yaml:"output,omitempty"`
	// Parser turns the completion into the result. Nil returns the text.
	Parser *ParserSpec `yaml:"parser,omitempty"`
	// Exemplars are built-in few-shot turns.
	Exemplars []domain.Exemplar `yaml:"exemplars,omitempty"`
}

// Clone returns a deep enough copy for callers to modify slices freely.
func (t Template) Clone() Template {
	t.Exemplars = append([]domain.Exemplar(nil), t.Exemplars...)
	return t
}

// Validate checks that every text template compiles and the parser builds.
func (t Template) Validate() error {
	for _, src := range []string{t.Input, t.Output} {
		if _, err := compile(t.Name, src); err != nil {
			return err
		}
	}
	if _, err := t.Parser.Build(); err != nil {
		return fmt.Errorf("template %q: %w", t.Name, err)
	}
	return nil
}

var funcs = template.FuncMap{
	"join": func(sep string, items []any) string {
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, sep)
	},
	"nonempty": func(v any) bool {
		return v != nil && fmt.Sprint(v) != ""
	},
}

func compile(name, src string) (*template.Template, error) {
	tmpl, err := template.New(name).Funcs(funcs).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", name, err)
	}
	return tmpl, nil
}

// Execute renders src with data.
func Execute(name, src string, data any) (string, error) {
	tmpl, err := compile(name, src)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("template %q: %w", name, err)
	}
	return sb.String(), nil
}

// Conversation is everything needed to render the messages of one call.
type Conversation struct {
	Name        string
	Instruction string
	Input       string
	Output      string
	Exemplars   []domain.Exemplar
}

// Render builds the system message, one user/assistant pair per exemplar, and
// the final user message carrying input.
func (c Conversation) Render(input map[string]any) ([]domain.Message, error) {
	messages := []domain.Message{{Role: domain.RoleSystem, Content: c.Instruction}}

	for _, ex := range c.Exemplars {
		in, err := c.renderSide(c.Input, ex.Input)
		if err != nil {
			return nil, err
		}
		out, err := c.renderSide(c.Output, ex.Output)
		if err != nil {
			return nil, err
		}
		messages = append(messages,
			domain.Message{Role: domain.RoleUser, Content: in},
			domain.Message{Role: domain.RoleAssistant, Content: out},
		)
	}

	user, err := Execute(c.Name, c.Input, input)
	if err != nil {
		return nil, err
	}
	messages = append(messages, domain.Message{Role: domain.RoleUser, Content: user})
	return messages, nil
}

// renderSide renders structured exemplar sides through src and prints the rest.
func (c Conversation) renderSide(src string, v any) (string, error) {
	if m, ok := v.(map[string]any); ok && src != "" {
		return Execute(c.Name, src, m)
	}
	return fmt.Sprint(v), nil
}
