package prompts

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrParse is returned when a completion cannot be turned into a result.
var ErrParse = errors.New("could not parse output")

// Parser turns a raw completion into a result value.
type Parser interface {
	Parse(text string) (any, error)
}

// ParserFunc adapts a function to a Parser.
type ParserFunc func(text string) (any, error)

func (f ParserFunc) Parse(text string) (any, error) { return f(text) }

// RegexParser extracts the first match of Pattern. When the pattern has a group
// named "answer" (or any group), the group is returned instead of the whole match.
type RegexParser struct {
	Pattern *regexp.Regexp
	// Fallback returns the input unchanged when nothing matches.
	Fallback bool
}

func (p RegexParser) Parse(text string) (any, error) {
	m := p.Pattern.FindStringSubmatch(text)
	if m == nil {
		if p.Fallback {
			return text, nil
		}
		return nil, fmt.Errorf("%w: %q [regex: %s]", ErrParse, text, p.Pattern)
	}
	if i := p.Pattern.SubexpIndex("answer"); i > 0 {
		return strings.TrimSpace(m[i]), nil
	}
	if len(m) > 1 {
		return strings.TrimSpace(m[1]), nil
	}
	return m[0], nil
}

// TypeParser converts the completion into a value of Type. Booleans accept the
// forms understood by strconv.ParseBool; other types are decoded as YAML scalars
// or documents.
type TypeParser struct {
	Type reflect.Type
}

func (p TypeParser) Parse(text string) (any, error) {
	text = strings.TrimSpace(text)
	switch p.Type.Kind() {
	case reflect.String:
		return reflect.ValueOf(text).Convert(p.Type).Interface(), nil
	case reflect.Bool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a %s", ErrParse, text, p.Type)
		}
		return reflect.ValueOf(b).Convert(p.Type).Interface(), nil
	}

	target := reflect.New(p.Type)
	if err := yaml.Unmarshal([]byte(text), target.Interface()); err != nil {
		return nil, fmt.Errorf("%w: %q is not a %s: %v", ErrParse, text, p.Type, err)
	}
	return target.Elem().Interface(), nil
}

// SeparatorParser splits the completion on Separator, trims each part and
// drops empty ones. Inner, when set, parses every part.
type SeparatorParser struct {
	Separator string
	Inner     Parser
}

func (p SeparatorParser) Parse(text string) (any, error) {
	var out []any
	for _, part := range strings.Split(text, p.Separator) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if p.Inner == nil {
			out = append(out, part)
			continue
		}
		v, err := p.Inner.Parse(part)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ChainParser feeds the output of each parser into the next one. Non-string
// intermediate results are formatted with fmt.Sprint.
type ChainParser struct {
	Parsers []Parser
}

func (p ChainParser) Parse(text string) (any, error) {
	var current any = text
	for i, parser := range p.Parsers {
		in, ok := current.(string)
		if !ok {
			in = fmt.Sprint(current)
		}
		out, err := parser.Parse(in)
		if err != nil {
			return nil, fmt.Errorf("%w [parser %d: %T]", err, i, parser)
		}
		current = out
	}
	return current, nil
}

// Chain composes parsers, skipping nil ones. A single parser is returned as is.
func Chain(parsers ...Parser) Parser {
	var kept []Parser
	for _, p := range parsers {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return ChainParser{Parsers: kept}
	}
}

// ParserSpec is the YAML form of a parser.
//
//	parser:
//	  kind: regex
//	  regex: '### Answer ###\s*(?P<answer>[\s\S]*)'
//	  fallback: true
type ParserSpec struct {
	Kind      string       `yaml:"kind"`
	Regex     string       `yaml:"regex,omitempty"`
	Fallback  bool         `yaml:"fallback,omitempty"`
	Separator string       `yaml:"separator,omitempty"`
	Type      string       `yaml:"type,omitempty"`
	Inner     *ParserSpec  `yaml:"inner,omitempty"`
	Parsers   []ParserSpec `yaml:"parsers,omitempty"`
}

var namedTypes = map[string]reflect.Type{
	"string":  reflect.TypeOf(""),
	"bool":    reflect.TypeOf(false),
	"int":     reflect.TypeOf(0),
	"int64":   reflect.TypeOf(int64(0)),
	"float64": reflect.TypeOf(float64(0)),
	"list":    reflect.TypeOf([]any(nil)),
	"map":     reflect.TypeOf(map[string]any(nil)),
}

// TypeByName maps the type names accepted in parser specs to reflect types.
func TypeByName(name string) (reflect.Type, bool) {
	t, ok := namedTypes[name]
	return t, ok
}

// Build compiles the spec into a Parser. A nil spec builds a nil parser.
func (s *ParserSpec) Build() (Parser, error) {
	if s == nil {
		return nil, nil
	}
	switch s.Kind {
	case "regex":
		re, err := regexp.Compile(s.Regex)
		if err != nil {
			return nil, fmt.Errorf("invalid regex parser: %w", err)
		}
		return RegexParser{Pattern: re, Fallback: s.Fallback}, nil
	case "type":
		t, ok := TypeByName(s.Type)
		if !ok {
			return nil, fmt.Errorf("unknown parser type %q", s.Type)
		}
		return TypeParser{Type: t}, nil
	case "separator":
		if s.Separator == "" {
			return nil, fmt.Errorf("separator parser requires a separator")
		}
		inner, err := s.Inner.Build()
		if err != nil {
			return nil, err
		}
		return SeparatorParser{Separator: s.Separator, Inner: inner}, nil
	case "chain":
		parsers := make([]Parser, 0, len(s.Parsers))
		for i := range s.Parsers {
			p, err := s.Parsers[i].Build()
			if err != nil {
				return nil, err
			}
			parsers = append(parsers, p)
		}
		return ChainParser{Parsers: parsers}, nil
	default:
		return nil, fmt.Errorf("unknown parser kind %q", s.Kind)
	}
}
