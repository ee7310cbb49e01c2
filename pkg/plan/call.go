package plan

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aretw0/semop/pkg/domain"
	"github.com/aretw0/semop/pkg/ports"
	"github.com/aretw0/semop/pkg/prompts"
)

// ErrNoCompleter is returned when a CallPlan is executed without a completer.
var ErrNoCompleter = errors.New("no completer configured")

// CallPlan is a text-generation plan: a prompt conversation sent to a
// completer, whose reply is parsed into the result. Backends reshape it
// (instruction, exemplars, guards, parser) while it travels down the chain.
type CallPlan struct {
	domain.AuditTrail

	mu          sync.Mutex
	name        string
	instruction string
	inputTmpl   string
	outputTmpl  string
	exemplars   []domain.Exemplar
	parser      prompts.Parser
	input       map[string]any
	guards      []domain.Guard
	completer   ports.Completer
}

// NewCall builds a plan from a prompt template and a request input.
func NewCall(tmpl prompts.Template, input map[string]any, completer ports.Completer) (*CallPlan, error) {
	parser, err := tmpl.Parser.Build()
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", tmpl.Name, err)
	}
	return &CallPlan{
		name:        tmpl.Name,
		instruction: tmpl.Instruction,
		inputTmpl:   tmpl.Input,
		outputTmpl:  tmpl.Output,
		exemplars:   append([]domain.Exemplar(nil), tmpl.Exemplars...),
		parser:      parser,
		input:       copyInput(input),
		completer:   completer,
	}, nil
}

// Name returns the name of the template the plan was built from.
func (p *CallPlan) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}

// Instruction returns the system instruction.
func (p *CallPlan) Instruction() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.instruction
}

// AppendInstruction adds text to the instruction after sep.
func (p *CallPlan) AppendInstruction(sep, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.instruction += sep + text
}

// InputTemplate returns the user message template.
func (p *CallPlan) InputTemplate() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inputTmpl
}

// SetInputTemplate replaces the user message template.
func (p *CallPlan) SetInputTemplate(src string) error {
	if err := (prompts.Template{Name: p.Name(), Input: src}).Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inputTmpl = src
	return nil
}

// SetOutputTemplate replaces the template used for structured exemplar outputs.
func (p *CallPlan) SetOutputTemplate(src string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outputTmpl = src
}

// Exemplars returns the few-shot exemplars.
func (p *CallPlan) Exemplars() []domain.Exemplar {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Exemplar(nil), p.exemplars...)
}

// AddExemplars appends few-shot exemplars.
func (p *CallPlan) AddExemplars(exemplars ...domain.Exemplar) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exemplars = append(p.exemplars, exemplars...)
}

// SetExemplars replaces the few-shot exemplars.
func (p *CallPlan) SetExemplars(exemplars ...domain.Exemplar) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exemplars = append([]domain.Exemplar(nil), exemplars...)
}

// Parser returns the reply parser, nil when the reply is returned as text.
func (p *CallPlan) Parser() prompts.Parser {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.parser
}

// SetParser replaces the reply parser.
func (p *CallPlan) SetParser(parser prompts.Parser) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.parser = parser
}

// Input returns a copy of the plan input.
func (p *CallPlan) Input() map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copyInput(p.input)
}

// AddGuards attaches guards checked before execution.
func (p *CallPlan) AddGuards(guards ...domain.Guard) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.guards = append(p.guards, guards...)
}

// Guards returns the attached guards.
func (p *CallPlan) Guards() []domain.Guard {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Guard(nil), p.guards...)
}

// Fork copies the prompt with input substituted, without guards or audit trail.
func (p *CallPlan) Fork(input map[string]any) domain.Plan {
	p.mu.Lock()
	defer p.mu.Unlock()
	return &CallPlan{
		name:        p.name,
		instruction: p.instruction,
		inputTmpl:   p.inputTmpl,
		outputTmpl:  p.outputTmpl,
		exemplars:   append([]domain.Exemplar(nil), p.exemplars...),
		parser:      p.parser,
		input:       copyInput(input),
		completer:   p.completer,
	}
}

// Messages renders the conversation without executing the plan.
func (p *CallPlan) Messages() ([]domain.Message, error) {
	p.mu.Lock()
	conv := prompts.Conversation{
		Name:        p.name,
		Instruction: p.instruction,
		Input:       p.inputTmpl,
		Output:      p.outputTmpl,
		Exemplars:   append([]domain.Exemplar(nil), p.exemplars...),
	}
	input := copyInput(p.input)
	p.mu.Unlock()

	return conv.Render(input)
}

// Execute validates the guards, renders the conversation, completes it and
// parses the reply.
func (p *CallPlan) Execute(ctx context.Context) (any, error) {
	if err := Validate(ctx, p, p.Guards()); err != nil {
		return nil, err
	}

	p.mu.Lock()
	completer := p.completer
	parser := p.parser
	p.mu.Unlock()

	if completer == nil {
		return nil, ErrNoCompleter
	}

	messages, err := p.Messages()
	if err != nil {
		return nil, err
	}
	reply, err := completer.Complete(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}
	if parser == nil {
		return reply, nil
	}
	return parser.Parse(reply)
}
