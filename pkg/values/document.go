package values

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/semop/pkg/domain"
	"github.com/aretw0/semop/pkg/ops"
	"github.com/aretw0/semop/pkg/plan"
	"github.com/aretw0/semop/pkg/ports"
)

// ErrSectionNotFound is returned when apply targets a heading the document lacks.
var ErrSectionNotFound = errors.New("section not found")

// Section is one headed block of a Document.
type Section struct {
	Heading string `json:"heading" yaml:"heading"`
	Body    string `json:"body" yaml:"body"`
}

// Document is a titled list of sections.
type Document struct {
	Title    string    `json:"title" yaml:"title"`
	Sections []Section `json:"sections" yaml:"sections"`
}

func (Document) Semantic() {}

// String renders the document as Markdown.
func (doc Document) String() string {
	var sb strings.Builder
	sb.WriteString("# " + doc.Title)
	for _, s := range doc.Sections {
		sb.WriteString("\n\n## " + s.Heading + "\n\n" + s.Body)
	}
	return sb.String()
}

// SectionIndex returns the index of the section with heading, or -1.
func (doc Document) SectionIndex(heading string) int {
	for i, s := range doc.Sections {
		if strings.EqualFold(s.Heading, heading) {
			return i
		}
	}
	return -1
}

func (doc Document) clone() Document {
	doc.Sections = append([]Section(nil), doc.Sections...)
	return doc
}

// Handle serves apply(doc, heading, changes): the changes are applied to the
// body of that section only, through a nested apply on its text, and the
// result is a new Document. Whole-document applies are left to the backends.
func (doc Document) Handle(ctx context.Context, req *domain.Request, d ports.Dispatcher, current domain.Plan) (domain.Outcome, error) {
	if !req.Operator.Is(ops.Apply) {
		return domain.Decline("documents only handle apply"), nil
	}
	subject, ok := req.Operand.(Document)
	if !ok {
		return domain.Decline("document is not the subject"), nil
	}
	heading, ok := req.Index.(string)
	if !ok || heading == "" {
		return domain.Decline("no section heading given"), nil
	}
	idx := subject.SectionIndex(heading)
	if idx < 0 {
		return domain.Outcome{}, fmt.Errorf("%w: %q", ErrSectionNotFound, heading)
	}

	inner, err := ops.Apply.Preprocess(Text(subject.Sections[idx].Body), req.GuestOperand)
	if err != nil {
		return domain.Outcome{}, err
	}
	nested, err := d.Dispatch(ctx, inner.WithContexts(req.Contexts...))
	if err != nil {
		return domain.Outcome{}, err
	}

	p := plan.NewFunc(req.Input(), func(ctx context.Context, _ map[string]any) (any, error) {
		body, err := nested.Execute(ctx)
		if err != nil {
			return nil, err
		}
		next := subject.clone()
		next.Sections[idx].Body = fmt.Sprint(body)
		return next, nil
	})
	return domain.Finalize(p, fmt.Sprintf("applied to section %q", subject.Sections[idx].Heading)), nil
}
