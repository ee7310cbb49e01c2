package semop

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/semop/pkg/domain"
)

// Explanation describes how a request would be served, without executing it.
type Explanation struct {
	Operator string           `json:"operator"`
	Order    []string         `json:"order"`
	Signs    []domain.Sign    `json:"signs"`
	Final    bool             `json:"final"`
	Messages []domain.Message `json:"messages,omitempty"`
}

type conversational interface {
	Messages() ([]domain.Message, error)
}

// Explain compiles req and reports the candidate order, the audit trail of
// the plan and, for completion plans, the conversation it would send.
func (e *Engine) Explain(ctx context.Context, req *domain.Request) (*Explanation, error) {
	p, err := e.Compile(ctx, req)
	if err != nil {
		return nil, err
	}
	order, err := e.Order(req)
	if err != nil {
		return nil, err
	}

	x := &Explanation{
		Operator: req.OperatorName(),
		Order:    order,
		Signs:    p.Signs(),
		Final:    p.Final(),
	}
	if c, ok := p.(conversational); ok {
		messages, err := c.Messages()
		if err != nil {
			return nil, fmt.Errorf("failed to render conversation: %w", err)
		}
		x.Messages = messages
	}
	return x, nil
}

// Markdown renders the explanation as a markdown document.
func (x *Explanation) Markdown() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", x.Operator)

	sb.WriteString("## Candidates\n\n")
	for i, name := range x.Order {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, name)
	}

	sb.WriteString("\n## Audit trail\n\n| Handler | Note |\n|---|---|\n")
	for _, s := range x.Signs {
		fmt.Fprintf(&sb, "| %s | %s |\n", s.Handler, strings.ReplaceAll(s.Note, "|", `\|`))
	}
	if x.Final {
		sb.WriteString("\nThe plan is final.\n")
	}

	if len(x.Messages) > 0 {
		sb.WriteString("\n## Conversation\n")
		for _, m := range x.Messages {
			fmt.Fprintf(&sb, "\n### %s\n\n```\n%s\n```\n", m.Role, m.Content)
		}
	}
	return sb.String()
}
