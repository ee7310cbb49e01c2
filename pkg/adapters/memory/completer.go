package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/aretw0/semop/pkg/domain"
)

// ErrNoScriptedReply is returned when no rule, queued reply or fallback applies.
var ErrNoScriptedReply = errors.New("no scripted reply")

type rule struct {
	match string
	reply string
}

// Completer is a scripted ports.Completer. It answers from, in order: the
// first rule whose match is contained in the last user message, the queue of
// replies, the fallback function. Every call is recorded.
type Completer struct {
	mu       sync.Mutex
	rules    []rule
	replies  []string
	fallback func(messages []domain.Message) (string, error)
	calls    [][]domain.Message
}

// CompleterOption configures a Completer.
type CompleterOption func(*Completer)

// WithReplies queues replies, consumed one per call.
func WithReplies(replies ...string) CompleterOption {
	return func(c *Completer) {
		c.replies = append(c.replies, replies...)
	}
}

// WithRule answers reply whenever the last user message contains match.
func WithRule(match, reply string) CompleterOption {
	return func(c *Completer) {
		c.rules = append(c.rules, rule{match: match, reply: reply})
	}
}

// WithFallback sets the function used when nothing else applies.
func WithFallback(fn func(messages []domain.Message) (string, error)) CompleterOption {
	return func(c *Completer) {
		c.fallback = fn
	}
}

// WithEcho falls back to repeating the last user message.
func WithEcho() CompleterOption {
	return WithFallback(func(messages []domain.Message) (string, error) {
		return LastUserMessage(messages), nil
	})
}

// NewCompleter creates a scripted completer.
func NewCompleter(opts ...CompleterOption) *Completer {
	c := &Completer{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete answers from the script.
func (c *Completer) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, append([]domain.Message(nil), messages...))

	last := LastUserMessage(messages)
	for _, r := range c.rules {
		if strings.Contains(last, r.match) {
			return r.reply, nil
		}
	}
	if len(c.replies) > 0 {
		reply := c.replies[0]
		c.replies = c.replies[1:]
		return reply, nil
	}
	if c.fallback != nil {
		return c.fallback(messages)
	}
	return "", ErrNoScriptedReply
}

// Calls returns the recorded conversations.
func (c *Completer) Calls() [][]domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]domain.Message(nil), c.calls...)
}

// CallCount returns the number of Complete calls so far.
func (c *Completer) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// LastUserMessage returns the content of the last user message, or "".
func LastUserMessage(messages []domain.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
