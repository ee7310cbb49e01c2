// Package process provides a ports.Completer that delegates to a local
// command: the conversation is written to its stdin and its stdout is the
// reply. Any model CLI or script can serve completions this way.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/aretw0/semop/pkg/domain"
)

// ErrCommandFailed is returned when the command exits with an error.
var ErrCommandFailed = errors.New("completion command failed")

// Completer runs Config.Command once per completion.
type Completer struct {
	cfg     Config
	baseDir string
	logger  *slog.Logger
}

// Option configures the completer.
type Option func(*Completer)

// WithBaseDir sets the working directory of the command.
func WithBaseDir(dir string) Option {
	return func(c *Completer) {
		c.baseDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Completer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a completer for cfg.
func New(cfg Config, opts ...Option) (*Completer, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("completer %q: command is required", cfg.Name)
	}
	switch cfg.Format {
	case "":
		cfg.Format = FormatJSON
	case FormatJSON, FormatText:
	default:
		return nil, fmt.Errorf("completer %q: unknown format %q", cfg.Name, cfg.Format)
	}

	c := &Completer{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type payload struct {
	Messages []domain.Message `json:"messages"`
}

// Encode renders messages in the given input format.
func Encode(format string, messages []domain.Message) ([]byte, error) {
	if format == FormatText {
		var sb strings.Builder
		for i, m := range messages {
			if i > 0 {
				sb.WriteString("\n\n")
			}
			sb.WriteString(m.Role + ": " + m.Content)
		}
		return []byte(sb.String()), nil
	}
	return json.Marshal(payload{Messages: messages})
}

// Complete runs the command with the conversation on stdin.
// The environment carries SEMOP_FORMAT and SEMOP_MESSAGES (the message count).
func (c *Completer) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	input, err := Encode(c.cfg.Format, messages)
	if err != nil {
		return "", fmt.Errorf("failed to encode conversation: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.cfg.Command, c.cfg.Args...)
	cmd.Dir = c.baseDir

	env := []string{
		"SEMOP_FORMAT=" + c.cfg.Format,
		"SEMOP_MESSAGES=" + strconv.Itoa(len(messages)),
	}
	for k, v := range c.cfg.Environment {
		env = append(env, k+"="+v)
	}
	cmd.Env = append(cmd.Environ(), env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.DebugContext(ctx, "running completion command", "completer", c.cfg.Name, "command", c.cfg.Command)
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%w: %v. Stderr: %s", ErrCommandFailed, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}
