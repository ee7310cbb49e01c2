package backends_test

import (
	"context"
	"strings"
	"testing"

	"github.com/aretw0/semop/internal/runtime"
	"github.com/aretw0/semop/pkg/adapters/memory"
	"github.com/aretw0/semop/pkg/backends"
	"github.com/aretw0/semop/pkg/domain"
	"github.com/aretw0/semop/pkg/ops"
	"github.com/aretw0/semop/pkg/plan"
	"github.com/aretw0/semop/pkg/ports"
	"github.com/aretw0/semop/pkg/prompts"
	"github.com/aretw0/semop/pkg/registry"
	"github.com/aretw0/semop/pkg/scope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, completer ports.Completer, extra ...ports.Handler) (*runtime.Dispatcher, *scope.Stack) {
	t.Helper()
	reg := registry.New()
	reg.MustRegister(backends.Defaults(completer)...)
	reg.MustRegister(extra...)
	stack := scope.New()
	return runtime.New(reg, stack), stack
}

func compile(t *testing.T, d *runtime.Dispatcher, op *domain.Operator, args ...any) domain.Plan {
	t.Helper()
	req, err := op.Bind(args...)
	require.NoError(t, err)
	p, err := d.Dispatch(context.Background(), req)
	require.NoError(t, err)
	return p
}

func TestDefaults_Order(t *testing.T) {
	d, _ := setup(t, nil)
	req, err := ops.Resolve.Bind("x")
	require.NoError(t, err)

	names, err := d.Order(req)
	require.NoError(t, err)
	assert.Equal(t, []string{
		backends.RedirectName,
		backends.CompletionName,
		backends.GuardName,
		backends.StrategyName,
		backends.ExemplarName,
		backends.ContextName,
	}, names)
}

func TestCompletion_Resolve(t *testing.T) {
	completer := memory.NewCompleter(memory.WithReplies("Paris"))
	d, _ := setup(t, completer)

	p := compile(t, d, ops.Resolve, "What is the capital of France?")
	assert.Equal(t, []domain.Sign{{Handler: backends.CompletionName, Note: "created"}}, p.Signs())

	call, ok := p.(*plan.CallPlan)
	require.True(t, ok)
	assert.Equal(t, "resolve", call.Name())

	out, err := p.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Paris", out)
	assert.Equal(t, "What is the capital of France?", memory.LastUserMessage(completer.Calls()[0]))
}

func TestCompletion_ResolveWithReturnType(t *testing.T) {
	completer := memory.NewCompleter(memory.WithReplies("1040 vs 890.\n\n### Answer ###\n2"))
	d, _ := setup(t, completer)

	p := compile(t, d, ops.Resolve, "Which option is faster?", ops.Type[int]())
	out, err := p.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, out)
	assert.Contains(t, memory.LastUserMessage(completer.Calls()[0]), "Data Type: int")
}

func TestCompletion_IterableWithReturnType(t *testing.T) {
	completer := memory.NewCompleter(memory.WithReplies("1999\n###\n2004"))
	d, _ := setup(t, completer)

	p := compile(t, d, ops.SelectIter, "Born 1999, married 2004.", "the years", ops.Type[int]())
	out, err := p.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []any{1999, 2004}, out)
}

func TestCompletion_UniversalFallback(t *testing.T) {
	lib := prompts.NewLibrary()
	require.NoError(t, lib.Add(prompts.Template{Name: prompts.Universal, Instruction: "Do it.", Input: "{{.operator}}: {{.s}}"}))
	completer := memory.NewCompleter(memory.WithEcho())

	reg := registry.New()
	reg.MustRegister(backends.NewCompletion(completer, backends.WithLibrary(lib)))
	d := runtime.New(reg, scope.New())

	p := compile(t, d, ops.Diff, "a", "b")
	out, err := p.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "diff: a", out)
}

func TestCompletion_DeclinesExistingPlan(t *testing.T) {
	earlier := ports.HandlerFunc{
		ID: "Earlier",
		Fn: func(ctx context.Context, req *domain.Request, d ports.Dispatcher, current domain.Plan) (domain.Outcome, error) {
			return domain.Proceed(plan.Const("done"), "created"), nil
		},
	}
	reg := registry.New()
	reg.MustRegister(backends.NewCompletion(nil), earlier)
	d := runtime.New(reg, scope.New())

	p := compile(t, d, ops.Resolve, "x")
	assert.Equal(t, []domain.Sign{{Handler: "Earlier", Note: "created"}}, p.Signs())
}

func TestFolding_AllScopes(t *testing.T) {
	completer := memory.NewCompleter(
		memory.WithRule("2+2", "4"),
		memory.WithRule("capital", "Paris"),
	)
	d, stack := setup(t, completer)

	entries := []domain.Entry{
		domain.TextEntry("geography quiz"),
		domain.RoleEntry("audience", "children"),
		domain.ExemplarEntry("capital of Italy?", "Rome"),
		domain.StrategyEntry("answer in one word"),
		domain.GuardEntry(domain.Guard{Name: "arithmetic", Input: map[string]any{"s": "2+2"}, Expected: "4"}),
	}

	var p domain.Plan
	require.NoError(t, stack.Do(entries, func() error {
		p = compile(t, d, ops.Resolve, "capital of France?")
		return nil
	}))

	assert.Equal(t, []domain.Sign{
		{Handler: backends.CompletionName, Note: "created"},
		{Handler: backends.GuardName, Note: "adding 1 guards"},
		{Handler: backends.StrategyName, Note: "adding 1 strategies"},
		{Handler: backends.ExemplarName, Note: "adding 1 exemplars"},
		{Handler: backends.ContextName, Note: "adding 2 context"},
	}, p.Signs())

	call := p.(*plan.CallPlan)
	instruction := call.Instruction()
	assert.Contains(t, instruction, "Please follow the following strategies when responding:\n\nanswer in one word")
	assert.Contains(t, instruction, "Please consider the following contexts before responding:\n\n- geography quiz\n- audience: children")
	assert.Less(t, strings.Index(instruction, "strategies"), strings.Index(instruction, "contexts"))

	msgs, err := call.Messages()
	require.NoError(t, err)
	// system, 3 built-in exemplar pairs, 1 scoped pair, request
	require.Len(t, msgs, 10)
	assert.Equal(t, "capital of Italy?", msgs[7].Content)
	assert.Equal(t, "Rome", msgs[8].Content)

	// The plan keeps its guards after the scope closed.
	out, err := p.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Paris", out)
	assert.Equal(t, 2, completer.CallCount())
}

func TestFolding_DeclinesWithoutScope(t *testing.T) {
	d, _ := setup(t, nil)
	p := compile(t, d, ops.Resolve, "x")
	assert.Len(t, p.Signs(), 1)
}

func TestFolding_DeclinesForeignPlan(t *testing.T) {
	custom := ports.HandlerFunc{
		ID: "Custom",
		Fn: func(ctx context.Context, req *domain.Request, d ports.Dispatcher, current domain.Plan) (domain.Outcome, error) {
			return domain.Proceed(plan.NewFunc(req.Input(), func(ctx context.Context, in map[string]any) (any, error) {
				return in["s"], nil
			}), "created"), nil
		},
	}
	reg := registry.New()
	reg.MustRegister(
		backends.NewContext(backends.WithDependencies("Custom")),
		backends.NewGuard(backends.WithDependencies("Custom")),
		custom,
	)
	stack := scope.New()
	d := runtime.New(reg, stack)

	h := stack.Enter(
		domain.TextEntry("ignored"),
		domain.GuardEntry(domain.Guard{Input: map[string]any{"s": "same"}, Expected: "same"}),
	)
	defer stack.Exit(h)

	p := compile(t, d, ops.Resolve, "value")
	// Context needs a completion plan; Guard accepts any guardable plan.
	assert.Equal(t, []domain.Sign{
		{Handler: "Custom", Note: "created"},
		{Handler: backends.GuardName, Note: "adding 1 guards"},
	}, p.Signs())

	out, err := p.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "value", out)
}

func TestFoldOptions(t *testing.T) {
	b := backends.NewStrategy(backends.WithName("TerseStrategy"), backends.WithDependencies("A", "B"))
	assert.Equal(t, "TerseStrategy", ports.HandlerName(b))
	assert.Equal(t, []string{"A", "B"}, ports.DependenciesOf(b))
	assert.Equal(t, []string{backends.CompletionName}, ports.DependenciesOf(backends.NewExemplar()))
}

func TestRedirect_Equals(t *testing.T) {
	completer := memory.NewCompleter(
		memory.WithRule("Operator: equals\n\nData 1: 4\n\nData 2: four", "1"),
		memory.WithRule("Operator: contains", "0"),
	)
	d, _ := setup(t, completer)

	p := compile(t, d, ops.Equals, "4", "four")
	assert.True(t, p.Final())
	assert.Equal(t, []domain.Sign{{Handler: backends.RedirectName, Note: "redirected to logical_binary"}}, p.Signs())

	out, err := p.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, true, out)

	p = compile(t, d, ops.Contains, "a sentence", "a word")
	out, err = p.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, false, out)
}

func TestRedirect_RequiresTwoOperands(t *testing.T) {
	d, _ := setup(t, nil)
	req, err := ops.Equals.Bind("alone")
	require.NoError(t, err)

	_, err = d.Dispatch(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrHandlerFailure)
	assert.ErrorIs(t, err, domain.ErrInvalidCall)
}

func TestRedirect_GuardReplayDispatchesAgain(t *testing.T) {
	completer := memory.NewCompleter(
		memory.WithRule("Data 1: same", "1"),
		memory.WithRule("Data 1: left", "0"),
	)
	d, _ := setup(t, completer)

	p := compile(t, d, ops.Equals, "left", "right").(*plan.FuncPlan)
	p.AddGuards(domain.Guard{Input: map[string]any{"s": "same", "t": "same"}, Expected: true})

	out, err := p.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, false, out)
	assert.Equal(t, 2, completer.CallCount())
}

func TestRedirect_GuardsStayOnTheOuterPlan(t *testing.T) {
	completer := memory.NewCompleter(memory.WithFallback(func([]domain.Message) (string, error) {
		return "1", nil
	}))
	d, stack := setup(t, completer)

	checks := 0
	op := ops.Equals.WithGuard(domain.Guard{
		Name:  "never",
		Input: map[string]any{"s": "a", "t": "b"},
		Checker: func(any, domain.Guard) bool {
			checks++
			return false
		},
	})
	req, err := op.Bind("x", "y")
	require.NoError(t, err)

	var p domain.Plan
	require.NoError(t, stack.Do(req.Contexts, func() error {
		p, err = d.Dispatch(context.Background(), req)
		return err
	}))
	assert.Equal(t, []domain.Sign{{Handler: backends.RedirectName, Note: "redirected to logical_binary, adding 1 guards"}}, p.Signs())

	_, err = p.Execute(context.Background())
	assert.ErrorIs(t, err, domain.ErrGuardViolation)
	assert.Equal(t, 1, checks)
	// only the replay reached the model
	assert.Equal(t, 1, completer.CallCount())
}

func TestRedirect_NestedDispatchSeesCompileTimeScope(t *testing.T) {
	completer := memory.NewCompleter(memory.WithFallback(func(messages []domain.Message) (string, error) {
		system := messages[0].Content
		if strings.Contains(system, "chemist") && !strings.Contains(system, "unrelated") {
			return "1", nil
		}
		return "0", nil
	}))
	d, stack := setup(t, completer)

	var p domain.Plan
	require.NoError(t, stack.Do([]domain.Entry{domain.TextEntry("compare as a chemist")}, func() error {
		p = compile(t, d, ops.Equals, "H2O", "water")
		return nil
	}))

	// Entries pushed after compilation belong to some other call.
	h := stack.Enter(domain.TextEntry("unrelated request"))
	defer stack.Exit(h)

	out, err := p.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, true, out)
}
