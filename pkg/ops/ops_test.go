package ops_test

import (
	"reflect"
	"testing"

	"github.com/aretw0/semop/pkg/domain"
	"github.com/aretw0/semop/pkg/ops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPreprocessor(t *testing.T) {
	req, err := ops.Combine.Bind("a", "b", domain.Kw("last", "d"), "c")
	require.NoError(t, err)
	assert.Equal(t, "a", req.Operand)
	assert.Equal(t, "b", req.GuestOperand)
	assert.Equal(t, []any{"c", "d"}, req.OtherOperands)
	assert.Equal(t, []any{"a", "b", "c", "d"}, req.Operands())

	req, err = ops.Diff.Bind("only")
	require.NoError(t, err)
	assert.False(t, req.HasGuest())
	assert.Empty(t, req.OtherOperands)

	_, err = ops.Diff.Bind()
	assert.ErrorIs(t, err, domain.ErrInvalidCall)
}

func TestLogicalBinaryShape(t *testing.T) {
	req, err := ops.LogicalBinary.Bind("equals", "x", "y")
	require.NoError(t, err)
	assert.Equal(t, "equals", req.Operand)
	assert.Equal(t, "x", req.GuestOperand)
	assert.Equal(t, []any{"y"}, req.OtherOperands)
}

func TestApplyPreprocessor(t *testing.T) {
	req, err := ops.Apply.Bind("doc", "make it shorter")
	require.NoError(t, err)
	assert.Equal(t, "make it shorter", req.GuestOperand)
	assert.Nil(t, req.Index)

	req, err = ops.Apply.Bind("doc", "Intro", "make it shorter")
	require.NoError(t, err)
	assert.Equal(t, "Intro", req.Index)
	assert.Equal(t, "make it shorter", req.GuestOperand)

	_, err = ops.Apply.Bind("doc")
	assert.ErrorIs(t, err, domain.ErrInvalidCall)
	assert.ErrorContains(t, err, "expected 2 or 3 arguments")
}

func TestResolveAndCast(t *testing.T) {
	req, err := ops.Resolve.Bind("1+1")
	require.NoError(t, err)
	assert.Nil(t, req.ReturnType)

	req, err = ops.Resolve.Bind("1+1", ops.Type[int]())
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(0), req.ReturnType)
	assert.Equal(t, "int", req.Input()["return_type"])

	_, err = ops.Resolve.Bind("1+1", "int")
	assert.ErrorContains(t, err, "return type must be a reflect.Type")

	_, err = ops.Cast.Bind("42")
	assert.ErrorIs(t, err, domain.ErrInvalidCall)

	_, err = ops.Cast.Bind("42", nil)
	assert.ErrorContains(t, err, "a return type is required")

	req, err = ops.Cast.Bind("42", ops.Type[float64]())
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(0.0), req.ReturnType)
}

func TestSelectPreprocessor(t *testing.T) {
	req, err := ops.Select.Bind("text", ops.Type[int]())
	require.NoError(t, err)
	assert.Nil(t, req.GuestOperand)
	assert.Equal(t, reflect.TypeOf(0), req.ReturnType)
	assert.False(t, req.ReturnIterable)

	req, err = ops.Select.Bind("text", "the year")
	require.NoError(t, err)
	assert.Equal(t, "the year", req.GuestOperand)
	assert.Nil(t, req.ReturnType)

	req, err = ops.Select.Bind("text", "the year", ops.Type[int]())
	require.NoError(t, err)
	assert.Equal(t, "the year", req.GuestOperand)
	assert.Equal(t, reflect.TypeOf(0), req.ReturnType)
}

func TestIterablePreprocessors(t *testing.T) {
	for _, op := range []*domain.Operator{ops.SelectIter, ops.Split} {
		req, err := op.Bind("a, b", ",")
		require.NoError(t, err)
		assert.True(t, req.ReturnIterable)
		assert.Equal(t, ",", req.GuestOperand)

		_, err = op.Bind("a, b", ops.Type[string]())
		assert.ErrorContains(t, err, "selector cannot be a return type")
	}
}

func TestByName(t *testing.T) {
	for _, name := range ops.Names() {
		op, ok := ops.ByName(name)
		require.True(t, ok, name)
		assert.Equal(t, name, op.Name())
	}
	_, ok := ops.ByName("teleport")
	assert.False(t, ok)
	assert.Len(t, ops.All(), 12)
}

func TestOperatorForks(t *testing.T) {
	terse := ops.Resolve.WithContext(domain.TextEntry("answer in one word"))
	assert.True(t, terse.Is(ops.Resolve))
	assert.Empty(t, ops.Resolve.Contexts())

	req, err := terse.Bind("capital of France")
	require.NoError(t, err)
	assert.Same(t, ops.Resolve, req.Operator)
	require.Len(t, req.Contexts, 1)
	assert.Equal(t, "answer in one word", req.Contexts[0].Text)
}
