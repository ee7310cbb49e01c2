// Package ops defines the abstract operations understood by the runtime.
//
// Every operator is a *domain.Operator carrying its own preprocessor, so the
// same call shape is normalized the same way whichever handler ends up
// serving it:
//
//	req, err := ops.Select.Bind(article, "the author", ops.Type[string]())
//
// Operators can be forked with attached context without affecting the
// package-level values:
//
//	terse := ops.Resolve.WithContext(domain.TextEntry("answer in one word"))
package ops

import (
	"reflect"
	"sync"

	"github.com/aretw0/semop/pkg/domain"
)

var (
	// Apply changes a subject: apply(s, changes) or apply(s, where, changes).
	Apply = domain.NewOperator("apply", applyPreprocessor)
	// Resolve computes the value of an expression: resolve(s[, returnType]).
	Resolve = domain.NewOperator("resolve", returnTypePreprocessor(false))
	// Cast converts a subject without changing its meaning: cast(s, returnType).
	Cast = domain.NewOperator("cast", returnTypePreprocessor(true))
	// Diff describes the differences between two subjects: diff(s, t).
	Diff = domain.NewOperator("diff", nil)
	// Select extracts one piece of information: select(s, selectorOrType[, returnType]).
	Select = domain.NewOperator("select", selectPreprocessor(false))
	// SelectIter extracts every match: select_iter(s, selector[, returnType]).
	SelectIter = domain.NewOperator("select_iter", selectPreprocessor(true))
	// Split cuts a subject into parts: split(s, selector[, returnType]).
	Split = domain.NewOperator("split", selectPreprocessor(true))
	// Combine merges subjects into one: combine(s, t, ...).
	Combine = domain.NewOperator("combine", nil)
	// LogicalUnary evaluates a unary predicate: logical_unary(op, s).
	LogicalUnary = domain.NewOperator("logical_unary", nil)
	// LogicalBinary evaluates a binary predicate: logical_binary(op, s, t).
	LogicalBinary = domain.NewOperator("logical_binary", nil)
	// Equals reports semantic equality: equals(s, t).
	Equals = domain.NewOperator("equals", nil)
	// Contains reports semantic containment: contains(s, t).
	Contains = domain.NewOperator("contains", nil)
)

var (
	indexOnce sync.Once
	byName    map[string]*domain.Operator
)

// All returns every operator of the package in a stable order.
func All() []*domain.Operator {
	return []*domain.Operator{
		Apply, Resolve, Cast, Diff, Select, SelectIter, Split, Combine,
		LogicalUnary, LogicalBinary, Equals, Contains,
	}
}

// ByName looks an operator up by its name.
func ByName(name string) (*domain.Operator, bool) {
	indexOnce.Do(func() {
		byName = make(map[string]*domain.Operator)
		for _, op := range All() {
			byName[op.Name()] = op
		}
	})
	op, ok := byName[name]
	return op, ok
}

// Names lists the operator names in the order of All.
func Names() []string {
	all := All()
	names := make([]string, len(all))
	for i, op := range all {
		names[i] = op.Name()
	}
	return names
}

// Type returns the reflect.Type of T, for use as a return type argument.
func Type[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
