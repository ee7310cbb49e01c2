package runtime

import (
	"reflect"

	"github.com/aretw0/semop/pkg/domain"
	"github.com/aretw0/semop/pkg/ports"
)

var (
	semanticType = reflect.TypeOf((*domain.Semantic)(nil)).Elem()
	handlerType  = reflect.TypeOf((*ports.Handler)(nil)).Elem()
)

// Resolve inspects operands and returns the distinct participating types, in
// first-seen order, and the value-bound candidates ordered most specific first.
//
// A type participates when it implements domain.Semantic or ports.Handler.
// Only the first operand of each type is kept, and only handlers become
// candidates. A candidate is inserted right before the first earlier candidate
// whose type it specializes, so subtypes always come before their supertypes.
func Resolve(operands []any) ([]reflect.Type, []ports.Handler) {
	var types []reflect.Type
	var candidates []ports.Handler
	var candidateTypes []reflect.Type

	for _, operand := range operands {
		if operand == nil {
			continue
		}
		t := reflect.TypeOf(operand)
		if !t.Implements(semanticType) && !t.Implements(handlerType) {
			continue
		}
		if containsType(types, t) {
			continue
		}
		types = append(types, t)

		h, ok := operand.(ports.Handler)
		if !ok {
			continue
		}

		index := len(candidates)
		for i, existing := range candidateTypes {
			if Specializes(t, existing) {
				index = i
				break
			}
		}
		candidates = insertAt(candidates, index, h)
		candidateTypes = insertAt(candidateTypes, index, t)
	}
	return types, candidates
}

// Specializes reports whether sub embeds super, directly or through other
// embedded structs. Pointer and value forms of a type are treated alike.
func Specializes(sub, super reflect.Type) bool {
	return embeds(indirect(sub), indirect(super), make(map[reflect.Type]bool))
}

func embeds(sub, super reflect.Type, seen map[reflect.Type]bool) bool {
	if sub == super {
		return true
	}
	if sub.Kind() != reflect.Struct || seen[sub] {
		return false
	}
	seen[sub] = true
	for i := 0; i < sub.NumField(); i++ {
		field := sub.Field(i)
		if !field.Anonymous {
			continue
		}
		if embeds(indirect(field.Type), super, seen) {
			return true
		}
	}
	return false
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func containsType(types []reflect.Type, t reflect.Type) bool {
	for _, existing := range types {
		if existing == t {
			return true
		}
	}
	return false
}

func insertAt[T any](s []T, i int, v T) []T {
	s = append(s, v)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
