// Package schema describes the shape of operator outputs.
//
// Types are written as short names so they fit in context pack files:
// "string", "int", "float", "bool", "any", and "[T]" for a list of T.
// A Type turns into a guard checker, which lets a pack assert that a
// plan produces the right kind of value without pinning the value itself:
//
//	guards:
//	  - name: year is a number
//	    input: {s: "moon landing"}
//	    type: int
package schema

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/aretw0/semop/pkg/domain"
)

// Type checks that a value has a given shape.
type Type interface {
	Name() string
	Validate(value any) error
}

// MismatchError reports a value of the wrong shape.
type MismatchError struct {
	Want  string
	Value any
	// Index is the position inside a list, or -1.
	Index int
}

func (e *MismatchError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("element %d: expected %s, got %T", e.Index, e.Want, e.Value)
	}
	return fmt.Sprintf("expected %s, got %T", e.Want, e.Value)
}

type kindType struct {
	name  string
	kinds []reflect.Kind
}

func (t kindType) Name() string { return t.name }

func (t kindType) Validate(value any) error {
	if value != nil {
		k := reflect.TypeOf(value).Kind()
		for _, want := range t.kinds {
			if k == want {
				return nil
			}
		}
	}
	return &MismatchError{Want: t.name, Value: value, Index: -1}
}

var (
	intKinds   = []reflect.Kind{reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64}
	floatKinds = append([]reflect.Kind{reflect.Float32, reflect.Float64}, intKinds...)
)

// String accepts strings.
func String() Type { return kindType{name: "string", kinds: []reflect.Kind{reflect.String}} }

// Int accepts any integer kind.
func Int() Type { return kindType{name: "int", kinds: intKinds} }

// Float accepts floats and integers.
func Float() Type { return kindType{name: "float", kinds: floatKinds} }

// Bool accepts booleans.
func Bool() Type { return kindType{name: "bool", kinds: []reflect.Kind{reflect.Bool}} }

type anyType struct{}

func (anyType) Name() string { return "any" }

func (anyType) Validate(value any) error {
	if value == nil {
		return &MismatchError{Want: "any", Value: value, Index: -1}
	}
	return nil
}

// Any accepts every non-nil value.
func Any() Type { return anyType{} }

type listType struct{ elem Type }

func (t listType) Name() string { return "[" + t.elem.Name() + "]" }

func (t listType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if value == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return &MismatchError{Want: t.Name(), Value: value, Index: -1}
	}
	for i := range rv.Len() {
		v := rv.Index(i).Interface()
		if err := t.elem.Validate(v); err != nil {
			return &MismatchError{Want: t.elem.Name(), Value: v, Index: i}
		}
	}
	return nil
}

// List accepts slices whose elements all match elem.
func List(elem Type) Type { return listType{elem: elem} }

// Parse reads a type name.
func Parse(name string) (Type, error) {
	name = strings.TrimSpace(name)
	if len(name) > 2 && strings.HasPrefix(name, "[") && strings.HasSuffix(name, "]") {
		elem, err := Parse(name[1 : len(name)-1])
		if err != nil {
			return nil, err
		}
		return List(elem), nil
	}
	switch name {
	case "string", "str":
		return String(), nil
	case "int":
		return Int(), nil
	case "float":
		return Float(), nil
	case "bool":
		return Bool(), nil
	case "any":
		return Any(), nil
	}
	return nil, fmt.Errorf("unsupported type %q", name)
}

// Checker adapts t into a guard checker.
func Checker(t Type) domain.Checker {
	return func(output any, _ domain.Guard) bool {
		return t.Validate(output) == nil
	}
}
