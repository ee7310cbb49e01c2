package ops

import (
	"reflect"

	"github.com/aretw0/semop/pkg/domain"
)

func applyPreprocessor(op *domain.Operator, args ...any) (*domain.Request, error) {
	operands := domain.OrderArguments(args)
	switch len(operands) {
	case 2:
		return &domain.Request{Operator: op, Operand: operands[0], GuestOperand: operands[1]}, nil
	case 3:
		return &domain.Request{
			Operator:     op,
			Operand:      operands[0],
			GuestOperand: operands[2],
			Index:        operands[1],
		}, nil
	default:
		return nil, domain.ArityError(op, len(operands), "2 or 3")
	}
}

// returnTypePreprocessor handles (s[, returnType]). With required set the
// return type must be present.
func returnTypePreprocessor(required bool) domain.Preprocessor {
	return func(op *domain.Operator, args ...any) (*domain.Request, error) {
		operands := domain.OrderArguments(args)
		switch {
		case len(operands) == 2:
		case len(operands) == 1 && !required:
			return &domain.Request{Operator: op, Operand: operands[0]}, nil
		case required:
			return nil, domain.ArityError(op, len(operands), "2")
		default:
			return nil, domain.ArityError(op, len(operands), "1 or 2")
		}

		rt, err := returnType(op, len(operands), operands[1])
		if err != nil {
			return nil, err
		}
		if rt == nil && required {
			return nil, &domain.InvalidCallError{Operator: op.Name(), Arity: len(operands), Reason: "a return type is required"}
		}
		return &domain.Request{Operator: op, Operand: operands[0], ReturnType: rt}, nil
	}
}

// selectPreprocessor handles (s, selectorOrType[, returnType]). A type in the
// selector slot becomes the return type, which iterable results reject.
func selectPreprocessor(iterable bool) domain.Preprocessor {
	return func(op *domain.Operator, args ...any) (*domain.Request, error) {
		operands := domain.OrderArguments(args)
		switch len(operands) {
		case 2:
			if rt, ok := operands[1].(reflect.Type); ok {
				if iterable {
					return nil, &domain.InvalidCallError{
						Operator: op.Name(),
						Arity:    len(operands),
						Reason:   "selector cannot be a return type when the result is iterable",
					}
				}
				return &domain.Request{Operator: op, Operand: operands[0], ReturnType: rt}, nil
			}
			return &domain.Request{
				Operator:       op,
				Operand:        operands[0],
				GuestOperand:   operands[1],
				ReturnIterable: iterable,
			}, nil
		case 3:
			rt, err := returnType(op, len(operands), operands[2])
			if err != nil {
				return nil, err
			}
			return &domain.Request{
				Operator:       op,
				Operand:        operands[0],
				GuestOperand:   operands[1],
				ReturnType:     rt,
				ReturnIterable: iterable,
			}, nil
		default:
			return nil, domain.ArityError(op, len(operands), "2 or 3")
		}
	}
}

func returnType(op *domain.Operator, arity int, v any) (reflect.Type, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case reflect.Type:
		return t, nil
	default:
		return nil, &domain.InvalidCallError{
			Operator: op.Name(),
			Arity:    arity,
			Reason:   "return type must be a reflect.Type, got " + reflect.TypeOf(v).String(),
		}
	}
}
