package domain

import "reflect"

// Equivalent reports whether a and b are deeply equal, treating numbers of
// different Go types as equal when they hold the same value. Decoders
// disagree on numeric types (TOML yields int64, YAML int, JSON float64),
// so guard expectations written in files compare through this.
func Equivalent(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	return equivalent(reflect.ValueOf(a), reflect.ValueOf(b))
}

func equivalent(a, b reflect.Value) bool {
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}
	if a.Kind() == reflect.Interface {
		return equivalent(a.Elem(), b)
	}
	if b.Kind() == reflect.Interface {
		return equivalent(a, b.Elem())
	}

	if isNumber(a) && isNumber(b) {
		return sameNumber(a, b)
	}

	switch {
	case isList(a) && isList(b):
		if a.Len() != b.Len() {
			return false
		}
		for i := range a.Len() {
			if !equivalent(a.Index(i), b.Index(i)) {
				return false
			}
		}
		return true
	case a.Kind() == reflect.Map && b.Kind() == reflect.Map:
		if a.Len() != b.Len() {
			return false
		}
		iter := a.MapRange()
		for iter.Next() {
			k := iter.Key()
			if !k.Type().AssignableTo(b.Type().Key()) {
				return false
			}
			v := b.MapIndex(k)
			if !v.IsValid() || !equivalent(iter.Value(), v) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a.Interface(), b.Interface())
}

func isList(v reflect.Value) bool {
	return v.Kind() == reflect.Slice || v.Kind() == reflect.Array
}

func isNumber(v reflect.Value) bool {
	return v.CanInt() || v.CanUint() || v.CanFloat()
}

func sameNumber(a, b reflect.Value) bool {
	switch {
	case a.CanFloat() || b.CanFloat():
		return asFloat(a) == asFloat(b)
	case a.CanInt() && b.CanInt():
		return a.Int() == b.Int()
	case a.CanUint() && b.CanUint():
		return a.Uint() == b.Uint()
	case a.CanInt():
		return a.Int() >= 0 && uint64(a.Int()) == b.Uint()
	default:
		return b.Int() >= 0 && a.Uint() == uint64(b.Int())
	}
}

func asFloat(v reflect.Value) float64 {
	switch {
	case v.CanInt():
		return float64(v.Int())
	case v.CanUint():
		return float64(v.Uint())
	default:
		return v.Float()
	}
}
