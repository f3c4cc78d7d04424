package batchloader

import (
	"fmt"
	"reflect"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// ValueCloner is an interface for cloning values.
// The loader clones a value for every receiver after the first, and storages clone on the way in and out,
// so callers never share mutable state through the cache.
// The CloneValue method should return a deep copy of the input value.
type ValueCloner[V ValueConstraint] interface {
	CloneValue(V) V
}

// ValueClonerFunc is a function type that implements the ValueCloner interface.
type ValueClonerFunc[V ValueConstraint] func(v V) V

// CloneValue calls the function.
func (f ValueClonerFunc[V]) CloneValue(v V) V {
	return f(v)
}

// NopValueCloner is a value cloner that does not clone values.
// Use it for immutable values.
type NopValueCloner[V ValueConstraint] struct{}

// CloneValue returns the input value.
func (NopValueCloner[V]) CloneValue(v V) V {
	return v
}

// DefaultValueCloner returns a default cloner for the given value type.
// Types with a Clone or DeepCopy method returning V use that method.
// Types made only of plain values (numbers, strings, and structs or arrays of them) are copied by assignment.
// Any other type panics: it needs a Clone method or an explicit cloner.
func DefaultValueCloner[V ValueConstraint]() ValueCloner[V] {
	var zero V
	return defaultValueClonerAny[V](zero)
}

func defaultValueClonerAny[V ValueConstraint](v any) ValueCloner[V] {
	type cloner interface {
		Clone() V
	}
	type deepCopier interface {
		DeepCopy() V
	}

	switch v.(type) {
	case cloner:
		return ValueClonerFunc[V](func(v V) V {
			var a any = v
			return a.(cloner).Clone()
		})

	case deepCopier:
		return ValueClonerFunc[V](func(v V) V {
			var a any = v
			return a.(deepCopier).DeepCopy()
		})
	}

	typ := reflect.TypeOf(v)
	if typ == nil {
		panic("value type must not be an interface type")
	}
	if !isPlainValue(typ) {
		panic(fmt.Sprintf("value type %s does not have Clone or DeepCopy method", typ))
	}
	return NopValueCloner[V]{}
}

// isPlainValue reports whether copying a value of typ by assignment produces an independent copy.
// time.Time counts as plain: its location pointer is never mutated.
func isPlainValue(typ reflect.Type) bool {
	if typ == timeType {
		return true
	}
	switch typ.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Uintptr, reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.String:
		return true
	case reflect.Array:
		return isPlainValue(typ.Elem())
	case reflect.Struct:
		for i := 0; i < typ.NumField(); i++ {
			if !isPlainValue(typ.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
