package emplace

import (
	"reflect"
	"sync"

	"github.com/wippyai/emplace/errors"
)

// Zeroable is the marker interface for types whose all-zero bit pattern is
// one of their valid values. Implement it (the method body stays empty) to
// unlock the zero-fill fast path and Zeroed construction:
//
//	type Stats struct{ Hits, Misses uint64 }
//
//	func (Stats) ZeroValid() {}
type Zeroable interface {
	ZeroValid()
}

var (
	zeroRegistry sync.Map // reflect.Type -> struct{}
	zeroCache    sync.Map // reflect.Type -> bool

	zeroableType = reflect.TypeOf((*Zeroable)(nil)).Elem()
)

// RegisterZeroable declares the all-zero bit pattern valid for a type you
// do not own and therefore cannot add the ZeroValid method to.
func RegisterZeroable[T any]() {
	zeroRegistry.Store(reflect.TypeFor[T](), struct{}{})
	// Negative CanZero answers may predate the registration, including
	// composites such as arrays of T. Drop them so the next query
	// reconsults the registry.
	zeroCache.Range(func(k, v any) bool {
		if !v.(bool) {
			zeroCache.Delete(k)
		}
		return true
	})
}

// CanZero reports whether t may be produced by an all-zero bit pattern.
//
// Scalar kinds, strings, and every nilable kind qualify structurally, as do
// arrays of qualifying elements. A struct type qualifies only by carrying
// the Zeroable marker or being registered explicitly: whether its zero
// value is semantically usable is an assertion only the type's author can
// make.
func CanZero(t reflect.Type) bool {
	if cached, ok := zeroCache.Load(t); ok {
		return cached.(bool)
	}
	ok := canZero(t)
	zeroCache.Store(t, ok)
	return ok
}

func canZero(t reflect.Type) bool {
	if _, ok := zeroRegistry.Load(t); ok {
		return true
	}
	if t.Implements(zeroableType) || reflect.PointerTo(t).Implements(zeroableType) {
		return true
	}

	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Slice,
		reflect.Chan, reflect.Func, reflect.Interface:
		// nil is a valid value of these kinds
		return true
	case reflect.Array:
		return CanZero(t.Elem())
	default:
		return false
	}
}

// Zeroed returns an initializer that writes the all-zero value and nothing
// else. It fails at run time if T does not qualify under CanZero; the
// degenerate field-protocol instance with zero explicit steps.
func Zeroed[T any]() Init[T] {
	t := reflect.TypeFor[T]()
	if !CanZero(t) {
		err := errors.NotZeroable(t.String())
		return &closureInit[T]{f: func(*T) error { return err }}
	}
	return &closureInit[T]{
		f: func(slot *T) error {
			var zero T
			*slot = zero
			return nil
		},
		infallible: true,
	}
}
