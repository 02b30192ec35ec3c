package emplace

import (
	"reflect"
	"sync/atomic"
	"unsafe"

	"github.com/wippyai/emplace/errors"
)

// Chain runs init, then calls f on the finished value for extra validation
// or mutation. If f fails, the value is destroyed and f's error surfaces:
// no half-validated object escapes.
func Chain[T any](init Init[T], f func(*T) error) Init[T] {
	return &closureInit[T]{
		f: func(slot *T) error {
			if err := init.Init(slot); err != nil {
				return err
			}
			if err := f(slot); err != nil {
				destroyValue(reflect.TypeFor[T](), unsafe.Pointer(slot))
				return err
			}
			return nil
		},
	}
}

// PinChain is the address-stable form of Chain. f receives the value at its
// final address.
func PinChain[T any](init PinInit[T], f func(*T) error) PinInit[T] {
	return &pinClosureInit[T]{
		f: func(slot *T) error {
			if err := init.PinInit(slot); err != nil {
				return err
			}
			if err := f(slot); err != nil {
				destroyValue(reflect.TypeFor[T](), unsafe.Pointer(slot))
				return err
			}
			return nil
		},
	}
}

// MaybeUninit is storage for a T that may not hold a value yet. It is the
// only legal target of Uninit.
type MaybeUninit[T any] struct {
	value T
}

// Ptr returns the storage's address. Reading through it before the storage
// has been initialized is the caller's unsafety to manage.
func (m *MaybeUninit[T]) Ptr() *T {
	return &m.value
}

// AssumeInit returns the contained value's address, asserting that it has
// been fully initialized by some prior write or initializer run.
func (m *MaybeUninit[T]) AssumeInit() *T {
	return &m.value
}

// Uninit returns an always-succeeding initializer that performs no write at
// all. It produces only the possibly-uninitialized wrapper, never a bare T.
func Uninit[T any]() Init[MaybeUninit[T]] {
	return &closureInit[MaybeUninit[T]]{
		f:          func(*MaybeUninit[T]) error { return nil },
		infallible: true,
	}
}

// SliceInit is the array-batch combinator: element initializers are built
// lazily from an index and run on contiguous storage in increasing index
// order. On failure at index i, elements 0..i are destroyed in increasing
// index order and i..n are never touched.
type SliceInit[T any] struct {
	mk   func(int) Init[T]
	n    int
	used atomic.Bool
}

// SliceFromFn builds a batch initializer for n contiguous elements.
func SliceFromFn[T any](n int, mk func(int) Init[T]) *SliceInit[T] {
	return &SliceInit[T]{n: n, mk: mk}
}

// Len returns the number of elements the batch constructs.
func (s *SliceInit[T]) Len() int {
	return s.n
}

// InitSlice runs the batch into dst, which must have exactly Len elements
// holding no valid values yet.
func (s *SliceInit[T]) InitSlice(dst []T) error {
	if err := consume[T](&s.used); err != nil {
		return err
	}
	return initElems(dst, s.n, func(i int, slot *T) error {
		return s.mk(i).Init(slot)
	})
}

// PinSliceInit is the address-stable array-batch combinator. On success no
// element's address moves again short of destruction.
type PinSliceInit[T any] struct {
	mk   func(int) PinInit[T]
	n    int
	used atomic.Bool
}

// PinSliceFromFn builds an address-stable batch initializer for n
// contiguous elements.
func PinSliceFromFn[T any](n int, mk func(int) PinInit[T]) *PinSliceInit[T] {
	return &PinSliceInit[T]{n: n, mk: mk}
}

// Len returns the number of elements the batch constructs.
func (s *PinSliceInit[T]) Len() int {
	return s.n
}

// PinInitSlice runs the batch into dst, which must have exactly Len
// elements holding no valid values yet and a final address.
func (s *PinSliceInit[T]) PinInitSlice(dst []T) error {
	if err := consume[T](&s.used); err != nil {
		return err
	}
	return initElems(dst, s.n, func(i int, slot *T) error {
		return s.mk(i).PinInit(slot)
	})
}

func initElems[T any](dst []T, n int, run func(int, *T) error) error {
	if len(dst) != n {
		return errors.New(errors.PhaseInit, errors.KindLengthMismatch).
			GoType(typeName[T]()).
			Detail("batch constructs %d elements, storage holds %d", n, len(dst)).
			Build()
	}
	t := reflect.TypeFor[T]()
	for i := range dst {
		if err := run(i, &dst[i]); err != nil {
			for j := 0; j < i; j++ {
				destroyValue(t, unsafe.Pointer(&dst[j]))
			}
			return err
		}
	}
	return nil
}
