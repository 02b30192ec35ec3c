package container

import (
	"reflect"
	"sync/atomic"
	"unsafe"

	"github.com/wippyai/emplace"
	"github.com/wippyai/emplace/errors"
	"github.com/wippyai/emplace/internal/api"
)

// Slice owns contiguous batch storage constructed by a SliceInit.
type Slice[T any] struct {
	s      []T
	alloc  Allocator
	closed atomic.Bool
}

// NewSlice allocates contiguous storage for the batch on the heap and runs
// the batch initializer over it. On failure at element i, elements before i
// were destroyed by the combinator and the storage is released.
func NewSlice[T any](init *emplace.SliceInit[T]) (*Slice[T], error) {
	return NewSliceIn[T](HeapAllocator, init)
}

// NewSliceIn is NewSlice with storage obtained from a.
func NewSliceIn[T any](a Allocator, init *emplace.SliceInit[T]) (*Slice[T], error) {
	s, err := allocElems[T](a, init.Len())
	if err != nil {
		return nil, err
	}
	if err := init.InitSlice(s); err != nil {
		freeElems(a, s)
		return nil, err
	}
	return &Slice[T]{s: s, alloc: a}, nil
}

// Elems returns the constructed elements, or nil after Close. The handle
// is movable: callers may copy elements out. The handle still destroys
// every element on Close; copy semantics for destructor-carrying elements
// are the caller's concern.
func (s *Slice[T]) Elems() []T {
	if s.closed.Load() {
		return nil
	}
	return s.s
}

// Len returns the number of constructed elements.
func (s *Slice[T]) Len() int {
	return len(s.s)
}

// Close destroys every element in increasing index order and releases the
// storage.
func (s *Slice[T]) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return errors.Closed("Slice[" + reflect.TypeFor[T]().String() + "]")
	}
	destroyElems(s.s)
	freeElems(s.alloc, s.s)
	s.s = nil
	return nil
}

// PinnedSlice owns contiguous, address-stable batch storage constructed by
// a PinSliceInit. No element's address changes until Close.
type PinnedSlice[T any] struct {
	s      []T
	alloc  Allocator
	closed atomic.Bool
}

// NewPinnedSlice allocates contiguous storage on the heap and runs the
// address-stable batch initializer over it.
func NewPinnedSlice[T any](init *emplace.PinSliceInit[T]) (*PinnedSlice[T], error) {
	return NewPinnedSliceIn[T](HeapAllocator, init)
}

// NewPinnedSliceIn is NewPinnedSlice with storage obtained from a.
func NewPinnedSliceIn[T any](a Allocator, init *emplace.PinSliceInit[T]) (*PinnedSlice[T], error) {
	s, err := allocElems[T](a, init.Len())
	if err != nil {
		return nil, err
	}
	if err := init.PinInitSlice(s); err != nil {
		freeElems(a, s)
		return nil, err
	}
	return &PinnedSlice[T]{s: s, alloc: a}, nil
}

// At returns the address of element i, or nil after Close. The pinned
// handle exposes element addresses, never a copyable view.
func (s *PinnedSlice[T]) At(i int) *T {
	if s.closed.Load() {
		return nil
	}
	return &s.s[i]
}

// Len returns the number of constructed elements.
func (s *PinnedSlice[T]) Len() int {
	return len(s.s)
}

// Close destroys every element at its final address, in increasing index
// order, and releases the storage.
func (s *PinnedSlice[T]) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return errors.Closed("PinnedSlice[" + reflect.TypeFor[T]().String() + "]")
	}
	destroyElems(s.s)
	freeElems(s.alloc, s.s)
	s.s = nil
	return nil
}

// allocElems obtains storage for n contiguous elements from a as one
// array-typed allocation.
func allocElems[T any](a Allocator, n int) ([]T, error) {
	if n == 0 {
		return []T{}, nil
	}
	t := reflect.ArrayOf(n, reflect.TypeFor[T]())
	p, err := alloc(a, t)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*T)(p), n), nil
}

func freeElems[T any](a Allocator, s []T) {
	if len(s) == 0 {
		return
	}
	t := reflect.ArrayOf(len(s), reflect.TypeFor[T]())
	a.Free(unsafe.Pointer(&s[0]), t)
}

func destroyElems[T any](s []T) {
	t := reflect.TypeFor[T]()
	if !api.NeedsDestroy(t) {
		return
	}
	for i := range s {
		api.Destroy(t, unsafe.Pointer(&s[i]))
	}
}
