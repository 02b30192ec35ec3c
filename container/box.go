package container

import (
	"reflect"
	"sync/atomic"
	"unsafe"

	"github.com/wippyai/emplace"
	"github.com/wippyai/emplace/errors"
	"github.com/wippyai/emplace/internal/api"
)

// Box is an exclusive, movable owning handle: the constructed value may be
// taken out and relocated by ordinary copy.
type Box[T any] struct {
	v      *T
	alloc  Allocator
	closed atomic.Bool
}

// New constructs a T in place on the heap via init.
func New[T any](init emplace.Init[T]) (*Box[T], error) {
	return NewIn[T](HeapAllocator, init)
}

// NewIn constructs a T in place inside storage obtained from a.
func NewIn[T any](a Allocator, init emplace.Init[T]) (*Box[T], error) {
	t := reflect.TypeFor[T]()
	p, err := alloc(a, t)
	if err != nil {
		return nil, err
	}

	slot := (*T)(p)
	if err := init.Init(slot); err != nil {
		// The initializer already rolled back; the storage owes no destructor.
		a.Free(p, t)
		return nil, err
	}

	return &Box[T]{v: slot, alloc: a}, nil
}

// Must is New for statically infallible constructions; it panics if the
// initializer or allocation reports an error anyway.
func Must[T any](init emplace.Init[T]) *Box[T] {
	b, err := New[T](init)
	if err != nil {
		panic(err)
	}
	return b
}

// Value returns the constructed value's address, or nil after Close or Take.
func (b *Box[T]) Value() *T {
	if b.closed.Load() {
		return nil
	}
	return b.v
}

// Take moves the value out of the box. Ownership, including any destructor
// duty, passes to the returned value; the box is spent afterwards.
func (b *Box[T]) Take() (T, error) {
	var zero T
	if !b.closed.CompareAndSwap(false, true) {
		return zero, errors.Closed(boxName[T]())
	}
	v := *b.v
	b.alloc.Free(unsafe.Pointer(b.v), reflect.TypeFor[T]())
	b.v = nil
	return v, nil
}

// Close destroys the value and releases its storage. Closing twice is an
// error.
func (b *Box[T]) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return errors.Closed(boxName[T]())
	}
	t := reflect.TypeFor[T]()
	api.Destroy(t, unsafe.Pointer(b.v))
	b.alloc.Free(unsafe.Pointer(b.v), t)
	b.v = nil
	return nil
}

func boxName[T any]() string {
	return "Box[" + reflect.TypeFor[T]().String() + "]"
}
