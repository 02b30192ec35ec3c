package container

import (
	"reflect"
	"sync/atomic"
	"unsafe"

	"github.com/wippyai/emplace"
	"github.com/wippyai/emplace/errors"
	"github.com/wippyai/emplace/internal/api"
)

// Pinned is an exclusive, address-stable owning handle. The constructed
// value's address is fixed from the moment its initializer ran until Close;
// no operation on the handle relocates it.
type Pinned[T any] struct {
	v      *T
	alloc  Allocator
	closed atomic.Bool
}

// NewPinned constructs a T in place on the heap via an address-stable
// initializer.
func NewPinned[T any](init emplace.PinInit[T]) (*Pinned[T], error) {
	return NewPinnedIn[T](HeapAllocator, init)
}

// NewPinnedIn constructs a T in place inside storage obtained from a.
func NewPinnedIn[T any](a Allocator, init emplace.PinInit[T]) (*Pinned[T], error) {
	t := reflect.TypeFor[T]()
	p, err := alloc(a, t)
	if err != nil {
		return nil, err
	}

	slot := (*T)(p)
	if err := init.PinInit(slot); err != nil {
		a.Free(p, t)
		return nil, err
	}

	return &Pinned[T]{v: slot, alloc: a}, nil
}

// MustPinned is NewPinned for statically infallible constructions.
func MustPinned[T any](init emplace.PinInit[T]) *Pinned[T] {
	h, err := NewPinned[T](init)
	if err != nil {
		panic(err)
	}
	return h
}

// Get returns the constructed value's address, or nil after Close or Share.
func (h *Pinned[T]) Get() *T {
	if h.closed.Load() {
		return nil
	}
	return h.v
}

// Share converts the exclusive handle into a shared one without relocating
// the value. The Pinned handle is spent afterwards; the returned Arc owns
// the value at the same address.
func (h *Pinned[T]) Share() (*Arc[T], error) {
	if !h.closed.CompareAndSwap(false, true) {
		return nil, errors.Closed(pinnedName[T]())
	}
	v := h.v
	h.v = nil
	return adoptShared(v, h.alloc), nil
}

// Close destroys the value at its final address and releases its storage.
func (h *Pinned[T]) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return errors.Closed(pinnedName[T]())
	}
	t := reflect.TypeFor[T]()
	api.Destroy(t, unsafe.Pointer(h.v))
	h.alloc.Free(unsafe.Pointer(h.v), t)
	h.v = nil
	return nil
}

func pinnedName[T any]() string {
	return "Pinned[" + reflect.TypeFor[T]().String() + "]"
}
