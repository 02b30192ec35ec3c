package container

import (
	"reflect"
	"sync/atomic"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/emplace"
	"github.com/wippyai/emplace/errors"
	"github.com/wippyai/emplace/internal/api"
)

// Arc is a shared, address-stable owning handle. Clones share one
// constructed value; the value is destroyed exactly once, when the last
// clone closes. The value's address never changes while any clone lives.
type Arc[T any] struct {
	state  *arcState[T]
	closed atomic.Bool
}

type arcState[T any] struct {
	v     *T
	alloc Allocator
	refs  atomic.Int64
}

// NewArc constructs a T in place on the heap and wraps it in a shared
// handle.
func NewArc[T any](init emplace.PinInit[T]) (*Arc[T], error) {
	return NewArcIn[T](HeapAllocator, init)
}

// NewArcIn constructs a T in place inside storage obtained from a.
func NewArcIn[T any](a Allocator, init emplace.PinInit[T]) (*Arc[T], error) {
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

	return adoptShared(slot, a), nil
}

// adoptShared wraps an already-constructed value in a fresh shared handle
// with one reference. Used by NewArcIn and Pinned.Share.
func adoptShared[T any](v *T, a Allocator) *Arc[T] {
	state := &arcState[T]{v: v, alloc: a}
	state.refs.Store(1)
	return &Arc[T]{state: state}
}

// Get returns the constructed value's address, or nil after Close.
func (a *Arc[T]) Get() *T {
	if a.closed.Load() {
		return nil
	}
	return a.state.v
}

// Clone returns a new handle sharing the same value, or nil if this handle
// is already closed.
func (a *Arc[T]) Clone() *Arc[T] {
	if a.closed.Load() {
		return nil
	}
	a.state.refs.Add(1)
	return &Arc[T]{state: a.state}
}

// Refs returns the current reference count. Test and diagnostic use.
func (a *Arc[T]) Refs() int64 {
	return a.state.refs.Load()
}

// Close releases this handle's reference. The last release destroys the
// value at its final address and frees its storage.
func (a *Arc[T]) Close() error {
	if !a.closed.CompareAndSwap(false, true) {
		return errors.Closed(arcName[T]())
	}
	if a.state.refs.Add(-1) > 0 {
		return nil
	}

	Logger().Debug("destroying shared value",
		zap.String("handle", arcName[T]()))

	t := reflect.TypeFor[T]()
	api.Destroy(t, unsafe.Pointer(a.state.v))
	a.state.alloc.Free(unsafe.Pointer(a.state.v), t)
	a.state.v = nil
	return nil
}

func arcName[T any]() string {
	return "Arc[" + reflect.TypeFor[T]().String() + "]"
}
