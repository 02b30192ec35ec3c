package container

import (
	"reflect"
	"unsafe"

	"github.com/wippyai/emplace/errors"
)

// Allocator obtains and releases raw, correctly sized and aligned storage
// for in-place construction. Alloc failures surface through the same error
// channel as field-construction failures.
type Allocator interface {
	Alloc(t reflect.Type) (unsafe.Pointer, error)
	Free(p unsafe.Pointer, t reflect.Type)
}

// HeapAllocator is the default Allocator: garbage-collected Go heap
// storage. Alloc never fails and Free is a no-op; the storage is reclaimed
// once the handle drops its reference.
var HeapAllocator Allocator = heapAllocator{}

type heapAllocator struct{}

func (heapAllocator) Alloc(t reflect.Type) (unsafe.Pointer, error) {
	return reflect.New(t).UnsafePointer(), nil
}

func (heapAllocator) Free(unsafe.Pointer, reflect.Type) {}

// FuncAllocator adapts a pair of functions into an Allocator. Useful for
// arena-style backends and for exercising allocation-failure paths in
// tests.
type FuncAllocator struct {
	AllocFn func(t reflect.Type) (unsafe.Pointer, error)
	FreeFn  func(p unsafe.Pointer, t reflect.Type)
}

func (a FuncAllocator) Alloc(t reflect.Type) (unsafe.Pointer, error) {
	if a.AllocFn == nil {
		return nil, errors.AllocationFailed(t.String(), t.Size())
	}
	return a.AllocFn(t)
}

func (a FuncAllocator) Free(p unsafe.Pointer, t reflect.Type) {
	if a.FreeFn != nil {
		a.FreeFn(p, t)
	}
}

func alloc(a Allocator, t reflect.Type) (unsafe.Pointer, error) {
	p, err := a.Alloc(t)
	if err != nil {
		return nil, errors.New(errors.PhaseAlloc, errors.KindAllocation).
			GoType(t.String()).
			Cause(err).
			Build()
	}
	if p == nil {
		return nil, errors.AllocationFailed(t.String(), t.Size())
	}
	return p, nil
}
