package emplace

import (
	"reflect"
	"sync/atomic"

	"github.com/wippyai/emplace/errors"
)

// Init is a single-use initializer for T whose finished value may still be
// relocated by ordinary copy.
//
// Contract for Init(slot):
//   - slot points at storage for exactly one T that holds no valid value yet
//   - on nil return, every field of the T at slot is initialized
//   - on error, slot requires no destructor call, may be reused or released
//     immediately, and holds no partial state
type Init[T any] interface {
	Init(slot *T) error
}

// PinInit is a single-use address-stable initializer for T. It carries the
// same contract as Init with one addition: after a nil return the value's
// address is fixed until destruction. Callers must not copy or move the
// pointee afterwards.
//
// Every Init is usable where a PinInit is required; see AsPin.
type PinInit[T any] interface {
	PinInit(slot *T) error
}

// Infallible is implemented by initializers that are statically guaranteed
// to succeed. Container Must* entry points and combinators consult it.
type Infallible interface {
	Infallible() bool
}

// IsInfallible reports whether init declares itself unable to fail.
func IsInfallible(init any) bool {
	i, ok := init.(Infallible)
	return ok && i.Infallible()
}

// FromClosure creates a movable initializer from f.
//
// This is the unsafe escape hatch beneath the structured field protocol: the
// caller must guarantee that f either initializes every field of the slot
// and returns nil, or leaves the slot requiring no destructor call and
// returns the error. Nothing here can check that.
func FromClosure[T any](f func(slot *T) error) Init[T] {
	return &closureInit[T]{f: f}
}

// PinFromClosure creates an address-stable initializer from f. The same
// obligations as FromClosure apply, and f may additionally assume the slot
// address is final.
func PinFromClosure[T any](f func(slot *T) error) PinInit[T] {
	return &pinClosureInit[T]{f: f}
}

// FromValue creates an infallible initializer that writes v into the slot.
func FromValue[T any](v T) Init[T] {
	return &closureInit[T]{
		f: func(slot *T) error {
			*slot = v
			return nil
		},
		infallible: true,
	}
}

// AsPin adapts a movable initializer to the address-stable contract.
// Construction order and rollback are identical; only the relocation
// promise differs, and not relocating is always permitted.
func AsPin[T any](init Init[T]) PinInit[T] {
	if p, ok := init.(PinInit[T]); ok {
		return p
	}
	return pinAdapter[T]{init: init}
}

// To runs a movable initializer into caller-supplied storage. On error the
// storage holds no valid value and owes no destructor.
func To[T any](slot *T, init Init[T]) error {
	if slot == nil {
		return errors.NilSlot(errors.PhaseInit, typeName[T]())
	}
	return init.Init(slot)
}

// PinTo runs an address-stable initializer into caller-supplied storage.
// The caller promises the storage will not be copied, reassigned, or
// otherwise relocated for the lifetime of the value. Use Destroy-capable
// containers instead when that promise is hard to keep by hand.
func PinTo[T any](slot *T, init PinInit[T]) error {
	if slot == nil {
		return errors.NilSlot(errors.PhaseInit, typeName[T]())
	}
	return init.PinInit(slot)
}

type closureInit[T any] struct {
	f          func(*T) error
	used       atomic.Bool
	infallible bool
}

func (c *closureInit[T]) Init(slot *T) error {
	if err := consume[T](&c.used); err != nil {
		return err
	}
	if slot == nil {
		return errors.NilSlot(errors.PhaseInit, typeName[T]())
	}
	return c.f(slot)
}

func (c *closureInit[T]) PinInit(slot *T) error {
	return c.Init(slot)
}

func (c *closureInit[T]) Infallible() bool {
	return c.infallible
}

type pinClosureInit[T any] struct {
	f    func(*T) error
	used atomic.Bool
}

func (c *pinClosureInit[T]) PinInit(slot *T) error {
	if err := consume[T](&c.used); err != nil {
		return err
	}
	if slot == nil {
		return errors.NilSlot(errors.PhaseInit, typeName[T]())
	}
	return c.f(slot)
}

type pinAdapter[T any] struct {
	init Init[T]
}

func (a pinAdapter[T]) PinInit(slot *T) error {
	return a.init.Init(slot)
}

func (a pinAdapter[T]) Infallible() bool {
	return IsInfallible(a.init)
}

// consume flips the single-use flag, failing on a second invocation.
func consume[T any](used *atomic.Bool) error {
	if !used.CompareAndSwap(false, true) {
		return errors.DoubleUse(typeName[T]())
	}
	return nil
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}
