package emplace

import (
	"fmt"
	"reflect"
	"sync/atomic"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/emplace/errors"
	"github.com/wippyai/emplace/layout"
)

// Self is the self-address token: a handle on the eventual value's slot,
// handed to construction steps that need to pre-compute a pointer to a
// sibling field before that sibling exists.
//
// Addresses obtained through Self are for address-of computation only.
// Dereferencing one before the target field's step has completed reads
// unconstructed memory; the protocol cannot catch that, so the obligation
// sits with the step that asked for the token.
type Self struct {
	base unsafe.Pointer
	desc *layout.Struct
}

// Addr returns the slot's base address.
func (s Self) Addr() unsafe.Pointer {
	return s.base
}

// FieldAddr returns the address the named field will occupy. It panics on a
// field the type does not declare; step expressions run inside a protocol
// whose field set was already verified, so an unknown name here is a
// programming error, not a runtime condition.
func (s Self) FieldAddr(name string) unsafe.Pointer {
	f, ok := s.desc.Field(name)
	if !ok {
		panic(errors.FieldUnknown(s.desc.Type.String(), name))
	}
	return unsafe.Add(s.base, f.Offset)
}

// FieldOf returns a typed pointer to the named field's future location.
// Same dereference obligations as FieldAddr.
func FieldOf[F any](s Self, name string) *F {
	f, ok := s.desc.Field(name)
	if !ok {
		panic(errors.FieldUnknown(s.desc.Type.String(), name))
	}
	want := reflect.TypeFor[F]()
	if f.Type != want {
		panic(errors.TypeMismatch(errors.PhaseInit, []string{name}, want.String(), f.Type.String()))
	}
	return (*F)(unsafe.Add(s.base, f.Offset))
}

// Step describes how one named field is constructed. Build Steps with Set,
// SetWith, Via, PinVia, ViaWith, or PinViaWith; the zero Step is invalid.
type Step struct {
	typ        reflect.Type
	run        func(p unsafe.Pointer, self Self) error
	pin        bool
	infallible bool
}

// Set writes a fully-formed value into the field. Infallible.
func Set[F any](v F) Step {
	return Step{
		typ: reflect.TypeFor[F](),
		run: func(p unsafe.Pointer, _ Self) error {
			*(*F)(p) = v
			return nil
		},
		infallible: true,
	}
}

// SetWith computes the field's value when the construction runs, with the
// self-address token available for sibling address pre-computation.
func SetWith[F any](fn func(Self) (F, error)) Step {
	return Step{
		typ: reflect.TypeFor[F](),
		run: func(p unsafe.Pointer, self Self) error {
			v, err := fn(self)
			if err != nil {
				return err
			}
			*(*F)(p) = v
			return nil
		},
	}
}

// Via delegates the field to a nested movable initializer. Its error
// propagates unchanged.
func Via[F any](init Init[F]) Step {
	return Step{
		typ: reflect.TypeFor[F](),
		run: func(p unsafe.Pointer, _ Self) error {
			return init.Init((*F)(p))
		},
		infallible: IsInfallible(init),
	}
}

// PinVia delegates the field to a nested address-stable initializer. Using
// it makes the whole struct initializer address-stable only.
func PinVia[F any](init PinInit[F]) Step {
	return Step{
		typ: reflect.TypeFor[F](),
		run: func(p unsafe.Pointer, _ Self) error {
			return init.PinInit((*F)(p))
		},
		pin:        true,
		infallible: IsInfallible(init),
	}
}

// ViaWith builds the field's nested initializer when the construction runs,
// with the self-address token in scope.
func ViaWith[F any](fn func(Self) Init[F]) Step {
	return Step{
		typ: reflect.TypeFor[F](),
		run: func(p unsafe.Pointer, self Self) error {
			return fn(self).Init((*F)(p))
		},
	}
}

// PinViaWith is the address-stable form of ViaWith.
func PinViaWith[F any](fn func(Self) PinInit[F]) Step {
	return Step{
		typ: reflect.TypeFor[F](),
		run: func(p unsafe.Pointer, self Self) error {
			return fn(self).PinInit((*F)(p))
		},
		pin: true,
	}
}

// StructInit assembles per-field construction steps into one initializer
// for T. Fields are constructed in Put order, each exactly once; rollback
// on failure runs in reverse. Completeness and types are verified when the
// builder is finalized, before any construction runs.
type StructInit[T any] struct {
	err   error
	names map[string]int
	steps []namedStep
	zero  bool
}

type namedStep struct {
	name string
	step Step
}

// Struct starts a field-protocol builder for T.
func Struct[T any]() *StructInit[T] {
	return &StructInit[T]{names: make(map[string]int)}
}

// Zeroed turns on the zero-fill fast path: the whole slot is written to
// zero before any step runs, and fields without a step keep their zero
// value. Requires T to qualify under CanZero. Zero-kept fields never get a
// rollback guard; this construction never freshly owned them.
func (b *StructInit[T]) Zeroed() *StructInit[T] {
	b.zero = true
	return b
}

// Put adds the construction step for one named field. A field named twice
// is a finalization-time error.
func (b *StructInit[T]) Put(name string, step Step) *StructInit[T] {
	if _, dup := b.names[name]; dup {
		b.fail(errors.FieldDuplicate(typeName[T](), name))
		return b
	}
	b.names[name] = len(b.steps)
	b.steps = append(b.steps, namedStep{name: name, step: step})
	return b
}

func (b *StructInit[T]) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Build finalizes the builder into a movable initializer. It fails if any
// step, or any `emplace:"pin"`-tagged field, requires address stability;
// use BuildPin for those.
func (b *StructInit[T]) Build() (Init[T], error) {
	si, err := b.finalize()
	if err != nil {
		return nil, err
	}
	if si.pinOnly {
		return nil, errors.New(errors.PhaseCompile, errors.KindPinnedOnly).
			GoType(typeName[T]()).
			Detail("construction is address-stable only, use BuildPin").
			Build()
	}
	return si, nil
}

// BuildPin finalizes the builder into an address-stable initializer.
// Movable constructions may be finalized this way too; the reverse does
// not hold.
func (b *StructInit[T]) BuildPin() (PinInit[T], error) {
	return b.finalize()
}

// MustBuild is Build for constructions known correct at authoring time.
func (b *StructInit[T]) MustBuild() Init[T] {
	init, err := b.Build()
	if err != nil {
		panic(err)
	}
	return init
}

// MustBuildPin is BuildPin for constructions known correct at authoring time.
func (b *StructInit[T]) MustBuildPin() PinInit[T] {
	init, err := b.BuildPin()
	if err != nil {
		panic(err)
	}
	return init
}

// finalize runs the completeness and type checks and produces the runnable
// protocol instance.
func (b *StructInit[T]) finalize() (*structInit[T], error) {
	if b.err != nil {
		return nil, b.err
	}

	desc, err := layout.Compile(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}

	if b.zero && !CanZero(desc.Type) {
		return nil, errors.NotZeroable(desc.Type.String())
	}

	pinOnly := desc.HasPinned()
	infallible := true
	fields := make([]boundStep, 0, len(b.steps))
	for _, ns := range b.steps {
		f, ok := desc.Field(ns.name)
		if !ok {
			return nil, errors.FieldUnknown(desc.Type.String(), ns.name)
		}
		if ns.step.run == nil {
			return nil, errors.New(errors.PhaseCompile, errors.KindTypeMismatch).
				GoType(desc.Type.String()).
				Path(ns.name).
				Detail("zero Step value; use Set, Via, or a *With constructor").
				Build()
		}
		// Direct writes reinterpret the field's memory, so the step type
		// must match the declared field type exactly.
		if ns.step.typ != f.Type {
			return nil, errors.TypeMismatch(errors.PhaseCompile,
				[]string{ns.name}, ns.step.typ.String(), f.Type.String())
		}
		if ns.step.pin {
			pinOnly = true
		}
		if !ns.step.infallible {
			infallible = false
		}
		fields = append(fields, boundStep{field: f, step: ns.step})
	}

	if !b.zero {
		for _, f := range desc.Fields {
			if _, ok := b.names[f.Name]; !ok {
				return nil, errors.FieldMissing(desc.Type.String(), f.Name)
			}
		}
	}

	return &structInit[T]{
		desc:       desc,
		fields:     fields,
		zero:       b.zero,
		pinOnly:    pinOnly,
		infallible: infallible,
	}, nil
}

type boundStep struct {
	field layout.Field
	step  Step
}

// structInit is a finalized field-protocol instance. Single-use.
type structInit[T any] struct {
	desc       *layout.Struct
	fields     []boundStep
	used       atomic.Bool
	zero       bool
	pinOnly    bool
	infallible bool
}

func (si *structInit[T]) Init(slot *T) error {
	if si.pinOnly {
		panic(fmt.Sprintf("emplace: address-stable initializer for %s invoked through Init", si.desc.Type))
	}
	return si.construct(slot)
}

func (si *structInit[T]) PinInit(slot *T) error {
	return si.construct(slot)
}

func (si *structInit[T]) Infallible() bool {
	return si.infallible
}

func (si *structInit[T]) construct(slot *T) error {
	if err := consume[T](&si.used); err != nil {
		return err
	}
	if slot == nil {
		return errors.NilSlot(errors.PhaseInit, si.desc.Type.String())
	}

	base := unsafe.Pointer(slot)
	self := Self{base: base, desc: si.desc}

	if si.zero {
		var zero T
		*slot = zero
	}

	var g guards
	for _, bs := range si.fields {
		p := unsafe.Add(base, bs.field.Offset)
		if err := bs.step.run(p, self); err != nil {
			g.rollback(si.desc.Type.String())
			return err
		}
		g.push(bs.field.Name, bs.field.Type, p)
	}
	Logger().Debug("construction complete",
		zap.String("type", si.desc.Type.String()),
		zap.Int("fields", g.pending()))
	g.discharge()
	return nil
}
