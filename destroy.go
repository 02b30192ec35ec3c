package emplace

import (
	"reflect"
	"sync"
	"unsafe"

	"github.com/wippyai/emplace/internal/api"
)

// Destroyer releases resources held by a constructed value. The protocol
// invokes it during rollback and containers invoke it during teardown.
type Destroyer interface {
	Destroy()
}

// DropToken witnesses that a pinned destructor is being invoked by an owning
// handle's own teardown path. Only this module can produce one, so
// PinnedDestroy is never callable from arbitrary code.
type DropToken interface {
	dropToken()
}

// PinnedDestroyer is the address-stable counterpart of Destroyer. Types
// whose destructor relies on the value's address being final implement this
// instead.
type PinnedDestroyer interface {
	PinnedDestroy(DropToken)
}

type dropToken struct{}

func (dropToken) dropToken() {}

func init() {
	api.Destroy = destroyValue
	api.NeedsDestroy = needsDestroy
}

// destroyValue runs destructors for the value of type t at p: the value's
// own destructor first, then fields or elements in declaration order.
func destroyValue(t reflect.Type, p unsafe.Pointer) {
	if !needsDestroy(t) {
		return
	}

	iv := reflect.NewAt(t, p).Interface()
	switch d := iv.(type) {
	case PinnedDestroyer:
		d.PinnedDestroy(dropToken{})
	case Destroyer:
		d.Destroy()
	}

	switch t.Kind() {
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			destroyValue(f.Type, unsafe.Add(p, f.Offset))
		}
	case reflect.Array:
		elem := t.Elem()
		size := elem.Size()
		for i := 0; i < t.Len(); i++ {
			destroyValue(elem, unsafe.Add(p, uintptr(i)*size))
		}
	}
}

var destroyCache sync.Map // reflect.Type -> bool

var (
	destroyerType       = reflect.TypeOf((*Destroyer)(nil)).Elem()
	pinnedDestroyerType = reflect.TypeOf((*PinnedDestroyer)(nil)).Elem()
)

// needsDestroy reports whether values of type t (or anything nested in
// them) carry a destructor. Types that don't are skipped entirely during
// rollback and teardown.
func needsDestroy(t reflect.Type) bool {
	if cached, ok := destroyCache.Load(t); ok {
		return cached.(bool)
	}

	pt := reflect.PointerTo(t)
	need := pt.Implements(destroyerType) || pt.Implements(pinnedDestroyerType)

	if !need {
		switch t.Kind() {
		case reflect.Struct:
			for i := 0; i < t.NumField() && !need; i++ {
				need = needsDestroy(t.Field(i).Type)
			}
		case reflect.Array:
			need = needsDestroy(t.Elem())
		}
	}

	destroyCache.Store(t, need)
	return need
}
