// Package api bridges the root package's destruction engine to the owning
// handles in container without exposing it publicly. Running a destructor,
// in particular a pinned one, from outside a teardown path would break the
// protocol's no-dangling-access guarantee, so the hooks live behind this
// module-internal seam. The root package populates them at init time.
package api

import (
	"reflect"
	"unsafe"
)

// Destroy runs destructors for the value of type t at p.
var Destroy func(t reflect.Type, p unsafe.Pointer)

// NeedsDestroy reports whether type t carries any destructor.
var NeedsDestroy func(t reflect.Type) bool
