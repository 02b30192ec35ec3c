package emplace

import (
	"reflect"
	"unsafe"

	"go.uber.org/zap"
)

// guard records one constructed field of an in-progress construction:
// where it lives and what type's destructor it is owed.
type guard struct {
	typ  reflect.Type
	ptr  unsafe.Pointer
	name string
}

// guards is the ledger of constructed fields. On failure the ledger rolls
// back in reverse construction order; on success it is discharged without
// running anything, since ownership has passed to the finished value.
type guards struct {
	entries []guard
}

func (g *guards) push(name string, t reflect.Type, p unsafe.Pointer) {
	g.entries = append(g.entries, guard{typ: t, ptr: p, name: name})
}

// rollback destroys every recorded field, most recent first, and empties
// the ledger.
func (g *guards) rollback(owner string) {
	if len(g.entries) > 0 {
		Logger().Debug("rolling back construction",
			zap.String("type", owner),
			zap.Int("fields", len(g.entries)))
	}
	for i := len(g.entries) - 1; i >= 0; i-- {
		e := g.entries[i]
		destroyValue(e.typ, e.ptr)
	}
	g.entries = g.entries[:0]
}

// discharge forgets every entry without running destructors.
func (g *guards) discharge() {
	g.entries = g.entries[:0]
}

func (g *guards) pending() int {
	return len(g.entries)
}
