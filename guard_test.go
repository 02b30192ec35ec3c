package emplace

import (
	"reflect"
	"testing"
	"unsafe"
)

func TestGuards_Ledger(t *testing.T) {
	rec := &recorder{}
	a := tracked{rec: rec, id: "a"}
	b := tracked{rec: rec, id: "b"}
	typ := reflect.TypeOf(tracked{})

	var g guards
	if g.pending() != 0 {
		t.Fatalf("fresh ledger pending = %d, want 0", g.pending())
	}

	g.push("a", typ, unsafe.Pointer(&a))
	g.push("b", typ, unsafe.Pointer(&b))
	if g.pending() != 2 {
		t.Fatalf("pending = %d, want 2", g.pending())
	}

	g.discharge()
	if g.pending() != 0 {
		t.Errorf("pending after discharge = %d, want 0", g.pending())
	}
	if events := rec.snapshot(); len(events) != 0 {
		t.Errorf("discharge ran destructors: %v", events)
	}

	g.push("a", typ, unsafe.Pointer(&a))
	g.push("b", typ, unsafe.Pointer(&b))
	g.rollback("tracked")
	if g.pending() != 0 {
		t.Errorf("pending after rollback = %d, want 0", g.pending())
	}
	want := []string{"destroy:b", "destroy:a"}
	if got := rec.snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("rollback order = %v, want %v", got, want)
	}
}
