package emplace

import (
	"reflect"
	"testing"
	"unsafe"
)

type pinnedRes struct {
	rec *recorder
	id  string
}

func (p *pinnedRes) PinnedDestroy(DropToken) {
	p.rec.log("pinned-destroy:%s", p.id)
}

type nested struct {
	Outer tracked
	Inner struct {
		Deep tracked
	}
}

func TestDestroyValue_Recurses(t *testing.T) {
	rec := &recorder{}
	v := nested{
		Outer: tracked{rec: rec, id: "outer"},
	}
	v.Inner.Deep = tracked{rec: rec, id: "deep"}

	destroyValue(reflect.TypeOf(v), unsafe.Pointer(&v))

	// Fields destroyed in declaration order.
	want := []string{"destroy:outer", "destroy:deep"}
	got := rec.snapshot()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("events = %v, want %v", got, want)
	}
}

func TestDestroyValue_ArrayOrder(t *testing.T) {
	rec := &recorder{}

	arr := [2]tracked{
		{rec: rec, id: "0"},
		{rec: rec, id: "1"},
	}
	destroyValue(reflect.TypeOf(arr), unsafe.Pointer(&arr))

	want := []string{"destroy:0", "destroy:1"}
	got := rec.snapshot()
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("events = %v, want %v", got, want)
	}
}

func TestDestroyValue_PinnedDestroyer(t *testing.T) {
	rec := &recorder{}
	v := pinnedRes{rec: rec, id: "p"}
	destroyValue(reflect.TypeOf(v), unsafe.Pointer(&v))

	got := rec.snapshot()
	if len(got) != 1 || got[0] != "pinned-destroy:p" {
		t.Fatalf("events = %v", got)
	}
}

func TestNeedsDestroy(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
		want bool
	}{
		{"plain scalar", reflect.TypeOf(uint64(0)), false},
		{"plain struct", reflect.TypeOf(struct{ A, B int }{}), false},
		{"destroyer", reflect.TypeOf(tracked{}), true},
		{"pinned destroyer", reflect.TypeOf(pinnedRes{}), true},
		{"struct with destroyer field", reflect.TypeOf(nested{}), true},
		{"array of destroyers", reflect.TypeOf([3]tracked{}), true},
		{"array of scalars", reflect.TypeOf([3]int{}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := needsDestroy(tt.typ); got != tt.want {
				t.Errorf("needsDestroy(%s) = %v, want %v", tt.typ, got, tt.want)
			}
		})
	}
}
