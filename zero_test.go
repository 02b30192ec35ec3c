package emplace

import (
	stderrors "errors"
	"reflect"
	"testing"

	"github.com/wippyai/emplace/errors"
)

type markedStruct struct {
	N uint64
	S string
}

func (markedStruct) ZeroValid() {}

type unmarkedStruct struct {
	N uint64
}

type foreignStruct struct {
	P *int
}

func TestCanZero(t *testing.T) {
	RegisterZeroable[foreignStruct]()

	tests := []struct {
		name string
		typ  reflect.Type
		want bool
	}{
		{"bool", reflect.TypeOf(false), true},
		{"uint32", reflect.TypeOf(uint32(0)), true},
		{"float64", reflect.TypeOf(0.0), true},
		{"string", reflect.TypeOf(""), true},
		{"pointer", reflect.TypeOf((*int)(nil)), true},
		{"slice", reflect.TypeOf([]byte(nil)), true},
		{"map", reflect.TypeOf(map[string]int(nil)), true},
		{"chan", reflect.TypeOf((chan int)(nil)), true},
		{"func", reflect.TypeOf((func())(nil)), true},
		{"array of scalar", reflect.TypeOf([4]uint8{}), true},
		{"marked struct", reflect.TypeOf(markedStruct{}), true},
		{"array of marked struct", reflect.TypeOf([2]markedStruct{}), true},
		{"unmarked struct", reflect.TypeOf(unmarkedStruct{}), false},
		{"array of unmarked struct", reflect.TypeOf([2]unmarkedStruct{}), false},
		{"registered foreign struct", reflect.TypeOf(foreignStruct{}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanZero(tt.typ); got != tt.want {
				t.Errorf("CanZero(%s) = %v, want %v", tt.typ, got, tt.want)
			}
		})
	}
}

type lateRegStruct struct {
	N uint64
}

func TestRegisterZeroable_AfterQuery(t *testing.T) {
	typ := reflect.TypeOf(lateRegStruct{})
	arr := reflect.TypeOf([2]lateRegStruct{})

	if CanZero(typ) {
		t.Fatal("unregistered struct should not qualify")
	}
	if CanZero(arr) {
		t.Fatal("array of unregistered struct should not qualify")
	}

	RegisterZeroable[lateRegStruct]()

	if !CanZero(typ) {
		t.Error("registration after a prior query must take effect")
	}
	if !CanZero(arr) {
		t.Error("registration must also reach composite types queried earlier")
	}
}

func TestZeroed(t *testing.T) {
	init := Zeroed[markedStruct]()
	if !IsInfallible(init) {
		t.Error("Zeroed of a marked type should be infallible")
	}

	v := markedStruct{N: 99, S: "dirty"}
	if err := To(&v, init); err != nil {
		t.Fatal(err)
	}
	if v.N != 0 || v.S != "" {
		t.Fatalf("slot not zeroed: %+v", v)
	}
}

func TestZeroed_Unmarked(t *testing.T) {
	var v unmarkedStruct
	err := To(&v, Zeroed[unmarkedStruct]())
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindNotZeroable {
		t.Fatalf("expected not_zeroable, got %v", err)
	}
}
