package emplace

import (
	stderrors "errors"
	"fmt"
	"sync"
	"testing"

	"github.com/wippyai/emplace/errors"
)

// recorder collects construction and destruction events in order.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) log(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// tracked is a field type with an observable destructor.
type tracked struct {
	rec *recorder
	id  string
}

func (t *tracked) Destroy() {
	t.rec.log("destroy:%s", t.id)
}

// trackedInit builds a field initializer that logs its run and optionally fails.
func trackedInit(rec *recorder, id string, fail error) Init[tracked] {
	return FromClosure(func(slot *tracked) error {
		if fail != nil {
			rec.log("fail:%s", id)
			return fail
		}
		rec.log("init:%s", id)
		*slot = tracked{rec: rec, id: id}
		return nil
	})
}

type triple struct {
	A tracked
	B tracked
	C tracked
}

func TestStruct_FieldsInOrder(t *testing.T) {
	rec := &recorder{}

	init, err := Struct[triple]().
		Put("A", Via(trackedInit(rec, "a", nil))).
		Put("B", Via(trackedInit(rec, "b", nil))).
		Put("C", Via(trackedInit(rec, "c", nil))).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	var v triple
	if err := To(&v, init); err != nil {
		t.Fatalf("construction failed: %v", err)
	}

	want := []string{"init:a", "init:b", "init:c"}
	got := rec.snapshot()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}

	if v.A.id != "a" || v.B.id != "b" || v.C.id != "c" {
		t.Errorf("fields not written: %+v", v)
	}
}

func TestStruct_OrderedRollback(t *testing.T) {
	rec := &recorder{}
	boom := stderrors.New("b exploded")

	init, err := Struct[triple]().
		Put("A", Via(trackedInit(rec, "a", nil))).
		Put("B", Via(trackedInit(rec, "b", boom))).
		Put("C", Via(trackedInit(rec, "c", nil))).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	var v triple
	err = To(&v, init)
	if !stderrors.Is(err, boom) {
		t.Fatalf("expected b's error unchanged, got %v", err)
	}

	// a constructed then destroyed; b never constructed; c never touched.
	want := []string{"init:a", "fail:b", "destroy:a"}
	got := rec.snapshot()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
}

func TestStruct_RollbackReverseOrder(t *testing.T) {
	rec := &recorder{}
	boom := stderrors.New("c exploded")

	init, err := Struct[triple]().
		Put("A", Via(trackedInit(rec, "a", nil))).
		Put("B", Via(trackedInit(rec, "b", nil))).
		Put("C", Via(trackedInit(rec, "c", boom))).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	var v triple
	if err := To(&v, init); !stderrors.Is(err, boom) {
		t.Fatalf("expected c's error, got %v", err)
	}

	want := []string{"init:a", "init:b", "fail:c", "destroy:b", "destroy:a"}
	got := rec.snapshot()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
}

func TestStruct_NoDestroyOnSuccess(t *testing.T) {
	rec := &recorder{}

	init, err := Struct[triple]().
		Put("A", Via(trackedInit(rec, "a", nil))).
		Put("B", Via(trackedInit(rec, "b", nil))).
		Put("C", Via(trackedInit(rec, "c", nil))).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	var v triple
	if err := To(&v, init); err != nil {
		t.Fatal(err)
	}

	for _, e := range rec.snapshot() {
		if e == "destroy:a" || e == "destroy:b" || e == "destroy:c" {
			t.Fatalf("guard ran on success: %v", rec.snapshot())
		}
	}
}

func TestStruct_CompletenessErrors(t *testing.T) {
	type pair struct {
		X uint32
		Y uint32
	}

	tests := []struct {
		name  string
		build func() (Init[pair], error)
		kind  errors.Kind
	}{
		{
			name: "missing field",
			build: func() (Init[pair], error) {
				return Struct[pair]().Put("X", Set(uint32(1))).Build()
			},
			kind: errors.KindFieldMissing,
		},
		{
			name: "duplicate field",
			build: func() (Init[pair], error) {
				return Struct[pair]().
					Put("X", Set(uint32(1))).
					Put("X", Set(uint32(2))).
					Put("Y", Set(uint32(3))).
					Build()
			},
			kind: errors.KindFieldDuplicate,
		},
		{
			name: "unknown field",
			build: func() (Init[pair], error) {
				return Struct[pair]().
					Put("X", Set(uint32(1))).
					Put("Y", Set(uint32(2))).
					Put("Z", Set(uint32(3))).
					Build()
			},
			kind: errors.KindFieldUnknown,
		},
		{
			name: "type mismatch",
			build: func() (Init[pair], error) {
				return Struct[pair]().
					Put("X", Set("not a uint32")).
					Put("Y", Set(uint32(2))).
					Build()
			},
			kind: errors.KindTypeMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			if err == nil {
				t.Fatal("expected build error")
			}
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Kind != tt.kind {
				t.Fatalf("expected %s error, got %v", tt.kind, err)
			}
		})
	}
}

type zpair struct {
	X uint32
	Y uint32
}

func (zpair) ZeroValid() {}

func TestStruct_ZeroFillEquivalence(t *testing.T) {
	zeroed, err := Struct[zpair]().
		Zeroed().
		Put("Y", Set(uint32(7))).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	explicit, err := Struct[zpair]().
		Put("X", Set(uint32(0))).
		Put("Y", Set(uint32(7))).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// Dirty the slots first so the zero-fill actually has work to do.
	a := zpair{X: 99, Y: 99}
	b := zpair{X: 99, Y: 99}
	if err := To(&a, zeroed); err != nil {
		t.Fatal(err)
	}
	if err := To(&b, explicit); err != nil {
		t.Fatal(err)
	}

	if a != b {
		t.Fatalf("zero-fill result %+v differs from explicit %+v", a, b)
	}
	if a.X != 0 || a.Y != 7 {
		t.Fatalf("unexpected value %+v", a)
	}
}

func TestStruct_ZeroedUnmentionedFieldGetsNoGuard(t *testing.T) {
	type holder struct {
		Kept   tracked
		First  tracked
		Second tracked
	}
	RegisterZeroable[holder]()

	rec := &recorder{}
	boom := stderrors.New("late failure")

	// Kept has no step and stays zero. First constructs, Second fails.
	// Rollback must destroy only First: the zero-kept field was never
	// freshly owned by this construction, and destroying its zero value
	// (rec == nil) would panic, failing the test.
	init, err := Struct[holder]().
		Zeroed().
		Put("First", Via(trackedInit(rec, "first", nil))).
		Put("Second", Via(trackedInit(rec, "second", boom))).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	var v holder
	if err := To(&v, init); !stderrors.Is(err, boom) {
		t.Fatalf("expected failure, got %v", err)
	}

	want := []string{"init:first", "fail:second", "destroy:first"}
	if fmt.Sprint(rec.snapshot()) != fmt.Sprint(want) {
		t.Fatalf("events = %v, want %v", rec.snapshot(), want)
	}
}

func TestStruct_ZeroedRequiresMarker(t *testing.T) {
	type unmarked struct {
		X uint32
	}
	_, err := Struct[unmarked]().Zeroed().Build()
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindNotZeroable {
		t.Fatalf("expected not_zeroable, got %v", err)
	}
}

type selfRef struct {
	Buf [8]byte
	Cur *byte
}

func TestStruct_SelfAddressToken(t *testing.T) {
	init, err := Struct[selfRef]().
		Put("Buf", Set([8]byte{})).
		Put("Cur", SetWith(func(self Self) (*byte, error) {
			buf := FieldOf[[8]byte](self, "Buf")
			return &buf[0], nil
		})).
		BuildPin()
	if err != nil {
		t.Fatalf("BuildPin failed: %v", err)
	}

	var v selfRef
	if err := PinTo(&v, init); err != nil {
		t.Fatal(err)
	}

	if v.Cur != &v.Buf[0] {
		t.Fatalf("Cur = %p, want %p", v.Cur, &v.Buf[0])
	}
}

func TestStruct_PinTagForcesBuildPin(t *testing.T) {
	type ring struct {
		Head uint64
		Data [4]byte `emplace:"pin"`
	}

	_, err := Struct[ring]().
		Put("Head", Set(uint64(0))).
		Put("Data", Set([4]byte{})).
		Build()
	if err == nil {
		t.Fatal("expected Build to reject pin-tagged struct")
	}

	if _, err := Struct[ring]().
		Put("Head", Set(uint64(0))).
		Put("Data", Set([4]byte{})).
		BuildPin(); err != nil {
		t.Fatalf("BuildPin failed: %v", err)
	}
}

func TestStruct_PinViaForcesBuildPin(t *testing.T) {
	type wrap struct {
		Inner tracked
	}
	rec := &recorder{}

	pin := PinFromClosure(func(slot *tracked) error {
		*slot = tracked{rec: rec, id: "p"}
		return nil
	})

	_, err := Struct[wrap]().Put("Inner", PinVia(pin)).Build()
	if err == nil {
		t.Fatal("expected Build to reject PinVia step")
	}
}

func TestStruct_SingleUse(t *testing.T) {
	type pair struct {
		X uint32
		Y uint32
	}
	init, err := Struct[pair]().
		Put("X", Set(uint32(1))).
		Put("Y", Set(uint32(2))).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	var a, b pair
	if err := To(&a, init); err != nil {
		t.Fatal(err)
	}
	err = To(&b, init)
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindDoubleUse {
		t.Fatalf("expected double_use, got %v", err)
	}
}

func TestStruct_Infallible(t *testing.T) {
	type pair struct {
		X uint32
		Y uint32
	}
	init, err := Struct[pair]().
		Put("X", Set(uint32(1))).
		Put("Y", Set(uint32(2))).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	if !IsInfallible(init) {
		t.Error("all-Set construction should be infallible")
	}

	fallible, err := Struct[pair]().
		Put("X", SetWith(func(Self) (uint32, error) { return 1, nil })).
		Put("Y", Set(uint32(2))).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	if IsInfallible(fallible) {
		t.Error("SetWith construction should not report infallible")
	}
}

func TestTo_NilSlot(t *testing.T) {
	err := To[uint32](nil, FromValue(uint32(1)))
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindNilPointer {
		t.Fatalf("expected nil_pointer, got %v", err)
	}
}
