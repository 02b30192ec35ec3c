package layout

import (
	"reflect"
	"strings"
	"sync"

	"github.com/wippyai/emplace/errors"
)

// TagKey is the struct tag inspected for field annotations.
//
// Supported values:
//
//	emplace:"pin"    field requires an address-stable initializer
const TagKey = "emplace"

// Field describes one declared field of a compiled struct type.
type Field struct {
	Type   reflect.Type
	Name   string
	Index  int
	Offset uintptr
	Pin    bool
}

// Struct is the compiled per-field descriptor table for a struct type.
// It is immutable after compilation and safe for concurrent use.
type Struct struct {
	Type   reflect.Type
	byName map[string]int
	Fields []Field
	Size   uintptr
	Align  uintptr
}

var cache sync.Map // reflect.Type -> *Struct

// Compile produces the field descriptor table for t. Results are cached;
// repeated calls for the same type return the same *Struct.
//
// The initialization protocol trusts this table to be consistent with the
// type's real memory layout, so offsets come straight from reflect and are
// never adjusted.
func Compile(t reflect.Type) (*Struct, error) {
	if t == nil {
		return nil, errors.New(errors.PhaseCompile, errors.KindNilPointer).
			Detail("type cannot be nil").
			Build()
	}
	if t.Kind() != reflect.Struct {
		return nil, errors.New(errors.PhaseCompile, errors.KindNotStruct).
			GoType(t.String()).
			Detail("in-place field construction requires a struct type").
			Build()
	}

	if cached, ok := cache.Load(t); ok {
		return cached.(*Struct), nil
	}

	s := &Struct{
		Type:   t,
		Size:   t.Size(),
		Align:  uintptr(t.Align()),
		Fields: make([]Field, 0, t.NumField()),
		byName: make(map[string]int, t.NumField()),
	}

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		f := Field{
			Name:   sf.Name,
			Index:  i,
			Offset: sf.Offset,
			Type:   sf.Type,
			Pin:    hasTag(sf, "pin"),
		}
		s.byName[f.Name] = len(s.Fields)
		s.Fields = append(s.Fields, f)
	}

	actual, _ := cache.LoadOrStore(t, s)
	return actual.(*Struct), nil
}

// MustCompile is like Compile but panics on error. Intended for package-level
// descriptor variables of known struct types.
func MustCompile(t reflect.Type) *Struct {
	s, err := Compile(t)
	if err != nil {
		panic(err)
	}
	return s
}

// Field returns the descriptor for the named field.
func (s *Struct) Field(name string) (Field, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Field{}, false
	}
	return s.Fields[i], true
}

// NumFields returns the number of declared fields.
func (s *Struct) NumFields() int {
	return len(s.Fields)
}

// HasPinned reports whether any field carries the pin annotation.
func (s *Struct) HasPinned() bool {
	for _, f := range s.Fields {
		if f.Pin {
			return true
		}
	}
	return false
}

func hasTag(sf reflect.StructField, want string) bool {
	tag, ok := sf.Tag.Lookup(TagKey)
	if !ok {
		return false
	}
	for _, part := range strings.Split(tag, ",") {
		if strings.TrimSpace(part) == want {
			return true
		}
	}
	return false
}
