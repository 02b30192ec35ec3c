// Package layout compiles per-field descriptor tables for struct types.
//
// The emplace field-construction protocol consumes these tables to order
// field steps, verify completeness, and compute field addresses inside an
// uninitialized slot. Compilation is reflect-based and cached per type:
//
//	desc, err := layout.Compile(reflect.TypeOf(Conn{}))
//	for _, f := range desc.Fields {
//	    fmt.Println(f.Name, f.Offset, f.Pin)
//	}
//
// Fields annotated with the `emplace:"pin"` struct tag are address-sensitive:
// their construction step must be an address-stable initializer, and the
// resulting struct initializer is itself address-stable only.
package layout
