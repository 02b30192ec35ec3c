// Package emplace provides in-place, fallible construction of Go values.
//
// A value is built field by field directly inside caller-supplied storage,
// with automatic, ordered rollback if any step fails. This matters when a
// value is large, contains fields that point at sibling fields, or must hand
// its address to external code before construction finishes and can never
// relocate afterwards (address-stable construction).
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	emplace/             Root package: initializer contracts, field protocol,
//	│                    combinators, zero-valid marker, destruction engine
//	├── layout/          Reflect-based per-field descriptor compilation
//	├── errors/          Structured error types for debugging
//	└── container/       Owning handles: Box, Pinned, Arc, Slice
//
// # Quick Start
//
// Describe a construction with the Struct builder, then run it inside an
// owning handle:
//
//	type Conn struct {
//	    ID  uint64
//	    Buf []byte `emplace:"pin"`
//	}
//
//	init, err := emplace.Struct[Conn]().
//	    Put("ID", emplace.Set(uint64(7))).
//	    Put("Buf", emplace.Set(make([]byte, 4096))).
//	    BuildPin()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	conn, err := container.NewPinned(init)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Close()
//
// # Construction Protocol
//
// An initializer receives a slot: storage sized and aligned for exactly one
// value, holding no valid value yet. The initializer either fully constructs
// the value (every field written exactly once, in the listed order) or fully
// rolls back: already-constructed fields have their destructors run in
// reverse order and the slot returns to deallocatable raw storage with no
// destructor owed. No partially-built value is ever observable outside the
// protocol.
//
// Movable initializers (Init) permit the finished value to be copied out of
// its slot. Address-stable initializers (PinInit) promise the finished
// value's address never changes again short of destruction; every movable
// initializer is also usable as an address-stable one, not vice versa.
//
// # Destruction
//
// A type participates in rollback and handle teardown by implementing
// Destroyer. Address-stable types implement PinnedDestroyer instead; its
// DropToken parameter can only be produced by this module's own teardown
// paths, so the pinned destructor is never callable from arbitrary code.
package emplace
