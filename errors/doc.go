// Package errors provides structured error types for the emplace library.
//
// Errors are categorized by Phase (where in the construction pipeline the
// error occurred) and Kind (error category). The Error type includes rich
// context: field path, Go type name, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseInit, errors.KindFieldInit).
//		Path("conn", "buf").
//		GoType("*ring.Buffer").
//		Detail("buffer size must be a power of two").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.FieldMissing("Conn", "buf")
//	err := errors.AllocationFailed("Conn", 4096)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
