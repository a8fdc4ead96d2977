package silo

import "unsafe"

// ptrTo is a tiny generic helper so tests can hand a Go pointer to
// TypeInfo.Move/Drop/Clone without repeating the unsafe.Pointer cast.
func ptrTo[T any](v *T) unsafe.Pointer { return unsafe.Pointer(v) }
