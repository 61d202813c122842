package pool

import "unsafe"

// unsafeAddr reinterprets a pointer to a Slot's first field (Value) back
// into a pointer to the enclosing Slot. This is the one place the package
// relies on the language-guaranteed rule that a struct and its first field
// share an address; it is never used to dereference memory this package
// did not itself allocate.
func unsafeAddr[T any](v *T) unsafe.Pointer {
	return unsafe.Pointer(v)
}
