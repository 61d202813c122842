package object

import "unsafe"

// compareIdentity orders two Object pointers by address. Go pointers
// compare for equality natively; this adds the total order the intrusive
// BST needs to index the method table and global scope by selector/symbol
// identity, exactly as spec.md §4.5 specifies ("keyed by selector
// identity (pointer comparison)"). It is read-only pointer arithmetic used
// purely for ordering — never for dereferencing relocated memory, and Go's
// current (non-moving) garbage collector keeps these addresses stable for
// the object's lifetime.
func compareIdentity(a, b *Object) int {
	pa := uintptr(unsafe.Pointer(a))
	pb := uintptr(unsafe.Pointer(b))
	switch {
	case pa < pb:
		return -1
	case pa > pb:
		return 1
	default:
		return 0
	}
}
