package bytecode

import "github.com/kristofer/stvm/pkg/object"

// Code is an immutable triple: a symbol table of interned Symbol objects, a
// byte sequence of instructions, and its length (spec.md §3).
type Code struct {
	SymbTab      []*object.Object
	Instructions []byte
	Length       int
}
