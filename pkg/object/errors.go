package object

import "golang.org/x/xerrors"

// ErrIVarOutOfBounds is the sentinel wrapped by GetIVar/SetIVar bounds
// failures, so callers can xerrors.Is against it instead of matching
// strings.
var ErrIVarOutOfBounds = xerrors.New("object: ivar index out of bounds")

func errIVarBounds(i, count int) error {
	return xerrors.Errorf("ivar %d (have %d): %w", i, count, ErrIVarOutOfBounds)
}

// ErrDuplicateSymbol names a duplicate symbol-registry entry. No function
// in this package returns it: SymbolRegistry.Symb installs new entries
// with the BST's Set, which cannot report a collision.
var ErrDuplicateSymbol = xerrors.New("object: duplicate symbol registry entry")
