package object

import (
	"strings"

	"github.com/kristofer/stvm/pkg/bst"
)

// SymbolRegistry interns source-level identifier strings into unique Symbol
// object identities: a miss allocates one Symbol instance, marks it
// Preserve (symbols are never collected), and remembers the mapping so a
// later request for the same string returns the same *Object.
type SymbolRegistry struct {
	symbolClass *Class
	byName      *bst.Tree[string, *Object]
}

// NewSymbolRegistry creates an empty registry that mints new symbols as
// instances of symbolClass.
func NewSymbolRegistry(symbolClass *Class) *SymbolRegistry {
	return &SymbolRegistry{
		symbolClass: symbolClass,
		byName:      bst.New[string, *Object](func(a, b string) bst.Cmp { return bst.Cmp(strings.Compare(a, b)) }),
	}
}

// Symb interns name, returning the unique Symbol object for it.
func (r *SymbolRegistry) Symb(name string) *Object {
	if sym, ok := r.byName.Find(name); ok {
		return sym
	}
	sym := r.symbolClass.instancePool.Alloc()
	sym.Class = r.symbolClass
	sym.Payload = name
	sym.SetPreserved(true)
	r.byName.Set(name, sym)
	return sym
}

// ToString reverse-looks-up the source string for a Symbol, used only for
// diagnostics (printing). Symbol objects also cache their own name in
// Payload, so this is equivalent to a type assertion for any symbol this
// registry actually minted; it is kept as a registry-driven search for
// parity with the original's tree-recursive ST_Symbol_toString, and as a
// defensive fallback for foreign symbol-shaped objects.
func (r *SymbolRegistry) ToString(sym *Object) (string, bool) {
	if name, ok := sym.Payload.(string); ok {
		return name, true
	}
	found := ""
	ok := false
	r.byName.InOrder(func(name string, obj *Object) {
		if obj == sym {
			found = name
			ok = true
		}
	})
	return found, ok
}
