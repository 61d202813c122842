package object

import "github.com/kristofer/stvm/pkg/bst"

// GlobalScope is the ordered map from Symbol to Object, keyed by Symbol
// identity (spec.md §3).
type GlobalScope struct {
	tree *bst.Tree[*Object, *Object]
}

// NewGlobalScope creates an empty global scope.
func NewGlobalScope() *GlobalScope {
	return &GlobalScope{tree: bst.New[*Object, *Object](func(a, b *Object) bst.Cmp {
		return bst.Cmp(compareIdentity(a, b))
	})}
}

// Get returns the value bound to sym, or (nil, false) if absent. Per
// spec.md §7, an absent global is not an error — callers default to nil.
func (g *GlobalScope) Get(sym *Object) (*Object, bool) {
	v, ok := g.tree.Find(sym)
	if ok {
		g.tree.Splay(sym)
	}
	return v, ok
}

// Set binds sym to value, or — if value is the nilValue singleton (or a Go
// nil pointer) — removes the binding entirely (spec.md §7: "setting a
// global to nil removes it from the map"). Callers pass their Context's nil
// singleton so this package never needs to know which instance plays that
// role.
func (g *GlobalScope) Set(sym *Object, value *Object, nilValue *Object) {
	if value == nil || value == nilValue {
		g.tree.Remove(sym)
		return
	}
	g.tree.Set(sym, value)
}

// Each visits every global binding in symbol-identity order. Used by the GC
// to walk the root set.
func (g *GlobalScope) Each(visit func(sym, value *Object)) {
	g.tree.InOrder(visit)
}
