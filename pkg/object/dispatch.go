package object

import "github.com/kristofer/stvm/pkg/bst"

// MethodKind distinguishes a primitive (host-implemented) method from a
// compiled (bytecode) one.
type MethodKind int

const (
	MethodPrimitive MethodKind = iota
	MethodCompiled
)

// Runtime is the minimal execution surface a primitive method needs. It is
// implemented by pkg/vm's VM, which pkg/context's Context wraps —
// defining it here, rather than importing the vm package, is what keeps
// pkg/object free of any dependency on the bytecode/VM layer while still
// letting primitives send messages, allocate integers, and reach the
// nil/true/false singletons.
type Runtime interface {
	SendMessage(receiver *Object, selector *Object, argv []*Object) *Object
	Nil() *Object
	True() *Object
	False() *Object
	NewInteger(v int32) *Object
	Symb(name string) *Object
	// RegisterClass records a class created at runtime (via subclass:) so
	// the collector can find its instance pool during a sweep — classes
	// allocated outside Bootstrap are not reachable from any fixed Bundle
	// field, only from whatever global or ivar slot holds onto them.
	RegisterClass(c *Class)
}

// PrimitiveFunc is a host-implemented method body.
type PrimitiveFunc func(rt Runtime, self *Object, argv []*Object) *Object

// CompiledRef is an opaque handle to a compiled method's code and entry
// offset. pkg/vm constructs these; pkg/object never looks inside one,
// which is what lets this package avoid importing pkg/bytecode (which in
// turn imports pkg/object to intern symbols) without a cycle.
type CompiledRef struct {
	Code   any // *bytecode.Code, opaque here
	Offset int
}

// Method is a tagged sum: either a primitive or a compiled method, plus its
// declared argument count.
type Method struct {
	Kind      MethodKind
	Argc      int
	Primitive PrimitiveFunc
	Compiled  CompiledRef
}

// NewPrimitiveMethod builds a primitive Method record.
func NewPrimitiveMethod(fn PrimitiveFunc, argc int) *Method {
	return &Method{Kind: MethodPrimitive, Primitive: fn, Argc: argc}
}

// NewCompiledMethod builds a compiled Method record.
func NewCompiledMethod(ref CompiledRef, argc int) *Method {
	return &Method{Kind: MethodCompiled, Compiled: ref, Argc: argc}
}

// methodTree is the intrusive BST backing one class's method table, keyed
// by selector identity.
type methodTree struct {
	tree *bst.Tree[*Object, *Method]
}

func newMethodTree() *methodTree {
	return &methodTree{tree: bst.New[*Object, *Method](func(a, b *Object) bst.Cmp {
		return bst.Cmp(compareIdentity(a, b))
	})}
}

// InstallMethod installs fn under selector on class c, replacing any
// existing entry for that selector (spec.md §9: duplicate installs are
// replace-latest-wins). Splays the selector to the root afterward, matching
// the "splay after hot writes" policy used for lookups.
func (c *Class) InstallMethod(selector *Object, m *Method) {
	c.methods.tree.Set(selector, m)
	c.methods.tree.Splay(selector)
}

// LookupMethod walks c's super chain looking for selector, returning the
// method and the class it was found on (useful for super-sends, which
// resume the walk starting at that class's Super). Returns (nil, nil) on a
// total miss.
func LookupMethod(c *Class, selector *Object) (*Method, *Class) {
	for class := c; class != nil; class = class.Super {
		if m, ok := class.methods.tree.Find(selector); ok {
			class.methods.tree.Splay(selector)
			return m, class
		}
	}
	return nil, nil
}
