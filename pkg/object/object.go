// Package object implements the object model and class hierarchy: the shape
// of live objects, the metaclass bootstrap, method tables, and
// instance-variable layout. It also hosts the symbol registry and the pure
// (non-executing) half of message dispatch — method-table lookup — since
// both the BST-backed method table and the symbol registry are data
// structures this package owns outright.
//
// Running a resolved method is the Dispatch component's job; this package
// only ever returns a *Method, never invokes one, so it never needs to know
// about the bytecode VM. See pkg/vm for the half of dispatch that executes.
package object

import "github.com/kristofer/stvm/pkg/pool"

// GCMask holds the garbage collector's per-object bits.
type GCMask uint8

const (
	// Marked is set during the mark phase of a collection cycle and
	// cleared again by the sweep for every surviving instance in a swept
	// pool. Class values live in no swept pool, so a class that has been
	// marked keeps the bit set between cycles.
	Marked GCMask = 1 << iota
	// Preserve pins an object against collection forever: symbols, the
	// nil/true/false singletons, and bootstrap classes all carry it.
	Preserve
)

// Object is the universal value. Every object carries a class pointer and a
// GC mask; ordinary instances also carry an inline array of instance
// variable slots. Payload carries the native backing value a handful of
// built-in shapes need beside (or instead of) ordinary ivars: Integer's
// boxed int32, Array's element slice, and Symbol's source string. See
// SPEC_FULL.md §3 for why this
// stands in for literal byte-level instance layout.
type Object struct {
	Class   *Class
	gc      GCMask
	IVars   []*Object
	Payload any
	asClass *Class
}

// AsClass returns the Class this object actually is, if it is one — i.e.
// receivers coming off the operand stack as a generic *Object can recover
// their concrete *Class without a type assertion, since Class embeds
// Object by value rather than by pointer. Returns nil for ordinary
// instances.
func (o *Object) AsClass() *Class {
	return o.asClass
}

// Marked reports whether the GC has marked this object live in the current
// cycle.
func (o *Object) Marked() bool { return o.gc&Marked != 0 }

// SetMarked sets or clears the Marked bit.
func (o *Object) SetMarked(v bool) {
	if v {
		o.gc |= Marked
	} else {
		o.gc &^= Marked
	}
}

// Preserved reports whether this object is pinned against collection.
func (o *Object) Preserved() bool { return o.gc&Preserve != 0 }

// SetPreserved sets or clears the Preserve bit (GC_preserve/GC_release).
func (o *Object) SetPreserved(v bool) {
	if v {
		o.gc |= Preserve
	} else {
		o.gc &^= Preserve
	}
}

// Class is a subtype of Object whose own Class pointer refers to itself at
// the bootstrap root (Object's class-of-itself fixpoint), and to a shared
// metaclass-free sentinel for every other class — dispatch and "is this a
// class" checks alike only ever need to compare against that one root, never
// walk a parallel metaclass hierarchy (spec.md §9 Design Notes).
type Class struct {
	Object
	Super         *Class
	Name          *Object // a Symbol
	IVarNames     []*Object
	ivarCount     int
	methods       *methodTree
	instancePool  *pool.Pool[Object]
	finalizer     func(*Object)
}

// IVarCount is the number of instance variable slots every instance of this
// class (including inherited ones) carries.
func (c *Class) IVarCount() int { return c.ivarCount }

// InstanceSize reports the simulated per-instance footprint, preserving the
// spec's invariant "instanceSize >= header_size + ivarCount*slot_size" at
// the semantic level: headerSize and slotSize are documented constants
// standing in for the Go runtime's actual pointer/header sizes.
const (
	headerSize = 16 // class pointer + GC mask, word-aligned
	slotSize   = 8  // one Object reference
)

func (c *Class) InstanceSize() int {
	return headerSize + c.ivarCount*slotSize
}

// NewRootClass builds the single self-referential class used only for the
// bootstrap "Object" class: its own Class field points at itself, and Super
// is nil — the one and only nil super in the whole hierarchy.
func NewRootClass(instancePoolSize int) *Class {
	c := &Class{}
	c.Class = c
	c.Super = nil
	c.ivarCount = 0
	c.methods = newMethodTree()
	c.instancePool = pool.New[Object](instancePoolSize)
	c.SetPreserved(true)
	c.asClass = c
	return c
}

// Subclass allocates a new Class inheriting from super: it copies super's
// ivar count, appends the newly declared ivar names, computes the instance
// size, and starts with an empty method table. The new class's own Class
// pointer is set to super's Class pointer (i.e. the same shared bootstrap
// "class of a class" value super itself carries) so `newClass.Class ==
// someOtherClass.Class` for every ordinary class in the system, and only
// the root satisfies `object.Class == object`.
func (super *Class) Subclass(name *Object, addedIVarNames []*Object, initialInstances int) *Class {
	sub := &Class{}
	sub.Class = super.Class
	sub.Super = super
	sub.Name = name
	sub.ivarCount = super.ivarCount + len(addedIVarNames)
	sub.IVarNames = append(append([]*Object{}, super.IVarNames...), addedIVarNames...)
	sub.methods = newMethodTree()
	if initialInstances <= 0 {
		initialInstances = 32
	}
	sub.instancePool = pool.New[Object](initialInstances)
	sub.asClass = sub
	return sub
}

// IsClass reports whether c satisfies the fixpoint c.Class == c, which
// holds only for the bootstrap root; it answers false for every other
// class. Callers that hold an *Object and need to know "is this really a
// class" use AsClass instead, which is non-nil for every *Class.
func (c *Class) IsClass() bool { return c.Class == c }

// NewInstance allocates a fresh instance of c: a slot from the shape's
// instance pool, a zeroed GC mask, and every ivar slot initialized to nil.
func (c *Class) NewInstance(nilValue *Object) *Object {
	inst := c.instancePool.Alloc()
	inst.Class = c
	inst.IVars = make([]*Object, c.ivarCount)
	for i := range inst.IVars {
		inst.IVars[i] = nilValue
	}
	return inst
}

// InstancePool exposes the class's shape pool for the GC sweep.
func (c *Class) InstancePool() *pool.Pool[Object] { return c.instancePool }

// SetFinalizer installs a function the GC invokes just before an instance's
// slot is returned to the freelist.
func (c *Class) SetFinalizer(fn func(*Object)) { c.finalizer = fn }

// Finalizer returns the class's finalizer, or nil.
func (c *Class) Finalizer() func(*Object) { return c.finalizer }

// GetIVar reads instance variable i off obj, enforcing the strict contract
// "i < ivarCount, else error" (spec.md §9 resolves the original's ambiguous
// bounds check in favor of this reading).
func GetIVar(obj *Object, i int) (*Object, error) {
	if i < 0 || i >= len(obj.IVars) {
		return nil, errIVarBounds(i, len(obj.IVars))
	}
	return obj.IVars[i], nil
}

// SetIVar writes instance variable i on obj, with the same bounds contract
// as GetIVar.
func SetIVar(obj *Object, i int, v *Object) error {
	if i < 0 || i >= len(obj.IVars) {
		return errIVarBounds(i, len(obj.IVars))
	}
	obj.IVars[i] = v
	return nil
}
