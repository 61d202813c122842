// Package builtin constructs the fixed class hierarchy and primitive
// methods every runtime instance starts from: Object, Symbol,
// UndefinedObject, Boolean/True/False, Integer, Array, and
// MessageNotUnderstood (spec.md §6.3).
//
// Bootstrap depends only on pkg/object — never on pkg/vm or pkg/bytecode —
// so that the VM can depend on builtin instead of the other way around.
// Every primitive method closure here accepts an object.Runtime parameter
// at call time rather than capturing one at bootstrap time, which is what
// keeps this package free of any import on the package that will eventually
// implement Runtime.
package builtin

import "github.com/kristofer/stvm/pkg/object"

// Bundle holds every class and singleton a fresh runtime needs, plus the
// global scope and symbol registry built alongside them. pkg/vm and
// pkg/context hold a *Bundle for the lifetime of a runtime instance.
type Bundle struct {
	Object              *object.Class
	Symbol              *object.Class
	UndefinedObject     *object.Class
	Boolean             *object.Class
	True                *object.Class
	False               *object.Class
	Integer             *object.Class
	Array               *object.Class
	MessageNotUnderstood *object.Class

	Nil       *object.Object
	TrueObj   *object.Object
	FalseObj  *object.Object

	Registry *object.SymbolRegistry
	Globals  *object.GlobalScope

	DoesNotUnderstandSelector *object.Object
}

// Bootstrap builds a fresh class hierarchy and returns the Bundle wired
// with every required primitive method installed (spec.md §6.3).
func Bootstrap() *Bundle {
	root := object.NewRootClass(8)

	b := &Bundle{Object: root}
	b.Symbol = root.Subclass(nil, nil, 256)
	b.Registry = object.NewSymbolRegistry(b.Symbol)
	b.Globals = object.NewGlobalScope()

	b.Symbol.Name = b.Registry.Symb("Symbol")
	root.Name = b.Registry.Symb("Object")

	b.UndefinedObject = root.Subclass(b.Registry.Symb("UndefinedObject"), nil, 1)
	b.Boolean = root.Subclass(b.Registry.Symb("Boolean"), nil, 0)
	b.True = b.Boolean.Subclass(b.Registry.Symb("True"), nil, 1)
	b.False = b.Boolean.Subclass(b.Registry.Symb("False"), nil, 1)
	b.Integer = root.Subclass(b.Registry.Symb("Integer"), nil, 256)
	b.Array = root.Subclass(b.Registry.Symb("Array"), nil, 64)
	b.MessageNotUnderstood = root.Subclass(
		b.Registry.Symb("MessageNotUnderstood"),
		[]*object.Object{b.Registry.Symb("receiver"), b.Registry.Symb("selector"), b.Registry.Symb("args")},
		16,
	)

	b.Nil = b.UndefinedObject.NewInstance(nil)
	b.Nil.SetPreserved(true)
	b.TrueObj = b.True.NewInstance(b.Nil)
	b.TrueObj.SetPreserved(true)
	b.FalseObj = b.False.NewInstance(b.Nil)
	b.FalseObj.SetPreserved(true)

	b.DoesNotUnderstandSelector = b.Registry.Symb("doesNotUnderstand:")

	installObjectPrimitives(b)
	installBooleanPrimitives(b)
	installIntegerPrimitives(b)
	installArrayPrimitives(b)

	return b
}
