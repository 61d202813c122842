package builtin

import "github.com/kristofer/stvm/pkg/object"

// installObjectPrimitives installs the primitives every object responds to
// regardless of its class: new/class/subclass:/
// subclass:instanceVariableNames:classVariableNames:/superclass/==, plus
// Object's own fallback doesNotUnderstand: (spec.md §6.3, §4.5).
func installObjectPrimitives(b *Bundle) {
	root := b.Object

	root.InstallMethod(b.Registry.Symb("new"), object.NewPrimitiveMethod(primNew, 0))
	root.InstallMethod(b.Registry.Symb("class"), object.NewPrimitiveMethod(primClass, 0))
	root.InstallMethod(b.Registry.Symb("subclass:"), object.NewPrimitiveMethod(primSubclass, 1))
	root.InstallMethod(
		b.Registry.Symb("subclass:instanceVariableNames:classVariableNames:"),
		object.NewPrimitiveMethod(primSubclassWithIVars, 3),
	)
	// Supplemental: grounded in original_source/src/smalltalk.c's
	// ST_superclass/ST_class primitives (see SPEC_FULL.md §6.3).
	root.InstallMethod(b.Registry.Symb("superclass"), object.NewPrimitiveMethod(primSuperclass, 0))
	root.InstallMethod(b.Registry.Symb("=="), object.NewPrimitiveMethod(primIdentityEquals, 1))
	root.InstallMethod(b.DoesNotUnderstandSelector, object.NewPrimitiveMethod(primDoesNotUnderstand, 1))
}

func primNew(rt object.Runtime, self *object.Object, argv []*object.Object) *object.Object {
	class := self.AsClass()
	if class == nil {
		return rt.Nil()
	}
	return class.NewInstance(rt.Nil())
}

func primClass(rt object.Runtime, self *object.Object, argv []*object.Object) *object.Object {
	if self.Class == nil {
		return rt.Nil()
	}
	return classAsObject(self.Class)
}

func primSubclass(rt object.Runtime, self *object.Object, argv []*object.Object) *object.Object {
	super := self.AsClass()
	if super == nil {
		return rt.Nil()
	}
	sub := super.Subclass(argv[0], nil, 0)
	rt.RegisterClass(sub)
	return classAsObject(sub)
}

func primSubclassWithIVars(rt object.Runtime, self *object.Object, argv []*object.Object) *object.Object {
	super := self.AsClass()
	if super == nil {
		return rt.Nil()
	}
	var ivarNames []*object.Object
	if arr, ok := argv[1].Payload.([]*object.Object); ok {
		ivarNames = arr
	}
	// argv[2] (classVariableNames) is accepted for call-site compatibility
	// with the original primitive table but this object model has no
	// separate class-variable storage to populate.
	sub := super.Subclass(argv[0], ivarNames, 0)
	rt.RegisterClass(sub)
	return classAsObject(sub)
}

func primSuperclass(rt object.Runtime, self *object.Object, argv []*object.Object) *object.Object {
	class := self.AsClass()
	if class == nil || class.Super == nil {
		return rt.Nil()
	}
	return classAsObject(class.Super)
}

func primIdentityEquals(rt object.Runtime, self *object.Object, argv []*object.Object) *object.Object {
	if self == argv[0] {
		return rt.True()
	}
	return rt.False()
}

// primDoesNotUnderstand is Object's default handler: silently answer nil
// (spec.md §7 tier 1). Subclasses may override it to do anything else.
func primDoesNotUnderstand(rt object.Runtime, self *object.Object, argv []*object.Object) *object.Object {
	return rt.Nil()
}

// classAsObject views a Class through its embedded Object header — Class
// embeds Object as its first field, so this is the same memory the class's
// own Class pointer (the metaclass-free fixpoint) already refers to.
func classAsObject(c *object.Class) *object.Object {
	return &c.Object
}
