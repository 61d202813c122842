package builtin

import "github.com/kristofer/stvm/pkg/object"

var valueSelectorName = "value"

// installBooleanPrimitives installs ifTrue:/ifFalse: on True and False.
// Each sends #value to its sole argument and answers the result on the
// class it matches, nil otherwise — no block *literal* syntax exists in
// this runtime (Non-goal, unchanged), but anything that understands
// #value, block-shaped or not, works as the argument (spec.md §9).
func installBooleanPrimitives(b *Bundle) {
	valueSelector := b.Registry.Symb(valueSelectorName)

	b.True.InstallMethod(b.Registry.Symb("ifTrue:"), object.NewPrimitiveMethod(
		func(rt object.Runtime, self *object.Object, argv []*object.Object) *object.Object {
			return rt.SendMessage(argv[0], valueSelector, nil)
		}, 1))
	b.True.InstallMethod(b.Registry.Symb("ifFalse:"), object.NewPrimitiveMethod(
		func(rt object.Runtime, self *object.Object, argv []*object.Object) *object.Object {
			return rt.Nil()
		}, 1))

	b.False.InstallMethod(b.Registry.Symb("ifTrue:"), object.NewPrimitiveMethod(
		func(rt object.Runtime, self *object.Object, argv []*object.Object) *object.Object {
			return rt.Nil()
		}, 1))
	b.False.InstallMethod(b.Registry.Symb("ifFalse:"), object.NewPrimitiveMethod(
		func(rt object.Runtime, self *object.Object, argv []*object.Object) *object.Object {
			return rt.SendMessage(argv[0], valueSelector, nil)
		}, 1))
}
