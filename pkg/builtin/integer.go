package builtin

import "github.com/kristofer/stvm/pkg/object"

// installIntegerPrimitives installs the four arithmetic operators plus
// rawGet/rawSet: (spec.md §6.3). rawGet/rawSet: expose the boxed int32
// payload directly, bypassing arithmetic, for hosts that want to read or
// mutate an Integer instance in place rather than allocate a fresh one.
func installIntegerPrimitives(b *Bundle) {
	install := func(name string, fn func(a, c int32) int32) {
		sel := b.Registry.Symb(name)
		b.Integer.InstallMethod(sel, object.NewPrimitiveMethod(
			func(rt object.Runtime, self *object.Object, argv []*object.Object) *object.Object {
				a, ok := self.Payload.(int32)
				if !ok {
					return rt.Nil()
				}
				c, ok := argv[0].Payload.(int32)
				if !ok {
					return rt.Nil()
				}
				return rt.NewInteger(fn(a, c))
			}, 1))
	}

	install("+", func(a, c int32) int32 { return a + c })
	install("-", func(a, c int32) int32 { return a - c })
	install("*", func(a, c int32) int32 { return a * c })
	b.Integer.InstallMethod(b.Registry.Symb("/"), object.NewPrimitiveMethod(primIntegerDivide, 1))

	b.Integer.InstallMethod(b.Registry.Symb("rawGet"), object.NewPrimitiveMethod(primIntegerRawGet, 0))
	b.Integer.InstallMethod(b.Registry.Symb("rawSet:"), object.NewPrimitiveMethod(primIntegerRawSet, 1))
}

func primIntegerDivide(rt object.Runtime, self *object.Object, argv []*object.Object) *object.Object {
	a, ok := self.Payload.(int32)
	if !ok {
		return rt.Nil()
	}
	c, ok := argv[0].Payload.(int32)
	if !ok || c == 0 {
		return rt.Nil()
	}
	return rt.NewInteger(a / c)
}

func primIntegerRawGet(rt object.Runtime, self *object.Object, argv []*object.Object) *object.Object {
	return self
}

func primIntegerRawSet(rt object.Runtime, self *object.Object, argv []*object.Object) *object.Object {
	v, ok := argv[0].Payload.(int32)
	if !ok {
		return rt.Nil()
	}
	self.Payload = v
	return self
}
