package builtin

import "github.com/kristofer/stvm/pkg/object"

// installArrayPrimitives installs new:/at:/at:put:/length (spec.md §6.3).
// Array's Payload is a []*object.Object; indices are 0-based, matching the
// instance-variable indexing of GETIVAR/SETIVAR, and an index outside
// 0..length-1 answers nil.
func installArrayPrimitives(b *Bundle) {
	b.Array.InstallMethod(b.Registry.Symb("new:"), object.NewPrimitiveMethod(primArrayNew, 1))
	b.Array.InstallMethod(b.Registry.Symb("at:"), object.NewPrimitiveMethod(primArrayAt, 1))
	b.Array.InstallMethod(b.Registry.Symb("at:put:"), object.NewPrimitiveMethod(primArrayAtPut, 2))
	b.Array.InstallMethod(b.Registry.Symb("length"), object.NewPrimitiveMethod(primArrayLength, 0))
}

func primArrayNew(rt object.Runtime, self *object.Object, argv []*object.Object) *object.Object {
	class := self.AsClass()
	if class == nil {
		return rt.Nil()
	}
	size, ok := argv[0].Payload.(int32)
	if !ok || size < 0 {
		return rt.Nil()
	}
	inst := class.NewInstance(rt.Nil())
	elems := make([]*object.Object, size)
	nilObj := rt.Nil()
	for i := range elems {
		elems[i] = nilObj
	}
	inst.Payload = elems
	return inst
}

func primArrayAt(rt object.Runtime, self *object.Object, argv []*object.Object) *object.Object {
	elems, ok := self.Payload.([]*object.Object)
	if !ok {
		return rt.Nil()
	}
	idx, ok := argv[0].Payload.(int32)
	if !ok || idx < 0 || int(idx) >= len(elems) {
		return rt.Nil()
	}
	return elems[idx]
}

func primArrayAtPut(rt object.Runtime, self *object.Object, argv []*object.Object) *object.Object {
	elems, ok := self.Payload.([]*object.Object)
	if !ok {
		return rt.Nil()
	}
	idx, ok := argv[0].Payload.(int32)
	if !ok || idx < 0 || int(idx) >= len(elems) {
		return rt.Nil()
	}
	elems[idx] = argv[1]
	return argv[1]
}

func primArrayLength(rt object.Runtime, self *object.Object, argv []*object.Object) *object.Object {
	elems, ok := self.Payload.([]*object.Object)
	if !ok {
		return rt.NewInteger(0)
	}
	return rt.NewInteger(int32(len(elems)))
}
