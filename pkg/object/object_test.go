package object_test

import (
	"testing"

	"github.com/kristofer/stvm/pkg/object"
	"github.com/stretchr/testify/require"
)

// bootstrapMinimal builds just enough of the class hierarchy to exercise
// object.go/dispatch.go/symbol.go/globals.go in isolation, without pulling
// in pkg/builtin and its primitive methods.
func bootstrapMinimal(t *testing.T) (*object.Class, *object.SymbolRegistry) {
	t.Helper()
	root := object.NewRootClass(32)
	symbolClass := root.Subclass(nil, nil, 64)
	registry := object.NewSymbolRegistry(symbolClass)
	return root, registry
}

func TestSymbolIdentity(t *testing.T) {
	_, registry := bootstrapMinimal(t)
	foo1 := registry.Symb("foo")
	foo2 := registry.Symb("foo")
	bar := registry.Symb("bar")

	require.True(t, foo1 == foo2)
	require.False(t, foo1 == bar)

	name, ok := registry.ToString(foo1)
	require.True(t, ok)
	require.Equal(t, "foo", name)
}

func TestSubclassAndInstantiate(t *testing.T) {
	root, registry := bootstrapMinimal(t)
	nameSym := registry.Symb("Widget")
	widget := root.Subclass(nameSym, nil, 8)
	require.True(t, widget.Super == root)

	nilObj := &object.Object{}
	inst := widget.NewInstance(nilObj)
	require.True(t, inst.Class == widget)
}

func TestIVarBoundsContract(t *testing.T) {
	root, registry := bootstrapMinimal(t)
	xSym := registry.Symb("x")
	widget := root.Subclass(registry.Symb("Widget"), []*object.Object{xSym}, 8)
	nilObj := &object.Object{}
	inst := widget.NewInstance(nilObj)

	require.Equal(t, 1, widget.IVarCount())

	_, err := object.GetIVar(inst, 0)
	require.NoError(t, err)
	_, err = object.GetIVar(inst, 1)
	require.Error(t, err)
	_, err = object.GetIVar(inst, -1)
	require.Error(t, err)
}

func TestGlobalScopeSetAndNilRemoves(t *testing.T) {
	_, registry := bootstrapMinimal(t)
	scope := object.NewGlobalScope()
	nilObj := &object.Object{}
	sym := registry.Symb("X")
	val := &object.Object{}

	scope.Set(sym, val, nilObj)
	got, ok := scope.Get(sym)
	require.True(t, ok)
	require.True(t, got == val)

	scope.Set(sym, nilObj, nilObj)
	_, ok = scope.Get(sym)
	require.False(t, ok)
}

func TestMethodLookupWalksSuperChain(t *testing.T) {
	root, registry := bootstrapMinimal(t)
	mid := root.Subclass(registry.Symb("Mid"), nil, 8)
	leaf := mid.Subclass(registry.Symb("Leaf"), nil, 8)

	sel := registry.Symb("blah")
	want := object.NewPrimitiveMethod(func(rt object.Runtime, self *object.Object, argv []*object.Object) *object.Object {
		return nil
	}, 0)
	mid.InstallMethod(sel, want)

	got, foundOn := object.LookupMethod(leaf, sel)
	require.NotNil(t, got)
	require.True(t, foundOn == mid)
	require.True(t, got == want)
}

func TestDuplicateMethodInstallReplacesLatestWins(t *testing.T) {
	root, registry := bootstrapMinimal(t)
	sel := registry.Symb("blah")
	first := object.NewPrimitiveMethod(func(object.Runtime, *object.Object, []*object.Object) *object.Object { return nil }, 0)
	second := object.NewPrimitiveMethod(func(object.Runtime, *object.Object, []*object.Object) *object.Object { return nil }, 0)

	root.InstallMethod(sel, first)
	root.InstallMethod(sel, second)

	got, _ := object.LookupMethod(root, sel)
	require.True(t, got == second)
}
