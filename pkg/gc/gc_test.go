package gc_test

import (
	"testing"

	"github.com/kristofer/stvm/pkg/builtin"
	"github.com/kristofer/stvm/pkg/gc"
	"github.com/kristofer/stvm/pkg/object"
	"github.com/kristofer/stvm/pkg/vm"
	"github.com/stretchr/testify/require"
)

func TestRunReclaimsUnreachableInstances(t *testing.T) {
	bundle := builtin.Bootstrap()
	machine := vm.New(bundle)
	collector := gc.New()

	widget := bundle.Object.Subclass(bundle.Registry.Symb("Widget"), nil, 4)
	machine.RegisterClass(widget)

	dead := widget.NewInstance(bundle.Nil)
	_ = dead

	var used int
	widget.InstancePool().Scan(func(_ *object.Object, u bool) {
		if u {
			used++
		}
	})
	require.Equal(t, 1, used)

	collector.Run(machine)

	used = 0
	widget.InstancePool().Scan(func(_ *object.Object, u bool) {
		if u {
			used++
		}
	})
	require.Equal(t, 0, used, "an instance reachable from nothing must be swept")
}

func TestRunKeepsInstancesReachableFromTheGlobals(t *testing.T) {
	bundle := builtin.Bootstrap()
	machine := vm.New(bundle)
	collector := gc.New()

	arrayClass := bundle.Array
	size := machine.NewInteger(10)
	newColon := bundle.Registry.Symb("new:")
	arr := machine.SendMessage(&arrayClass.Object, newColon, []*object.Object{size})

	atPut := bundle.Registry.Symb("at:put:")
	idx := machine.NewInteger(4)
	machine.SendMessage(arr, atPut, []*object.Object{idx, bundle.TrueObj})

	// Root arr by stashing it in a global, matching how an embedder keeps
	// a reference alive across a GC-safepoint (spec.md §5).
	holder := bundle.Registry.Symb("TheArray")
	bundle.Globals.Set(holder, arr, bundle.Nil)

	collector.Run(machine)

	survivor, ok := bundle.Globals.Get(holder)
	require.True(t, ok)
	require.True(t, survivor == arr)

	at := bundle.Registry.Symb("at:")
	got := machine.SendMessage(survivor, at, []*object.Object{machine.NewInteger(4)})
	require.True(t, got == bundle.TrueObj, "GC must not disturb ivar/array contents of a rooted object")
}

func TestPreservePinsAnObjectAcrossACycle(t *testing.T) {
	bundle := builtin.Bootstrap()
	machine := vm.New(bundle)
	collector := gc.New()

	widget := bundle.Object.Subclass(bundle.Registry.Symb("Widget"), nil, 1)
	machine.RegisterClass(widget)
	inst := widget.NewInstance(bundle.Nil)
	collector.Preserve(inst)

	collector.Run(machine)

	var used int
	widget.InstancePool().Scan(func(_ *object.Object, u bool) {
		if u {
			used++
		}
	})
	require.Equal(t, 1, used, "a preserved object must survive even though nothing roots it")
}

func TestPauseMakesRunANoOp(t *testing.T) {
	bundle := builtin.Bootstrap()
	machine := vm.New(bundle)
	collector := gc.New()
	collector.Pause()
	require.True(t, collector.Paused())

	widget := bundle.Object.Subclass(bundle.Registry.Symb("Widget"), nil, 1)
	machine.RegisterClass(widget)
	widget.NewInstance(bundle.Nil)

	collector.Run(machine)

	var used int
	widget.InstancePool().Scan(func(_ *object.Object, u bool) {
		if u {
			used++
		}
	})
	require.Equal(t, 1, used, "Run must be a no-op while paused")

	collector.Resume()
	collector.Run(machine)
	used = 0
	widget.InstancePool().Scan(func(_ *object.Object, u bool) {
		if u {
			used++
		}
	})
	require.Equal(t, 0, used)
}

func TestSymbolsAndSingletonsAreNeverCollected(t *testing.T) {
	bundle := builtin.Bootstrap()
	machine := vm.New(bundle)
	collector := gc.New()

	foo := bundle.Registry.Symb("a-symbol-nobody-roots")
	collector.Run(machine)

	again := bundle.Registry.Symb("a-symbol-nobody-roots")
	require.True(t, foo == again, "Preserve'd symbols must survive even an aggressive sweep")
	require.True(t, bundle.Nil.Preserved())
}
