package vm_test

import (
	"encoding/binary"
	"testing"

	"github.com/kristofer/stvm/pkg/builtin"
	"github.com/kristofer/stvm/pkg/bytecode"
	"github.com/kristofer/stvm/pkg/object"
	"github.com/kristofer/stvm/pkg/vm"
	"github.com/stretchr/testify/require"
)

func u16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func TestExecutePushNilReturnsNilSingleton(t *testing.T) {
	bundle := builtin.Bootstrap()
	machine := vm.New(bundle)

	code := &bytecode.Code{Instructions: []byte{byte(bytecode.OpPushNil), byte(bytecode.OpReturn)}}
	result := machine.Execute(code)
	require.True(t, result == bundle.Nil)
}

func TestExecuteIntegerArithmeticViaSendMessage(t *testing.T) {
	bundle := builtin.Bootstrap()
	machine := vm.New(bundle)

	plus := bundle.Registry.Symb("+")
	a := machine.NewInteger(19)
	b := machine.NewInteger(23)

	result := machine.SendMessage(a, plus, []*object.Object{b})
	require.Equal(t, int32(42), result.Payload)
}

func TestExecuteSetGlobalNilAndGetGlobal(t *testing.T) {
	bundle := builtin.Bootstrap()
	machine := vm.New(bundle)

	fortyTwo := bundle.Registry.Symb("FortyTwo")
	var instructions []byte
	instructions = append(instructions, byte(bytecode.OpPushNil))
	instructions = append(instructions, byte(bytecode.OpSetGlobal))
	instructions = append(instructions, u16(0)...)
	instructions = append(instructions, byte(bytecode.OpGetGlobal))
	instructions = append(instructions, u16(0)...)
	instructions = append(instructions, byte(bytecode.OpReturn))

	code := &bytecode.Code{
		SymbTab:      []*object.Object{fortyTwo},
		Instructions: instructions,
	}

	result := machine.Execute(code)
	require.True(t, result == bundle.Nil)
	_, ok := bundle.Globals.Get(fortyTwo)
	require.False(t, ok, "assigning nil must remove the global binding")
}

func TestExecuteUnknownSelectorDeliversDoesNotUnderstand(t *testing.T) {
	bundle := builtin.Bootstrap()
	machine := vm.New(bundle)

	mystery := bundle.Registry.Symb("mysteryUnaryMessage")
	result := machine.SendMessage(bundle.Nil, mystery, nil)
	require.True(t, result == bundle.Nil, "Object's default doesNotUnderstand: answers nil")
}

func TestExecuteSubclassAndNewViaSendMessage(t *testing.T) {
	bundle := builtin.Bootstrap()
	machine := vm.New(bundle)

	newSelector := bundle.Registry.Symb("new")
	pointName := bundle.Registry.Symb("Point")
	subclassSelector := bundle.Registry.Symb("subclass:")

	rootAsObject := &bundle.Object.Object
	newClassAsObject := machine.SendMessage(rootAsObject, subclassSelector, []*object.Object{pointName})
	require.NotNil(t, newClassAsObject.AsClass())

	instance := machine.SendMessage(newClassAsObject, newSelector, nil)
	require.NotNil(t, instance)
	require.True(t, instance.Class == newClassAsObject.AsClass())
}

