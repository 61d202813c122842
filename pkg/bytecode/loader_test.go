package bytecode_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/kristofer/stvm/pkg/bytecode"
	"github.com/kristofer/stvm/pkg/object"
	"github.com/stretchr/testify/require"
)

func newRegistry() *object.SymbolRegistry {
	root := object.NewRootClass(8)
	symbolClass := root.Subclass(nil, nil, 64)
	return object.NewSymbolRegistry(symbolClass)
}

func u16le(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func buildBlob(symbols []string, instructions []byte) []byte {
	var buf bytes.Buffer
	for _, s := range symbols {
		buf.WriteString(s)
		buf.WriteByte(0)
	}
	buf.WriteByte(0) // sentinel
	buf.Write(instructions)
	return buf.Bytes()
}

func TestLoadSimpleProgram(t *testing.T) {
	registry := newRegistry()
	instructions := []byte{byte(bytecode.OpPushNil), byte(bytecode.OpReturn)}
	blob := buildBlob(nil, instructions)

	code, err := bytecode.Load(registry, blob)
	require.NoError(t, err)
	require.Equal(t, instructions, code.Instructions)
	require.Empty(t, code.SymbTab)
}

func TestLoadInternsSymbolsInOrder(t *testing.T) {
	registry := newRegistry()
	var instr []byte
	instr = append(instr, byte(bytecode.OpPushSymbol))
	instr = append(instr, u16le(1)...)
	instr = append(instr, byte(bytecode.OpReturn))
	blob := buildBlob([]string{"foo", "bar"}, instr)

	code, err := bytecode.Load(registry, blob)
	require.NoError(t, err)
	require.Len(t, code.SymbTab, 2)

	fooAgain := registry.Symb("foo")
	barAgain := registry.Symb("bar")
	require.True(t, code.SymbTab[0] == fooAgain)
	require.True(t, code.SymbTab[1] == barAgain)
}

func TestLoadRejectsUnknownOpcode(t *testing.T) {
	registry := newRegistry()
	blob := buildBlob(nil, []byte{0xFF})
	_, err := bytecode.Load(registry, blob)
	require.Error(t, err)
}

func TestLoadRoundTripsInstructionBytes(t *testing.T) {
	registry := newRegistry()
	instructions := []byte{
		byte(bytecode.OpGetGlobal), 0x02, 0x00,
		byte(bytecode.OpSetIVar), 0x01, 0x00,
		byte(bytecode.OpReturn),
	}
	blob := buildBlob([]string{"a", "b", "c"}, instructions)

	code, err := bytecode.Load(registry, blob)
	require.NoError(t, err)
	// On a little-endian host (the common case in CI), the loader is a
	// pure byte copy: no swap is performed.
	require.Equal(t, instructions, code.Instructions)
}

func TestLoadSetMethodSkipsBody(t *testing.T) {
	registry := newRegistry()
	body := []byte{byte(bytecode.OpPushNil), byte(bytecode.OpReturn)}
	var instr []byte
	instr = append(instr, byte(bytecode.OpSetMethod))
	instr = append(instr, u16le(0)...)  // selector idx
	instr = append(instr, 0)            // argc
	instr = append(instr, u16le(uint16(len(body)))...)
	instr = append(instr, 0, 0) // bodyLen is u32; two more bytes
	instr = append(instr, body...)
	instr = append(instr, byte(bytecode.OpPushNil))
	instr = append(instr, byte(bytecode.OpReturn))

	blob := buildBlob([]string{"blah"}, instr)
	code, err := bytecode.Load(registry, blob)
	require.NoError(t, err)
	require.Equal(t, instr, code.Instructions)
}
