package bytecode

import (
	"bytes"
	"encoding/binary"

	"github.com/kristofer/stvm/pkg/object"
	"golang.org/x/xerrors"
)

// ErrUnknownOpcode is wrapped by Load when the instruction stream contains
// a byte that isn't one of the fixed opcodes (spec.md §4.7 point 4,
// §7 tier 2).
var ErrUnknownOpcode = xerrors.New("bytecode: unknown opcode")

// ErrMalformedSymbolTable is wrapped when the double-null sentinel that
// terminates the symbol table is never found, and when a SETMETHOD
// instruction's fixed operand runs past the end of the instruction bytes.
var ErrMalformedSymbolTable = xerrors.New("bytecode: malformed symbol table")

// hostIsBigEndian reports whether this process's native byte order is big
// endian, using encoding/binary.NativeEndian (stdlib since Go 1.21) rather
// than any third-party byte-order package — nothing in the retrieval pack
// reaches for one for this purpose (see SPEC_FULL.md §4.7 / DESIGN.md).
func hostIsBigEndian() bool {
	var buf [2]byte
	binary.NativeEndian.PutUint16(buf[:], 1)
	return buf[0] == 0
}

// Load parses the on-disk bytecode format: a sequence of null-terminated
// symbol strings terminated by an extra null (an empty-string sentinel),
// followed immediately by raw instruction bytes (spec.md §4.7, §6).
//
// It interns every symbol string via registry, copies the instruction
// bytes into a fresh buffer, and — on a big-endian host — rewrites each
// instruction's operand in place to native byte order. An unknown opcode
// aborts the load and returns an error; no partially built Code is ever
// returned.
func Load(registry *object.SymbolRegistry, data []byte) (*Code, error) {
	names, instrStart, err := splitSymbolTable(data)
	if err != nil {
		return nil, err
	}

	symbTab := make([]*object.Object, len(names))
	for i, name := range names {
		symbTab[i] = registry.Symb(name)
	}

	instructions := append([]byte(nil), data[instrStart:]...)
	if err := normalizeInstructions(instructions); err != nil {
		return nil, err
	}

	return &Code{
		SymbTab:      symbTab,
		Instructions: instructions,
		Length:       len(instructions),
	}, nil
}

// splitSymbolTable scans data for the symbol-string section, returning the
// decoded strings and the byte offset where raw instructions begin.
func splitSymbolTable(data []byte) ([]string, int, error) {
	var names []string
	start := 0
	for {
		nul := indexByte(data, start, 0)
		if nul < 0 {
			return nil, 0, xerrors.Errorf("scanning symbol %d: %w", len(names), ErrMalformedSymbolTable)
		}
		if nul == start {
			// Empty string: the double-null sentinel.
			return names, nul + 1, nil
		}
		names = append(names, string(data[start:nul]))
		start = nul + 1
	}
}

func indexByte(data []byte, from int, b byte) int {
	idx := bytes.IndexByte(data[from:], b)
	if idx < 0 {
		return -1
	}
	return from + idx
}

// normalizeInstructions walks the instruction stream once, validating
// every opcode and — on a big-endian host — byteswapping its operand bytes
// from little-endian (the on-disk order) to native order.
func normalizeInstructions(instructions []byte) error {
	bigEndian := hostIsBigEndian()
	ip := 0
	for ip < len(instructions) {
		op := Opcode(instructions[ip])
		if !op.IsValid() {
			return xerrors.Errorf("opcode %d at offset %d: %w", instructions[ip], ip, ErrUnknownOpcode)
		}
		operandLen := op.OperandBytes()
		ip++
		if bigEndian {
			swapOperand(op, instructions[ip:])
		}
		if op == OpSetMethod {
			if ip+operandLen > len(instructions) {
				return xerrors.Errorf("truncated SETMETHOD operand at offset %d: %w", ip, ErrMalformedSymbolTable)
			}
			bodyLen := int(binary.NativeEndian.Uint32(instructions[ip+3:]))
			ip += operandLen + bodyLen
			continue
		}
		ip += operandLen
	}
	return nil
}

// swapOperand rewrites one instruction's operand bytes (found at buf[0:])
// from little-endian disk order to native order. Only called when the host
// is big-endian.
func swapOperand(op Opcode, buf []byte) {
	switch op {
	case OpGetGlobal, OpSetGlobal, OpGetIVar, OpSetIVar, OpSendMsg, OpPushSymbol:
		if len(buf) < 2 {
			return
		}
		v := binary.LittleEndian.Uint16(buf)
		binary.NativeEndian.PutUint16(buf, v)
	case OpSetMethod:
		if len(buf) < 7 {
			return
		}
		idx := binary.LittleEndian.Uint16(buf[0:2])
		binary.NativeEndian.PutUint16(buf[0:2], idx)
		bodyLen := binary.LittleEndian.Uint32(buf[3:7])
		binary.NativeEndian.PutUint32(buf[3:7], bodyLen)
	}
}
