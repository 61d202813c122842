// Command stvm is a thin CLI wrapper around pkg/context: load a compiled
// bytecode file (spec.md §4.7/§6.2) and execute it, or disassemble one for
// inspection. Neither the surface-language parser/compiler nor a
// standalone disassembler tool are part of this runtime's scope (spec.md
// §1) — this binary only ever consumes bytecode that already exists on
// disk.
package main

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/kristofer/stvm/pkg/bytecode"
	"github.com/kristofer/stvm/pkg/context"
	"github.com/kristofer/stvm/pkg/object"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "version", "-v", "--version":
		fmt.Printf("stvm version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	case "run":
		requireFile(os.Args, "run")
		runFile(os.Args[2])
	case "disasm", "disassemble":
		requireFile(os.Args, "disasm")
		disassembleFile(os.Args[2])
	default:
		runFile(os.Args[1])
	}
}

func requireFile(args []string, cmd string) {
	if len(args) < 3 {
		fmt.Fprintf(os.Stderr, "Error: no file specified\n\nUsage: stvm %s <file.stvmc>\n", cmd)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("stvm - an embeddable Smalltalk-family object runtime")
	fmt.Println("\nUsage:")
	fmt.Println("  stvm run <file.stvmc>        Load and execute a compiled bytecode file")
	fmt.Println("  stvm disasm <file.stvmc>     Print a disassembly of a bytecode file")
	fmt.Println("  stvm version                 Show version")
	fmt.Println("  stvm help                    Show this help")
	fmt.Println("\nBytecode files use the on-disk format in spec.md §4.7/§6.2: a")
	fmt.Println("null-terminated symbol table followed by raw instruction bytes.")
	fmt.Println("This runtime does not compile Smalltalk source; it only loads and")
	fmt.Println("executes bytecode already produced by some other tool.")
}

// runFile loads and executes a bytecode file against a fresh Context. The
// nine required built-ins (spec.md §6) are bound into the global scope
// under their own names before execution, the way a surface-language
// compiler's prelude would, so a program that does GETGLOBAL Object or
// GETGLOBAL Integer resolves without the host needing to know in advance
// which globals it references.
func runFile(filename string) {
	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	ctx, err := context.New(context.Configuration{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating context: %v\n", err)
		os.Exit(1)
	}
	defer ctx.Destroy()

	bindBootstrapGlobals(ctx)

	code, err := ctx.VMLoad(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading bytecode: %v\n", err)
		os.Exit(1)
	}

	ctx.VMExecute(code, 0)
}

func classObj(c *object.Class) *object.Object { return &c.Object }

func bindBootstrapGlobals(ctx *context.Context) {
	b := ctx.Bundle()
	ctx.SetGlobal(ctx.Symb("Object"), classObj(b.Object))
	ctx.SetGlobal(ctx.Symb("Symbol"), classObj(b.Symbol))
	ctx.SetGlobal(ctx.Symb("UndefinedObject"), classObj(b.UndefinedObject))
	ctx.SetGlobal(ctx.Symb("Boolean"), classObj(b.Boolean))
	ctx.SetGlobal(ctx.Symb("True"), classObj(b.True))
	ctx.SetGlobal(ctx.Symb("False"), classObj(b.False))
	ctx.SetGlobal(ctx.Symb("Integer"), classObj(b.Integer))
	ctx.SetGlobal(ctx.Symb("Array"), classObj(b.Array))
	ctx.SetGlobal(ctx.Symb("MessageNotUnderstood"), classObj(b.MessageNotUnderstood))
	ctx.SetGlobal(ctx.Symb("nil"), b.Nil)
	ctx.SetGlobal(ctx.Symb("true"), b.TrueObj)
	ctx.SetGlobal(ctx.Symb("false"), b.FalseObj)
}

// disassembleFile prints a one-instruction-per-line dump of a bytecode
// file's symbol table and instruction stream, reading the fixed opcode
// table pkg/bytecode.Opcode itself defines (spec.md §4.6) rather than
// maintaining a parallel copy of it here.
func disassembleFile(filename string) {
	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	ctx, err := context.New(context.Configuration{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating context: %v\n", err)
		os.Exit(1)
	}
	defer ctx.Destroy()

	code, err := ctx.VMLoad(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading bytecode: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("=== Bytecode Disassembly: %s ===\n\n", filename)
	fmt.Println("Symbol table:")
	if len(code.SymbTab) == 0 {
		fmt.Println("  (empty)")
	}
	for i, sym := range code.SymbTab {
		name, _ := ctx.Bundle().Registry.ToString(sym)
		fmt.Printf("  [%d] %s\n", i, name)
	}

	fmt.Println("\nInstructions:")
	ip := 0
	for ip < len(code.Instructions) {
		op := bytecode.Opcode(code.Instructions[ip])
		start := ip
		ip++
		operandLen := op.OperandBytes()
		fmt.Printf("  %4d: %s", start, op)
		switch {
		case op == bytecode.OpSetMethod:
			idx := binary.NativeEndian.Uint16(code.Instructions[ip : ip+2])
			argc := code.Instructions[ip+2]
			bodyLen := binary.NativeEndian.Uint32(code.Instructions[ip+3 : ip+7])
			fmt.Printf(" selector=%d argc=%d bodyLen=%d", idx, argc, bodyLen)
			ip += operandLen + int(bodyLen)
		case operandLen >= 2:
			idx := binary.NativeEndian.Uint16(code.Instructions[ip : ip+2])
			fmt.Printf(" idx=%d", idx)
			ip += operandLen
		default:
			ip += operandLen
		}
		fmt.Println()
	}
}
