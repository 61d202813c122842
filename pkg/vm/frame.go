package vm

import "github.com/kristofer/stvm/pkg/bytecode"

// Frame is one activation record on the call-frame stack: the instruction
// pointer, the base pointer (operand-stack depth at entry), the Code block
// being executed, and the parent frame (spec.md §3).
type Frame struct {
	IP     int
	BP     int
	Code   *bytecode.Code
	Parent *Frame
}
