// Package vm implements the bytecode interpreter and the executing half of
// message dispatch: the operand stack, the frame stack, and the core
// fetch-decode-execute loop over the fixed opcode set in pkg/bytecode.
package vm

import (
	"encoding/binary"

	"github.com/kristofer/stvm/pkg/builtin"
	"github.com/kristofer/stvm/pkg/bytecode"
	"github.com/kristofer/stvm/pkg/object"
	"github.com/kristofer/stvm/pkg/pool"
	"golang.org/x/xerrors"
)

// ErrStackUnderflow names the operand-stack underflow condition. The
// interpreter loop does not return it: popping an empty operand stack
// yields the nil singleton instead.
var ErrStackUnderflow = xerrors.New("vm: operand stack underflow")

// VM is one execution engine: an operand stack, a chain of call frames, and
// the bootstrapped class hierarchy it dispatches against.
type VM struct {
	bundle *builtin.Bundle

	stack   []*object.Object
	frame   *Frame
	frames  *pool.Pool[Frame]
	classes []*object.Class
}

// defaultStackCapacity is used when a caller doesn't care to size the
// operand stack explicitly (spec.md §3's stackCapacity, left to the host's
// discretion via pkg/context.Configuration).
const defaultStackCapacity = 256

// New builds a VM over an already-bootstrapped Bundle, with a
// defaultStackCapacity operand stack.
func New(bundle *builtin.Bundle) *VM {
	return NewWithCapacity(bundle, defaultStackCapacity)
}

// NewWithCapacity builds a VM whose operand stack is pre-allocated to
// stackCapacity (spec.md §3: "pre-allocated to stackCapacity").
func NewWithCapacity(bundle *builtin.Bundle, stackCapacity int) *VM {
	if stackCapacity <= 0 {
		stackCapacity = defaultStackCapacity
	}
	return &VM{
		bundle: bundle,
		stack:  make([]*object.Object, 0, stackCapacity),
		frames: pool.New[Frame](8),
	}
}

// Bundle exposes the VM's bootstrapped classes and singletons, for
// pkg/context's host API and pkg/gc's root walk.
func (vm *VM) Bundle() *builtin.Bundle { return vm.bundle }

// Stack exposes the live operand stack slice, for pkg/gc's root walk. The
// returned slice aliases the VM's own backing array; callers must not
// retain it past the next VM call.
func (vm *VM) Stack() []*object.Object { return vm.stack }

// --- object.Runtime -------------------------------------------------------

// Nil, True, and False return the VM's singleton instances.
func (vm *VM) Nil() *object.Object   { return vm.bundle.Nil }
func (vm *VM) True() *object.Object  { return vm.bundle.TrueObj }
func (vm *VM) False() *object.Object { return vm.bundle.FalseObj }

// NewInteger boxes v as a fresh Integer instance.
func (vm *VM) NewInteger(v int32) *object.Object {
	inst := vm.bundle.Integer.NewInstance(vm.bundle.Nil)
	inst.Payload = v
	return inst
}

// Symb interns name through the VM's symbol registry.
func (vm *VM) Symb(name string) *object.Object { return vm.bundle.Registry.Symb(name) }

// RegisterClass records a runtime-created class (spec.md §4.4's subclass)
// for pkg/gc to find during a sweep.
func (vm *VM) RegisterClass(c *object.Class) { vm.classes = append(vm.classes, c) }

// Classes returns every class the collector needs to sweep: the nine
// bootstrap classes plus every class created at runtime via subclass:.
func (vm *VM) Classes() []*object.Class {
	all := []*object.Class{
		vm.bundle.Object, vm.bundle.Symbol, vm.bundle.UndefinedObject,
		vm.bundle.Boolean, vm.bundle.True, vm.bundle.False,
		vm.bundle.Integer, vm.bundle.Array, vm.bundle.MessageNotUnderstood,
	}
	return append(all, vm.classes...)
}

// CurrentFrame returns the innermost active frame, or nil if no compiled
// method is currently executing. pkg/gc walks the frame chain to mark the
// symbol table each frame's Code carries, alongside the stack and globals.
func (vm *VM) CurrentFrame() *Frame { return vm.frame }

// PushLocals pushes n nil slots onto the operand stack and returns the
// depth they were pushed at, so the caller (pkg/context's host API) can
// root n scratch slots across native calls that may themselves trigger a
// GC (spec.md §5, §6: pushLocals/popLocals).
func (vm *VM) PushLocals(n int) int {
	base := len(vm.stack)
	for i := 0; i < n; i++ {
		vm.push(vm.bundle.Nil)
	}
	return base
}

// PopLocals discards the operand stack back down to base, undoing a prior
// PushLocals.
func (vm *VM) PopLocals(base int) {
	if base < len(vm.stack) {
		vm.stack = vm.stack[:base]
	}
}

// SendMessage is the public entry point for a nested send originating
// outside the bytecode loop — a primitive method calling back into
// dispatch (spec.md §4.5). argv may be nil for a unary selector.
func (vm *VM) SendMessage(receiver, selector *object.Object, argv []*object.Object) *object.Object {
	return vm.dispatch(receiver, selector, argv)
}

// --- execution --------------------------------------------------------

// Execute runs code from offset 0 as a top-level frame and returns
// whatever the program leaves on top of the operand stack (nil if the
// program never pushes anything).
func (vm *VM) Execute(code *bytecode.Code) *object.Object {
	return vm.ExecuteAt(code, 0)
}

// ExecuteAt runs code as a top-level frame starting at the given
// instruction offset (pkg/context's VM_execute lets the host choose any
// offset into a loaded Code, not just its start).
func (vm *VM) ExecuteAt(code *bytecode.Code, offset int) *object.Object {
	base := len(vm.stack)
	entry := vm.pushFrame(code, base, vm.frame)
	entry.IP = offset
	vm.run(entry.Parent)
	if len(vm.stack) <= base {
		return vm.bundle.Nil
	}
	result := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:base]
	return result
}

func (vm *VM) pushFrame(code *bytecode.Code, bp int, parent *Frame) *Frame {
	f := vm.frames.Alloc()
	f.IP = 0
	f.BP = bp
	f.Code = code
	f.Parent = parent
	vm.frame = f
	return f
}

func (vm *VM) popFrame() {
	done := vm.frame
	vm.frame = done.Parent
	vm.frames.Free(done)
}

func (vm *VM) push(v *object.Object) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() *object.Object {
	n := len(vm.stack)
	if n == 0 {
		return vm.bundle.Nil
	}
	v := vm.stack[n-1]
	vm.stack = vm.stack[:n-1]
	return v
}

func (vm *VM) peek() *object.Object {
	n := len(vm.stack)
	if n == 0 {
		return vm.bundle.Nil
	}
	return vm.stack[n-1]
}

// run drives frames until vm.frame reaches until (exclusive) — i.e. until
// the frame that was current when run was entered has returned.
func (vm *VM) run(until *Frame) {
	for vm.frame != until {
		vm.step()
	}
}

func (vm *VM) step() {
	f := vm.frame
	if f.IP >= len(f.Code.Instructions) {
		// A compiled method that falls off the end without an explicit
		// RETURN: unwind as if it had returned nil (defensive; spec.md
		// §4.6 assumes every code block ends in RETURN).
		if f.BP <= len(vm.stack) {
			vm.stack = vm.stack[:f.BP]
		}
		vm.push(vm.bundle.Nil)
		vm.popFrame()
		return
	}

	op := bytecode.Opcode(f.Code.Instructions[f.IP])
	f.IP++

	switch op {
	case bytecode.OpPushNil:
		vm.push(vm.bundle.Nil)
	case bytecode.OpPushTrue:
		vm.push(vm.bundle.TrueObj)
	case bytecode.OpPushFalse:
		vm.push(vm.bundle.FalseObj)
	case bytecode.OpPushSuper:
		top := vm.pop()
		class := top.Class
		if c := top.AsClass(); c != nil {
			class = c
		}
		if class == nil || class.Super == nil {
			vm.push(vm.bundle.Nil)
		} else {
			vm.push(&class.Super.Object)
		}
	case bytecode.OpDup:
		vm.push(vm.peek())
	case bytecode.OpPop:
		vm.pop()
	case bytecode.OpSwap:
		// Reserved: decoded, but a no-op.
	case bytecode.OpReturn:
		result := vm.pop()
		if f.BP <= len(vm.stack) {
			vm.stack = vm.stack[:f.BP]
		}
		vm.push(result)
		vm.popFrame()
	case bytecode.OpGetGlobal:
		sym := f.Code.SymbTab[vm.readU16(f)]
		v, ok := vm.bundle.Globals.Get(sym)
		if !ok {
			v = vm.bundle.Nil
		}
		vm.push(v)
	case bytecode.OpSetGlobal:
		sym := f.Code.SymbTab[vm.readU16(f)]
		vm.bundle.Globals.Set(sym, vm.pop(), vm.bundle.Nil)
	case bytecode.OpGetIVar:
		idx := vm.readU16(f)
		target := vm.pop()
		v, err := object.GetIVar(target, int(idx))
		if err != nil {
			v = vm.bundle.Nil
		}
		vm.push(v)
	case bytecode.OpSetIVar:
		idx := vm.readU16(f)
		target := vm.pop()
		value := vm.pop()
		_ = object.SetIVar(target, int(idx), value)
	case bytecode.OpSendMsg:
		selector := f.Code.SymbTab[vm.readU16(f)]
		vm.execSend(selector)
	case bytecode.OpPushSymbol:
		vm.push(f.Code.SymbTab[vm.readU16(f)])
	case bytecode.OpSetMethod:
		vm.execSetMethod(f)
	default:
		// normalizeInstructions already rejected unknown opcodes at load
		// time; reaching here means a loaded Code was mutated after the
		// fact. Treat as a no-op RETURN to avoid looping forever.
		if f.BP <= len(vm.stack) {
			vm.stack = vm.stack[:f.BP]
		}
		vm.push(vm.bundle.Nil)
		vm.popFrame()
	}
}

// readU16 and readU32 read an operand already normalized to the host's
// native byte order by pkg/bytecode's loader (spec.md §4.7 point 4, §9
// Design Notes "byte-order normalization at load"): the loop never
// byteswaps on the hot path, only decodes whatever's already in memory.
func (vm *VM) readU16(f *Frame) uint16 {
	v := binary.NativeEndian.Uint16(f.Code.Instructions[f.IP:])
	f.IP += 2
	return v
}

func (vm *VM) readU32(f *Frame) uint32 {
	v := binary.NativeEndian.Uint32(f.Code.Instructions[f.IP:])
	f.IP += 4
	return v
}

// execSend implements SENDMSG: the receiver is popped first, then the
// argument count implied by selector's own name (spec.md §4.6 leaves the
// derivation implicit; object.SelectorArgc supplies it) determines how
// many operand-stack slots below the receiver are consumed.
func (vm *VM) execSend(selector *object.Object) {
	receiver := vm.pop()
	argc := object.SelectorArgc(selector)
	n := len(vm.stack)
	if argc > n {
		argc = n
	}
	argv := append([]*object.Object(nil), vm.stack[n-argc:]...)
	vm.stack = vm.stack[:n-argc]
	vm.push(vm.dispatch(receiver, selector, argv))
}

// callCompiled pushes argv (already in call order) back onto the stack,
// opens a new frame whose bp is the stack depth at that point, and drives
// execution until that frame's RETURN unwinds it; it then pops the result
// and the pushed arguments (spec.md §4.5, §4.6).
func (vm *VM) callCompiled(method *object.Method, argv []*object.Object) *object.Object {
	code, _ := method.Compiled.Code.(*bytecode.Code)
	if code == nil {
		return vm.bundle.Nil
	}
	for _, a := range argv {
		vm.push(a)
	}
	bp := len(vm.stack)
	parent := vm.frame
	vm.pushFrame(code, bp, parent)
	vm.run(parent)
	result := vm.pop()
	if n := len(vm.stack) - len(argv); n >= 0 {
		vm.stack = vm.stack[:n]
	}
	return result
}

// execSetMethod implements SETMETHOD: install a compiled method on the
// class on top of the stack, with the method body spanning the next
// bodyLen bytes of the current frame's instruction stream.
func (vm *VM) execSetMethod(f *Frame) {
	idx := vm.readU16(f)
	argc := int(f.Code.Instructions[f.IP])
	f.IP++
	bodyLen := int(vm.readU32(f))
	bodyStart := f.IP
	f.IP += bodyLen

	selector := f.Code.SymbTab[idx]
	target := vm.pop()
	class := target.AsClass()
	if class == nil {
		return
	}

	body := &bytecode.Code{
		SymbTab:      f.Code.SymbTab,
		Instructions: f.Code.Instructions[bodyStart : bodyStart+bodyLen],
		Length:       bodyLen,
	}
	class.InstallMethod(selector, object.NewCompiledMethod(object.CompiledRef{Code: body, Offset: 0}, argc))
}

// lookupOn is object.LookupMethod, named locally so dispatch reads as one
// step rather than a cross-package call buried mid-expression.
func lookupOn(class *object.Class, selector *object.Object) (*object.Method, *object.Class) {
	if class == nil {
		return nil, nil
	}
	return object.LookupMethod(class, selector)
}

// dispatch is the one resolve-and-invoke path shared by SENDMSG, the
// Runtime.SendMessage entry point, and the doesNotUnderstand: redelivery.
func (vm *VM) dispatch(receiver, selector *object.Object, argv []*object.Object) *object.Object {
	method, _ := lookupOn(receiver.Class, selector)
	if method == nil {
		return vm.doesNotUnderstand(receiver, selector, argv)
	}
	switch method.Kind {
	case object.MethodPrimitive:
		if len(argv) != method.Argc {
			return vm.bundle.Nil
		}
		return method.Primitive(vm, receiver, argv)
	case object.MethodCompiled:
		return vm.callCompiled(method, argv)
	default:
		return vm.bundle.Nil
	}
}

// doesNotUnderstand implements spec.md §4.5's failure path: build a
// MessageNotUnderstood carrying receiver/selector/args and deliver it via
// #doesNotUnderstand:. A miss on doesNotUnderstand: itself short-circuits
// to nil instead of recursing, per spec.md §4.5's explicit requirement
// that the process not allocate unbounded MessageNotUnderstood instances.
func (vm *VM) doesNotUnderstand(receiver, selector *object.Object, argv []*object.Object) *object.Object {
	if selector == vm.bundle.DoesNotUnderstandSelector {
		return vm.bundle.Nil
	}
	method, _ := lookupOn(receiver.Class, vm.bundle.DoesNotUnderstandSelector)
	if method == nil {
		return vm.bundle.Nil
	}

	mnu := vm.bundle.MessageNotUnderstood.NewInstance(vm.bundle.Nil)
	_ = object.SetIVar(mnu, 0, receiver)
	_ = object.SetIVar(mnu, 1, selector)
	argsArray := vm.bundle.Array.NewInstance(vm.bundle.Nil)
	argsArray.Payload = append([]*object.Object(nil), argv...)
	_ = object.SetIVar(mnu, 2, argsArray)

	switch method.Kind {
	case object.MethodPrimitive:
		return method.Primitive(vm, receiver, []*object.Object{mnu})
	case object.MethodCompiled:
		return vm.callCompiled(method, []*object.Object{mnu})
	default:
		return vm.bundle.Nil
	}
}
