// Package context wires the object model, the bytecode VM, and the
// collector into the single logical engine spec.md §2 calls a Context: the
// in-process host API an embedder uses instead of reaching into pkg/object,
// pkg/vm, or pkg/gc directly (spec.md §6's "Host API").
package context

import (
	"github.com/kristofer/stvm/pkg/builtin"
	"github.com/kristofer/stvm/pkg/bytecode"
	"github.com/kristofer/stvm/pkg/gc"
	"github.com/kristofer/stvm/pkg/object"
	"github.com/kristofer/stvm/pkg/vm"
	"golang.org/x/xerrors"
)

// Configuration enumerates the allocator callbacks and capacities spec.md
// §6 requires of createContext: {alloc(n), free(p), copy(dst,src,n),
// set(p,v,n), stackCapacity, heapCapacity}. Go callers rarely need to
// override the host allocator the way an embedding C program would, so
// Alloc/Free/Copy/Set default to the Go heap when left nil — but VMLoad
// threads every incoming bytecode blob through them, so a host that does
// want visibility into (or control over) that one allocation path can
// still get it, without this package requiring it of every caller.
type Configuration struct {
	Alloc func(n int) []byte
	Free  func(buf []byte)
	Copy  func(dst, src []byte)
	Set   func(buf []byte, v byte)

	// StackCapacity pre-sizes the operand stack (spec.md §3).
	StackCapacity int
	// HeapCapacity bounds LiveEstimate/ShouldCollect's advice to the host
	// on when to call GC — this runtime's pools grow geometrically rather
	// than failing outright, so nothing enforces the bound directly (see
	// DESIGN.md); a host that wants the spec's "GC runs on heap
	// exhaustion" behavior calls GC() once ShouldCollect reports true.
	HeapCapacity int
}

func (cfg Configuration) alloc(n int) []byte {
	if cfg.Alloc != nil {
		return cfg.Alloc(n)
	}
	return make([]byte, n)
}

func (cfg Configuration) copy(dst, src []byte) {
	if cfg.Copy != nil {
		cfg.Copy(dst, src)
		return
	}
	copy(dst, src)
}

func (cfg Configuration) free(buf []byte) {
	if cfg.Free != nil {
		cfg.Free(buf)
	}
}

func (cfg Configuration) set(buf []byte, v byte) {
	if cfg.Set != nil {
		cfg.Set(buf, v)
		return
	}
	for i := range buf {
		buf[i] = v
	}
}

// Context owns all state for one runtime instance: the bootstrapped class
// hierarchy and singletons (builtin.Bundle), the bytecode VM, and the
// collector. Not safe for concurrent use from multiple goroutines (spec.md
// §5); an embedder that wants parallelism creates multiple independent
// Contexts instead.
type Context struct {
	config    Configuration
	bundle    *builtin.Bundle
	machine   *vm.VM
	collector *gc.Collector
	localsLen []int
}

// New bootstraps a fresh Context: the primordial classes, the built-in
// primitives (pkg/builtin.Bootstrap), an operand stack sized to
// cfg.StackCapacity, and a collector in the running (not paused) state.
func New(cfg Configuration) (*Context, error) {
	bundle := builtin.Bootstrap()
	machine := vm.NewWithCapacity(bundle, cfg.StackCapacity)
	return &Context{
		config:    cfg,
		bundle:    bundle,
		machine:   machine,
		collector: gc.New(),
	}, nil
}

// Destroy runs every live instance's finalizer and releases every class's
// instance pool. The Context must not be used afterward (spec.md §6
// "destroyContext: tears down, runs finalizers, releases all pools").
func (ctx *Context) Destroy() {
	for _, class := range ctx.machine.Classes() {
		finalizer := class.Finalizer()
		if finalizer != nil {
			class.InstancePool().Scan(func(obj *object.Object, used bool) {
				if used {
					finalizer(obj)
				}
			})
		}
		class.InstancePool().Release()
	}
}

// Symb interns name, returning the unique Symbol object for it.
func (ctx *Context) Symb(name string) *object.Object {
	return ctx.bundle.Registry.Symb(name)
}

// GetGlobal returns the value bound to sym, defaulting to Nil if absent
// (spec.md §7: an absent global is not an error).
func (ctx *Context) GetGlobal(sym *object.Object) *object.Object {
	if v, ok := ctx.bundle.Globals.Get(sym); ok {
		return v
	}
	return ctx.bundle.Nil
}

// SetGlobal binds sym to obj, or removes the binding entirely if obj is
// Nil (spec.md §7).
func (ctx *Context) SetGlobal(sym, obj *object.Object) {
	ctx.bundle.Globals.Set(sym, obj, ctx.bundle.Nil)
}

// SendMessage dispatches selector to receiver with argv, driving the VM
// loop for a compiled method and returning directly for a primitive
// (spec.md §4.5, §6).
func (ctx *Context) SendMessage(receiver, selector *object.Object, argv []*object.Object) *object.Object {
	return ctx.machine.SendMessage(receiver, selector, argv)
}

// SetMethod installs a primitive method under selector on class, replacing
// any existing entry (spec.md §9: replace-latest-wins).
func (ctx *Context) SetMethod(class *object.Class, selector *object.Object, fn object.PrimitiveFunc, argc int) {
	class.InstallMethod(selector, object.NewPrimitiveMethod(fn, argc))
}

// GetClass returns obj's class.
func (ctx *Context) GetClass(obj *object.Object) *object.Class { return obj.Class }

// GetSuper returns class's superclass, or nil at the bootstrap root.
func (ctx *Context) GetSuper(class *object.Class) *object.Class { return class.Super }

// GetNil, GetTrue, and GetFalse return the Context's singleton instances.
func (ctx *Context) GetNil() *object.Object   { return ctx.bundle.Nil }
func (ctx *Context) GetTrue() *object.Object  { return ctx.bundle.TrueObj }
func (ctx *Context) GetFalse() *object.Object { return ctx.bundle.FalseObj }

// GetInteger boxes v as a fresh Integer instance.
func (ctx *Context) GetInteger(v int32) *object.Object {
	return ctx.machine.NewInteger(v)
}

// UnboxInt reads an Integer instance's boxed value. ok is false if obj
// isn't an Integer.
func (ctx *Context) UnboxInt(obj *object.Object) (int32, bool) {
	v, ok := obj.Payload.(int32)
	return v, ok
}

// Classes returns the bootstrap classes plus every class created at
// runtime via subclass:, for callers (tests, diagnostics) that want to
// inspect the whole hierarchy without reaching into pkg/vm.
func (ctx *Context) Classes() []*object.Class { return ctx.machine.Classes() }

// Bundle exposes the underlying builtin.Bundle for callers that need
// direct access to a specific bootstrap class or singleton by name.
func (ctx *Context) Bundle() *builtin.Bundle { return ctx.bundle }

// --- rooted scratch slots ------------------------------------------------

// PushLocals roots n additional operand-stack slots (initialized to Nil)
// across a native call that may itself trigger a GC safepoint — an
// allocation, a Symb of a new name, or a SendMessage (spec.md §5, §6).
func (ctx *Context) PushLocals(n int) {
	ctx.localsLen = append(ctx.localsLen, ctx.machine.PushLocals(n))
}

// PopLocals releases the scratch slots from the most recent PushLocals.
func (ctx *Context) PopLocals() {
	n := len(ctx.localsLen)
	if n == 0 {
		return
	}
	base := ctx.localsLen[n-1]
	ctx.localsLen = ctx.localsLen[:n-1]
	ctx.machine.PopLocals(base)
}

// --- garbage collection ---------------------------------------------------

// GC runs one mark-and-sweep cycle (a no-op while paused).
func (ctx *Context) GC() { ctx.collector.Run(ctx.machine) }

// GCPause stops GC from collecting until GCResume is called.
func (ctx *Context) GCPause() { ctx.collector.Pause() }

// GCResume re-enables GC.
func (ctx *Context) GCResume() { ctx.collector.Resume() }

// GCPreserve pins obj against collection.
func (ctx *Context) GCPreserve(obj *object.Object) { ctx.collector.Preserve(obj) }

// GCRelease unpins obj.
func (ctx *Context) GCRelease(obj *object.Object) { ctx.collector.Release(obj) }

// LiveEstimate sums the used slot count across every class's instance
// pool: an approximation of "objects currently on the heap" standing in
// for the bump heap's `end - begin` this runtime doesn't have (see
// Configuration.HeapCapacity).
func (ctx *Context) LiveEstimate() int {
	total := 0
	for _, class := range ctx.machine.Classes() {
		class.InstancePool().Scan(func(_ *object.Object, used bool) {
			if used {
				total++
			}
		})
	}
	return total
}

// ShouldCollect reports whether LiveEstimate has reached
// Configuration.HeapCapacity — a host that wants spec.md §4.8's "GC runs
// on heap exhaustion" behavior checks this after allocation-heavy work and
// calls GC() when it's true. Always false when HeapCapacity is unset (0).
func (ctx *Context) ShouldCollect() bool {
	if ctx.config.HeapCapacity <= 0 {
		return false
	}
	return ctx.LiveEstimate() >= ctx.config.HeapCapacity
}

// --- bytecode loading and execution --------------------------------------

// VMLoad parses a bytecode blob (spec.md §4.7, §6.2). The incoming bytes
// are copied through the Configuration's Alloc/Copy hooks into an
// owned buffer before the loader ever looks at them, so a host that
// supplied custom allocator callbacks sees every byte of a loaded program
// pass through its own allocator exactly once.
func (ctx *Context) VMLoad(data []byte) (*bytecode.Code, error) {
	owned := ctx.config.alloc(len(data))
	ctx.config.set(owned, 0)
	ctx.config.copy(owned, data)
	// bytecode.Load takes its own copy of the instruction bytes (spec.md
	// §4.7 point 3), so owned is free to release the moment Load returns.
	code, err := bytecode.Load(ctx.bundle.Registry, owned)
	ctx.config.free(owned)
	if err != nil {
		return nil, xerrors.Errorf("context: VMLoad: %w", err)
	}
	return code, nil
}

// VMExecute drives the VM loop over code starting at offset, returning
// whatever the program leaves on top of the operand stack.
func (ctx *Context) VMExecute(code *bytecode.Code, offset int) *object.Object {
	return ctx.machine.ExecuteAt(code, offset)
}
