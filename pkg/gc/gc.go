// Package gc implements the tracing collector: mark roots (the operand
// stack, the globals map, and every live frame's code symbol table), then
// sweep every registered class's own instance pool, returning unreached,
// unpreserved slots to the freelist (spec.md §4.8).
//
// This module implements the mark-and-sweep-pool design named in spec.md
// §4.8 rather than mark-and-compact-bump-heap: every instance already
// lives in a pool.Pool[object.Object] keyed by its owning class (see
// pkg/object's Class.instancePool), which is exactly the substrate
// pool.Scan/FreeUnmarked was built for, and it needs no unsafe pointer
// relocation or address rewriting of ivar/global/stack slots afterward.
// See DESIGN.md for the rejected alternative.
package gc

import (
	"github.com/kristofer/stvm/pkg/object"
	"github.com/kristofer/stvm/pkg/vm"
)

// Collector runs mark-and-sweep cycles over a *vm.VM and tracks the
// pause/resume state the host API exposes as GC_pause/GC_resume.
type Collector struct {
	paused bool
}

// New creates a Collector in the running (not paused) state.
func New() *Collector {
	return &Collector{}
}

// Paused reports whether Run is currently a no-op.
func (c *Collector) Paused() bool { return c.paused }

// Pause stops Run from collecting until Resume is called — used by the
// host to straddle multi-step construction sequences that would otherwise
// see an intermediate object collected (spec.md §4.8 "Cancellation and
// reentrancy").
func (c *Collector) Pause() { c.paused = true }

// Resume re-enables Run.
func (c *Collector) Resume() { c.paused = false }

// Preserve pins obj against collection (GC_preserve).
func (c *Collector) Preserve(obj *object.Object) {
	if obj != nil {
		obj.SetPreserved(true)
	}
}

// Release unpins obj (GC_release). Symbols and the bootstrap singletons
// are preserved at construction time and are never released by runtime
// code — callers should not release an object they did not themselves
// preserve.
func (c *Collector) Release(obj *object.Object) {
	if obj != nil {
		obj.SetPreserved(false)
	}
}

// Run executes one mark-and-sweep cycle against machine's live state. A
// no-op while paused (spec.md §4.8: "GC never runs while paused; run is a
// no-op in that state").
func (c *Collector) Run(machine *vm.VM) {
	if c.paused {
		return
	}
	c.markRoots(machine)
	c.sweep(machine)
}

// markRoots marks every object reachable from the operand stack (every
// slot, base to top), the global scope (both the Symbol key and the bound
// value — keys are already Preserve'd, but marking them is harmless and
// keeps the walk uniform), and the symbol table of every frame currently
// on the call stack (spec.md §4.8 "Roots").
func (c *Collector) markRoots(machine *vm.VM) {
	for _, obj := range machine.Stack() {
		c.mark(obj)
	}
	machine.Bundle().Globals.Each(func(sym, value *object.Object) {
		c.mark(sym)
		c.mark(value)
	})
	for f := machine.CurrentFrame(); f != nil; f = f.Parent {
		if f.Code == nil {
			continue
		}
		for _, sym := range f.Code.SymbTab {
			c.mark(sym)
		}
	}
}

// mark sets the Marked bit on obj and recurses into its instance-variable
// slots and (for the handful of shapes that need one) its Payload's
// object slice, e.g. Array elements. Classes are never walked further:
// this runtime allocates Class values directly from the Go heap rather
// than from a swept pool (spec.md §9 Design Notes' "arena-owned class
// table" suggestion, realized here as "classes simply never get freed"),
// so a class can never become the target of a sweep and nothing under it
// needs protecting beyond what already keeps it reachable from Go's own
// garbage collector.
func (c *Collector) mark(obj *object.Object) {
	if obj == nil || obj.Marked() {
		return
	}
	obj.SetMarked(true)
	if obj.AsClass() != nil {
		return
	}
	for _, iv := range obj.IVars {
		c.mark(iv)
	}
	if elems, ok := obj.Payload.([]*object.Object); ok {
		for _, e := range elems {
			c.mark(e)
		}
	}
}

// sweep walks every class's instance pool (one pool per class),
// returning any slot that is used, unmarked, and unpreserved to the
// freelist — running the owning class's finalizer first, if any — and
// clearing the Marked bit on every surviving slot so the next cycle starts
// clean.
func (c *Collector) sweep(machine *vm.VM) {
	for _, class := range machine.Classes() {
		finalizer := class.Finalizer()
		class.InstancePool().FreeUnmarked(
			func(obj *object.Object) bool {
				if obj.Marked() || obj.Preserved() {
					obj.SetMarked(false)
					return true
				}
				return false
			},
			finalizer,
		)
	}
}
