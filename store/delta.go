package store

import "github.com/mstep-lang/mstep/ast"
import "github.com/mstep-lang/mstep/value"

// PatchOp distinguishes "set this key to a value" from "remove this
// key", the two non-absent states of spec.md §4.2's three-valued
// discipline. The third state — absent entirely — is simply a missing
// map key, exactly as Namespace uses a missing key for "not declared".
type PatchOp int

const (
	PatchSet PatchOp = iota
	PatchDelete
)

// Patch is one entry of a Delta: either Set (install Value) or Delete
// (remove the key), generic over whichever store mapping it targets.
type Patch[V any] struct {
	Op    PatchOp
	Value V
}

func set[V any](v V) Patch[V]    { return Patch[V]{Op: PatchSet, Value: v} }
func del[V any]() Patch[V]       { var zero V; return Patch[V]{Op: PatchDelete, Value: zero} }

// NamespaceKind selects which of a frame's two namespaces a LocalKey
// addresses.
type NamespaceKind int

const (
	LocalsNS NamespaceKind = iota
	ClosureNS
)

// LocalKey addresses one name in one namespace of one frame, by the
// frame's index in Environment.Frames at the time the delta is built.
// A delta is only ever built against, and applied to, a store whose
// frame stack has not itself changed shape since — single-clause
// deltas never mix a LocalKey edit with a FrameOp, so the index never
// goes stale between build and apply (see step package).
type LocalKey struct {
	Frame int
	NS    NamespaceKind
	Name  ast.Name
}

// FrameOp is a structural edit to the frame stack: push a new frame,
// or pop the top one. A Delta's FrameOps is an ordered sequence rather
// than a keyed map because "push then pop" and "pop then push" are not
// interchangeable — merge is list concatenation, the one monoid
// operation that can't accidentally collapse two structural edits into
// one.
type FrameOp struct {
	Push *Frame
	Pop  bool
}

// Delta is a store mutation expressed as data (spec.md §4.2): a set of
// three-valued patches per store sub-mapping, plus an ordered list of
// frame-stack structural edits. The zero Delta is the identity element
// for Merge/Apply.
type Delta struct {
	Idents   map[Address]Patch[*Ident]
	Stack    map[Address]Patch[*value.StackValue]
	Heap     map[Address]Patch[*value.HeapValue]
	Globals  map[ast.Name]Patch[*Shareable]
	Locals   map[LocalKey]Patch[*Shareable]
	FrameOps []FrameOp
}

// SetIdent stages addr -> id.
func (d *Delta) SetIdent(addr Address, id *Ident) {
	if d.Idents == nil {
		d.Idents = map[Address]Patch[*Ident]{}
	}
	d.Idents[addr] = set(id)
}

// DeleteIdent stages removal of addr from the idents table.
func (d *Delta) DeleteIdent(addr Address) {
	if d.Idents == nil {
		d.Idents = map[Address]Patch[*Ident]{}
	}
	d.Idents[addr] = del[*Ident]()
}

// SetStack stages addr -> v in memory.stack.
func (d *Delta) SetStack(addr Address, v *value.StackValue) {
	if d.Stack == nil {
		d.Stack = map[Address]Patch[*value.StackValue]{}
	}
	d.Stack[addr] = set(v)
}

// DeleteStack stages removal of addr from memory.stack.
func (d *Delta) DeleteStack(addr Address) {
	if d.Stack == nil {
		d.Stack = map[Address]Patch[*value.StackValue]{}
	}
	d.Stack[addr] = del[*value.StackValue]()
}

// SetHeap stages addr -> v in memory.heap.
func (d *Delta) SetHeap(addr Address, v *value.HeapValue) {
	if d.Heap == nil {
		d.Heap = map[Address]Patch[*value.HeapValue]{}
	}
	d.Heap[addr] = set(v)
}

// DeleteHeap stages removal of addr from memory.heap.
func (d *Delta) DeleteHeap(addr Address) {
	if d.Heap == nil {
		d.Heap = map[Address]Patch[*value.HeapValue]{}
	}
	d.Heap[addr] = del[*value.HeapValue]()
}

// SetGlobal stages name -> share in globals (share == nil means
// "declared but unallocated").
func (d *Delta) SetGlobal(name ast.Name, share *Shareable) {
	if d.Globals == nil {
		d.Globals = map[ast.Name]Patch[*Shareable]{}
	}
	d.Globals[name] = set(share)
}

// SetLocal stages an edit to one name in one namespace of one frame.
func (d *Delta) SetLocal(key LocalKey, share *Shareable) {
	if d.Locals == nil {
		d.Locals = map[LocalKey]Patch[*Shareable]{}
	}
	d.Locals[key] = set(share)
}

// PushFrame stages pushing f onto the frame stack.
func (d *Delta) PushFrame(f *Frame) {
	d.FrameOps = append(d.FrameOps, FrameOp{Push: f})
}

// PopFrame stages popping the top frame.
func (d *Delta) PopFrame() {
	d.FrameOps = append(d.FrameOps, FrameOp{Pop: true})
}

// Merge composes d1 ⊕ d2 (spec.md §4.2): a right-biased key union on
// every map (d2's entry wins on conflict — "later edits win") and
// ordered concatenation on FrameOps. This is associative and has the
// zero Delta as its identity, which is exactly what P2 tests.
func Merge(d1, d2 Delta) Delta {
	return Delta{
		Idents:   mergeMap(d1.Idents, d2.Idents),
		Stack:    mergeMap(d1.Stack, d2.Stack),
		Heap:     mergeMap(d1.Heap, d2.Heap),
		Globals:  mergeMap(d1.Globals, d2.Globals),
		Locals:   mergeMap(d1.Locals, d2.Locals),
		FrameOps: append(append([]FrameOp{}, d1.FrameOps...), d2.FrameOps...),
	}
}

func mergeMap[K comparable, V any](a, b map[K]Patch[V]) map[K]Patch[V] {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[K]Patch[V], len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Apply folds delta into store, key by key, mutating store in place
// (spec.md §4.2's ◁ operator). Sub-mappings are applied in a fixed
// order (idents, stack, heap, globals, locals, then frame ops); a
// single clause's delta never mixes a Locals edit with a FrameOp
// against the same frame index, so this order never observes a
// half-shifted frame stack (see SPEC_FULL.md §4's dispatch notes).
func Apply(s *Store, d Delta) {
	for addr, p := range d.Idents {
		applyPatch(s.Idents, addr, p)
	}
	for addr, p := range d.Stack {
		applyPatch(s.Memory.Stack, addr, p)
	}
	for addr, p := range d.Heap {
		applyPatch(s.Memory.Heap, addr, p)
	}
	for name, p := range d.Globals {
		applyPatch(s.Env.Globals, name, p)
	}
	for key, p := range d.Locals {
		ns := namespaceFor(s, key)
		if ns == nil {
			continue
		}
		applyPatch(ns, key.Name, p)
	}
	for _, op := range d.FrameOps {
		switch {
		case op.Push != nil:
			s.Env.Frames = append(s.Env.Frames, op.Push)
		case op.Pop:
			if n := len(s.Env.Frames); n > 0 {
				s.Env.Frames = s.Env.Frames[:n-1]
			}
		}
	}
}

func namespaceFor(s *Store, key LocalKey) Namespace {
	if key.Frame < 0 || key.Frame >= len(s.Env.Frames) {
		return nil
	}
	f := s.Env.Frames[key.Frame]
	if key.NS == ClosureNS {
		if f.Closure == nil {
			f.Closure = Namespace{}
		}
		return f.Closure
	}
	if f.Locals == nil {
		f.Locals = Namespace{}
	}
	return f.Locals
}

func applyPatch[K comparable, V any](m map[K]V, k K, p Patch[V]) {
	switch p.Op {
	case PatchDelete:
		delete(m, k)
	default:
		m[k] = p.Value
	}
}
