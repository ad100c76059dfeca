// Package store implements System M's store model and delta patching
// (spec.md §3, §4.2): the environment stack, the identity table, split
// stack/heap memory, and the Delta/Apply/Merge machinery every stepper
// rule rewrites the store through.
//
// The shape of Store — a handful of address-keyed maps plus an
// environment, read and written through a small set of owning methods —
// is grounded on golang-debug's internal/core.Process: a Process holds
// a splicedMemory, a symbol table, and thread state behind the same
// kind of narrow accessor surface (Mappings, Readable, findMapping),
// rather than exposing its maps directly for ad-hoc mutation.
package store

import "github.com/mstep-lang/mstep/value"

// Store is {environment, idents, memory} (spec.md §3).
type Store struct {
	Env    Environment
	Idents map[Address]*Ident
	Memory Memory

	// nextAddr is the one mutable resource spec.md §5 calls out: the
	// monotonic address counter. Every other field is only ever
	// mutated through Apply — this one is mutated directly by Fresh,
	// by design (see SPEC_FULL.md §3).
	nextAddr Address
}

// New returns an empty, concrete store: no frames, no identities, no
// memory, counter at zero.
func New() *Store {
	return &Store{
		Env:    NewEnvironment(),
		Idents: map[Address]*Ident{},
		Memory: newMemory(),
	}
}

// Fresh mints and returns a new, never-before-issued address (I6).
func (s *Store) Fresh() Address {
	s.nextAddr++
	return s.nextAddr
}

// FreshLike mints a fresh address if present is non-nil, and stays
// absent (nil) otherwise — used so move/copy preserves the "this slot
// never had a heap cell" distinction (spec.md §4.4 freshAddressLike).
func (s *Store) FreshLike(present *Address) *Address {
	if present == nil {
		return nil
	}
	a := s.Fresh()
	return &a
}

// Clone returns a fully independent deep copy of s, including the
// address counter. Used to snapshot a store for the event log and to
// give property tests a baseline to diff against.
func (s *Store) Clone() *Store {
	out := &Store{
		Env:      s.Env.clone(),
		Idents:   make(map[Address]*Ident, len(s.Idents)),
		Memory:   s.Memory.clone(),
		nextAddr: s.nextAddr,
	}
	for k, v := range s.Idents {
		out.Idents[k] = v.Clone()
	}
	return out
}

// StackCell reads the stack value at addr, if any.
func (s *Store) StackCell(addr Address) (*value.StackValue, bool) {
	v, ok := s.Memory.Stack[addr]
	return v, ok
}

// HeapCell reads the heap value at addr, if any.
func (s *Store) HeapCell(addr Address) (*value.HeapValue, bool) {
	v, ok := s.Memory.Heap[addr]
	return v, ok
}
