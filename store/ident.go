package store

import "github.com/mstep-lang/mstep/ast"

// Ident is the record an identity address names (spec.md §3): an
// optional stack address, an optional heap address, and a namespace of
// dependent names (used for captures and struct-like sub-fields).
type Ident struct {
	Dependents Namespace
	StackAddr  *Address
	HeapAddr   *Address
}

// NewBareIdent returns an identity with neither address set: a bare
// identity, as minted by allocateNew (spec.md §4.4).
func NewBareIdent() *Ident {
	return &Ident{Dependents: Namespace{}}
}

// Bare reports whether id has neither a stack nor a heap address.
func (id *Ident) Bare() bool {
	return id.StackAddr == nil && id.HeapAddr == nil
}

// Clone returns a deep-enough independent copy: a new Ident struct, a
// cloned Dependents namespace, and copies of the address pointers
// (addresses are immutable once minted, so copying the pointee is
// enough to make the clone independent).
func (id *Ident) Clone() *Ident {
	if id == nil {
		return nil
	}
	out := &Ident{Dependents: id.Dependents.Clone()}
	if id.StackAddr != nil {
		a := *id.StackAddr
		out.StackAddr = &a
	}
	if id.HeapAddr != nil {
		a := *id.HeapAddr
		out.HeapAddr = &a
	}
	return out
}

// WithDependent returns a clone of id with dependent name bound to
// share (share == nil means "declared but unallocated").
func (id *Ident) WithDependent(name ast.Name, share *Shareable) *Ident {
	out := id.Clone()
	if out.Dependents == nil {
		out.Dependents = Namespace{}
	}
	out.Dependents[name] = share
	return out
}
