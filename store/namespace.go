package store

import "github.com/mstep-lang/mstep/ast"

// Namespace is a name -> optionally-present Shareable mapping. The
// three-valued discipline spec.md §3/§9 insists on (absent key /
// present-but-unallocated / present-and-allocated) is carried by the
// pointer itself: a missing key means "not declared at all"; a present
// key mapping to a nil *Shareable means "declared but unallocated"; any
// other present key carries the allocated share. Collapsing this into
// a bare map[ast.Name]Shareable would lose the middle state, which is
// exactly the distinction §9 calls "essential."
type Namespace map[ast.Name]*Shareable

// Lookup reports whether name is a key in ns at all, and if so, its
// (possibly nil) share.
func (ns Namespace) Lookup(name ast.Name) (share *Shareable, declared bool) {
	share, declared = ns[name]
	return share, declared
}

// Clone returns an independent copy of ns. Shareable values are
// immutable once written, so the copy shares no mutable state with ns.
func (ns Namespace) Clone() Namespace {
	if ns == nil {
		return nil
	}
	out := make(Namespace, len(ns))
	for k, v := range ns {
		out[k] = v
	}
	return out
}
