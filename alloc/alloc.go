// Package alloc implements System M's allocator (spec.md §4.4):
// declare, allocate, allocateNew, deallocate, and the fresh-address
// primitives. Every function here is a pure read of the current store
// plus a Delta describing the edit the stepper should apply — allocator
// functions never mutate a Store directly (the one exception, minting a
// fresh address, lives on Store.Fresh/Store.FreshLike, since spec.md §5
// calls the address counter out as the interpreter's one mutable
// resource).
//
// The cascading-deallocate-with-a-visited-set shape is grounded on
// edirooss-zmux-server's processmgr.slotPool: an explicit ownership
// table (acquiredBy) that panics on protocol violations rather than
// silently double-releasing — here, a dependent already visited during
// a cascade is skipped rather than re-descended, for the same reason
// (spec.md §9's cycle open question).
package alloc

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/mstep-lang/mstep/ast"
	"github.com/mstep-lang/mstep/errs"
	"github.com/mstep-lang/mstep/resolve"
	"github.com/mstep-lang/mstep/store"
)

// Declare inserts name -> absent at the correct scope (spec.md §4.4):
// the top frame's locals (or globals, if the frame stack is empty) for
// an Unqualified name; the prefix identity's dependents for a
// Qualified one.
func Declare(l ast.LExpr, s *store.Store) (store.Delta, error) {
	var d store.Delta
	switch le := l.(type) {
	case ast.Unqualified:
		if top := s.Env.Top(); top == nil {
			d.SetGlobal(le.Name, nil)
		} else {
			d.SetLocal(store.LocalKey{Frame: len(s.Env.Frames) - 1, NS: store.LocalsNS, Name: le.Name}, nil)
		}
		return d, nil
	case ast.Qualified:
		id, addr, err := resolvePresentIdent(le.Prefix, s)
		if err != nil {
			return store.Delta{}, err
		}
		d.SetIdent(addr, id.WithDependent(le.Suffix, nil))
		return d, nil
	default:
		return store.Delta{}, &errs.Generic{Msg: "declare: unreachable LExpr type"}
	}
}

// Allocate writes share into l's currently-declared-absent slot
// (spec.md §4.4). It errors if l does not currently resolve to an
// absent slot (either it is not declared at all, or it is already
// allocated).
func Allocate(l ast.LExpr, share store.Shareable, s *store.Store) (store.Delta, error) {
	res, err := resolve.Resolve(l, s)
	if err != nil {
		return store.Delta{}, err
	}
	if res.Present {
		return store.Delta{}, &errs.Generic{Msg: fmt.Sprintf("allocate: %s is already allocated", l)}
	}
	switch le := l.(type) {
	case ast.Unqualified:
		return allocateUnqualified(le.Name, share, s)
	case ast.Qualified:
		id, addr, err := resolvePresentIdent(le.Prefix, s)
		if err != nil {
			return store.Delta{}, err
		}
		var d store.Delta
		d.SetIdent(addr, id.WithDependent(le.Suffix, &share))
		return d, nil
	default:
		return store.Delta{}, &errs.Generic{Msg: "allocate: unreachable LExpr type"}
	}
}

// allocateUnqualified is the shadowing-aware walk of spec.md §4.4,
// pinned down in SPEC_FULL.md §4: if the top frame's locals already
// has a key for name, push a new frame (closing over the same closure
// as the current top) and allocate there; otherwise bubble down to
// whichever frame (locals or closure) or globals currently declares
// name, mirroring the resolver's own walk.
func allocateUnqualified(name ast.Name, share store.Shareable, s *store.Store) (store.Delta, error) {
	var d store.Delta
	if top := s.Env.Top(); top != nil {
		if _, declared := top.Locals.Lookup(name); declared {
			f := store.NewFrame(top.Closure)
			f.Locals[name] = &share
			d.PushFrame(f)
			return d, nil
		}
	}
	frame, ns, isGlobal, found := locate(name, s)
	if !found {
		return store.Delta{}, &errs.Generic{Msg: fmt.Sprintf("allocate: %s has no declared slot", name)}
	}
	if isGlobal {
		d.SetGlobal(name, &share)
	} else {
		d.SetLocal(store.LocalKey{Frame: frame, NS: ns, Name: name}, &share)
	}
	return d, nil
}

// AllocateNew mints a fresh identity address, allocates l as Owned,
// and inserts a bare identity entry for it (spec.md §4.4).
func AllocateNew(l ast.LExpr, s *store.Store) (store.Delta, store.Address, error) {
	addr := s.Fresh()
	d, err := Allocate(l, store.Own(addr), s)
	if err != nil {
		return store.Delta{}, 0, err
	}
	d.SetIdent(addr, store.NewBareIdent())
	return d, addr, nil
}

// Deallocate recursively deallocates addr's owned dependents, then
// removes its identity entry and any stack/heap cells it holds
// (spec.md §4.4, I5). Borrowed dependents are never followed. A
// visited set guards against dependent cycles (spec.md §9's open
// question); errors encountered while walking dependents are
// aggregated with multierr rather than short-circuiting the cascade.
func Deallocate(addr store.Address, s *store.Store) (store.Delta, error) {
	var d store.Delta
	err := deallocateInto(addr, s, &d, map[store.Address]bool{})
	return d, err
}

func deallocateInto(addr store.Address, s *store.Store, d *store.Delta, visited map[store.Address]bool) error {
	if visited[addr] {
		return nil
	}
	visited[addr] = true

	id, ok := s.Idents[addr]
	if !ok {
		return &errs.IdentResolution{Addr: uint64(addr)}
	}

	var agg error
	for _, share := range id.Dependents {
		if share != nil && share.Owned {
			if err := deallocateInto(share.Addr, s, d, visited); err != nil {
				agg = multierr.Append(agg, err)
			}
		}
	}

	if id.StackAddr != nil {
		d.DeleteStack(*id.StackAddr)
	}
	if id.HeapAddr != nil {
		d.DeleteHeap(*id.HeapAddr)
	}
	d.DeleteIdent(addr)
	return agg
}

// locate finds where name is currently declared: which frame's locals
// or closure, or globals — the same top-down walk resolve.Resolve
// performs, exposed here with the location rather than the value,
// since allocateUnqualified needs to know *where* to write.
func locate(name ast.Name, s *store.Store) (frame int, ns store.NamespaceKind, isGlobal bool, found bool) {
	for i := len(s.Env.Frames) - 1; i >= 0; i-- {
		f := s.Env.Frames[i]
		if _, declared := f.Locals.Lookup(name); declared {
			return i, store.LocalsNS, false, true
		}
		if _, declared := f.Closure.Lookup(name); declared {
			return i, store.ClosureNS, false, true
		}
	}
	if _, declared := s.Env.Globals.Lookup(name); declared {
		return 0, 0, true, true
	}
	return 0, 0, false, false
}

// resolvePresentIdent resolves l and requires it to be a present
// identity, returning that identity and its address.
func resolvePresentIdent(l ast.LExpr, s *store.Store) (*store.Ident, store.Address, error) {
	res, err := resolve.Resolve(l, s)
	if err != nil {
		return nil, 0, err
	}
	if !res.Present {
		return nil, 0, &errs.Allocation{LExpr: l.String()}
	}
	id, ok := s.Idents[res.Share.Addr]
	if !ok {
		return nil, 0, &errs.IdentResolution{Addr: uint64(res.Share.Addr)}
	}
	return id, res.Share.Addr, nil
}
