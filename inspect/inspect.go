// Package inspect implements System M's value inspector (spec.md §4.5):
// reading the shallow value a present identity currently recomposes to,
// and the full dependent-closed Deep value beneath it.
//
// The shallow/deep split, and guarding the deep walk with a visited set
// rather than trusting the dependent graph is acyclic, follows the
// pack's own Printer.printValueAt: it walks a value's structure
// recursively and keeps a visited map of (type, address) pairs so a
// cyclic data structure prints "(type addr)" once instead of looping
// forever. Here the cycle marker is an address alone, and a revisited
// address simply stops descending rather than producing an error.
package inspect

import (
	"github.com/mstep-lang/mstep/ast"
	"github.com/mstep-lang/mstep/errs"
	"github.com/mstep-lang/mstep/store"
	"github.com/mstep-lang/mstep/value"
)

// Inspect recomposes the shallow value a present identity currently
// holds (spec.md §4.5): its stack cell, plus its heap cell if it has
// one. A bare identity (one with no stack cell at all) has nothing to
// recompose.
func Inspect(addr store.Address, s *store.Store) (value.Shallow, error) {
	id, ok := s.Idents[addr]
	if !ok {
		return nil, &errs.IdentResolution{Addr: uint64(addr)}
	}

	if id.StackAddr == nil {
		return nil, &errs.Generic{Msg: "inspect: identity has no materialized value"}
	}
	stackVal, ok := s.StackCell(*id.StackAddr)
	if !ok {
		return nil, &errs.StackResolution{Addr: uint64(*id.StackAddr)}
	}

	var heapVal *value.HeapValue
	if id.HeapAddr != nil {
		hv, ok := s.HeapCell(*id.HeapAddr)
		if !ok {
			return nil, &errs.HeapResolution{Addr: uint64(*id.HeapAddr)}
		}
		heapVal = hv
	}

	return value.Recompose(stackVal, heapVal)
}

// InspectDeep recomposes addr's shallow value together with a Deep
// value for every Owned or Borrowed dependent identity, recursively.
func InspectDeep(addr store.Address, s *store.Store) (value.Deep, error) {
	return inspectDeep(addr, s, map[store.Address]bool{})
}

func inspectDeep(addr store.Address, s *store.Store, visited map[store.Address]bool) (value.Deep, error) {
	shallow, err := Inspect(addr, s)
	if err != nil {
		return value.Deep{}, err
	}
	if visited[addr] {
		return value.Deep{Value: shallow}, nil
	}
	visited[addr] = true

	id := s.Idents[addr]
	var deps map[ast.Name]value.Deep
	for name, share := range id.Dependents {
		if share == nil {
			continue
		}
		dv, err := inspectDeep(share.Addr, s, visited)
		if err != nil {
			return value.Deep{}, err
		}
		if deps == nil {
			deps = map[ast.Name]value.Deep{}
		}
		deps[name] = dv
	}

	return value.Deep{Value: shallow, Dependents: deps}, nil
}
