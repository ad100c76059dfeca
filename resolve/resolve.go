// Package resolve implements System M's name resolver (spec.md §4.3):
// name -> identity address lookup across nested frames, closures, and
// globals.
//
// The top-down frame walk with a locals-then-closure check per frame is
// grounded on the pack's print.go/eval.go symbol lookup: ogle's
// program/server evaluator resolves a bare identifier by checking the
// current function's local variables before falling back to package-
// level symbols — the same "nearest enclosing scope wins" shape, run
// here over an explicit frame stack instead of DWARF scope blocks.
package resolve

import (
	"github.com/mstep-lang/mstep/ast"
	"github.com/mstep-lang/mstep/errs"
	"github.com/mstep-lang/mstep/store"
)

// Result is what Resolve found: Present is false for a declared-but-
// unallocated slot (the interpreter's "absent" state, not an error —
// see spec.md §7's closing paragraph).
type Result struct {
	Share   store.Shareable
	Present bool
}

// Resolve looks up lexpr against s (spec.md §4.3). An Unqualified name
// walks frames top-down, checking each frame's locals then its closure,
// then the next frame, ... then globals (I4); a Qualified name
// recursively resolves its prefix, which must be present, and looks the
// suffix up in that identity's dependents.
func Resolve(lexpr ast.LExpr, s *store.Store) (Result, error) {
	switch l := lexpr.(type) {
	case ast.Unqualified:
		return resolveUnqualified(l.Name, s)
	case ast.Qualified:
		return resolveQualified(l, s)
	default:
		return Result{}, &errs.Generic{Msg: "resolve: unreachable LExpr type"}
	}
}

func resolveUnqualified(name ast.Name, s *store.Store) (Result, error) {
	for i := len(s.Env.Frames) - 1; i >= 0; i-- {
		f := s.Env.Frames[i]
		if share, declared := f.Locals.Lookup(name); declared {
			return toResult(share), nil
		}
		if share, declared := f.Closure.Lookup(name); declared {
			return toResult(share), nil
		}
	}
	if share, declared := s.Env.Globals.Lookup(name); declared {
		return toResult(share), nil
	}
	return Result{}, &errs.NameResolution{LExpr: string(name)}
}

func resolveQualified(l ast.Qualified, s *store.Store) (Result, error) {
	prefix, err := Resolve(l.Prefix, s)
	if err != nil {
		return Result{}, err
	}
	if !prefix.Present {
		return Result{}, &errs.Allocation{LExpr: l.Prefix.String()}
	}
	id, ok := s.Idents[prefix.Share.Addr]
	if !ok {
		return Result{}, &errs.IdentResolution{Addr: uint64(prefix.Share.Addr)}
	}
	share, declared := id.Dependents.Lookup(l.Suffix)
	if !declared {
		return Result{}, &errs.NameResolution{LExpr: l.String()}
	}
	return toResult(share), nil
}

func toResult(share *store.Shareable) Result {
	if share == nil {
		return Result{Present: false}
	}
	return Result{Share: *share, Present: true}
}
