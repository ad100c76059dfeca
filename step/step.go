// Package step implements System M's stepper (spec.md §4.6): the
// small-step reduction relation over a clause sequence and a store.
// Step consumes exactly one reduction worth of work — sometimes a full
// materialization, sometimes just a desugaring or a declare-and-retry —
// and returns the resulting clause sequence, any trace events the
// reduction produced, and an error if the reduction failed.
//
// The shape — one function dispatching on clause/expression type,
// delegating each case to its own small handler that builds a Delta
// and applies it once — mirrors golang-debug's ogle evaluator
// (eval.go's Eval type-switches over ast.Expr and recurses into
// per-node handlers), adapted here from a tree-walking evaluator to an
// explicit rewrite-and-continue loop so every reduction is auditable
// one clause at a time rather than a single recursive descent.
package step

import (
	"fmt"
	"sort"

	"go.uber.org/multierr"

	"github.com/mstep-lang/mstep/alloc"
	"github.com/mstep-lang/mstep/ast"
	"github.com/mstep-lang/mstep/errs"
	"github.com/mstep-lang/mstep/inspect"
	"github.com/mstep-lang/mstep/resolve"
	"github.com/mstep-lang/mstep/store"
	"github.com/mstep-lang/mstep/trace"
	"github.com/mstep-lang/mstep/value"
)

// Step performs one reduction of prog against s, mutating s in place
// and returning the continuation program and any events emitted. An
// empty prog is returned unchanged with no events; callers (the
// driver) decide when an empty program means the run is done.
func Step(prog ast.Program, s *store.Store) (ast.Program, []trace.Event, error) {
	if len(prog) == 0 {
		return prog, nil, nil
	}
	clause, rest := prog[0], prog[1:]
	switch c := clause.(type) {
	case ast.Assignment:
		return stepAssignment(c, rest, s)
	case ast.Synchronization:
		return stepSynchronization(c, rest, s)
	case ast.Return:
		return stepReturn(rest, s)
	default:
		return nil, nil, &errs.Generic{Msg: "step: unreachable clause type"}
	}
}

func stepAssignment(a ast.Assignment, rest ast.Program, s *store.Store) (ast.Program, []trace.Event, error) {
	if newProg, handled := desugarSynchronizing(a, rest); handled {
		return newProg, nil, nil
	}

	res, err := resolve.Resolve(a.L, s)
	if err != nil {
		if _, ok := err.(*errs.NameResolution); ok {
			return declareAndRetry(a, rest, s)
		}
		return nil, nil, err
	}

	if !res.Present {
		if bidExpr, ok := a.R.(ast.BidExpression); ok && bidExpr.Bid.Mode == ast.Refr {
			return stepRefr(a, bidExpr.Bid, rest, s)
		}
		return allocateAndRetry(a, rest, s)
	}

	lAddr := res.Share.Addr
	switch r := a.R.(type) {
	case ast.BidExpression:
		ns, ok := r.Bid.Target.(ast.NonSynchronizing)
		if !ok {
			return nil, nil, &errs.Generic{Msg: "step: unreachable target type"}
		}
		switch r.Bid.Mode {
		case ast.Refr:
			return nil, nil, &errs.Generic{Msg: fmt.Sprintf("step: %s already has an identity, cannot re-point it", a.L)}
		case ast.Move:
			return stepMove(a, ns.L, rest, s, lAddr)
		case ast.Copy:
			return stepCopy(a, ns.L, rest, s, lAddr)
		default:
			return nil, nil, &errs.Generic{Msg: "step: unreachable materialization mode"}
		}
	case ast.Application:
		return stepApplication(a, r, rest, s)
	case ast.LiteralExpression:
		return stepLiteral(a, r.Literal, rest, s, lAddr)
	default:
		return nil, nil, &errs.Generic{Msg: "step: unreachable r-expression type"}
	}
}

// desugarSynchronizing implements S1/S2: an Assignment whose R wraps a
// Synchronizing target is rewritten into a leading Synchronization of
// that target plus the same assignment with the target downgraded to
// NonSynchronizing.
func desugarSynchronizing(a ast.Assignment, rest ast.Program) (ast.Program, bool) {
	switch r := a.R.(type) {
	case ast.BidExpression:
		if sync, ok := r.Bid.Target.(ast.Synchronizing); ok {
			newA := ast.Assignment{L: a.L, R: ast.BidExpression{Bid: ast.Bid{Target: ast.NonSynchronizing{L: sync.L}, Mode: r.Bid.Mode}}}
			return append(ast.Program{ast.Synchronization{L: sync.L}, newA}, rest...), true
		}
	case ast.Application:
		if sync, ok := r.Target.(ast.Synchronizing); ok {
			newA := ast.Assignment{L: a.L, R: ast.Application{Target: ast.NonSynchronizing{L: sync.L}, Arg: r.Arg}}
			return append(ast.Program{ast.Synchronization{L: sync.L}, newA}, rest...), true
		}
	}
	return nil, false
}

// declareAndRetry is S3: L does not resolve at all, so declare it in
// the correct scope and retry the same assignment next step.
func declareAndRetry(a ast.Assignment, rest ast.Program, s *store.Store) (ast.Program, []trace.Event, error) {
	d, err := alloc.Declare(a.L, s)
	if err != nil {
		return nil, nil, err
	}
	snap := applyAndSnapshot(s, d)
	ev := trace.ClauseEvent{Clause: a, Snapshot: snap, Tag: trace.Declaration}
	return append(ast.Program{a}, rest...), []trace.Event{ev}, nil
}

// allocateAndRetry is S5: L is declared-absent and R is a non-Refr
// form, so allocate L as Owned(fresh) with a bare identity and retry.
func allocateAndRetry(a ast.Assignment, rest ast.Program, s *store.Store) (ast.Program, []trace.Event, error) {
	d, _, err := alloc.AllocateNew(a.L, s)
	if err != nil {
		return nil, nil, err
	}
	snap := applyAndSnapshot(s, d)
	ev := trace.ClauseEvent{Clause: a, Snapshot: snap, Tag: trace.Allocation}
	return append(ast.Program{a}, rest...), []trace.Event{ev}, nil
}

// stepRefr is S4: L is declared-absent and R is a Refr bid. Resolve
// the bid's target, which must be present, and allocate L as a
// Borrowed share of that identity.
func stepRefr(a ast.Assignment, bid ast.Bid, rest ast.Program, s *store.Store) (ast.Program, []trace.Event, error) {
	ns, ok := bid.Target.(ast.NonSynchronizing)
	if !ok {
		return nil, nil, &errs.Generic{Msg: "step: unreachable target type"}
	}
	rRes, err := resolve.Resolve(ns.L, s)
	if err != nil {
		return nil, nil, err
	}
	if !rRes.Present {
		return nil, nil, &errs.Allocation{LExpr: ns.L.String()}
	}

	d, err := alloc.Allocate(a.L, store.Borrow(rRes.Share.Addr), s)
	if err != nil {
		return nil, nil, err
	}
	snap := applyAndSnapshot(s, d)
	ev := trace.ClauseEvent{Clause: a, Snapshot: snap, Tag: trace.AssignByReference}
	return rest, []trace.Event{ev}, nil
}

// stepMove is S6. It mints L's identity a fresh stack address (fresh
// only if R had one), copies R's stack content there, and transfers
// R's heap address to L, clearing R's. R's own stack cell is left
// untouched: it still has a LargeStack cell with no paired heap cell,
// so a later inspect(r) on a moved-from large value fails with
// RecompositionError, which is what the seed scenario for Move
// expects and is the only reading consistent with P6.
func stepMove(a ast.Assignment, rName ast.LExpr, rest ast.Program, s *store.Store, lAddr store.Address) (ast.Program, []trace.Event, error) {
	rRes, err := resolve.Resolve(rName, s)
	if err != nil {
		return nil, nil, err
	}
	if !rRes.Present {
		return nil, nil, &errs.Allocation{LExpr: rName.String()}
	}
	rAddr := rRes.Share.Addr

	lid, ok := s.Idents[lAddr]
	if !ok {
		return nil, nil, &errs.IdentResolution{Addr: uint64(lAddr)}
	}
	rid, ok := s.Idents[rAddr]
	if !ok {
		return nil, nil, &errs.IdentResolution{Addr: uint64(rAddr)}
	}

	var d store.Delta
	newStackAddr := s.FreshLike(rid.StackAddr)
	if newStackAddr != nil {
		cell, ok := s.StackCell(*rid.StackAddr)
		if !ok {
			return nil, nil, &errs.StackResolution{Addr: uint64(*rid.StackAddr)}
		}
		cellCopy := *cell
		d.SetStack(*newStackAddr, &cellCopy)
	}
	if lid.StackAddr != nil {
		d.DeleteStack(*lid.StackAddr)
	}
	if lid.HeapAddr != nil {
		d.DeleteHeap(*lid.HeapAddr)
	}

	d.SetIdent(lAddr, &store.Ident{Dependents: lid.Dependents, StackAddr: newStackAddr, HeapAddr: rid.HeapAddr})
	d.SetIdent(rAddr, &store.Ident{Dependents: rid.Dependents, StackAddr: rid.StackAddr, HeapAddr: nil})
	store.Apply(s, d)

	deps := dependentAssignments(a.L, rName, rid, ast.Move)
	return append(append(ast.Program{}, deps...), rest...), nil, nil
}

// stepCopy is S7: like Move, but both stack and heap get fresh
// addresses and duplicated cell contents, and R's identity is left
// completely unmodified.
func stepCopy(a ast.Assignment, rName ast.LExpr, rest ast.Program, s *store.Store, lAddr store.Address) (ast.Program, []trace.Event, error) {
	rRes, err := resolve.Resolve(rName, s)
	if err != nil {
		return nil, nil, err
	}
	if !rRes.Present {
		return nil, nil, &errs.Allocation{LExpr: rName.String()}
	}
	rAddr := rRes.Share.Addr

	lid, ok := s.Idents[lAddr]
	if !ok {
		return nil, nil, &errs.IdentResolution{Addr: uint64(lAddr)}
	}
	rid, ok := s.Idents[rAddr]
	if !ok {
		return nil, nil, &errs.IdentResolution{Addr: uint64(rAddr)}
	}

	var d store.Delta
	newStackAddr := s.FreshLike(rid.StackAddr)
	if newStackAddr != nil {
		cell, ok := s.StackCell(*rid.StackAddr)
		if !ok {
			return nil, nil, &errs.StackResolution{Addr: uint64(*rid.StackAddr)}
		}
		cellCopy := *cell
		d.SetStack(*newStackAddr, &cellCopy)
	}
	newHeapAddr := s.FreshLike(rid.HeapAddr)
	if newHeapAddr != nil {
		cell, ok := s.HeapCell(*rid.HeapAddr)
		if !ok {
			return nil, nil, &errs.HeapResolution{Addr: uint64(*rid.HeapAddr)}
		}
		cellCopy := *cell
		d.SetHeap(*newHeapAddr, &cellCopy)
	}
	if lid.StackAddr != nil {
		d.DeleteStack(*lid.StackAddr)
	}
	if lid.HeapAddr != nil {
		d.DeleteHeap(*lid.HeapAddr)
	}

	d.SetIdent(lAddr, &store.Ident{Dependents: lid.Dependents, StackAddr: newStackAddr, HeapAddr: newHeapAddr})
	store.Apply(s, d)

	deps := dependentAssignments(a.L, rName, rid, ast.Copy)
	return append(append(ast.Program{}, deps...), rest...), nil, nil
}

// dependentAssignments builds the recursive per-dependent assignments
// S6/S7 prepend: one Assignment(l.name, Bid(Synchronizing(r.name), m))
// per present dependent of rid, in a deterministic (sorted) name order
// since Namespace is a Go map and the stepper must stay a pure,
// reproducible function of its inputs (spec.md §5).
func dependentAssignments(l, r ast.LExpr, rid *store.Ident, mode ast.Materialization) []ast.Clause {
	var out []ast.Clause
	for _, name := range sortedNames(rid.Dependents) {
		if rid.Dependents[name] == nil {
			continue
		}
		out = append(out, ast.Assignment{
			L: ast.Qualified{Prefix: l, Suffix: name},
			R: ast.BidExpression{Bid: ast.Bid{
				Target: ast.Synchronizing{L: ast.Qualified{Prefix: r, Suffix: name}},
				Mode:   mode,
			}},
		})
	}
	return out
}

// stepLiteral is S8/S9/S10, dispatched on the literal's shape.
func stepLiteral(a ast.Assignment, lit ast.Literal, rest ast.Program, s *store.Store, lAddr store.Address) (ast.Program, []trace.Event, error) {
	lid, ok := s.Idents[lAddr]
	if !ok {
		return nil, nil, &errs.IdentResolution{Addr: uint64(lAddr)}
	}

	switch l := lit.(type) {
	case ast.PrimitiveLiteral:
		var shallow value.Shallow
		switch pv := l.Value.(type) {
		case ast.SmallPrimitive:
			shallow = value.Primitive{Kind: value.Small, Sentinel: pv.Sentinel()}
		case ast.LargePrimitive:
			shallow = value.Primitive{Kind: value.Large, Sentinel: pv.Sentinel()}
		default:
			return nil, nil, &errs.Generic{Msg: "step: unreachable primitive value type"}
		}
		stackVal, heapVal := value.Decompose(shallow)

		var d store.Delta
		newStackAddr := s.Fresh()
		d.SetStack(newStackAddr, stackVal)
		var newHeapAddr *store.Address
		tag := trace.SmallLiteralAssignment
		if heapVal != nil {
			ha := s.Fresh()
			newHeapAddr = &ha
			d.SetHeap(ha, heapVal)
			tag = trace.LargeLiteralAssignment
		}
		d.SetIdent(lAddr, &store.Ident{Dependents: lid.Dependents, StackAddr: &newStackAddr, HeapAddr: newHeapAddr})

		snap := applyAndSnapshot(s, d)
		ev := trace.ClauseEvent{Clause: a, Snapshot: snap, Tag: tag}
		return rest, []trace.Event{ev}, nil

	case ast.CaptureExpression:
		fn := value.Function{Formal: l.Abstraction.Formal, Body: l.Abstraction.Body, Return: l.Abstraction.Return}
		stackVal, _ := value.Decompose(fn)

		var d store.Delta
		newStackAddr := s.Fresh()
		d.SetStack(newStackAddr, stackVal)
		d.SetIdent(lAddr, &store.Ident{Dependents: lid.Dependents, StackAddr: &newStackAddr, HeapAddr: nil})

		snap := applyAndSnapshot(s, d)
		ev := trace.ClauseEvent{Clause: a, Snapshot: snap, Tag: trace.AbstractionLiteralAssignment}

		captureClauses := make([]ast.Clause, 0, len(l.Captures))
		for _, c := range l.Captures {
			captureClauses = append(captureClauses, ast.Assignment{
				L: ast.Qualified{Prefix: a.L, Suffix: c.Name},
				R: ast.BidExpression{Bid: c.Bid},
			})
		}
		return append(captureClauses, rest...), []trace.Event{ev}, nil

	default:
		return nil, nil, &errs.Generic{Msg: "step: unreachable literal type"}
	}
}

// stepApplication is S11. f must resolve and inspect to a function
// value; the call expands into an assignment of the formal parameter,
// the function body, an assignment of L to the return expression, and
// a trailing Return, all run inside a freshly pushed frame closing
// over f's dependents.
func stepApplication(a ast.Assignment, app ast.Application, rest ast.Program, s *store.Store) (ast.Program, []trace.Event, error) {
	ns, ok := app.Target.(ast.NonSynchronizing)
	if !ok {
		return nil, nil, &errs.Generic{Msg: "step: unreachable target type"}
	}
	fRes, err := resolve.Resolve(ns.L, s)
	if err != nil {
		return nil, nil, err
	}
	if !fRes.Present {
		return nil, nil, &errs.Allocation{LExpr: ns.L.String()}
	}
	shallow, err := inspect.Inspect(fRes.Share.Addr, s)
	if err != nil {
		return nil, nil, err
	}
	fn, ok := shallow.(value.Function)
	if !ok {
		return nil, nil, &errs.Generic{Msg: fmt.Sprintf("step: %s is not a function value", ns.L)}
	}
	fid, ok := s.Idents[fRes.Share.Addr]
	if !ok {
		return nil, nil, &errs.IdentResolution{Addr: uint64(fRes.Share.Addr)}
	}

	var d store.Delta
	d.PushFrame(store.NewFrame(fid.Dependents))
	snap := applyAndSnapshot(s, d)
	ev := trace.ClauseEvent{Clause: a, Snapshot: snap, Tag: trace.ApplicationTag}

	expanded := make(ast.Program, 0, len(fn.Body)+3)
	expanded = append(expanded, ast.Assignment{L: ast.Unqualified{Name: fn.Formal}, R: ast.BidExpression{Bid: app.Arg}})
	expanded = append(expanded, fn.Body...)
	expanded = append(expanded, ast.Assignment{L: a.L, R: fn.Return})
	expanded = append(expanded, ast.Return{})

	return append(expanded, rest...), []trace.Event{ev}, nil
}

// stepSynchronization is S12: resolve and inspect L, emitting its
// shallow value into the trace.
func stepSynchronization(c ast.Synchronization, rest ast.Program, s *store.Store) (ast.Program, []trace.Event, error) {
	res, err := resolve.Resolve(c.L, s)
	if err != nil {
		return nil, nil, err
	}
	if !res.Present {
		return nil, nil, &errs.Allocation{LExpr: c.L.String()}
	}
	shallow, err := inspect.Inspect(res.Share.Addr, s)
	if err != nil {
		return nil, nil, err
	}
	return rest, []trace.Event{trace.SynchronizationEvent{LExpr: c.L, Value: shallow}}, nil
}

// stepReturn is S13: pop the top frame, cascading-deallocate each
// owned local, and continue with the rest of the program.
func stepReturn(rest ast.Program, s *store.Store) (ast.Program, []trace.Event, error) {
	top := s.Env.Top()
	if top == nil {
		return nil, nil, &errs.StackReturn{}
	}

	var d store.Delta
	var agg error
	for _, name := range sortedNames(top.Locals) {
		share := top.Locals[name]
		if share == nil || !share.Owned {
			continue
		}
		dd, err := alloc.Deallocate(share.Addr, s)
		d = store.Merge(d, dd)
		if err != nil {
			agg = multierr.Append(agg, err)
		}
	}
	if agg != nil {
		return nil, nil, agg
	}

	d.PopFrame()
	snap := applyAndSnapshot(s, d)
	ev := trace.ClauseEvent{Clause: ast.Return{}, Snapshot: snap, Tag: trace.ReturnTag}
	return rest, []trace.Event{ev}, nil
}

func applyAndSnapshot(s *store.Store, d store.Delta) store.Snapshot {
	store.Apply(s, d)
	return s.Snapshot()
}

func sortedNames(ns store.Namespace) []ast.Name {
	names := make([]ast.Name, 0, len(ns))
	for n := range ns {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
