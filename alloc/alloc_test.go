package alloc

import (
	"testing"

	"github.com/mstep-lang/mstep/ast"
	"github.com/mstep-lang/mstep/store"
)

func TestDeclareUnqualifiedGlobalWhenNoFrames(t *testing.T) {
	s := store.New()
	d, err := Declare(ast.Unqualified{Name: ast.Name("x")}, s)
	if err != nil {
		t.Fatalf("declare: %v", err)
	}
	store.Apply(s, d)

	share, declared := s.Env.Globals.Lookup(ast.Name("x"))
	if !declared || share != nil {
		t.Fatalf("expected x declared but unallocated in globals, got declared=%v share=%v", declared, share)
	}
}

func TestDeclareUnqualifiedLocalInTopFrame(t *testing.T) {
	s := store.New()
	s.Env.Frames = append(s.Env.Frames, store.NewFrame(nil))

	d, err := Declare(ast.Unqualified{Name: ast.Name("x")}, s)
	if err != nil {
		t.Fatalf("declare: %v", err)
	}
	store.Apply(s, d)

	share, declared := s.Env.Frames[0].Locals.Lookup(ast.Name("x"))
	if !declared || share != nil {
		t.Fatalf("expected x declared but unallocated in top frame, got declared=%v share=%v", declared, share)
	}
}

func TestAllocateNewThenReallocateErrors(t *testing.T) {
	s := store.New()
	s.Env.Frames = append(s.Env.Frames, store.NewFrame(nil))

	l := ast.Unqualified{Name: ast.Name("x")}
	d, err := Declare(l, s)
	if err != nil {
		t.Fatalf("declare: %v", err)
	}
	store.Apply(s, d)

	d, addr, err := AllocateNew(l, s)
	if err != nil {
		t.Fatalf("allocate new: %v", err)
	}
	store.Apply(s, d)

	share, declared := s.Env.Frames[0].Locals.Lookup(ast.Name("x"))
	if !declared || share == nil || share.Addr != addr {
		t.Fatalf("expected x allocated in top frame's locals to %v, got %+v", addr, share)
	}
	if _, ok := s.Idents[addr]; !ok {
		t.Fatal("expected a bare identity installed at the fresh address")
	}

	// Allocating again for the same already-present name is rejected
	// rather than overwriting the existing share.
	if _, err := Allocate(l, store.Own(addr), s); err == nil {
		t.Fatal("expected an error allocating an already-allocated lexpr")
	}
}

func TestAllocateUnqualifiedShadowsWhenLocalsAlreadyDeclared(t *testing.T) {
	s := store.New()
	top := store.NewFrame(nil)
	top.Locals[ast.Name("x")] = nil
	s.Env.Frames = append(s.Env.Frames, top)

	addr := s.Fresh()
	d, err := allocateUnqualified(ast.Name("x"), store.Own(addr), s)
	if err != nil {
		t.Fatalf("allocateUnqualified: %v", err)
	}
	store.Apply(s, d)

	if len(s.Env.Frames) != 2 {
		t.Fatalf("expected shadowing to push a new frame, got %d frames", len(s.Env.Frames))
	}
	share, declared := s.Env.Frames[1].Locals.Lookup(ast.Name("x"))
	if !declared || share == nil || share.Addr != addr {
		t.Fatalf("expected x allocated in the new top frame, got %+v", share)
	}
}

func TestDeallocateCascadesOwnedDependents(t *testing.T) {
	s := store.New()

	childAddr := s.Fresh()
	s.Idents[childAddr] = store.NewBareIdent()

	parentAddr := s.Fresh()
	parent := store.NewBareIdent()
	parent.Dependents[ast.Name("child")] = &store.Shareable{Owned: true, Addr: childAddr}
	s.Idents[parentAddr] = parent

	d, err := Deallocate(parentAddr, s)
	if err != nil {
		t.Fatalf("deallocate: %v", err)
	}
	store.Apply(s, d)

	if _, ok := s.Idents[parentAddr]; ok {
		t.Fatal("parent identity should be removed")
	}
	if _, ok := s.Idents[childAddr]; ok {
		t.Fatal("owned child identity should be removed by cascade")
	}
}

func TestDeallocateDoesNotFollowBorrowedDependents(t *testing.T) {
	s := store.New()

	borrowedAddr := s.Fresh()
	s.Idents[borrowedAddr] = store.NewBareIdent()

	parentAddr := s.Fresh()
	parent := store.NewBareIdent()
	parent.Dependents[ast.Name("ref")] = &store.Shareable{Owned: false, Addr: borrowedAddr}
	s.Idents[parentAddr] = parent

	d, err := Deallocate(parentAddr, s)
	if err != nil {
		t.Fatalf("deallocate: %v", err)
	}
	store.Apply(s, d)

	if _, ok := s.Idents[borrowedAddr]; !ok {
		t.Fatal("borrowed dependent should survive deallocation of its owner")
	}
}

func TestDeallocateToleratesCycles(t *testing.T) {
	s := store.New()

	aAddr := s.Fresh()
	bAddr := s.Fresh()
	a := store.NewBareIdent()
	b := store.NewBareIdent()
	a.Dependents[ast.Name("b")] = &store.Shareable{Owned: true, Addr: bAddr}
	b.Dependents[ast.Name("a")] = &store.Shareable{Owned: true, Addr: aAddr}
	s.Idents[aAddr] = a
	s.Idents[bAddr] = b

	d, err := Deallocate(aAddr, s)
	if err != nil {
		t.Fatalf("deallocate: %v", err)
	}
	store.Apply(s, d)

	if _, ok := s.Idents[aAddr]; ok {
		t.Fatal("a should be removed")
	}
	if _, ok := s.Idents[bAddr]; ok {
		t.Fatal("b should be removed despite the a<->b cycle")
	}
}
