package store

import (
	"testing"

	"github.com/mstep-lang/mstep/ast"
	"github.com/mstep-lang/mstep/value"
)

func TestFreshMintsUniqueAddresses(t *testing.T) {
	s := New()
	seen := map[Address]bool{}
	for i := 0; i < 100; i++ {
		a := s.Fresh()
		if seen[a] {
			t.Fatalf("Fresh returned address %v twice", a)
		}
		seen[a] = true
	}
}

func TestFreshLikePreservesAbsence(t *testing.T) {
	s := New()
	if got := s.FreshLike(nil); got != nil {
		t.Fatalf("FreshLike(nil) = %v, want nil", got)
	}
	present := s.Fresh()
	if got := s.FreshLike(&present); got == nil {
		t.Fatal("FreshLike(non-nil) should mint a fresh address")
	}
}

func TestMergeIdentityElement(t *testing.T) {
	var d Delta
	d.SetGlobal(ast.Name("x"), &Shareable{Owned: true, Addr: 1})

	if got := Merge(Delta{}, d); !deltaEqualEnough(got, d) {
		t.Fatalf("Merge(zero, d) should equal d")
	}
	if got := Merge(d, Delta{}); !deltaEqualEnough(got, d) {
		t.Fatalf("Merge(d, zero) should equal d")
	}
}

func TestMergeIsRightBiased(t *testing.T) {
	var d1, d2 Delta
	d1.SetGlobal(ast.Name("x"), &Shareable{Owned: true, Addr: 1})
	d2.SetGlobal(ast.Name("x"), &Shareable{Owned: false, Addr: 2})

	merged := Merge(d1, d2)
	p := merged.Globals[ast.Name("x")]
	if p.Value.Addr != 2 {
		t.Fatalf("Merge should let the second delta's edit win, got addr %v", p.Value.Addr)
	}
}

func TestApplyInstallsIdentsAndLocals(t *testing.T) {
	s := New()
	s.Env.Frames = append(s.Env.Frames, NewFrame(nil))

	var d Delta
	addr := s.Fresh()
	d.SetIdent(addr, NewBareIdent())
	d.SetLocal(LocalKey{Frame: 0, NS: LocalsNS, Name: ast.Name("x")}, &Shareable{Owned: true, Addr: addr})

	Apply(s, d)

	if _, ok := s.Idents[addr]; !ok {
		t.Fatal("ident should be installed after Apply")
	}
	share, declared := s.Env.Frames[0].Locals.Lookup(ast.Name("x"))
	if !declared || share == nil || share.Addr != addr {
		t.Fatal("local should be installed after Apply")
	}
}

func TestApplyFrameOps(t *testing.T) {
	s := New()
	var d Delta
	d.PushFrame(NewFrame(nil))
	Apply(s, d)
	if len(s.Env.Frames) != 1 {
		t.Fatalf("expected 1 frame after push, got %d", len(s.Env.Frames))
	}

	var d2 Delta
	d2.PopFrame()
	Apply(s, d2)
	if len(s.Env.Frames) != 0 {
		t.Fatalf("expected 0 frames after pop, got %d", len(s.Env.Frames))
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := New()
	addr := s.Fresh()
	s.Idents[addr] = NewBareIdent()
	s.Memory.Stack[addr] = &value.StackValue{Tag: value.SmallStack, Sentinel: ast.Sentinel("s")}

	clone := s.Clone()
	clone.Idents[addr].StackAddr = &addr

	if s.Idents[addr].StackAddr != nil {
		t.Fatal("mutating a clone's ident should not affect the original store")
	}
}

func deltaEqualEnough(a, b Delta) bool {
	if len(a.Globals) != len(b.Globals) {
		return false
	}
	for k, v := range a.Globals {
		bv, ok := b.Globals[k]
		if !ok || bv.Value.Addr != v.Value.Addr {
			return false
		}
	}
	return true
}
