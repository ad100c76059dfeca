package inspect

import (
	"testing"

	"github.com/mstep-lang/mstep/ast"
	"github.com/mstep-lang/mstep/store"
	"github.com/mstep-lang/mstep/value"
)

func TestInspectSmallPrimitive(t *testing.T) {
	s := store.New()
	addr := s.Fresh()
	stackAddr := s.Fresh()
	s.Memory.Stack[stackAddr] = &value.StackValue{Tag: value.SmallStack, Sentinel: ast.Sentinel("hi")}
	id := store.NewBareIdent()
	id.StackAddr = &stackAddr
	s.Idents[addr] = id

	got, err := Inspect(addr, s)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	prim, ok := got.(value.Primitive)
	if !ok || prim.Sentinel != ast.Sentinel("hi") {
		t.Fatalf("expected small primitive \"hi\", got %v", got)
	}
}

func TestInspectBareIdentityFails(t *testing.T) {
	s := store.New()
	addr := s.Fresh()
	s.Idents[addr] = store.NewBareIdent()

	if _, err := Inspect(addr, s); err == nil {
		t.Fatal("expected an error inspecting a bare identity")
	}
}

func TestInspectMovedFromLargeValueFailsRecomposition(t *testing.T) {
	s := store.New()
	addr := s.Fresh()
	stackAddr := s.Fresh()
	s.Memory.Stack[stackAddr] = &value.StackValue{Tag: value.LargeStack, Sentinel: ast.Sentinel("big")}
	id := store.NewBareIdent()
	id.StackAddr = &stackAddr
	// No heap cell: this is exactly the post-move shape.
	s.Idents[addr] = id

	if _, err := Inspect(addr, s); err == nil {
		t.Fatal("expected a recomposition error for a large stack cell with no heap pair")
	}
}

func TestInspectDeepWalksOwnedDependents(t *testing.T) {
	s := store.New()

	childAddr := s.Fresh()
	childStack := s.Fresh()
	s.Memory.Stack[childStack] = &value.StackValue{Tag: value.SmallStack, Sentinel: ast.Sentinel("child")}
	childID := store.NewBareIdent()
	childID.StackAddr = &childStack
	s.Idents[childAddr] = childID

	parentAddr := s.Fresh()
	parentStack := s.Fresh()
	s.Memory.Stack[parentStack] = &value.StackValue{Tag: value.SmallStack, Sentinel: ast.Sentinel("parent")}
	parentID := store.NewBareIdent()
	parentID.StackAddr = &parentStack
	parentID.Dependents[ast.Name("child")] = &store.Shareable{Owned: true, Addr: childAddr}
	s.Idents[parentAddr] = parentID

	deep, err := InspectDeep(parentAddr, s)
	if err != nil {
		t.Fatalf("inspect deep: %v", err)
	}
	childDeep, ok := deep.Dependents[ast.Name("child")]
	if !ok {
		t.Fatal("expected a deep value for the child dependent")
	}
	prim, ok := childDeep.Value.(value.Primitive)
	if !ok || prim.Sentinel != ast.Sentinel("child") {
		t.Fatalf("expected child's deep value to be primitive \"child\", got %v", childDeep.Value)
	}
}

func TestInspectDeepToleratesCycles(t *testing.T) {
	s := store.New()

	aAddr := s.Fresh()
	bAddr := s.Fresh()
	aStack, bStack := s.Fresh(), s.Fresh()
	s.Memory.Stack[aStack] = &value.StackValue{Tag: value.SmallStack, Sentinel: ast.Sentinel("a")}
	s.Memory.Stack[bStack] = &value.StackValue{Tag: value.SmallStack, Sentinel: ast.Sentinel("b")}

	a := store.NewBareIdent()
	a.StackAddr = &aStack
	b := store.NewBareIdent()
	b.StackAddr = &bStack
	a.Dependents[ast.Name("b")] = &store.Shareable{Owned: true, Addr: bAddr}
	b.Dependents[ast.Name("a")] = &store.Shareable{Owned: true, Addr: aAddr}
	s.Idents[aAddr] = a
	s.Idents[bAddr] = b

	if _, err := InspectDeep(aAddr, s); err != nil {
		t.Fatalf("inspect deep should terminate on a cycle, got error: %v", err)
	}
}
