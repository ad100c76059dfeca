package value

import (
	"testing"

	"github.com/mstep-lang/mstep/ast"
)

func TestDecomposeRecomposeSmallPrimitive(t *testing.T) {
	v := Primitive{Kind: Small, Sentinel: ast.Sentinel("s1")}
	stack, heap := Decompose(v)
	if heap != nil {
		t.Fatalf("small primitive should decompose to no heap value, got %v", heap)
	}
	got, err := Recompose(stack, heap)
	if err != nil {
		t.Fatalf("recompose: %v", err)
	}
	if got != v {
		t.Fatalf("recompose got %v, want %v", got, v)
	}
}

func TestDecomposeRecomposeLargePrimitive(t *testing.T) {
	v := Primitive{Kind: Large, Sentinel: ast.Sentinel("big")}
	stack, heap := Decompose(v)
	if heap == nil {
		t.Fatal("large primitive should decompose to a heap value")
	}
	got, err := Recompose(stack, heap)
	if err != nil {
		t.Fatalf("recompose: %v", err)
	}
	if got != v {
		t.Fatalf("recompose got %v, want %v", got, v)
	}
}

func TestDecomposeRecomposeFunction(t *testing.T) {
	fn := Function{Formal: ast.Name("x"), Return: nil}
	stack, heap := Decompose(fn)
	if heap != nil {
		t.Fatalf("function should decompose to no heap value, got %v", heap)
	}
	got, err := Recompose(stack, heap)
	if err != nil {
		t.Fatalf("recompose: %v", err)
	}
	gotFn, ok := got.(Function)
	if !ok {
		t.Fatalf("recompose got %T, want Function", got)
	}
	if gotFn.Formal != fn.Formal {
		t.Fatalf("recompose got formal %v, want %v", gotFn.Formal, fn.Formal)
	}
}

func TestRecomposeNilStack(t *testing.T) {
	if _, err := Recompose(nil, nil); err == nil {
		t.Fatal("expected an error recomposing a nil stack value")
	}
}

func TestRecomposeMismatchedSentinels(t *testing.T) {
	stack := &StackValue{Tag: LargeStack, Sentinel: ast.Sentinel("a")}
	heap := &HeapValue{Tag: LargeHeap, Sentinel: ast.Sentinel("b")}
	if _, err := Recompose(stack, heap); err == nil {
		t.Fatal("expected a recomposition error for mismatched sentinels")
	}
}

func TestRecomposeLargeStackMissingHeap(t *testing.T) {
	stack := &StackValue{Tag: LargeStack, Sentinel: ast.Sentinel("a")}
	if _, err := Recompose(stack, nil); err == nil {
		t.Fatal("expected a recomposition error for a large stack cell with no heap pair")
	}
}
