package driver

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/mstep-lang/mstep/ast"
	"github.com/mstep-lang/mstep/store"
	"github.com/mstep-lang/mstep/trace"
)

func TestRunToEndConsumesWholeProgram(t *testing.T) {
	prog := ast.Program{ast.Assignment{
		L: ast.Unqualified{Name: ast.Name("x")},
		R: ast.LiteralExpression{Literal: ast.PrimitiveLiteral{Value: ast.SmallPrimitive{Value: ast.Sentinel("1")}}},
	}}

	result, err := RunToEnd(context.Background(), prog, store.New(), zap.NewNop(), Options{})
	if err != nil {
		t.Fatalf("run to end: %v", err)
	}
	if len(result.Program) != 0 {
		t.Fatalf("expected an empty remaining program, got %d clauses", len(result.Program))
	}
	if len(result.Events) == 0 {
		t.Fatal("expected at least one event")
	}
}

func TestRunToSyncStopsBeforeSynchronization(t *testing.T) {
	prog := ast.Program{
		ast.Assignment{
			L: ast.Unqualified{Name: ast.Name("x")},
			R: ast.LiteralExpression{Literal: ast.PrimitiveLiteral{Value: ast.SmallPrimitive{Value: ast.Sentinel("1")}}},
		},
		ast.Synchronization{L: ast.Unqualified{Name: ast.Name("x")}},
	}

	result, err := RunToSync(context.Background(), prog, store.New(), zap.NewNop(), Options{})
	if err != nil {
		t.Fatalf("run to sync: %v", err)
	}
	if len(result.Program) != 1 {
		t.Fatalf("expected the Synchronization clause left unconsumed, got %d clauses remaining", len(result.Program))
	}
	if _, ok := result.Program[0].(ast.Synchronization); !ok {
		t.Fatalf("expected the remaining clause to be a Synchronization, got %T", result.Program[0])
	}
	for _, ev := range result.Events {
		if _, ok := ev.(trace.SynchronizationEvent); ok {
			t.Fatal("RunToSync should not have consumed the Synchronization clause")
		}
	}
}

func TestRunToEndRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prog := ast.Program{ast.Assignment{
		L: ast.Unqualified{Name: ast.Name("x")},
		R: ast.LiteralExpression{Literal: ast.PrimitiveLiteral{Value: ast.SmallPrimitive{Value: ast.Sentinel("1")}}},
	}}

	_, err := RunToEnd(ctx, prog, store.New(), zap.NewNop(), Options{})
	if err == nil {
		t.Fatal("expected a cancellation error")
	}
}

func TestOptionsSetDefaults(t *testing.T) {
	var o Options
	o.setDefaults()
	if o.MaxSteps != defaultMaxSteps {
		t.Fatalf("expected default max steps %d, got %d", defaultMaxSteps, o.MaxSteps)
	}
}

func TestRunExceedsMaxSteps(t *testing.T) {
	prog := ast.Program{ast.Assignment{
		L: ast.Unqualified{Name: ast.Name("x")},
		R: ast.LiteralExpression{Literal: ast.PrimitiveLiteral{Value: ast.SmallPrimitive{Value: ast.Sentinel("1")}}},
	}}

	_, err := RunToEnd(context.Background(), prog, store.New(), zap.NewNop(), Options{MaxSteps: 1})
	if err == nil {
		t.Fatal("expected an exceeded-max-steps error")
	}
}
