package fixture

import (
	"testing"

	"github.com/mstep-lang/mstep/ast"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	prog := ast.Program{
		ast.Assignment{
			L: ast.Unqualified{Name: ast.Name("x")},
			R: ast.LiteralExpression{Literal: ast.PrimitiveLiteral{Value: ast.SmallPrimitive{Value: ast.Sentinel("5")}}},
		},
		ast.Assignment{
			L: ast.Qualified{Prefix: ast.Unqualified{Name: ast.Name("x")}, Suffix: ast.Name("field")},
			R: ast.BidExpression{Bid: ast.Bid{
				Target: ast.Synchronizing{L: ast.Unqualified{Name: ast.Name("y")}},
				Mode:   ast.Copy,
			}},
		},
		ast.Synchronization{L: ast.Unqualified{Name: ast.Name("x")}},
		ast.Return{},
	}

	data, err := Encode(prog)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(got) != len(prog) {
		t.Fatalf("got %d clauses, want %d", len(got), len(prog))
	}

	a0, ok := got[0].(ast.Assignment)
	if !ok {
		t.Fatalf("clause 0: got %T, want ast.Assignment", got[0])
	}
	if a0.L.String() != "x" {
		t.Fatalf("clause 0: got L=%s, want x", a0.L.String())
	}
	lit, ok := a0.R.(ast.LiteralExpression).Literal.(ast.PrimitiveLiteral)
	if !ok || lit.Value.Sentinel() != ast.Sentinel("5") {
		t.Fatalf("clause 0: unexpected literal %+v", a0.R)
	}

	a1, ok := got[1].(ast.Assignment)
	if !ok {
		t.Fatalf("clause 1: got %T, want ast.Assignment", got[1])
	}
	if a1.L.String() != "x.field" {
		t.Fatalf("clause 1: got L=%s, want x.field", a1.L.String())
	}
	bid := a1.R.(ast.BidExpression).Bid
	if bid.Mode != ast.Copy {
		t.Fatalf("clause 1: got mode %v, want copy", bid.Mode)
	}
	if _, ok := bid.Target.(ast.Synchronizing); !ok {
		t.Fatalf("clause 1: got target %T, want Synchronizing", bid.Target)
	}

	if _, ok := got[2].(ast.Synchronization); !ok {
		t.Fatalf("clause 2: got %T, want ast.Synchronization", got[2])
	}
	if _, ok := got[3].(ast.Return); !ok {
		t.Fatalf("clause 3: got %T, want ast.Return", got[3])
	}
}

func TestDecodeRejectsUnknownClauseKind(t *testing.T) {
	data := []byte(`{"clauses":[{"kind":"frobnicate"}]}`)
	if _, err := Decode(data); err == nil {
		t.Fatal("expected validation to reject an unknown clause kind")
	}
}

func TestDecodeRejectsMissingAssignmentFields(t *testing.T) {
	data := []byte(`{"clauses":[{"kind":"assignment"}]}`)
	if _, err := Decode(data); err == nil {
		t.Fatal("expected decode to reject an assignment with no l or r")
	}
}

func TestEncodeDecodeCapturingAbstraction(t *testing.T) {
	prog := ast.Program{
		ast.Assignment{
			L: ast.Unqualified{Name: ast.Name("f")},
			R: ast.LiteralExpression{Literal: ast.CaptureExpression{
				Captures: []ast.CaptureEntry{
					{Name: ast.Name("env"), Bid: ast.Bid{Target: ast.NonSynchronizing{L: ast.Unqualified{Name: ast.Name("outer")}}, Mode: ast.Refr}},
				},
				Abstraction: ast.Abstraction{
					Formal: ast.Name("arg"),
					Body:   nil,
					Return: ast.BidExpression{Bid: ast.Bid{Target: ast.NonSynchronizing{L: ast.Unqualified{Name: ast.Name("arg")}}, Mode: ast.Move}},
				},
			}},
		},
	}

	data, err := Encode(prog)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	a, ok := got[0].(ast.Assignment)
	if !ok {
		t.Fatalf("got %T, want ast.Assignment", got[0])
	}
	capExpr, ok := a.R.(ast.LiteralExpression).Literal.(ast.CaptureExpression)
	if !ok {
		t.Fatalf("got %T, want ast.CaptureExpression", a.R.(ast.LiteralExpression).Literal)
	}
	if len(capExpr.Captures) != 1 || capExpr.Captures[0].Name != ast.Name("env") {
		t.Fatalf("unexpected captures %+v", capExpr.Captures)
	}
	if capExpr.Abstraction.Formal != ast.Name("arg") {
		t.Fatalf("got formal %v, want arg", capExpr.Abstraction.Formal)
	}
}
