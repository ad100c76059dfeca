// Package fixture is the JSON encoding of ast.Program used by the CLI
// demo harness to load programs (spec.md §1 treats the surface
// syntax parser as an external collaborator this interpreter never
// implements; fixture is the stand-in format a demo or test loads
// instead of parsing real syntax).
//
// Every sum type in ast gets a "kind" string discriminator field, the
// same convention edirooss-zmux-server's dto package uses for its
// request bodies (binding tags drive go-playground/validator through
// gin; here there is no HTTP binding layer, so validation is invoked
// directly).
package fixture

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/mstep-lang/mstep/ast"
)

var validate = validator.New()

// Program is the wire shape of ast.Program.
type Program struct {
	Clauses []Clause `json:"clauses" validate:"dive"`
}

// Clause is the wire shape of ast.Clause.
type Clause struct {
	Kind string `json:"kind" validate:"required,oneof=assignment synchronization return"`
	L    *LExpr `json:"l,omitempty" validate:"omitempty"`
	R    *RExpr `json:"r,omitempty" validate:"omitempty"`
}

// LExpr is the wire shape of ast.LExpr.
type LExpr struct {
	Kind   string `json:"kind" validate:"required,oneof=unqualified qualified"`
	Name   string `json:"name,omitempty"`
	Prefix *LExpr `json:"prefix,omitempty"`
	Suffix string `json:"suffix,omitempty"`
}

// Target is the wire shape of ast.Target.
type Target struct {
	Kind string `json:"kind" validate:"required,oneof=synchronizing nonsynchronizing"`
	L    LExpr  `json:"l" validate:"required"`
}

// Bid is the wire shape of ast.Bid.
type Bid struct {
	Target          Target `json:"target" validate:"required"`
	Materialization string `json:"materialization" validate:"required,oneof=move copy refr"`
}

// RExpr is the wire shape of ast.RExpr.
type RExpr struct {
	Kind    string   `json:"kind" validate:"required,oneof=bid application literal"`
	Bid     *Bid     `json:"bid,omitempty"`
	Target  *Target  `json:"target,omitempty"`
	Arg     *Bid     `json:"arg,omitempty"`
	Literal *Literal `json:"literal,omitempty"`
}

// Literal is the wire shape of ast.Literal.
type Literal struct {
	Kind        string         `json:"kind" validate:"required,oneof=primitive capture"`
	Size        string         `json:"size,omitempty" validate:"omitempty,oneof=small large"`
	Sentinel    string         `json:"sentinel,omitempty"`
	Captures    []CaptureEntry `json:"captures,omitempty" validate:"dive"`
	Abstraction *Abstraction   `json:"abstraction,omitempty"`
}

// CaptureEntry is the wire shape of ast.CaptureEntry.
type CaptureEntry struct {
	Name string `json:"name" validate:"required"`
	Bid  Bid    `json:"bid" validate:"required"`
}

// Abstraction is the wire shape of ast.Abstraction.
type Abstraction struct {
	Formal string   `json:"formal" validate:"required"`
	Body   []Clause `json:"body" validate:"dive"`
	Return RExpr    `json:"return" validate:"required"`
}

// Decode parses and validates data as a Program fixture and converts
// it to ast.Program.
func Decode(data []byte) (ast.Program, error) {
	var p Program
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("fixture: decode: %w", err)
	}
	if err := validate.Struct(p); err != nil {
		return nil, fmt.Errorf("fixture: invalid program: %w", err)
	}
	return toProgram(p)
}

// Encode renders prog as an indented JSON fixture.
func Encode(prog ast.Program) ([]byte, error) {
	p := fromProgram(prog)
	return json.MarshalIndent(p, "", "  ")
}

func toProgram(p Program) (ast.Program, error) {
	out := make(ast.Program, 0, len(p.Clauses))
	for i, c := range p.Clauses {
		clause, err := toClause(c)
		if err != nil {
			return nil, fmt.Errorf("clause %d: %w", i, err)
		}
		out = append(out, clause)
	}
	return out, nil
}

func toClause(c Clause) (ast.Clause, error) {
	switch c.Kind {
	case "assignment":
		if c.L == nil || c.R == nil {
			return nil, fmt.Errorf("assignment requires both l and r")
		}
		l, err := toLExpr(c.L)
		if err != nil {
			return nil, err
		}
		r, err := toRExpr(*c.R)
		if err != nil {
			return nil, err
		}
		return ast.Assignment{L: l, R: r}, nil
	case "synchronization":
		if c.L == nil {
			return nil, fmt.Errorf("synchronization requires l")
		}
		l, err := toLExpr(c.L)
		if err != nil {
			return nil, err
		}
		return ast.Synchronization{L: l}, nil
	case "return":
		return ast.Return{}, nil
	default:
		return nil, fmt.Errorf("unknown clause kind %q", c.Kind)
	}
}

func toLExpr(l *LExpr) (ast.LExpr, error) {
	if l == nil {
		return nil, fmt.Errorf("missing lexpr")
	}
	switch l.Kind {
	case "unqualified":
		if l.Name == "" {
			return nil, fmt.Errorf("unqualified lexpr requires name")
		}
		return ast.Unqualified{Name: ast.Name(l.Name)}, nil
	case "qualified":
		prefix, err := toLExpr(l.Prefix)
		if err != nil {
			return nil, err
		}
		if l.Suffix == "" {
			return nil, fmt.Errorf("qualified lexpr requires suffix")
		}
		return ast.Qualified{Prefix: prefix, Suffix: ast.Name(l.Suffix)}, nil
	default:
		return nil, fmt.Errorf("unknown lexpr kind %q", l.Kind)
	}
}

func toTarget(t Target) (ast.Target, error) {
	l, err := toLExpr(&t.L)
	if err != nil {
		return nil, err
	}
	switch t.Kind {
	case "synchronizing":
		return ast.Synchronizing{L: l}, nil
	case "nonsynchronizing":
		return ast.NonSynchronizing{L: l}, nil
	default:
		return nil, fmt.Errorf("unknown target kind %q", t.Kind)
	}
}

func toMaterialization(s string) (ast.Materialization, error) {
	switch s {
	case "move":
		return ast.Move, nil
	case "copy":
		return ast.Copy, nil
	case "refr":
		return ast.Refr, nil
	default:
		return 0, fmt.Errorf("unknown materialization %q", s)
	}
}

func toBid(b Bid) (ast.Bid, error) {
	target, err := toTarget(b.Target)
	if err != nil {
		return ast.Bid{}, err
	}
	mode, err := toMaterialization(b.Materialization)
	if err != nil {
		return ast.Bid{}, err
	}
	return ast.Bid{Target: target, Mode: mode}, nil
}

func toRExpr(r RExpr) (ast.RExpr, error) {
	switch r.Kind {
	case "bid":
		if r.Bid == nil {
			return nil, fmt.Errorf("bid rexpr requires bid")
		}
		bid, err := toBid(*r.Bid)
		if err != nil {
			return nil, err
		}
		return ast.BidExpression{Bid: bid}, nil
	case "application":
		if r.Target == nil || r.Arg == nil {
			return nil, fmt.Errorf("application rexpr requires target and arg")
		}
		target, err := toTarget(*r.Target)
		if err != nil {
			return nil, err
		}
		arg, err := toBid(*r.Arg)
		if err != nil {
			return nil, err
		}
		return ast.Application{Target: target, Arg: arg}, nil
	case "literal":
		if r.Literal == nil {
			return nil, fmt.Errorf("literal rexpr requires literal")
		}
		lit, err := toLiteral(*r.Literal)
		if err != nil {
			return nil, err
		}
		return ast.LiteralExpression{Literal: lit}, nil
	default:
		return nil, fmt.Errorf("unknown rexpr kind %q", r.Kind)
	}
}

func toLiteral(l Literal) (ast.Literal, error) {
	switch l.Kind {
	case "primitive":
		sentinel := ast.Sentinel(l.Sentinel)
		switch l.Size {
		case "small":
			return ast.PrimitiveLiteral{Value: ast.SmallPrimitive{Value: sentinel}}, nil
		case "large":
			return ast.PrimitiveLiteral{Value: ast.LargePrimitive{Value: sentinel}}, nil
		default:
			return nil, fmt.Errorf("primitive literal requires size small|large")
		}
	case "capture":
		if l.Abstraction == nil {
			return nil, fmt.Errorf("capture literal requires abstraction")
		}
		abs, err := toAbstraction(*l.Abstraction)
		if err != nil {
			return nil, err
		}
		captures := make([]ast.CaptureEntry, 0, len(l.Captures))
		for i, c := range l.Captures {
			bid, err := toBid(c.Bid)
			if err != nil {
				return nil, fmt.Errorf("capture %d: %w", i, err)
			}
			captures = append(captures, ast.CaptureEntry{Name: ast.Name(c.Name), Bid: bid})
		}
		return ast.CaptureExpression{Captures: captures, Abstraction: abs}, nil
	default:
		return nil, fmt.Errorf("unknown literal kind %q", l.Kind)
	}
}

func toAbstraction(a Abstraction) (ast.Abstraction, error) {
	body := make([]ast.Clause, 0, len(a.Body))
	for i, c := range a.Body {
		clause, err := toClause(c)
		if err != nil {
			return ast.Abstraction{}, fmt.Errorf("body clause %d: %w", i, err)
		}
		body = append(body, clause)
	}
	ret, err := toRExpr(a.Return)
	if err != nil {
		return ast.Abstraction{}, err
	}
	return ast.Abstraction{Formal: ast.Name(a.Formal), Body: body, Return: ret}, nil
}

func fromProgram(prog ast.Program) Program {
	out := Program{Clauses: make([]Clause, 0, len(prog))}
	for _, c := range prog {
		out.Clauses = append(out.Clauses, fromClause(c))
	}
	return out
}

func fromClause(c ast.Clause) Clause {
	switch v := c.(type) {
	case ast.Assignment:
		l := fromLExpr(v.L)
		r := fromRExpr(v.R)
		return Clause{Kind: "assignment", L: &l, R: &r}
	case ast.Synchronization:
		l := fromLExpr(v.L)
		return Clause{Kind: "synchronization", L: &l}
	case ast.Return:
		return Clause{Kind: "return"}
	default:
		return Clause{Kind: "unknown"}
	}
}

func fromLExpr(l ast.LExpr) LExpr {
	switch v := l.(type) {
	case ast.Unqualified:
		return LExpr{Kind: "unqualified", Name: string(v.Name)}
	case ast.Qualified:
		prefix := fromLExpr(v.Prefix)
		return LExpr{Kind: "qualified", Prefix: &prefix, Suffix: string(v.Suffix)}
	default:
		return LExpr{Kind: "unknown"}
	}
}

func fromTarget(t ast.Target) Target {
	switch v := t.(type) {
	case ast.Synchronizing:
		return Target{Kind: "synchronizing", L: fromLExpr(v.L)}
	case ast.NonSynchronizing:
		return Target{Kind: "nonsynchronizing", L: fromLExpr(v.L)}
	default:
		return Target{Kind: "unknown"}
	}
}

func fromMaterialization(m ast.Materialization) string {
	switch m {
	case ast.Move:
		return "move"
	case ast.Copy:
		return "copy"
	case ast.Refr:
		return "refr"
	default:
		return "unknown"
	}
}

func fromBid(b ast.Bid) Bid {
	return Bid{Target: fromTarget(b.Target), Materialization: fromMaterialization(b.Mode)}
}

func fromRExpr(r ast.RExpr) RExpr {
	switch v := r.(type) {
	case ast.BidExpression:
		bid := fromBid(v.Bid)
		return RExpr{Kind: "bid", Bid: &bid}
	case ast.Application:
		target := fromTarget(v.Target)
		arg := fromBid(v.Arg)
		return RExpr{Kind: "application", Target: &target, Arg: &arg}
	case ast.LiteralExpression:
		lit := fromLiteral(v.Literal)
		return RExpr{Kind: "literal", Literal: &lit}
	default:
		return RExpr{Kind: "unknown"}
	}
}

func fromLiteral(l ast.Literal) Literal {
	switch v := l.(type) {
	case ast.PrimitiveLiteral:
		switch pv := v.Value.(type) {
		case ast.SmallPrimitive:
			return Literal{Kind: "primitive", Size: "small", Sentinel: string(pv.Value)}
		case ast.LargePrimitive:
			return Literal{Kind: "primitive", Size: "large", Sentinel: string(pv.Value)}
		default:
			return Literal{Kind: "unknown"}
		}
	case ast.CaptureExpression:
		captures := make([]CaptureEntry, 0, len(v.Captures))
		for _, c := range v.Captures {
			captures = append(captures, CaptureEntry{Name: string(c.Name), Bid: fromBid(c.Bid)})
		}
		abs := fromAbstraction(v.Abstraction)
		return Literal{Kind: "capture", Captures: captures, Abstraction: &abs}
	default:
		return Literal{Kind: "unknown"}
	}
}

func fromAbstraction(a ast.Abstraction) Abstraction {
	body := make([]Clause, 0, len(a.Body))
	for _, c := range a.Body {
		body = append(body, fromClause(c))
	}
	return Abstraction{Formal: string(a.Formal), Body: body, Return: fromRExpr(a.Return)}
}
