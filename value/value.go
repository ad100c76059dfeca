// Package value implements System M's value model (spec.md §3, §4.1):
// shallow and deep values, the stack/heap-tagged wire shapes a value
// decomposes into, and decompose/recompose themselves.
//
// The tagged-struct shapes (StackValue, HeapValue) and the switch-based
// decompose/recompose pair are grounded on how the pack's debugger reads
// a remote value off the wire: ogle/program/server/value.go builds a
// program.Value by switching on a DWARF type and returning one of a
// small closed set of shapes (program.Pointer, program.Array,
// program.Struct, or a bare Go scalar); decompose/recompose here is the
// same idea run in the opposite direction, over a closed set of two
// kinds instead of DWARF's open one.
package value

import (
	"fmt"

	"github.com/mstep-lang/mstep/ast"
	"github.com/mstep-lang/mstep/errs"
)

// PrimitiveKind distinguishes small (stack-only) from large
// (stack-header-plus-heap-body) primitives.
type PrimitiveKind int

const (
	Small PrimitiveKind = iota
	Large
)

func (k PrimitiveKind) String() string {
	if k == Large {
		return "large"
	}
	return "small"
}

// Shallow is either a Primitive or a Function.
type Shallow interface {
	shallow()
}

// Primitive is a small or large primitive value, identified by its
// sentinel.
type Primitive struct {
	Kind     PrimitiveKind
	Sentinel ast.Sentinel
}

func (Primitive) shallow() {}

func (p Primitive) String() string {
	return fmt.Sprintf("%s-primitive(%s)", p.Kind, p.Sentinel)
}

// Function is a materialized abstraction: formal parameter, body, and
// return expression. Functions have a stack component only.
type Function struct {
	Formal ast.Name
	Body   []ast.Clause
	Return ast.RExpr
}

func (Function) shallow() {}

func (f Function) String() string {
	return fmt.Sprintf("function(%s)", f.Formal)
}

// Deep pairs a shallow value with the deep values of its dependent
// names. It is built by inspect.InspectDeep; the stepper itself,
// including the SynchronizationEvent it emits, only ever touches
// Shallow values (spec.md §4.6 S12).
type Deep struct {
	Value      Shallow
	Dependents map[ast.Name]Deep
}

// StackTag distinguishes the three shapes a stack cell can hold.
type StackTag int

const (
	SmallStack StackTag = iota
	LargeStack
	FunctionStack
)

// StackValue is a tagged stack cell.
type StackValue struct {
	Tag         StackTag
	Sentinel    ast.Sentinel // valid for SmallStack, LargeStack
	Abstraction Function     // valid for FunctionStack
}

func (s StackValue) String() string {
	switch s.Tag {
	case SmallStack:
		return fmt.Sprintf("SmallStack(%s)", s.Sentinel)
	case LargeStack:
		return fmt.Sprintf("LargeStack(%s)", s.Sentinel)
	case FunctionStack:
		return fmt.Sprintf("FunctionStack(%s)", s.Abstraction)
	default:
		return "StackValue(?)"
	}
}

// HeapTag is trivial today (only large primitives have heap cells) but
// is kept, rather than collapsed away, so HeapValue mirrors StackValue
// and recompose's switch reads the same way on both sides.
type HeapTag int

const (
	LargeHeap HeapTag = iota
)

// HeapValue is a tagged heap cell.
type HeapValue struct {
	Tag      HeapTag
	Sentinel ast.Sentinel
}

func (h HeapValue) String() string {
	return fmt.Sprintf("LargeHeap(%s)", h.Sentinel)
}

// Decompose splits a shallow value into its stack and (possibly
// absent) heap representation (spec.md §4.1).
func Decompose(v Shallow) (*StackValue, *HeapValue) {
	switch sv := v.(type) {
	case Primitive:
		if sv.Kind == Small {
			return &StackValue{Tag: SmallStack, Sentinel: sv.Sentinel}, nil
		}
		return &StackValue{Tag: LargeStack, Sentinel: sv.Sentinel},
			&HeapValue{Tag: LargeHeap, Sentinel: sv.Sentinel}
	case Function:
		return &StackValue{Tag: FunctionStack, Abstraction: sv}, nil
	default:
		// Unreachable: Shallow is a closed sum of Primitive and Function.
		panic(fmt.Sprintf("value: decompose of unknown shallow type %T", v))
	}
}

// Recompose rebuilds a shallow value from its stack and heap parts,
// failing with RecompositionError on any inconsistent pairing (I3).
func Recompose(stack *StackValue, heap *HeapValue) (Shallow, error) {
	switch {
	case stack == nil:
		return nil, &errs.Recomposition{Stack: describeStack(stack), Heap: describeHeap(heap)}
	case stack.Tag == SmallStack && heap == nil:
		return Primitive{Kind: Small, Sentinel: stack.Sentinel}, nil
	case stack.Tag == LargeStack && heap != nil && heap.Tag == LargeHeap:
		if stack.Sentinel != heap.Sentinel {
			return nil, &errs.Recomposition{Stack: describeStack(stack), Heap: describeHeap(heap)}
		}
		return Primitive{Kind: Large, Sentinel: stack.Sentinel}, nil
	case stack.Tag == FunctionStack && heap == nil:
		return stack.Abstraction, nil
	default:
		return nil, &errs.Recomposition{Stack: describeStack(stack), Heap: describeHeap(heap)}
	}
}

func describeStack(s *StackValue) string {
	if s == nil {
		return "<none>"
	}
	return s.String()
}

func describeHeap(h *HeapValue) string {
	if h == nil {
		return "<none>"
	}
	return h.String()
}
