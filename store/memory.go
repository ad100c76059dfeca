package store

import "github.com/mstep-lang/mstep/value"

// Memory is the split stack/heap address space (spec.md §3): two
// separate address -> value mappings. A missing key means "no cell at
// that address", which only ever happens transiently mid-patch — a
// concrete (at-rest) Store never has an Ident pointing at a missing
// cell (I2); inspect.Inspect surfaces that as a StackResolutionError /
// HeapResolutionError if it ever does.
type Memory struct {
	Stack map[Address]*value.StackValue
	Heap  map[Address]*value.HeapValue
}

func newMemory() Memory {
	return Memory{Stack: map[Address]*value.StackValue{}, Heap: map[Address]*value.HeapValue{}}
}

func (m Memory) clone() Memory {
	out := newMemory()
	for k, v := range m.Stack {
		cp := *v
		out.Stack[k] = &cp
	}
	for k, v := range m.Heap {
		cp := *v
		out.Heap[k] = &cp
	}
	return out
}
