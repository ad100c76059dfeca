package store

import "fmt"

// Address is a monotonically increasing integer, globally unique within
// a run (spec.md §3: "Address"). Identity addresses, stack addresses,
// and heap addresses share this one space — uniqueness holds across all
// three roles, not just within each.
type Address uint64

func (a Address) String() string {
	return fmt.Sprintf("#%d", uint64(a))
}
