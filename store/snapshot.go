package store

import "github.com/davecgh/go-spew/spew"

// Snapshot is an independent, point-in-time copy of a store, attached
// to each ClauseEvent so the trace stays auditable after the store has
// moved on (spec.md §6: "ClauseEvent(clause, storeSnapshot, tag)").
type Snapshot struct {
	store *Store
}

// Snapshot captures s's current state.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{store: s.Clone()}
}

// Store returns the snapshot's independent copy.
func (sn Snapshot) Store() *Store { return sn.store }

// String renders the snapshot with go-spew, the pack's own tool for
// dumping structured state in debug paths (edirooss-zmux-server's
// pkg/fmtt.PrintErrChainDebug uses spew.Dump on error chains the same
// way).
func (sn Snapshot) String() string {
	return spew.Sdump(sn.store)
}
