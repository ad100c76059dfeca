package store

// Shareable is the owned-vs-borrowed tag on a namespace entry
// (spec.md §3: "Owned(addr) | Borrowed(addr)"). Only Owned entries
// drive cascading deallocation (I5); Borrowed entries are never
// followed.
type Shareable struct {
	Owned bool
	Addr  Address
}

// Own wraps addr as an owning share.
func Own(addr Address) Shareable { return Shareable{Owned: true, Addr: addr} }

// Borrow wraps addr as a non-owning share.
func Borrow(addr Address) Shareable { return Shareable{Owned: false, Addr: addr} }

func (s Shareable) String() string {
	if s.Owned {
		return "Owned(" + s.Addr.String() + ")"
	}
	return "Borrowed(" + s.Addr.String() + ")"
}
