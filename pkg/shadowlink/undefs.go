package shadowlink

import "sync"

// UndefSet is the concurrent set of addresses currently believed
// undefined. Membership changes accompany shadow-slot transitions: an
// address is added when an undefined symbol is created and erased when it
// is promoted to defined. The driver's round loop uses Empty to
// short-circuit termination (spec.md §4.1, §4.5).
type UndefSet struct {
	mu   sync.Mutex
	addr map[Address]struct{}
}

// NewUndefSet returns an empty undef set.
func NewUndefSet() *UndefSet {
	return &UndefSet{addr: make(map[Address]struct{})}
}

// Add records addr as undefined.
func (u *UndefSet) Add(addr Address) {
	u.mu.Lock()
	u.addr[addr] = struct{}{}
	u.mu.Unlock()
}

// Erase removes addr from the set. It panics if addr was not present,
// mirroring the original's debug assertion that undef bookkeeping never
// drifts out of sync with the shadow map.
func (u *UndefSet) Erase(addr Address) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.addr[addr]; !ok {
		panic("shadowlink: UndefSet.Erase of an address that was never added")
	}
	delete(u.addr, addr)
}

// Empty reports whether the set currently has no members.
func (u *UndefSet) Empty() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.addr) == 0
}

// Has reports whether addr is currently a member.
func (u *UndefSet) Has(addr Address) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.addr[addr]
	return ok
}

// EraseIfPresent removes addr if present, a no-op otherwise. Used where a
// name may or may not have passed through the undefined state before being
// superseded, mirroring the original's erase-if-found call sites
// (shadowarch/main.cpp's create_from_archdef in symbol_resolution).
func (u *UndefSet) EraseIfPresent(addr Address) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.addr, addr)
}

// ForEach calls fn once per member, holding the lock for the duration of
// the callback. fn must not call back into this UndefSet.
func (u *UndefSet) ForEach(fn func(Address)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for a := range u.addr {
		fn(a)
	}
}
