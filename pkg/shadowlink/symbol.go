package shadowlink

import "sync"

// Symbol is an arena-owned record mirroring the original's symbol class: a
// name that never changes, and an optional ordinal identifying the
// resolution round that gave it a definition. A symbol transitions from
// undefined to defined at most once.
type Symbol struct {
	mu         sync.Mutex
	name       Address
	hasOrdinal bool
	ordinal    uint32
}

// newUndefSymbol creates an undefined symbol for name. Arena-private: call
// through SymbolArena.EmplaceUndef so the symbol is recorded in the arena
// (the append, not the construction, is serialized by the arena's lock).
func newUndefSymbol(name Address) *Symbol {
	return &Symbol{name: name}
}

// newDefSymbol creates a defined symbol for name at the given ordinal.
func newDefSymbol(name Address, ordinal uint32) *Symbol {
	return &Symbol{name: name, hasOrdinal: true, ordinal: ordinal}
}

// Name returns the symbol's address. Immutable for the symbol's lifetime.
func (s *Symbol) Name() Address { return s.name }

// Lock acquires the symbol's per-instance lock. Needed to make a
// read-then-act sequence (observe IsDef, then maybe promote) atomic with a
// concurrent SetOrdinal — see DiscoverArchiveMember's matchUndefInArchive.
func (s *Symbol) Lock() { s.mu.Lock() }

// Unlock releases the symbol's per-instance lock.
func (s *Symbol) Unlock() { s.mu.Unlock() }

// IsDef reports whether the symbol currently has a defining ordinal. Safe
// to call without holding the lock; callers that need the check to be
// atomic with a subsequent mutation must Lock first and call IsDefLocked.
func (s *Symbol) IsDef() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasOrdinal
}

// IsDefLocked is IsDef for callers already holding the symbol's lock.
func (s *Symbol) IsDefLocked() bool { return s.hasOrdinal }

// Ordinal returns the defining ordinal and whether one has been assigned.
func (s *Symbol) Ordinal() (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ordinal, s.hasOrdinal
}

// SetOrdinal promotes an undefined symbol to defined at ordinal. It panics
// if the symbol is already defined — a one-definition-rule violation must
// be caught by the caller (via IsDef) before calling SetOrdinal, never
// detected here, since the ODR error needs the caller's compilation/name
// context to report usefully.
func (s *Symbol) SetOrdinal(ordinal uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasOrdinal {
		panic("shadowlink: SetOrdinal called on an already-defined symbol")
	}
	s.hasOrdinal = true
	s.ordinal = ordinal
}
