package shadowlink

import "sync"

// SymbolArena is the append-only owner of every Symbol created during a
// run. All appends are serialized by a single mutex; the returned pointer
// is stable for the arena's lifetime because each Symbol is allocated
// individually and the arena only ever appends pointers to its backing
// slice — growing that slice never moves the Symbols themselves (spec.md
// §9, "do not use a container that invalidates on growth").
type SymbolArena struct {
	mu      sync.Mutex
	symbols []*Symbol
}

// NewSymbolArena returns an empty symbol arena.
func NewSymbolArena() *SymbolArena {
	return &SymbolArena{}
}

// EmplaceUndef allocates and records a new undefined symbol for name.
func (a *SymbolArena) EmplaceUndef(name Address) *Symbol {
	sym := newUndefSymbol(name)
	a.mu.Lock()
	a.symbols = append(a.symbols, sym)
	a.mu.Unlock()
	return sym
}

// EmplaceDef allocates and records a new defined symbol for name at ordinal.
func (a *SymbolArena) EmplaceDef(name Address, ordinal uint32) *Symbol {
	sym := newDefSymbol(name, ordinal)
	a.mu.Lock()
	a.symbols = append(a.symbols, sym)
	a.mu.Unlock()
	return sym
}

// Len returns the number of symbols created so far. Diagnostic only.
func (a *SymbolArena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.symbols)
}

// CompilationRefArena is the append-only owner of every CompilationRef
// created during a run, with the same stable-pointer guarantee as
// SymbolArena.
type CompilationRefArena struct {
	mu    sync.Mutex
	crefs []*CompilationRef
}

// NewCompilationRefArena returns an empty compilationref arena.
func NewCompilationRefArena() *CompilationRefArena {
	return &CompilationRefArena{}
}

// Emplace allocates and records a new CompilationRef.
func (a *CompilationRefArena) Emplace(compilation Digest, origin string, position Position) *CompilationRef {
	cref := newCompilationRef(compilation, origin, position)
	a.mu.Lock()
	a.crefs = append(a.crefs, cref)
	a.mu.Unlock()
	return cref
}

// Len returns the number of crefs created so far. Diagnostic only.
func (a *CompilationRefArena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.crefs)
}
