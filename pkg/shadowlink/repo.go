// Package shadowlink implements the concurrent symbol-resolution frontier of
// a whole-program linker: a lock-free shadow-memory resolver that converges
// many resolution and archive-discovery workers on a single winning
// definition per symbol name, with deterministic tie-breaks and no lost
// updates.
package shadowlink

import "fmt"

// Digest is an opaque content hash identifying a compilation or a fragment
// in the repository. Only equality and hashing matter to this package.
type Digest uint64

func (d Digest) String() string { return fmt.Sprintf("%#x", uint64(d)) }

// Address identifies a single symbol name's slot in shadow memory. Distinct
// names have distinct addresses; the repository builder guarantees no two
// used slots collide.
//
// Unlike the original C++ implementation, Address is not a byte offset into
// a raw memory block: Go's atomics operate on typed slots rather than
// pointer arithmetic over a byte array, so Address directly indexes the
// ShadowMap's slot slice (see shadow.go).
type Address uint64

// Fragment lists the symbol names a definition refers to.
type Fragment struct {
	References []Address
}

// Definition pairs a symbol name with the fragment that defines its body.
type Definition struct {
	Name     Address
	Fragment Digest
}

// Compilation is the set of definitions produced from one translation unit.
type Compilation struct {
	Definitions []Definition
}

// Repository is the read-only, content-addressed catalog this package
// consumes. It is an external collaborator (spec.md §6): production
// implementations back it with a real program repository; MemRepository
// below is a minimal in-memory stand-in sufficient to drive the demo CLI
// and the test suite.
type Repository interface {
	Compilation(d Digest) (Compilation, bool)
	Fragment(d Digest) (Fragment, bool)
	Name(a Address) string
	Size() uint64
}

// MemRepository is a trivial in-memory Repository. It is not part of the
// concurrency core proper — the real repository is out of scope (spec.md
// §1 Non-goals) — but a concrete instance is needed to run the demo CLI and
// the test suite against realistic data.
type MemRepository struct {
	compilations map[Digest]Compilation
	fragments    map[Digest]Fragment
	names        map[Address]string
	size         uint64
}

// NewMemRepository builds an empty repository ready for Add* calls.
func NewMemRepository() *MemRepository {
	return &MemRepository{
		compilations: make(map[Digest]Compilation),
		fragments:    make(map[Digest]Fragment),
		names:        make(map[Address]string),
	}
}

// AddName registers the human-readable name for an address, growing the
// repository's reported Size to cover it.
func (r *MemRepository) AddName(addr Address, name string) {
	r.names[addr] = name
	if next := uint64(addr) + 1; next > r.size {
		r.size = next
	}
}

// AddFragment registers a fragment's outgoing references.
func (r *MemRepository) AddFragment(d Digest, refs ...Address) {
	r.fragments[d] = Fragment{References: refs}
}

// AddCompilation registers a compilation's definitions.
func (r *MemRepository) AddCompilation(d Digest, defs ...Definition) {
	r.compilations[d] = Compilation{Definitions: defs}
}

func (r *MemRepository) Compilation(d Digest) (Compilation, bool) {
	c, ok := r.compilations[d]
	return c, ok
}

func (r *MemRepository) Fragment(d Digest) (Fragment, bool) {
	f, ok := r.fragments[d]
	return f, ok
}

func (r *MemRepository) Name(a Address) string {
	return r.names[a]
}

func (r *MemRepository) Size() uint64 {
	return r.size
}
