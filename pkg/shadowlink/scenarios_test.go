package shadowlink

import (
	"context"
	"testing"
	"time"

	"github.com/dalbright/shadowlink/internal/logging"
	"github.com/dalbright/shadowlink/internal/telemetry"
	"github.com/dalbright/shadowlink/pkg/ordinalgate"
)

const (
	addrF Address = iota
	addrG
	addrH
	addrJ
	addrX
)

const (
	digF Digest = iota + 1
	digG
	digH
	digJ
)

// fixedTime stands in for time.Now() so tests stay deterministic.
var fixedTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestEnv(repo *MemRepository) *ResolveEnv {
	return &ResolveEnv{
		Repo:     repo,
		Shadow:   NewShadowMap(repo.Size()),
		Symbols:  NewSymbolArena(),
		Crefs:    NewCompilationRefArena(),
		Undefs:   NewUndefSet(),
		Failures: NewFailureSet(),
		Log:      logging.Disabled(),
		Stats:    telemetry.New(fixedTime),
	}
}

// TestScenarioA is spec.md §8 Scenario A: ticket references resolved by
// archive chain. It checks that the run succeeds, Undefs ends empty and g
// ends defined. Both g members carry the same digest, so which of them won
// is not observable here; TestScenarioE checks the position comparison.
func TestScenarioA(t *testing.T) {
	repo := NewMemRepository()
	repo.AddName(addrF, "f")
	repo.AddName(addrG, "g")
	repo.AddName(addrH, "h")
	repo.AddName(addrJ, "j")
	repo.AddFragment(digF, addrG, addrH)
	repo.AddFragment(digG, addrJ)
	repo.AddFragment(digH)
	repo.AddFragment(digJ)
	repo.AddCompilation(digF, Definition{Name: addrF, Fragment: digF})
	repo.AddCompilation(digG, Definition{Name: addrG, Fragment: digG})
	repo.AddCompilation(digH, Definition{Name: addrH, Fragment: digH})
	repo.AddCompilation(digJ, Definition{Name: addrJ, Fragment: digJ})

	env := newTestEnv(repo)
	driver := NewDriver(env, ordinalgate.New(), nil)

	members := []ArchiveMember{
		{Compilation: digG, Origin: "liba.a(g.o)", Position: Position{ArchiveIndex: 1, MemberIndex: 0}},
		{Compilation: digJ, Origin: "liba.a(j.o)", Position: Position{ArchiveIndex: 1, MemberIndex: 1}},
		{Compilation: digH, Origin: "libb.a(h.o)", Position: Position{ArchiveIndex: 2, MemberIndex: 0}},
		{Compilation: digG, Origin: "libc.a(g.o)", Position: Position{ArchiveIndex: 3, MemberIndex: 0}},
	}

	if err := driver.Run(context.Background(), []Digest{digF}, members, nil); err != nil {
		t.Fatalf("Run() = %v, want success", err)
	}
	if !env.Undefs.Empty() {
		t.Fatal("undefs not empty after convergence")
	}

	gSym, ok := env.Shadow.At(addrG).Load().Symbol()
	if !ok {
		t.Fatal("g's slot does not hold a symbol after convergence")
	}
	ordinal, hasOrdinal := gSym.Ordinal()
	if !hasOrdinal {
		t.Fatal("g was never defined")
	}
	_ = ordinal // the ordinal does not identify which archive member supplied g.
}

// TestScenarioC is Scenario C: an unresolved external leaves the driver
// failing with ErrUnresolvedExternal and x reported in Undefs.
func TestScenarioC(t *testing.T) {
	repo := NewMemRepository()
	repo.AddName(addrF, "f")
	repo.AddName(addrX, "x")
	repo.AddFragment(digF, addrX)
	repo.AddCompilation(digF, Definition{Name: addrF, Fragment: digF})

	env := newTestEnv(repo)
	driver := NewDriver(env, ordinalgate.New(), nil)

	err := driver.Run(context.Background(), []Digest{digF}, nil, nil)
	if err == nil {
		t.Fatal("Run() = nil, want ErrUnresolvedExternal")
	}
	if !env.Undefs.Has(addrX) {
		t.Fatal("x missing from Undefs after termination")
	}
}

// TestScenarioD is Scenario D: two ticket compilations both defining g
// produce an ODR violation and the driver reports failure.
func TestScenarioD(t *testing.T) {
	repo := NewMemRepository()
	repo.AddName(addrG, "g")
	repo.AddFragment(digG)
	repo.AddFragment(digH)
	repo.AddCompilation(digG, Definition{Name: addrG, Fragment: digG})
	repo.AddCompilation(digH, Definition{Name: addrG, Fragment: digH})

	env := newTestEnv(repo)
	driver := NewDriver(env, ordinalgate.New(), nil)

	err := driver.Run(context.Background(), []Digest{digG, digH}, nil, nil)
	if err == nil {
		t.Fatal("Run() = nil, want an aggregated ODR failure")
	}
	if env.Failures.Empty() {
		t.Fatal("no failure recorded for duplicate definition of g")
	}
	all := env.Failures.All()
	if _, ok := all[0].(*ODRViolationError); !ok {
		t.Fatalf("recorded failure is %T, want *ODRViolationError", all[0])
	}
}

// TestScenarioE is Scenario E: archive position replacement. g is staked
// first at (3,0) then again at (1,0); the slot must end up holding the
// (1,0) member's cref. No resolution round is run here.
func TestScenarioE(t *testing.T) {
	repo := NewMemRepository()
	repo.AddName(addrF, "f")
	repo.AddName(addrG, "g")
	repo.AddFragment(digF, addrG)
	repo.AddFragment(digG)
	repo.AddCompilation(digF, Definition{Name: addrF, Fragment: digF})
	repo.AddCompilation(digG, Definition{Name: addrG, Fragment: digG})

	env := newTestEnv(repo)
	nextGroup := NewNextGroup()

	laterMember := ArchiveMember{Compilation: digG, Origin: "libc.a(g.o)", Position: Position{ArchiveIndex: 3, MemberIndex: 0}}
	earlierMember := ArchiveMember{Compilation: digG, Origin: "liba.a(g.o)", Position: Position{ArchiveIndex: 1, MemberIndex: 0}}

	DiscoverArchiveMember(context.Background(), env, laterMember, nextGroup)
	DiscoverArchiveMember(context.Background(), env, earlierMember, nextGroup)

	cref, ok := env.Shadow.At(addrG).Load().CompilationRef()
	if !ok {
		t.Fatal("g's slot does not hold a cref after two archive stakes")
	}
	if cref.Origin != earlierMember.Origin {
		t.Fatalf("g's retained cref is %q, want %q (earlier position must win)", cref.Origin, earlierMember.Origin)
	}
}

// TestOrdinalGateWiring checks that Driver.Run delivers exactly one
// ordinal per resolved compilation, in order, to the consume callback.
func TestOrdinalGateWiring(t *testing.T) {
	repo := NewMemRepository()
	repo.AddName(addrF, "f")
	repo.AddFragment(digF)
	repo.AddCompilation(digF, Definition{Name: addrF, Fragment: digF})

	env := newTestEnv(repo)
	driver := NewDriver(env, ordinalgate.New(), nil)

	var delivered []uint32
	if err := driver.Run(context.Background(), []Digest{digF}, nil, func(o uint32) {
		delivered = append(delivered, o)
	}); err != nil {
		t.Fatalf("Run() = %v, want success", err)
	}
	if len(delivered) != 1 || delivered[0] != 0 {
		t.Fatalf("delivered ordinals = %v, want [0]", delivered)
	}
}
