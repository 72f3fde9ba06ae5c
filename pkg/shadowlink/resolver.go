package shadowlink

import (
	"context"
	"fmt"

	"github.com/dalbright/shadowlink/internal/logging"
	"github.com/dalbright/shadowlink/internal/telemetry"
)

// ResolveEnv bundles the shared state every resolution and discovery
// worker needs. It plays the role of the original's `context` struct
// (shadowarch/context.hpp), minus the repository's raw byte-array shadow
// memory (replaced by ShadowMap).
type ResolveEnv struct {
	Repo     Repository
	Shadow   *ShadowMap
	Symbols  *SymbolArena
	Crefs    *CompilationRefArena
	Undefs   *UndefSet
	Failures *FailureSet
	Log      *logging.Printer
	Stats    *telemetry.Stats
}

// ResolveCompilation is the symbol-resolution worker (spec.md §4.3): it
// walks one compilation's definitions and, for each, the fragment body's
// outgoing references, invoking Set/Observe on every shadow slot it
// touches. Grounded on shadowarch/main.cpp's symbol_resolution.
func ResolveCompilation(ctx context.Context, env *ResolveEnv, cref *CompilationRef, ordinal uint32, nextGroup *NextGroup) {
	env.Stats.RecordResolutionStarted()
	defer env.Stats.RecordResolutionDone()

	env.Log.Log(ctx, "resolve compilation ", cref.Compilation, " (ordinal=", ordinal, ")")

	comp, ok := env.Repo.Compilation(cref.Compilation)
	if !ok {
		panic(fmt.Sprintf("shadowlink: unknown compilation %s", cref.Compilation))
	}

	for _, def := range comp.Definitions {
		resolveDefinition(ctx, env, def, cref.Compilation, ordinal)

		frag, ok := env.Repo.Fragment(def.Fragment)
		if !ok {
			panic(fmt.Sprintf("shadowlink: unknown fragment %s", def.Fragment))
		}
		for _, ref := range frag.References {
			observeReference(ctx, env, ref, nextGroup)
		}
	}
}

// resolveDefinition runs the create/createFromCref/update triple for one
// definition's own name.
func resolveDefinition(ctx context.Context, env *ResolveEnv, def Definition, compilation Digest, ordinal uint32) {
	name := def.Name

	create := func() *Slot {
		env.Log.Log(ctx, "  create def: ", env.Repo.Name(name))
		sym := env.Symbols.EmplaceDef(name, ordinal)
		return SymbolSlot(sym)
	}

	createFromCref := func(_ ShadowRef, _ *CompilationRef) *Slot {
		// A ticket definition supersedes an archive claim outright: the
		// cref is abandoned and its compilation is NOT rescheduled into
		// nextGroup (spec.md §4.3, Open Question #2 in DESIGN.md).
		env.Log.Log(ctx, "  create def over cref: ", env.Repo.Name(name))
		env.Undefs.EraseIfPresent(name)
		return create()
	}

	update := func(_ ShadowRef, sym *Symbol) *Slot {
		if sym.IsDef() {
			first, _ := sym.Ordinal()
			err := &ODRViolationError{
				Name:              env.Repo.Name(sym.Name()),
				FirstOrdinal:      first,
				SecondOrdinal:     ordinal,
				SecondCompilation: compilation,
			}
			env.Failures.Report(err)
			env.Stats.RecordFailure(err)
			env.Log.Log(ctx, "  ODR violation: ", err.Error())
			return SymbolSlot(sym)
		}
		env.Log.Log(ctx, "  undef to def: ", env.Repo.Name(sym.Name()))
		// sym was just observed undefined, so it must still be a member of
		// Undefs (only a promotion ever removes it) — the panicking Erase
		// is the semantically correct choice here, per spec.md §4.3's
		// "asserts sym was undefined, removes sym.name from undefs".
		env.Undefs.Erase(sym.Name())
		sym.SetOrdinal(ordinal)
		return SymbolSlot(sym)
	}

	Set(env.Shadow.At(name), create, createFromCref, update)
}

// observeReference runs the create/createFromCref/(identity) triple for
// one outgoing reference of a definition's fragment body.
func observeReference(ctx context.Context, env *ResolveEnv, ref Address, nextGroup *NextGroup) {
	create := func() *Slot {
		env.Log.Log(ctx, "  create undef: ", env.Repo.Name(ref))
		sym := env.Symbols.EmplaceUndef(ref)
		env.Undefs.Add(ref)
		return SymbolSlot(sym)
	}

	createFromCref := func(_ ShadowRef, cref *CompilationRef) *Slot {
		// Leave the cref in place so archive discovery's position
		// comparisons remain valid, but note that this reference must be
		// promoted next round.
		env.Log.Log(ctx, "  observe cref as undef: ", env.Repo.Name(ref))
		nextGroup.Insert(ref)
		env.Undefs.Add(ref)
		return CompilationRefSlot(cref)
	}

	Observe(env.Shadow.At(ref), create, createFromCref)
}
