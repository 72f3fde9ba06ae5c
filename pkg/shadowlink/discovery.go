package shadowlink

import (
	"context"
	"fmt"
)

// ArchiveMember describes one archive-packaged compilation as it appears
// on the command line (spec.md §4.4).
type ArchiveMember struct {
	Compilation Digest
	Origin      string
	Position    Position
}

// DiscoverArchiveMember is the archive-discovery worker (spec.md §4.4): for
// each definition in the member's compilation, it stakes (or loses to a
// better-positioned) archive claim. Grounded on shadowarch/main.cpp's
// archive_discovery, run once per archive member rather than once for the
// whole archive list, so that the driver can spawn one goroutine per
// member in reverse order (spec.md §4.4's "created in reverse member
// order" note).
func DiscoverArchiveMember(ctx context.Context, env *ResolveEnv, member ArchiveMember, nextGroup *NextGroup) {
	env.Stats.RecordDiscoveryStarted()
	defer env.Stats.RecordDiscoveryDone()

	env.Log.Log(ctx, "discover archive member ", member.Origin, " @ ", member.Position.String())

	comp, ok := env.Repo.Compilation(member.Compilation)
	if !ok {
		panic(fmt.Sprintf("shadowlink: unknown compilation %s", member.Compilation))
	}

	for _, def := range comp.Definitions {
		discoverDefinition(ctx, env, def, member, nextGroup)
	}
}

func discoverDefinition(ctx context.Context, env *ResolveEnv, def Definition, member ArchiveMember, nextGroup *NextGroup) {
	name := def.Name

	stakeCref := func() *Slot {
		env.Log.Log(ctx, "  stake cref: ", env.Repo.Name(name), " <- ", member.Origin)
		cref := env.Crefs.Emplace(member.Compilation, member.Origin, member.Position)
		return CompilationRefSlot(cref)
	}

	chooseBetterCref := func(_ ShadowRef, existing *CompilationRef) *Slot {
		if member.Position.Less(existing.Position) {
			env.Log.Log(ctx, "  replace cref: ", env.Repo.Name(name), " <- ", member.Origin)
			return stakeCref()
		}
		return CompilationRefSlot(existing)
	}

	matchUndefInArchive := func(_ ShadowRef, sym *Symbol) *Slot {
		sym.Lock()
		defer sym.Unlock()
		if sym.IsDefLocked() {
			return SymbolSlot(sym)
		}
		env.Log.Log(ctx, "  match undef in archive: ", env.Repo.Name(name), " <- ", member.Origin)
		cref := env.Crefs.Emplace(member.Compilation, member.Origin, member.Position)
		nextGroup.Insert(name)
		return CompilationRefSlot(cref)
	}

	Set(env.Shadow.At(name), stakeCref, chooseBetterCref, matchUndefInArchive)
}
