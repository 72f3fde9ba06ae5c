package shadowlink

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dalbright/shadowlink/internal/logging"
	"github.com/dalbright/shadowlink/internal/telemetry"
	"github.com/dalbright/shadowlink/pkg/ordinalgate"
)

// Driver runs the round loop (spec.md §4.5): it seeds a group with ticket
// compilations, starts archive discovery, and alternates spawning
// resolution workers with harvesting the next group from NextGroup until
// the group empties or every undef has been resolved. Uses
// golang.org/x/sync/errgroup for the round-based join barriers, with one
// goroutine per compilation/member.
type Driver struct {
	Env     *ResolveEnv
	Gate    *ordinalgate.Gate
	Monitor *telemetry.RoundMonitor
}

// NewDriver wires a ResolveEnv to the given ordinal gate and round monitor
// (monitor may be nil).
func NewDriver(env *ResolveEnv, gate *ordinalgate.Gate, monitor *telemetry.RoundMonitor) *Driver {
	return &Driver{Env: env, Gate: gate, Monitor: monitor}
}

// Run seeds the round loop with tickets (wrapped as position (0, i) crefs)
// and archiveMembers (discovered concurrently with round 0), and drives
// rounds until convergence. It returns ErrUnresolvedExternal if any undef
// remains at termination, or an aggregated error describing every recorded
// ODR violation if FailureSet is non-empty. consume, if non-nil, receives
// every ordinal in strict order as the ordinal gate delivers it — the
// stand-in for the out-of-scope downstream layout consumer (spec.md §6).
func (d *Driver) Run(ctx context.Context, tickets []Digest, archiveMembers []ArchiveMember, consume func(ordinal uint32)) error {
	env := d.Env

	group := make([]*CompilationRef, len(tickets))
	for i, digest := range tickets {
		group[i] = env.Crefs.Emplace(digest, fmt.Sprintf("ticket#%d", i), Position{ArchiveIndex: 0, MemberIndex: uint32(i)})
	}

	var consumerWG chan struct{}
	if consume != nil {
		consumerWG = make(chan struct{})
		go func() {
			defer close(consumerWG)
			for {
				ordinal, ok := d.Gate.Next()
				if !ok {
					return
				}
				consume(ordinal)
			}
		}()
	}

	discoveryGroup, discoveryCtx := errgroup.WithContext(ctx)
	nextGroup := NewNextGroup()
	// Archive threads are spawned in reverse member order so earlier
	// command-line positions tend to arrive first (spec.md §4.4); the
	// priority comparison in chooseBetterCref (discovery.go) makes correctness
	// independent of arrival order, this only reduces replacements.
	for i := len(archiveMembers) - 1; i >= 0; i-- {
		member := archiveMembers[i]
		workerID := d.Env.Log.AssignWorker()
		discoveryGroup.Go(func() error {
			wctx := logging.WithWorker(discoveryCtx, workerID)
			if d.Monitor != nil {
				tag := fmt.Sprintf("discover:%s", member.Origin)
				d.Monitor.Register(tag)
				defer d.Monitor.Unregister(tag)
			}
			DiscoverArchiveMember(wctx, env, member, nextGroup)
			return nil
		})
	}

	// Round 0 always runs regardless of UndefSet's (empty, at this point)
	// state — the undefs check only gates whether a *subsequent* round is
	// worth running, matching the original's do/while shape (spec.md
	// §4.5, DESIGN.md "main() do/while loop").
	round := 0
	for {
		env.Stats.RecordRound(len(group))

		base := d.Gate.StartGroup(uint32(len(group)))
		env.Stats.RecordOrdinalsAssigned(len(group))

		resolveGroup, resolveCtx := errgroup.WithContext(ctx)
		for i, cref := range group {
			cref := cref
			ordinal := base + uint32(i)
			workerID := d.Env.Log.AssignWorker()
			resolveGroup.Go(func() error {
				wctx := logging.WithWorker(resolveCtx, workerID)
				if d.Monitor != nil {
					tag := fmt.Sprintf("resolve:%s", cref.Compilation)
					d.Monitor.Register(tag)
					defer d.Monitor.Unregister(tag)
				}
				ResolveCompilation(wctx, env, cref, ordinal, nextGroup)
				d.Gate.FileCompleted(ordinal)
				return nil
			})
		}
		if err := resolveGroup.Wait(); err != nil {
			d.Gate.Error()
			return err
		}

		if round == 0 {
			if err := discoveryGroup.Wait(); err != nil {
				d.Gate.Error()
				return err
			}
		}

		group = group[:0]
		nextGroup.ForEach(func(addr Address) {
			if cref, ok := env.Shadow.At(addr).Load().CompilationRef(); ok {
				group = append(group, cref)
			}
		})
		more := nextGroup.Clear()

		round++

		if !more || len(group) == 0 || env.Undefs.Empty() {
			break
		}
	}

	d.Gate.Done()
	if consumerWG != nil {
		<-consumerWG
	}

	if !env.Failures.Empty() {
		msgs := make([]string, 0, len(env.Failures.All()))
		for _, e := range env.Failures.All() {
			msgs = append(msgs, e.Error())
		}
		return fmt.Errorf("shadowlink: %d failure(s): %s", len(msgs), strings.Join(msgs, "; "))
	}

	if !env.Undefs.Empty() {
		names := make([]string, 0)
		env.Undefs.ForEach(func(addr Address) {
			names = append(names, env.Repo.Name(addr))
		})
		env.Log.Log(ctx, "unresolved externals: ", logging.Range(names))
		return fmt.Errorf("%w: %s", ErrUnresolvedExternal, strings.Join(names, ", "))
	}

	return nil
}
