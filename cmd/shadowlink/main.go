// Command shadowlink runs the demo link scenario fixed by spec.md §6: four
// compilations f, g, h, j and three archives liba.a, libb.a, libc.a. Its
// only flag is --verbose (-v), which turns on logging and prints run
// statistics. It builds the fixed example, runs the round loop to
// convergence, and exits 0 on success or 1 if any external reference is
// left unresolved.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dalbright/shadowlink/internal/logging"
	"github.com/dalbright/shadowlink/internal/telemetry"
	"github.com/dalbright/shadowlink/pkg/ordinalgate"
	"github.com/dalbright/shadowlink/pkg/shadowlink"
)

// Fixed symbol addresses for the demo example, one per name.
const (
	addrF shadowlink.Address = iota
	addrG
	addrH
	addrJ
)

// Fixed compilation and fragment digests. Each name's fragment shares the
// name's digest in this toy repository, since the demo never needs to
// distinguish a fragment from the compilation that defines it.
const (
	digF shadowlink.Digest = iota + 1
	digG
	digH
	digJ
)

func buildDemoRepository() *shadowlink.MemRepository {
	repo := shadowlink.NewMemRepository()
	repo.AddName(addrF, "f")
	repo.AddName(addrG, "g")
	repo.AddName(addrH, "h")
	repo.AddName(addrJ, "j")

	// f -> {g, h}, g -> {j}, h -> {}, j -> {}
	repo.AddFragment(digF, addrG, addrH)
	repo.AddFragment(digG, addrJ)
	repo.AddFragment(digH)
	repo.AddFragment(digJ)

	repo.AddCompilation(digF, shadowlink.Definition{Name: addrF, Fragment: digF})
	repo.AddCompilation(digG, shadowlink.Definition{Name: addrG, Fragment: digG})
	repo.AddCompilation(digH, shadowlink.Definition{Name: addrH, Fragment: digH})
	repo.AddCompilation(digJ, shadowlink.Definition{Name: addrJ, Fragment: digJ})

	return repo
}

func buildDemoArchiveMembers() []shadowlink.ArchiveMember {
	return []shadowlink.ArchiveMember{
		{Compilation: digG, Origin: "liba.a(g.o)", Position: shadowlink.Position{ArchiveIndex: 1, MemberIndex: 0}},
		{Compilation: digJ, Origin: "liba.a(j.o)", Position: shadowlink.Position{ArchiveIndex: 1, MemberIndex: 1}},
		{Compilation: digH, Origin: "libb.a(h.o)", Position: shadowlink.Position{ArchiveIndex: 2, MemberIndex: 0}},
		{Compilation: digG, Origin: "libc.a(g.o)", Position: shadowlink.Position{ArchiveIndex: 3, MemberIndex: 0}},
	}
}

func run(cmd *cobra.Command, verbose bool) error {
	ctx := cmd.Context()

	repo := buildDemoRepository()
	printer := logging.New(cmd.OutOrStdout(), verbose)
	stats := telemetry.New(time.Now())
	monitor := telemetry.NewRoundMonitor(2*time.Second, 250*time.Millisecond)
	defer monitor.Shutdown()

	env := &shadowlink.ResolveEnv{
		Repo:     repo,
		Shadow:   shadowlink.NewShadowMap(repo.Size()),
		Symbols:  shadowlink.NewSymbolArena(),
		Crefs:    shadowlink.NewCompilationRefArena(),
		Undefs:   shadowlink.NewUndefSet(),
		Failures: shadowlink.NewFailureSet(),
		Log:      printer,
		Stats:    stats,
	}

	driver := shadowlink.NewDriver(env, ordinalgate.New(), monitor)

	tickets := []shadowlink.Digest{digF}
	archives := buildDemoArchiveMembers()

	err := driver.Run(ctx, tickets, archives, func(ordinal uint32) {
		printer.Log(ctx, "layout received ordinal ", ordinal)
	})

	stats.Finalize(time.Now())
	if verbose {
		fmt.Fprintln(cmd.OutOrStdout(), stats.String())
	}

	return err
}

func newRootCommand() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "shadowlink",
		Short: "Run the shadow-memory resolver demo link scenario",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := run(cmd, verbose); err != nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every shadow-slot transition")
	return cmd
}

func main() {
	cmd := newRootCommand()
	cmd.SetContext(context.Background())
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
