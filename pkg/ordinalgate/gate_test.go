package ordinalgate

import (
	"math/rand"
	"sync"
	"testing"
)

// TestInOrderDelivery is Scenario B from spec.md §8: groups [1, 4, 2] give
// ordinals 0..6; each group's producer shuffles completion order, and the
// consumer must still observe 0 1 2 3 4 5 6.
func TestInOrderDelivery(t *testing.T) {
	g := New()
	groups := []uint32{1, 4, 2}

	var wg sync.WaitGroup
	for _, size := range groups {
		base := g.StartGroup(size)
		ords := make([]uint32, size)
		for i := range ords {
			ords[i] = base + uint32(i)
		}
		rand.Shuffle(len(ords), func(i, j int) { ords[i], ords[j] = ords[j], ords[i] })

		wg.Add(1)
		go func(ords []uint32) {
			defer wg.Done()
			for _, o := range ords {
				g.FileCompleted(o)
			}
		}(ords)
	}

	go func() {
		wg.Wait()
		g.Done()
	}()

	var got []uint32
	for {
		ord, ok := g.Next()
		if !ok {
			break
		}
		got = append(got, ord)
	}

	if len(got) != 7 {
		t.Fatalf("got %d ordinals, want 7: %v", len(got), got)
	}
	for i, ord := range got {
		if ord != uint32(i) {
			t.Fatalf("ordinal at position %d = %d, want %d (full sequence %v)", i, ord, i, got)
		}
	}
	if g.HasError() {
		t.Fatal("HasError() = true after clean drain")
	}
}

// TestErrorShortCircuit is Scenario F: while a consumer waits in Next,
// another goroutine calls Error; Next must return immediately with ok ==
// false, and HasError must report true, even with undelivered ordinals
// still pending.
func TestErrorShortCircuit(t *testing.T) {
	g := New()
	g.StartGroup(3) // reserves [0, 3) but nothing is ever completed

	done := make(chan struct{})
	var ord uint32
	var ok bool
	go func() {
		ord, ok = g.Next()
		close(done)
	}()

	g.Error()
	<-done

	if ok {
		t.Fatalf("Next() = (%d, true), want ok=false after Error", ord)
	}
	if !g.HasError() {
		t.Fatal("HasError() = false after Error()")
	}
}

func TestStartGroupContiguousRanges(t *testing.T) {
	g := New()
	if base := g.StartGroup(5); base != 0 {
		t.Fatalf("first StartGroup base = %d, want 0", base)
	}
	if base := g.StartGroup(3); base != 5 {
		t.Fatalf("second StartGroup base = %d, want 5", base)
	}
	if base := g.StartGroup(0); base != 8 {
		t.Fatalf("third StartGroup base = %d, want 8", base)
	}
}

func TestFileCompletedAfterDonePanics(t *testing.T) {
	g := New()
	g.StartGroup(1)
	g.Done()

	defer func() {
		if recover() == nil {
			t.Fatal("FileCompleted after Done did not panic")
		}
	}()
	g.FileCompleted(0)
}

func TestFileCompletedDuplicatePanics(t *testing.T) {
	g := New()
	g.StartGroup(1)
	g.FileCompleted(0)

	defer func() {
		if recover() == nil {
			t.Fatal("duplicate FileCompleted did not panic")
		}
	}()
	g.FileCompleted(0)
}

func TestFileCompletedOutOfRangePanics(t *testing.T) {
	g := New()
	g.StartGroup(1)

	defer func() {
		if recover() == nil {
			t.Fatal("out-of-range FileCompleted did not panic")
		}
	}()
	g.FileCompleted(7)
}

func TestCleanDrainWithNoGroups(t *testing.T) {
	g := New()
	g.Done()
	if _, ok := g.Next(); ok {
		t.Fatal("Next() on an empty, done gate returned ok=true")
	}
}
