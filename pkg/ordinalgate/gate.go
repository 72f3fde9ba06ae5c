// Package ordinalgate implements the producer/consumer synchronizer that
// assigns dense monotonically-increasing ordinals to input files and
// delivers their completion notifications to a single downstream consumer
// strictly in ordinal order (spec.md §4.6), independent of the shadow
// resolver in package shadowlink. Grounded on the teacher's answerCond
// pattern (gitrdm-gokando's pkg/minikanren/tabling.go SubgoalEntry): a
// sync.Cond guarding a small piece of shared state, with the waiter woken
// by Signal on each FileCompleted and by Broadcast on Done and Error.
package ordinalgate

import (
	"container/heap"
	"sync"
)

// Gate serializes out-of-order completion events into the strict sequence
// 0, 1, 2, ... for one consumer. Multiple producers may call StartGroup and
// FileCompleted concurrently; at most one goroutine may call Next at a
// time.
type Gate struct {
	mu   sync.Mutex
	cond *sync.Cond

	bias        uint32
	consumerPos uint32
	waiting     ordinalHeap
	done        bool
	errored     bool

	// debug bookkeeping: the open ordinal ranges handed out by StartGroup
	// and the set of ordinals already delivered to FileCompleted, used to
	// catch producer protocol violations (spec.md §7, kind 3).
	openRanges []ordinalRange
	delivered  map[uint32]struct{}
}

type ordinalRange struct {
	lo, hi uint32 // [lo, hi)
}

// New returns an empty gate ready to accept StartGroup calls.
func New() *Gate {
	g := &Gate{delivered: make(map[uint32]struct{})}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// StartGroup atomically returns the current bias and advances it by
// groupMembers, reserving the contiguous ordinal range
// [base, base+groupMembers) for the caller's group.
func (g *Gate) StartGroup(groupMembers uint32) (base uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	base = g.bias
	g.bias += groupMembers
	g.openRanges = append(g.openRanges, ordinalRange{lo: base, hi: base + groupMembers})
	return base
}

// FileCompleted records that ordinal has finished resolving and wakes the
// consumer. It panics if called after Done, or on a duplicate or
// out-of-range ordinal — the debug-time producer-protocol assertions of
// spec.md §7, kind 3.
func (g *Gate) FileCompleted(ordinal uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.done {
		panic("ordinalgate: FileCompleted after Done")
	}
	if _, dup := g.delivered[ordinal]; dup {
		panic("ordinalgate: duplicate FileCompleted for the same ordinal")
	}
	if !g.inOpenRangeLocked(ordinal) {
		panic("ordinalgate: FileCompleted for an ordinal outside any started group")
	}

	g.delivered[ordinal] = struct{}{}
	heap.Push(&g.waiting, ordinal)
	g.cond.Signal()
}

func (g *Gate) inOpenRangeLocked(ordinal uint32) bool {
	for _, r := range g.openRanges {
		if ordinal >= r.lo && ordinal < r.hi {
			return true
		}
	}
	return false
}

// Done marks that no further FileCompleted calls will arrive, so the
// consumer may finish draining the heap and then stop.
func (g *Gate) Done() {
	g.mu.Lock()
	g.done = true
	g.mu.Unlock()
	g.cond.Broadcast()
}

// Error marks the gate as failed. Next returns immediately with ok=false
// for every waiter, current and future.
func (g *Gate) Error() {
	g.mu.Lock()
	g.errored = true
	g.mu.Unlock()
	g.cond.Broadcast()
}

// HasError reports whether Error has been called.
func (g *Gate) HasError() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.errored
}

// Next blocks until either Error has been called, the gate has drained
// cleanly (Done and the heap is empty), or the next ordinal in sequence is
// ready. It returns the delivered ordinal and true, or (0, false) on error
// or clean drain.
func (g *Gate) Next() (ordinal uint32, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		if g.errored {
			return 0, false
		}
		if len(g.waiting) > 0 && g.waiting[0] == g.consumerPos {
			heap.Pop(&g.waiting)
			pos := g.consumerPos
			g.consumerPos++
			return pos, true
		}
		if g.done && len(g.waiting) == 0 {
			return 0, false
		}
		g.cond.Wait()
	}
}

// ordinalHeap is a container/heap.Interface min-heap of pending ordinals
// (spec.md §9: "a strict min-heap is the natural container").
type ordinalHeap []uint32

func (h ordinalHeap) Len() int            { return len(h) }
func (h ordinalHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h ordinalHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *ordinalHeap) Push(x any)         { *h = append(*h, x.(uint32)) }
func (h *ordinalHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}
