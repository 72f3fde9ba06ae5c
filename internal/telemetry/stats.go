// Package telemetry adapts the teacher's internal/parallel instrumentation
// (ExecutionStats, DeadlockDetector in internal/parallel/pool.go) to the
// linker frontier's domain: rounds of resolution/discovery workers instead
// of a bounded task queue. The atomic-counter-plus-mutex-guarded-history
// shape is kept; the queue-depth and backpressure fields that only make
// sense for a submit/consume worker pool are dropped (see DESIGN.md).
package telemetry

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Stats collects counters for one Driver.Run invocation: how many rounds
// ran, how many resolution/discovery workers were spawned, how many
// ordinals were assigned, and how many ODR failures were recorded.
type Stats struct {
	mu sync.RWMutex

	StartTime time.Time
	EndTime   time.Time

	Rounds             int64
	ResolutionsStarted int64
	ResolutionsDone    int64
	DiscoveriesStarted int64
	DiscoveriesDone    int64
	OrdinalsAssigned   int64
	Failures           int64

	lastError error

	roundSizeHistory []int
}

// New returns a Stats collector with StartTime set to now.
func New(now time.Time) *Stats {
	return &Stats{StartTime: now, roundSizeHistory: make([]int, 0, 16)}
}

// RecordRound records that a round of the given group size began.
func (s *Stats) RecordRound(groupSize int) {
	atomic.AddInt64(&s.Rounds, 1)
	s.mu.Lock()
	s.roundSizeHistory = append(s.roundSizeHistory, groupSize)
	s.mu.Unlock()
}

// RecordResolutionStarted records that a resolution worker was spawned.
func (s *Stats) RecordResolutionStarted() { atomic.AddInt64(&s.ResolutionsStarted, 1) }

// RecordResolutionDone records that a resolution worker finished.
func (s *Stats) RecordResolutionDone() { atomic.AddInt64(&s.ResolutionsDone, 1) }

// RecordDiscoveryStarted records that an archive-discovery worker was spawned.
func (s *Stats) RecordDiscoveryStarted() { atomic.AddInt64(&s.DiscoveriesStarted, 1) }

// RecordDiscoveryDone records that an archive-discovery worker finished.
func (s *Stats) RecordDiscoveryDone() { atomic.AddInt64(&s.DiscoveriesDone, 1) }

// RecordOrdinalsAssigned records that n ordinals were handed out to a round.
func (s *Stats) RecordOrdinalsAssigned(n int) { atomic.AddInt64(&s.OrdinalsAssigned, int64(n)) }

// RecordFailure records a worker-reported failure (e.g. an ODR violation).
func (s *Stats) RecordFailure(err error) {
	atomic.AddInt64(&s.Failures, 1)
	s.mu.Lock()
	s.lastError = err
	s.mu.Unlock()
}

// Finalize stamps EndTime. Call once, after Driver.Run returns.
func (s *Stats) Finalize(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.EndTime = now
}

// String returns a human-readable summary, in the same spirit as the
// teacher's ExecutionStats.String().
func (s *Stats) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lastErr := "none"
	if s.lastError != nil {
		lastErr = s.lastError.Error()
	}

	return fmt.Sprintf("telemetry.Stats{\n"+
		"  Duration: %v\n"+
		"  Rounds: %d\n"+
		"  Resolution workers: %d started, %d done\n"+
		"  Discovery workers: %d started, %d done\n"+
		"  Ordinals assigned: %d\n"+
		"  Failures: %d, last=%s\n"+
		"}",
		s.EndTime.Sub(s.StartTime),
		atomic.LoadInt64(&s.Rounds),
		atomic.LoadInt64(&s.ResolutionsStarted), atomic.LoadInt64(&s.ResolutionsDone),
		atomic.LoadInt64(&s.DiscoveriesStarted), atomic.LoadInt64(&s.DiscoveriesDone),
		atomic.LoadInt64(&s.OrdinalsAssigned),
		atomic.LoadInt64(&s.Failures), lastErr)
}
