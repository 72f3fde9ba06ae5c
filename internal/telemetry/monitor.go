package telemetry

import (
	"sync"
	"time"
)

// RoundMonitor is adapted from the teacher's DeadlockDetector
// (internal/parallel/pool.go): it tracks in-flight resolution and
// discovery workers by id and periodically checks whether any of them has
// been running longer than a fixed stallThreshold, which in this domain signals a
// worker stuck spinning on a shadow slot rather than a classic pool
// deadlock. The bounded-pool-specific TimeoutContext/
// ExecuteWithDeadlockProtection helpers have no analogue here — the shadow
// resolver has no cancellation (spec.md §5) — so they are dropped.
type RoundMonitor struct {
	mu sync.Mutex

	stallThreshold time.Duration
	checkInterval  time.Duration

	active       map[string]time.Time
	alerts       chan StallAlert
	shutdownChan chan struct{}
	once         sync.Once
}

// StallAlert reports that a worker has been active longer than
// stallThreshold.
type StallAlert struct {
	WorkerID string
	Running  time.Duration
}

// NewRoundMonitor starts a monitor goroutine that checks every
// checkInterval for workers running longer than stallThreshold.
func NewRoundMonitor(stallThreshold, checkInterval time.Duration) *RoundMonitor {
	m := &RoundMonitor{
		stallThreshold: stallThreshold,
		checkInterval:  checkInterval,
		active:         make(map[string]time.Time),
		alerts:         make(chan StallAlert, 8),
		shutdownChan:   make(chan struct{}),
	}
	go m.run()
	return m
}

// Register records that workerID started now.
func (m *RoundMonitor) Register(workerID string) {
	m.mu.Lock()
	m.active[workerID] = time.Now()
	m.mu.Unlock()
}

// Unregister records that workerID finished.
func (m *RoundMonitor) Unregister(workerID string) {
	m.mu.Lock()
	delete(m.active, workerID)
	m.mu.Unlock()
}

// Alerts returns the channel StallAlerts are published on.
func (m *RoundMonitor) Alerts() <-chan StallAlert { return m.alerts }

// Shutdown stops the monitor goroutine. Safe to call more than once.
func (m *RoundMonitor) Shutdown() {
	m.once.Do(func() { close(m.shutdownChan) })
}

func (m *RoundMonitor) run() {
	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.check()
		case <-m.shutdownChan:
			return
		}
	}
}

func (m *RoundMonitor) check() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for id, start := range m.active {
		if running := now.Sub(start); running > m.stallThreshold {
			select {
			case m.alerts <- StallAlert{WorkerID: id, Running: running}:
			default:
			}
		}
	}
}
