package build

import (
	"sync"
	"time"
)

// Metrics accumulates build outcomes across repeated runs, as in watch
// mode. It is safe for concurrent use.
type Metrics struct {
	snapshot MetricsSnapshot
	mutex    sync.RWMutex
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	TotalBuilds      int64
	SuccessfulBuilds int64
	FailedBuilds     int64
	AverageDuration  time.Duration
	TotalDuration    time.Duration
	// LastEntries is the manifest size of the last successful build.
	LastEntries int
}

// NewMetrics creates an empty metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Record adds one build. result may be nil when the build failed before
// producing one.
func (m *Metrics) Record(result *Result, duration time.Duration, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	s := &m.snapshot
	s.TotalBuilds++
	s.TotalDuration += duration

	if err != nil {
		s.FailedBuilds++
	} else {
		s.SuccessfulBuilds++
		if result != nil {
			s.LastEntries = len(result.Manifest)
		}
	}

	s.AverageDuration = s.TotalDuration / time.Duration(s.TotalBuilds)
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.snapshot
}

// SuccessRate returns the share of successful builds as a percentage.
func (m *Metrics) SuccessRate() float64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.snapshot.TotalBuilds == 0 {
		return 0.0
	}

	return float64(m.snapshot.SuccessfulBuilds) / float64(m.snapshot.TotalBuilds) * 100.0
}
