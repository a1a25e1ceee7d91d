package site

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time copy of Metrics.
type Snapshot struct {
	TotalBuilds      int64
	SuccessfulBuilds int64
	FailedBuilds     int64
	Rendered         int64
	Copied           int64
	Skipped          int64
	Ignored          int64
	AverageDuration  time.Duration
	TotalDuration    time.Duration
}

// Metrics tracks build counts, durations and per-outcome totals across every
// build run by a Builder.
type Metrics struct {
	current Snapshot
	mutex   sync.RWMutex
}

// NewMetrics creates a new metrics tracker
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordBuild records a build result in the metrics
func (m *Metrics) RecordBuild(result *Result, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	s := &m.current
	s.TotalBuilds++
	if err != nil {
		s.FailedBuilds++
	} else {
		s.SuccessfulBuilds++
	}

	if result != nil {
		s.TotalDuration += result.Duration
		s.Rendered += int64(result.Rendered)
		s.Copied += int64(result.Copied)
		s.Skipped += int64(result.Skipped)
		s.Ignored += int64(result.Ignored)
	}

	s.AverageDuration = s.TotalDuration / time.Duration(s.TotalBuilds)
}

// GetSnapshot returns a snapshot of current metrics
func (m *Metrics) GetSnapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.current
}

// GetSuccessRate returns the success rate as a percentage
func (m *Metrics) GetSuccessRate() float64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.current.TotalBuilds == 0 {
		return 0.0
	}

	return float64(m.current.SuccessfulBuilds) / float64(m.current.TotalBuilds) * 100.0
}
