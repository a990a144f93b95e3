// Package performance provides operation tracking with bounded retention
// and slow-operation alerting.
package performance

import (
	"fmt"
	"sync"
	"time"
)

// Tracker manages performance markers and provides metrics aggregation
type Tracker struct {
	markers map[string]*Marker
	order   []string
	config  *TrackerConfig
	mu      sync.RWMutex
	started time.Time
}

// TrackerConfig contains configuration options for the performance tracker
type TrackerConfig struct {
	MaxMarkers    int           `json:"maxMarkers"`    // Maximum number of markers to retain
	SlowThreshold time.Duration `json:"slowThreshold"` // Operations above this are considered slow
}

// DefaultTrackerConfig returns a sensible default configuration
func DefaultTrackerConfig() *TrackerConfig {
	return &TrackerConfig{
		MaxMarkers:    10000,
		SlowThreshold: 500 * time.Millisecond,
	}
}

// NewTracker creates a new performance tracker with the given configuration
func NewTracker(config *TrackerConfig) *Tracker {
	if config == nil {
		config = DefaultTrackerConfig()
	}

	return &Tracker{
		markers: make(map[string]*Marker),
		config:  config,
		started: time.Now(),
	}
}

// StartOperation creates and tracks a new performance marker for an operation
func (t *Tracker) StartOperation(operation string) *Marker {
	marker := &Marker{
		Operation: operation,
		StartTime: time.Now(),
		Success:   true, // Assume success until proven otherwise
	}

	markerID := fmt.Sprintf("%s_%d", operation, time.Now().UnixNano())

	t.mu.Lock()
	t.markers[markerID] = marker
	t.order = append(t.order, markerID)
	if len(t.order) > t.config.MaxMarkers {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.markers, oldest)
	}
	t.mu.Unlock()

	return marker
}

// Stats summarizes completed operations since the tracker started.
type Stats struct {
	Uptime        time.Duration `json:"uptime"`
	Operations    int           `json:"operations"`
	Failures      int           `json:"failures"`
	SlowCount     int           `json:"slowCount"`
	TotalDuration time.Duration `json:"totalDuration"`
}

// Snapshot returns aggregate stats over the retained markers.
func (t *Tracker) Snapshot() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := Stats{Uptime: time.Since(t.started)}
	for _, m := range t.markers {
		if !m.Completed {
			continue
		}
		stats.Operations++
		stats.TotalDuration += m.Duration
		if !m.Success {
			stats.Failures++
		}
		if m.Duration > t.config.SlowThreshold {
			stats.SlowCount++
		}
	}
	return stats
}
