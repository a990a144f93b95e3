// Package elections defines the election domain entity and its lifecycle states.
package elections

import "time"

// Status represents the lifecycle state of an election.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusScheduled Status = "SCHEDULED"
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// IsValid reports whether s is one of the enumerated election statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusScheduled, StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Election represents a single managed election. The SCHEDULED to ACTIVE
// transition is owned by the background scheduler and driven purely by
// wall-clock comparison against StartTime.
type Election struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     time.Time  `json:"endTime"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
