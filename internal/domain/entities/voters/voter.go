// Package voters defines the voter domain entity, its lifecycle states,
// and the three forms of the voter access key (plaintext shown once,
// encrypted at rest, hashed for lookup).
package voters

import "time"

// Status represents the lifecycle state of a voter.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusVerified  Status = "VERIFIED"
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
)

// IsValid reports whether s is one of the enumerated voter statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusActive, StatusSuspended:
		return true
	}
	return false
}

// Voter represents an eligible participant of a single election.
// A voter is unique per (ElectionID, Email) and per (ElectionID, UniqueID);
// both constraints are enforced by the persistence layer.
//
// StoredKey holds the access key encrypted at rest ("ivHex:cipherHex");
// legacy rows may still carry plaintext. KeyHash is the SHA-256 digest of
// the normalized plaintext key and is the only value compared at login.
type Voter struct {
	ID         string `json:"id"`
	ElectionID string `json:"electionId"`
	Email      string `json:"email"`
	UniqueID   string `json:"uniqueId"`
	Name       string `json:"name,omitempty"`

	Status     Status `json:"status"`
	VoteWeight int    `json:"voteWeight"`
	HasVoted   bool   `json:"hasVoted"`

	StoredKey string `json:"-"`
	KeyHash   string `json:"-"`

	VerificationToken     string     `json:"-"`
	VerificationExpiresAt *time.Time `json:"-"`
	VerifiedAt            *time.Time `json:"verifiedAt,omitempty"`

	KeyEmailSent   bool       `json:"keyEmailSent"`
	KeyEmailSentAt *time.Time `json:"keyEmailSentAt,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
