// Package repositories defines the repository interfaces for the election,
// voter and notification entities. These abstract the persistence details so
// the application services stay decoupled from the database.
package repositories

import (
	"time"

	"github.com/BallotDesk/ballotdesk-go/internal/domain/entities/elections"
	"github.com/BallotDesk/ballotdesk-go/internal/domain/entities/notifications"
	"github.com/BallotDesk/ballotdesk-go/internal/domain/entities/voters"
)

type ElectionRepository interface {
	FindByID(id string) (*elections.Election, error)
	FindByStatus(status elections.Status) ([]*elections.Election, error)
	// FindDueForActivation returns SCHEDULED elections whose start time
	// has already passed.
	FindDueForActivation(now time.Time) ([]*elections.Election, error)
	// FindStartingWithin returns SCHEDULED elections starting inside the
	// window beginning at now.
	FindStartingWithin(now time.Time, window time.Duration) ([]*elections.Election, error)
	// FindEndingWithin returns ACTIVE elections ending inside the window
	// beginning at now.
	FindEndingWithin(now time.Time, window time.Duration) ([]*elections.Election, error)
	Store(election *elections.Election) error
	Update(election *elections.Election) error
	// Activate flips a SCHEDULED election to ACTIVE and stamps startedAt
	// in one compare-and-set write. It reports false when the election was
	// no longer SCHEDULED, so concurrent sweeps activate at most once.
	Activate(id string, startedAt time.Time) (bool, error)
	Delete(id string) error
	CountByStatus() (map[elections.Status]int, error)
}

type VoterRepository interface {
	FindByID(id string) (*voters.Voter, error)
	// FindByUniqueID matches uniqueId case-insensitively.
	FindByUniqueID(uniqueID string) (*voters.Voter, error)
	FindByElection(electionID string) ([]*voters.Voter, error)
	FindByElectionAndStatus(electionID string, status voters.Status) ([]*voters.Voter, error)
	// FindEligibleForEndingReminder returns ACTIVE voters of the election
	// who have not yet voted.
	FindEligibleForEndingReminder(electionID string) ([]*voters.Voter, error)
	// Store fails with domainerrors.ErrDuplicateVoter when the unique
	// (electionId, email) or (electionId, uniqueId) index is violated.
	Store(voter *voters.Voter) error
	UpdateStatus(id string, status voters.Status, verifiedAt *time.Time) error
	// UpdateKey replaces both forms of the credential in one write.
	UpdateKey(id string, storedKey, keyHash string) error
	// UpdateKeyHash persists a hash recovered by the login self-heal path.
	UpdateKeyHash(id string, keyHash string) error
	MarkKeyEmailSent(id string, sentAt time.Time) error
	Delete(id string) error
	CountByStatus() (map[voters.Status]int, error)
}

type NotificationRepository interface {
	FindByID(id string) (*notifications.Notification, error)
	Store(n *notifications.Notification) error
	// StoreMany inserts the batch in one statement; a failure surfaces as a
	// single error with no partial rollback beyond what the store provides.
	StoreMany(batch []*notifications.Notification) error
	// List returns the recipient's notifications newest-first plus the
	// total matching count for pagination.
	List(recipient string, filters notifications.ListFilters) ([]*notifications.Notification, int, error)
	// MarkRead marks the recipient's notifications read; an empty ids
	// slice marks all of them. Returns the number of rows updated.
	MarkRead(recipient string, ids []string, readAt time.Time) (int, error)
	MarkDelivered(id string, deliveredAt time.Time) error
	// CountUnread excludes notifications whose expiresAt has passed.
	CountUnread(recipient string, now time.Time) (int, error)
	// FindDueScheduled returns undelivered notifications whose
	// scheduledFor is at or before now.
	FindDueScheduled(now time.Time) ([]*notifications.Notification, error)
	DeleteExpired(now time.Time) (int, error)
	// Delete removes a single notification owned by recipient.
	Delete(recipient, id string) error
	CountByType() (map[notifications.Type]int, error)
}
