// Package voters provides the concrete SQL-based implementation of
// the voter domain repository.
package voters

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/BallotDesk/ballotdesk-go/internal/domain/entities/voters"
	domainerrors "github.com/BallotDesk/ballotdesk-go/internal/domain/errors"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/observability/logging"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/persistence/database"
	"github.com/BallotDesk/ballotdesk-go/pkg/config"
)

const voterColumns = `id, election_id, email, unique_id, name, status, vote_weight, has_voted,
	       stored_key, key_hash, verification_token, verification_expires_at, verified_at,
	       key_email_sent, key_email_sent_at, metadata, created_at, updated_at`

// SQLVoterRepository is the SQL-based implementation of the VoterRepository.
type SQLVoterRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLVoterRepository creates a new instance of the repository.
func NewSQLVoterRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLVoterRepository {
	return &SQLVoterRepository{
		db:     db,
		logger: logger,
	}
}

// FindByID retrieves a voter by its unique identifier.
func (r *SQLVoterRepository) FindByID(id string) (*voters.Voter, error) {
	query := `SELECT ` + voterColumns + ` FROM voters WHERE id = ?`

	start := time.Now()
	r.logger.Database().Debug("Loading voter by ID", "id", id)

	row := r.db.QueryRow(query, id)
	voter, err := r.scanVoter(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Database().Error("Failed to load voter by ID", "error", err.Error(), "id", id)
		return nil, err
	}

	r.checkSlowQuery(query, time.Since(start))
	return voter, nil
}

// FindByUniqueID retrieves a voter by its voter-facing identifier. The
// unique_id column is declared COLLATE NOCASE, so the match is
// case-insensitive.
func (r *SQLVoterRepository) FindByUniqueID(uniqueID string) (*voters.Voter, error) {
	query := `SELECT ` + voterColumns + ` FROM voters WHERE unique_id = ?`

	start := time.Now()
	r.logger.Database().Debug("Loading voter by unique ID")

	row := r.db.QueryRow(query, strings.TrimSpace(uniqueID))
	voter, err := r.scanVoter(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Database().Error("Failed to load voter by unique ID", "error", err.Error())
		return nil, err
	}

	r.checkSlowQuery(query, time.Since(start))
	return voter, nil
}

// FindByElection retrieves all voters of an election.
func (r *SQLVoterRepository) FindByElection(electionID string) ([]*voters.Voter, error) {
	query := `SELECT ` + voterColumns + ` FROM voters WHERE election_id = ? ORDER BY created_at`
	return r.queryVoters(query, electionID)
}

// FindByElectionAndStatus retrieves an election's voters with the given status.
func (r *SQLVoterRepository) FindByElectionAndStatus(electionID string, status voters.Status) ([]*voters.Voter, error) {
	query := `SELECT ` + voterColumns + ` FROM voters WHERE election_id = ? AND status = ? ORDER BY created_at`
	return r.queryVoters(query, electionID, string(status))
}

// FindEligibleForEndingReminder retrieves ACTIVE voters of an election who
// have not voted yet.
func (r *SQLVoterRepository) FindEligibleForEndingReminder(electionID string) ([]*voters.Voter, error) {
	query := `SELECT ` + voterColumns + ` FROM voters WHERE election_id = ? AND status = ? AND has_voted = 0 ORDER BY created_at`
	return r.queryVoters(query, electionID, string(voters.StatusActive))
}

// Store saves a new voter. A unique-index violation on
// (election_id, email) or (election_id, unique_id) surfaces as
// ErrDuplicateVoter; the insert is never pre-checked.
func (r *SQLVoterRepository) Store(voter *voters.Voter) error {
	const query = `
		INSERT INTO voters (id, election_id, email, unique_id, name, status, vote_weight, has_voted,
		                    stored_key, key_hash, verification_token, verification_expires_at, verified_at,
		                    key_email_sent, key_email_sent_at, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	start := time.Now()
	r.logger.Database().Debug("Executing voter insert", "id", voter.ID, "electionId", voter.ElectionID)

	metadata, err := json.Marshal(orEmptyMap(voter.Metadata))
	if err != nil {
		return fmt.Errorf("failed to marshal voter metadata: %w", err)
	}

	_, err = r.db.Exec(
		query,
		voter.ID,
		voter.ElectionID,
		voter.Email,
		voter.UniqueID,
		voter.Name,
		string(voter.Status),
		voter.VoteWeight,
		voter.HasVoted,
		voter.StoredKey,
		voter.KeyHash,
		voter.VerificationToken,
		nullableTime(voter.VerificationExpiresAt),
		nullableTime(voter.VerifiedAt),
		voter.KeyEmailSent,
		nullableTime(voter.KeyEmailSentAt),
		string(metadata),
		voter.CreatedAt,
		voter.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			r.logger.Database().Warn("Duplicate voter insert rejected", "electionId", voter.ElectionID)
			return fmt.Errorf("%w: %s", domainerrors.ErrDuplicateVoter, voter.UniqueID)
		}
		r.logger.Database().Error("Failed to insert voter", "error", err.Error(), "id", voter.ID)
		return err
	}

	r.checkSlowQuery(query, time.Since(start))
	return nil
}

// UpdateStatus sets a voter's status and optionally stamps verified_at.
func (r *SQLVoterRepository) UpdateStatus(id string, status voters.Status, verifiedAt *time.Time) error {
	const query = `
		UPDATE voters
		SET status = ?, verified_at = COALESCE(verified_at, ?), updated_at = ?
		WHERE id = ?`

	result, err := r.db.Exec(query, string(status), nullableTime(verifiedAt), time.Now().UTC(), id)
	if err != nil {
		r.logger.Database().Error("Failed to update voter status", "error", err.Error(), "id", id)
		return err
	}
	return requireMatch(result, id)
}

// UpdateKey replaces both stored forms of the credential in one write.
func (r *SQLVoterRepository) UpdateKey(id string, storedKey, keyHash string) error {
	const query = `UPDATE voters SET stored_key = ?, key_hash = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.Exec(query, storedKey, keyHash, time.Now().UTC(), id)
	if err != nil {
		r.logger.Database().Error("Failed to update voter key", "error", err.Error(), "id", id)
		return err
	}
	return requireMatch(result, id)
}

// UpdateKeyHash persists a lookup hash recovered by the login self-heal path.
func (r *SQLVoterRepository) UpdateKeyHash(id string, keyHash string) error {
	const query = `UPDATE voters SET key_hash = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.Exec(query, keyHash, time.Now().UTC(), id)
	if err != nil {
		r.logger.Database().Error("Failed to persist recovered key hash", "error", err.Error(), "id", id)
		return err
	}
	return requireMatch(result, id)
}

// MarkKeyEmailSent records that the access-key email went out.
func (r *SQLVoterRepository) MarkKeyEmailSent(id string, sentAt time.Time) error {
	const query = `UPDATE voters SET key_email_sent = 1, key_email_sent_at = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.Exec(query, sentAt, time.Now().UTC(), id)
	if err != nil {
		r.logger.Database().Error("Failed to mark key email sent", "error", err.Error(), "id", id)
		return err
	}
	return requireMatch(result, id)
}

// Delete removes a voter permanently.
func (r *SQLVoterRepository) Delete(id string) error {
	const query = `DELETE FROM voters WHERE id = ?`

	result, err := r.db.Exec(query, id)
	if err != nil {
		r.logger.Database().Error("Failed to delete voter", "error", err.Error(), "id", id)
		return err
	}
	return requireMatch(result, id)
}

// CountByStatus returns voter counts grouped by status.
func (r *SQLVoterRepository) CountByStatus() (map[voters.Status]int, error) {
	const query = `SELECT status, COUNT(*) FROM voters GROUP BY status`

	rows, err := r.db.Query(query)
	if err != nil {
		r.logger.Database().Error("Failed to count voters by status", "error", err.Error())
		return nil, err
	}
	defer rows.Close()

	counts := make(map[voters.Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[voters.Status(status)] = count
	}
	return counts, rows.Err()
}

func (r *SQLVoterRepository) queryVoters(query string, args ...any) ([]*voters.Voter, error) {
	start := time.Now()

	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Database().Error("Failed to query voters", "error", err.Error())
		return nil, err
	}
	defer rows.Close()

	var result []*voters.Voter
	for rows.Next() {
		voter, err := r.scanVoter(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, voter)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	r.checkSlowQuery(query, time.Since(start))
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *SQLVoterRepository) scanVoter(row scanner) (*voters.Voter, error) {
	var voter voters.Voter
	var status, metadata string
	var verificationExpiresAt, verifiedAt, keyEmailSentAt sql.NullTime

	err := row.Scan(
		&voter.ID,
		&voter.ElectionID,
		&voter.Email,
		&voter.UniqueID,
		&voter.Name,
		&status,
		&voter.VoteWeight,
		&voter.HasVoted,
		&voter.StoredKey,
		&voter.KeyHash,
		&voter.VerificationToken,
		&verificationExpiresAt,
		&verifiedAt,
		&voter.KeyEmailSent,
		&keyEmailSentAt,
		&metadata,
		&voter.CreatedAt,
		&voter.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	voter.Status = voters.Status(status)
	voter.VerificationExpiresAt = timePtr(verificationExpiresAt)
	voter.VerifiedAt = timePtr(verifiedAt)
	voter.KeyEmailSentAt = timePtr(keyEmailSentAt)

	if metadata != "" && metadata != "{}" {
		if err := json.Unmarshal([]byte(metadata), &voter.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal voter metadata: %w", err)
		}
	}
	return &voter, nil
}

func (r *SQLVoterRepository) checkSlowQuery(query string, duration time.Duration) {
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration)
	}
}

func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func isUniqueViolation(err error) bool {
	return strings.Contains(strings.ToUpper(err.Error()), "UNIQUE")
}

func requireMatch(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: voter %s", domainerrors.ErrNotFound, id)
	}
	return nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	value := t.Time
	return &value
}
