// Package elections provides the concrete SQL-based implementation of
// the election domain repository.
package elections

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/BallotDesk/ballotdesk-go/internal/domain/entities/elections"
	domainerrors "github.com/BallotDesk/ballotdesk-go/internal/domain/errors"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/observability/logging"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/persistence/database"
	"github.com/BallotDesk/ballotdesk-go/pkg/config"
)

const electionColumns = `id, title, description, status, start_time, end_time, started_at, created_at, updated_at`

// SQLElectionRepository is the SQL-based implementation of the ElectionRepository.
type SQLElectionRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLElectionRepository creates a new instance of the repository.
func NewSQLElectionRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLElectionRepository {
	return &SQLElectionRepository{
		db:     db,
		logger: logger,
	}
}

// FindByID retrieves an election by its unique identifier.
func (r *SQLElectionRepository) FindByID(id string) (*elections.Election, error) {
	query := `SELECT ` + electionColumns + ` FROM elections WHERE id = ?`

	row := r.db.QueryRow(query, id)
	election, err := r.scanElection(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Database().Error("Failed to load election by ID", "error", err.Error(), "id", id)
		return nil, err
	}
	return election, nil
}

// FindByStatus retrieves all elections with the given status.
func (r *SQLElectionRepository) FindByStatus(status elections.Status) ([]*elections.Election, error) {
	query := `SELECT ` + electionColumns + ` FROM elections WHERE status = ? ORDER BY start_time`
	return r.queryElections(query, string(status))
}

// FindDueForActivation returns SCHEDULED elections whose start time has passed.
func (r *SQLElectionRepository) FindDueForActivation(now time.Time) ([]*elections.Election, error) {
	query := `SELECT ` + electionColumns + ` FROM elections WHERE status = ? AND start_time <= ? ORDER BY start_time`
	return r.queryElections(query, string(elections.StatusScheduled), now)
}

// FindStartingWithin returns SCHEDULED elections starting inside the window.
func (r *SQLElectionRepository) FindStartingWithin(now time.Time, window time.Duration) ([]*elections.Election, error) {
	query := `SELECT ` + electionColumns + ` FROM elections WHERE status = ? AND start_time > ? AND start_time <= ? ORDER BY start_time`
	return r.queryElections(query, string(elections.StatusScheduled), now, now.Add(window))
}

// FindEndingWithin returns ACTIVE elections ending inside the window.
func (r *SQLElectionRepository) FindEndingWithin(now time.Time, window time.Duration) ([]*elections.Election, error) {
	query := `SELECT ` + electionColumns + ` FROM elections WHERE status = ? AND end_time > ? AND end_time <= ? ORDER BY end_time`
	return r.queryElections(query, string(elections.StatusActive), now, now.Add(window))
}

// Store saves a new election.
func (r *SQLElectionRepository) Store(election *elections.Election) error {
	const query = `
		INSERT INTO elections (id, title, description, status, start_time, end_time, started_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	start := time.Now()
	r.logger.Database().Debug("Executing election insert", "id", election.ID)

	_, err := r.db.Exec(
		query,
		election.ID,
		election.Title,
		election.Description,
		string(election.Status),
		election.StartTime,
		election.EndTime,
		nullableTime(election.StartedAt),
		election.CreatedAt,
		election.UpdatedAt,
	)
	if err != nil {
		r.logger.Database().Error("Failed to insert election", "error", err.Error(), "id", election.ID)
		return err
	}

	r.checkSlowQuery(query, time.Since(start))
	return nil
}

// Update saves an existing election's mutable fields.
func (r *SQLElectionRepository) Update(election *elections.Election) error {
	const query = `
		UPDATE elections
		SET title = ?, description = ?, status = ?, start_time = ?, end_time = ?, started_at = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.Exec(
		query,
		election.Title,
		election.Description,
		string(election.Status),
		election.StartTime,
		election.EndTime,
		nullableTime(election.StartedAt),
		time.Now().UTC(),
		election.ID,
	)
	if err != nil {
		r.logger.Database().Error("Failed to update election", "error", err.Error(), "id", election.ID)
		return err
	}
	return requireMatch(result, election.ID)
}

// Activate flips a SCHEDULED election to ACTIVE in one compare-and-set
// write. It reports false when the row was no longer SCHEDULED, so
// concurrent sweeps activate each election at most once.
func (r *SQLElectionRepository) Activate(id string, startedAt time.Time) (bool, error) {
	const query = `
		UPDATE elections
		SET status = ?, started_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`

	result, err := r.db.Exec(query, string(elections.StatusActive), startedAt, startedAt, id, string(elections.StatusScheduled))
	if err != nil {
		r.logger.Database().Error("Failed to activate election", "error", err.Error(), "id", id)
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Delete removes an election permanently.
func (r *SQLElectionRepository) Delete(id string) error {
	const query = `DELETE FROM elections WHERE id = ?`

	result, err := r.db.Exec(query, id)
	if err != nil {
		r.logger.Database().Error("Failed to delete election", "error", err.Error(), "id", id)
		return err
	}
	return requireMatch(result, id)
}

// CountByStatus returns election counts grouped by status.
func (r *SQLElectionRepository) CountByStatus() (map[elections.Status]int, error) {
	const query = `SELECT status, COUNT(*) FROM elections GROUP BY status`

	rows, err := r.db.Query(query)
	if err != nil {
		r.logger.Database().Error("Failed to count elections by status", "error", err.Error())
		return nil, err
	}
	defer rows.Close()

	counts := make(map[elections.Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[elections.Status(status)] = count
	}
	return counts, rows.Err()
}

func (r *SQLElectionRepository) queryElections(query string, args ...any) ([]*elections.Election, error) {
	start := time.Now()

	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Database().Error("Failed to query elections", "error", err.Error())
		return nil, err
	}
	defer rows.Close()

	var result []*elections.Election
	for rows.Next() {
		election, err := r.scanElection(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, election)
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

func (r *SQLElectionRepository) scanElection(row scanner) (*elections.Election, error) {
	var election elections.Election
	var status string
	var startedAt sql.NullTime

	err := row.Scan(
		&election.ID,
		&election.Title,
		&election.Description,
		&status,
		&election.StartTime,
		&election.EndTime,
		&startedAt,
		&election.CreatedAt,
		&election.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	election.Status = elections.Status(status)
	if startedAt.Valid {
		value := startedAt.Time
		election.StartedAt = &value
	}
	return &election, nil
}

func (r *SQLElectionRepository) checkSlowQuery(query string, duration time.Duration) {
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration)
	}
}

func requireMatch(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: election %s", domainerrors.ErrNotFound, id)
	}
	return nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
