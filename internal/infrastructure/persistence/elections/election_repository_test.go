package elections

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	entities "github.com/BallotDesk/ballotdesk-go/internal/domain/entities/elections"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/observability/logging"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/persistence/database"
)

func newTestRepo(t *testing.T) *SQLElectionRepository {
	t.Helper()

	db, err := database.NewConnection("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.NewTableCreator().CreateSchema(db.DB))

	logger, err := logging.NewChanneledLogger(logging.TestLoggerConfig())
	require.NoError(t, err)

	return NewSQLElectionRepository(db, logger)
}

func scheduledElection(id string, start, end time.Time) *entities.Election {
	now := time.Now().UTC()
	return &entities.Election{
		ID:        id,
		Title:     "Board election " + id,
		Status:    entities.StatusScheduled,
		StartTime: start,
		EndTime:   end,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestActivateFlipsScheduledExactlyOnce(t *testing.T) {
	repo := newTestRepo(t)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Store(scheduledElection("e1", now.Add(-time.Minute), now.Add(24*time.Hour))))

	flipped, err := repo.Activate("e1", now)
	require.NoError(t, err)
	assert.True(t, flipped)

	got, err := repo.FindByID("e1")
	require.NoError(t, err)
	assert.Equal(t, entities.StatusActive, got.Status)
	require.NotNil(t, got.StartedAt)
	assert.True(t, got.StartedAt.Equal(now))

	// The row is no longer SCHEDULED, so a concurrent sweep loses the race.
	flipped, err = repo.Activate("e1", now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, flipped)
}

func TestFindDueForActivation(t *testing.T) {
	repo := newTestRepo(t)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Store(scheduledElection("due", now.Add(-time.Hour), now.Add(24*time.Hour))))
	require.NoError(t, repo.Store(scheduledElection("future", now.Add(time.Hour), now.Add(48*time.Hour))))

	due, err := repo.FindDueForActivation(now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "due", due[0].ID)
}

func TestWindowQueriesExcludeBoundaries(t *testing.T) {
	repo := newTestRepo(t)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Store(scheduledElection("soon", now.Add(2*time.Hour), now.Add(48*time.Hour))))
	require.NoError(t, repo.Store(scheduledElection("far", now.Add(72*time.Hour), now.Add(96*time.Hour))))

	active := scheduledElection("ending", now.Add(-24*time.Hour), now.Add(3*time.Hour))
	active.Status = entities.StatusActive
	require.NoError(t, repo.Store(active))

	starting, err := repo.FindStartingWithin(now, 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, starting, 1)
	assert.Equal(t, "soon", starting[0].ID)

	ending, err := repo.FindEndingWithin(now, 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, ending, 1)
	assert.Equal(t, "ending", ending[0].ID)
}
