package voters

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	entities "github.com/BallotDesk/ballotdesk-go/internal/domain/entities/voters"
	domainerrors "github.com/BallotDesk/ballotdesk-go/internal/domain/errors"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/observability/logging"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/persistence/database"
)

func newTestRepo(t *testing.T) *SQLVoterRepository {
	t.Helper()

	db, err := database.NewConnection("sqlite3", ":memory:")
	require.NoError(t, err)
	// One pooled connection so every statement sees the same :memory: db.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.NewTableCreator().CreateSchema(db.DB))

	logger, err := logging.NewChanneledLogger(logging.TestLoggerConfig())
	require.NoError(t, err)

	return NewSQLVoterRepository(db, logger)
}

func testVoter(id, electionID, email, uniqueID string) *entities.Voter {
	now := time.Now().UTC()
	return &entities.Voter{
		ID:         id,
		ElectionID: electionID,
		Email:      email,
		UniqueID:   uniqueID,
		Status:     entities.StatusPending,
		VoteWeight: 1,
		StoredKey:  "aa:bb",
		KeyHash:    "hash-" + id,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestStoreRejectsDuplicateUniqueIDCaseInsensitive(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Store(testVoter("v1", "e1", "a@example.com", "VTR-001")))

	err := repo.Store(testVoter("v2", "e1", "b@example.com", "vtr-001"))
	require.ErrorIs(t, err, domainerrors.ErrDuplicateVoter)

	// Same identifier in another election is fine.
	require.NoError(t, repo.Store(testVoter("v3", "e2", "a@example.com", "VTR-001")))
}

func TestStoreRejectsDuplicateEmail(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Store(testVoter("v1", "e1", "a@example.com", "VTR-001")))

	err := repo.Store(testVoter("v2", "e1", "A@EXAMPLE.COM", "VTR-002"))
	require.ErrorIs(t, err, domainerrors.ErrDuplicateVoter)
}

func TestFindByUniqueIDIgnoresCase(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Store(testVoter("v1", "e1", "a@example.com", "VTR-001")))

	found, err := repo.FindByUniqueID("vtr-001")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "v1", found.ID)

	missing, err := repo.FindByUniqueID("VTR-999")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpdateStatusKeepsFirstVerifiedAt(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Store(testVoter("v1", "e1", "a@example.com", "VTR-001")))

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateStatus("v1", entities.StatusVerified, &first))

	later := first.Add(2 * time.Hour)
	require.NoError(t, repo.UpdateStatus("v1", entities.StatusActive, &later))

	got, err := repo.FindByID("v1")
	require.NoError(t, err)
	require.NotNil(t, got.VerifiedAt)
	assert.Equal(t, entities.StatusActive, got.Status)
	assert.True(t, got.VerifiedAt.Equal(first))
}

func TestUpdateKeyReplacesBothForms(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Store(testVoter("v1", "e1", "a@example.com", "VTR-001")))

	require.NoError(t, repo.UpdateKey("v1", "cc:dd", "newhash"))

	got, err := repo.FindByID("v1")
	require.NoError(t, err)
	assert.Equal(t, "cc:dd", got.StoredKey)
	assert.Equal(t, "newhash", got.KeyHash)
}

func TestUpdatesOnMissingVoterReturnNotFound(t *testing.T) {
	repo := newTestRepo(t)

	assert.ErrorIs(t, repo.UpdateKeyHash("nope", "h"), domainerrors.ErrNotFound)
	assert.ErrorIs(t, repo.Delete("nope"), domainerrors.ErrNotFound)
}

func TestCountByStatus(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Store(testVoter("v1", "e1", "a@example.com", "VTR-001")))
	require.NoError(t, repo.Store(testVoter("v2", "e1", "b@example.com", "VTR-002")))
	require.NoError(t, repo.UpdateStatus("v2", entities.StatusActive, nil))

	counts, err := repo.CountByStatus()
	require.NoError(t, err)
	assert.Equal(t, 1, counts[entities.StatusPending])
	assert.Equal(t, 1, counts[entities.StatusActive])
}
