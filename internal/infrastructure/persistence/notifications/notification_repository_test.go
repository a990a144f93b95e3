package notifications

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	entities "github.com/BallotDesk/ballotdesk-go/internal/domain/entities/notifications"
	domainerrors "github.com/BallotDesk/ballotdesk-go/internal/domain/errors"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/observability/logging"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/persistence/database"
)

var testBase = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T) *SQLNotificationRepository {
	t.Helper()

	db, err := database.NewConnection("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.NewTableCreator().CreateSchema(db.DB))

	logger, err := logging.NewChanneledLogger(logging.TestLoggerConfig())
	require.NoError(t, err)

	return NewSQLNotificationRepository(db, logger)
}

func testNotification(id, recipient string) *entities.Notification {
	return &entities.Notification{
		ID:             id,
		Recipient:      recipient,
		Type:           entities.TypeSystem,
		Category:       entities.CategoryInfo,
		Priority:       entities.PriorityMedium,
		Title:          "Title " + id,
		Message:        "Message " + id,
		DeliveryMethod: entities.DeliveryInApp,
		CreatedAt:      testBase,
	}
}

func TestStoreManyInsertsAllRows(t *testing.T) {
	repo := newTestRepo(t)

	batch := make([]*entities.Notification, 0, 3)
	for i := 0; i < 3; i++ {
		batch = append(batch, testNotification(fmt.Sprintf("n%d", i), "voter-1"))
	}
	require.NoError(t, repo.StoreMany(batch))

	_, total, err := repo.List("voter-1", entities.ListFilters{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestMarkReadIsRecipientScoped(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Store(testNotification("mine", "voter-1")))
	require.NoError(t, repo.Store(testNotification("theirs", "voter-2")))

	updated, err := repo.MarkRead("voter-1", []string{"mine", "theirs"}, testBase)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	count, err := repo.CountUnread("voter-2", testBase)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMarkReadWithoutIDsMarksAll(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Store(testNotification("n1", "voter-1")))
	require.NoError(t, repo.Store(testNotification("n2", "voter-1")))

	updated, err := repo.MarkRead("voter-1", nil, testBase)
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	count, err := repo.CountUnread("voter-1", testBase)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCountUnreadExcludesExpired(t *testing.T) {
	repo := newTestRepo(t)

	expired := testNotification("old", "voter-1")
	past := testBase.Add(-time.Hour)
	expired.ExpiresAt = &past
	require.NoError(t, repo.Store(expired))
	require.NoError(t, repo.Store(testNotification("fresh", "voter-1")))

	count, err := repo.CountUnread("voter-1", testBase)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFindDueScheduledSkipsFutureAndDelivered(t *testing.T) {
	repo := newTestRepo(t)

	due := testNotification("due", "voter-1")
	past := testBase.Add(-time.Minute)
	due.ScheduledFor = &past
	require.NoError(t, repo.Store(due))

	future := testNotification("future", "voter-1")
	later := testBase.Add(time.Hour)
	future.ScheduledFor = &later
	require.NoError(t, repo.Store(future))

	sent := testNotification("sent", "voter-1")
	require.NoError(t, repo.Store(sent))
	require.NoError(t, repo.MarkDelivered("sent", testBase))

	pending, err := repo.FindDueScheduled(testBase)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "due", pending[0].ID)
}

func TestDeleteExpiredReportsRowsRemoved(t *testing.T) {
	repo := newTestRepo(t)

	past := testBase.Add(-time.Hour)
	for i := 0; i < 2; i++ {
		n := testNotification(fmt.Sprintf("old%d", i), "voter-1")
		n.ExpiresAt = &past
		require.NoError(t, repo.Store(n))
	}
	require.NoError(t, repo.Store(testNotification("keep", "voter-1")))

	removed, err := repo.DeleteExpired(testBase)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, total, err := repo.List("voter-1", entities.ListFilters{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestDeleteRequiresOwningRecipient(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Store(testNotification("n1", "voter-1")))

	err := repo.Delete("voter-2", "n1")
	require.ErrorIs(t, err, domainerrors.ErrNotFound)

	require.NoError(t, repo.Delete("voter-1", "n1"))
}
