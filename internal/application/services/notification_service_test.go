package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BallotDesk/ballotdesk-go/internal/domain/entities/notifications"
	domainerrors "github.com/BallotDesk/ballotdesk-go/internal/domain/errors"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/observability/performance"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/persistence/memory"
)

func newNotificationService(t *testing.T) (*NotificationService, *memory.NotificationStore) {
	t.Helper()
	store := memory.NewNotificationStore()
	svc := NewNotificationService(store, nil, nil, newTestLogger(t), performance.NewTracker(performance.DefaultTrackerConfig()))
	return svc, store
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestCreateDeliversInAppImmediately(t *testing.T) {
	svc, store := newNotificationService(t)
	svc.now = fixedClock(base)

	n, err := svc.Create("voter-1", notifications.Payload{
		Type:    notifications.TypeSystem,
		Title:   "Welcome",
		Message: "You are registered.",
	})
	require.NoError(t, err)

	assert.Equal(t, notifications.CategoryInfo, n.Category)
	assert.Equal(t, notifications.PriorityMedium, n.Priority)
	assert.Equal(t, notifications.DeliveryInApp, n.DeliveryMethod)
	assert.True(t, n.Delivered)
	require.NotNil(t, n.DeliveredAt)

	stored, err := store.FindByID(n.ID)
	require.NoError(t, err)
	assert.True(t, stored.Delivered)
}

func TestScheduledNotificationDefersUntilFlush(t *testing.T) {
	svc, store := newNotificationService(t)
	svc.now = fixedClock(base)

	scheduledFor := base.Add(time.Hour)
	n, err := svc.Create("voter-1", notifications.Payload{
		Type:         notifications.TypeReminder,
		Title:        "Polls open soon",
		Message:      "Get ready.",
		ScheduledFor: &scheduledFor,
	})
	require.NoError(t, err)
	assert.False(t, n.Delivered)

	// A flush before the scheduled time leaves it untouched.
	processed, err := svc.ProcessScheduled()
	require.NoError(t, err)
	assert.Zero(t, processed)

	svc.now = fixedClock(base.Add(2 * time.Hour))
	processed, err = svc.ProcessScheduled()
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	stored, err := store.FindByID(n.ID)
	require.NoError(t, err)
	assert.True(t, stored.Delivered)
}

func TestUnreadCountExcludesExpired(t *testing.T) {
	svc, _ := newNotificationService(t)
	svc.now = fixedClock(base)

	expired := base.Add(-time.Minute)
	_, err := svc.Create("voter-1", notifications.Payload{Type: notifications.TypeSystem, Title: "Old", Message: "m", ExpiresAt: &expired})
	require.NoError(t, err)
	_, err = svc.Create("voter-1", notifications.Payload{Type: notifications.TypeSystem, Title: "Fresh", Message: "m"})
	require.NoError(t, err)

	count, err := svc.GetUnreadCount("voter-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCleanupExpiredDeletesOnlyExpired(t *testing.T) {
	svc, _ := newNotificationService(t)
	svc.now = fixedClock(base)

	past := base.Add(-time.Hour)
	future := base.Add(time.Hour)
	for i := 0; i < 5; i++ {
		_, err := svc.Create("voter-1", notifications.Payload{Type: notifications.TypeSystem, Title: "old", Message: "m", ExpiresAt: &past})
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		_, err := svc.Create("voter-1", notifications.Payload{Type: notifications.TypeSystem, Title: "keep", Message: "m", ExpiresAt: &future})
		require.NoError(t, err)
	}
	for i := 0; i < 2; i++ {
		_, err := svc.Create("voter-1", notifications.Payload{Type: notifications.TypeSystem, Title: "keep", Message: "m"})
		require.NoError(t, err)
	}

	deleted, err := svc.CleanupExpired()
	require.NoError(t, err)
	assert.Equal(t, 5, deleted)

	_, total, err := svc.repo.List("voter-1", notifications.ListFilters{Page: 1, Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
}

func TestBulkFanoutCardinality(t *testing.T) {
	svc, _ := newNotificationService(t)
	svc.now = fixedClock(base)

	batch, err := svc.CreateBulk([]string{"r1", "r2", "r3"}, notifications.Payload{
		Type:    notifications.TypeElection,
		Title:   "Voting is open",
		Message: "Go vote.",
	})
	require.NoError(t, err)
	require.Len(t, batch, 3)

	seen := map[string]bool{}
	for _, n := range batch {
		assert.Equal(t, "Voting is open", n.Title)
		assert.Equal(t, notifications.TypeElection, n.Type)
		assert.True(t, n.Delivered)
		seen[n.Recipient] = true
	}
	assert.Len(t, seen, 3)
}

func TestBulkCreateSurfacesStoreFailure(t *testing.T) {
	svc, store := newNotificationService(t)
	store.FailNextStoreMany = assert.AnError

	_, err := svc.CreateBulk([]string{"r1", "r2"}, notifications.Payload{Type: notifications.TypeSystem, Title: "t", Message: "m"})
	assert.ErrorIs(t, err, domainerrors.ErrBulkCreate)
}

func TestMarkReadScopesToRecipient(t *testing.T) {
	svc, _ := newNotificationService(t)
	svc.now = fixedClock(base)

	a, err := svc.Create("voter-1", notifications.Payload{Type: notifications.TypeSystem, Title: "a", Message: "m"})
	require.NoError(t, err)
	_, err = svc.Create("voter-1", notifications.Payload{Type: notifications.TypeSystem, Title: "b", Message: "m"})
	require.NoError(t, err)
	other, err := svc.Create("voter-2", notifications.Payload{Type: notifications.TypeSystem, Title: "c", Message: "m"})
	require.NoError(t, err)

	// Marking another recipient's id does nothing.
	updated, err := svc.MarkRead("voter-1", []string{other.ID})
	require.NoError(t, err)
	assert.Zero(t, updated)

	updated, err = svc.MarkRead("voter-1", []string{a.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	// Empty ids marks everything left.
	updated, err = svc.MarkRead("voter-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	count, err := svc.GetUnreadCount("voter-2")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestListPaginatesNewestFirst(t *testing.T) {
	svc, _ := newNotificationService(t)

	for i := 0; i < 3; i++ {
		svc.now = fixedClock(base.Add(time.Duration(i) * time.Minute))
		_, err := svc.Create("voter-1", notifications.Payload{Type: notifications.TypeSystem, Title: "n", Message: "m"})
		require.NoError(t, err)
	}

	items, pagination, err := svc.List("voter-1", notifications.ListFilters{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 3, pagination.Total)
	assert.Equal(t, 2, pagination.TotalPages)
	assert.True(t, items[0].CreatedAt.After(items[1].CreatedAt))

	items, _, err = svc.List("voter-1", notifications.ListFilters{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestDeleteIsRecipientScoped(t *testing.T) {
	svc, _ := newNotificationService(t)
	svc.now = fixedClock(base)

	n, err := svc.Create("voter-1", notifications.Payload{Type: notifications.TypeSystem, Title: "t", Message: "m"})
	require.NoError(t, err)

	err = svc.Delete("voter-2", n.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	require.NoError(t, svc.Delete("voter-1", n.ID))
	_, total, err := svc.repo.List("voter-1", notifications.ListFilters{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
}
