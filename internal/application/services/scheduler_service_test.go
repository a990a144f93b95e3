package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BallotDesk/ballotdesk-go/internal/domain/entities/elections"
	"github.com/BallotDesk/ballotdesk-go/internal/domain/entities/notifications"
	"github.com/BallotDesk/ballotdesk-go/internal/domain/entities/voters"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/observability/performance"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/persistence/memory"
)

type schedulerFixture struct {
	scheduler     *SchedulerService
	notifications *NotificationService
	electionStore *memory.ElectionStore
	voterStore    *memory.VoterStore
}

func newSchedulerFixture(t *testing.T, at time.Time) *schedulerFixture {
	t.Helper()

	electionStore := memory.NewElectionStore()
	voterStore := memory.NewVoterStore()
	notificationStore := memory.NewNotificationStore()
	logger := newTestLogger(t)
	tracker := performance.NewTracker(performance.DefaultTrackerConfig())

	notificationService := NewNotificationService(notificationStore, nil, nil, logger, tracker)
	notificationService.now = fixedClock(at)

	scheduler := NewSchedulerService(notificationService, electionStore, voterStore, logger, tracker)
	scheduler.now = fixedClock(at)

	return &schedulerFixture{
		scheduler:     scheduler,
		notifications: notificationService,
		electionStore: electionStore,
		voterStore:    voterStore,
	}
}

func (f *schedulerFixture) addVoter(t *testing.T, id, electionID string, status voters.Status, hasVoted bool) {
	t.Helper()
	require.NoError(t, f.voterStore.Store(&voters.Voter{
		ID:         id,
		ElectionID: electionID,
		Email:      id + "@example.com",
		UniqueID:   id,
		Status:     status,
		VoteWeight: 1,
		HasVoted:   hasVoted,
	}))
}

func (f *schedulerFixture) notificationCount(t *testing.T, recipient string) int {
	t.Helper()
	_, total, err := f.notifications.repo.List(recipient, notifications.ListFilters{Page: 1, Limit: 100})
	require.NoError(t, err)
	return total
}

func TestActivationSweep(t *testing.T) {
	f := newSchedulerFixture(t, base)

	require.NoError(t, f.electionStore.Store(&elections.Election{
		ID:        "e1",
		Title:     "Board Election",
		Status:    elections.StatusScheduled,
		StartTime: base.Add(-time.Second),
		EndTime:   base.Add(48 * time.Hour),
	}))
	f.addVoter(t, "v1", "e1", voters.StatusActive, false)
	f.addVoter(t, "v2", "e1", voters.StatusActive, true)
	f.addVoter(t, "v3", "e1", voters.StatusPending, false)

	activated, err := f.scheduler.RunActivationSweep()
	require.NoError(t, err)
	assert.Equal(t, 1, activated)

	election, err := f.electionStore.FindByID("e1")
	require.NoError(t, err)
	assert.Equal(t, elections.StatusActive, election.Status)
	require.NotNil(t, election.StartedAt)
	assert.True(t, election.StartedAt.Equal(base))

	// Exactly one notice per ACTIVE voter, none for the pending one.
	assert.Equal(t, 1, f.notificationCount(t, "v1"))
	assert.Equal(t, 1, f.notificationCount(t, "v2"))
	assert.Zero(t, f.notificationCount(t, "v3"))

	// A second sweep finds nothing SCHEDULED and sends nothing new.
	activated, err = f.scheduler.RunActivationSweep()
	require.NoError(t, err)
	assert.Zero(t, activated)
	assert.Equal(t, 1, f.notificationCount(t, "v1"))
}

func TestActivationSweepSkipsFutureElections(t *testing.T) {
	f := newSchedulerFixture(t, base)

	require.NoError(t, f.electionStore.Store(&elections.Election{
		ID:        "e1",
		Title:     "Not yet",
		Status:    elections.StatusScheduled,
		StartTime: base.Add(time.Hour),
		EndTime:   base.Add(48 * time.Hour),
	}))

	activated, err := f.scheduler.RunActivationSweep()
	require.NoError(t, err)
	assert.Zero(t, activated)
}

func TestReminderSweepUpcomingElection(t *testing.T) {
	f := newSchedulerFixture(t, base)

	require.NoError(t, f.electionStore.Store(&elections.Election{
		ID:        "e1",
		Title:     "Board Election",
		Status:    elections.StatusScheduled,
		StartTime: base.Add(30 * time.Minute),
		EndTime:   base.Add(48 * time.Hour),
	}))
	f.addVoter(t, "v1", "e1", voters.StatusActive, false)
	f.addVoter(t, "v2", "e1", voters.StatusSuspended, false)

	notified, err := f.scheduler.RunReminderSweep()
	require.NoError(t, err)
	assert.Equal(t, 1, notified)

	items, _, err := f.notifications.repo.List("v1", notifications.ListFilters{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, notifications.TypeReminder, items[0].Type)
	assert.Contains(t, items[0].Message, "in less than an hour")
}

func TestReminderSweepEndingElectionSkipsVoted(t *testing.T) {
	f := newSchedulerFixture(t, base)

	startedAt := base.Add(-24 * time.Hour)
	require.NoError(t, f.electionStore.Store(&elections.Election{
		ID:        "e1",
		Title:     "Board Election",
		Status:    elections.StatusActive,
		StartTime: startedAt,
		StartedAt: &startedAt,
		EndTime:   base.Add(3 * time.Hour),
	}))
	f.addVoter(t, "v1", "e1", voters.StatusActive, false)
	f.addVoter(t, "v2", "e1", voters.StatusActive, true)

	notified, err := f.scheduler.RunReminderSweep()
	require.NoError(t, err)
	assert.Equal(t, 1, notified)

	items, _, err := f.notifications.repo.List("v1", notifications.ListFilters{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Contains(t, items[0].Message, "in a few hours")
	assert.Contains(t, items[0].Message, "not cast your ballot")

	assert.Zero(t, f.notificationCount(t, "v2"))
}

func TestReminderSweepTomorrowTier(t *testing.T) {
	f := newSchedulerFixture(t, base)

	require.NoError(t, f.electionStore.Store(&elections.Election{
		ID:        "e1",
		Title:     "Board Election",
		Status:    elections.StatusScheduled,
		StartTime: base.Add(20 * time.Hour),
		EndTime:   base.Add(72 * time.Hour),
	}))
	f.addVoter(t, "v1", "e1", voters.StatusActive, false)

	_, err := f.scheduler.RunReminderSweep()
	require.NoError(t, err)

	items, _, err := f.notifications.repo.List("v1", notifications.ListFilters{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Contains(t, items[0].Message, "tomorrow")
}

func TestSchedulerStartStopLifecycle(t *testing.T) {
	f := newSchedulerFixture(t, base)

	require.NoError(t, f.scheduler.Start())
	assert.True(t, f.scheduler.IsRunning())

	err := f.scheduler.Start()
	assert.Error(t, err)

	f.scheduler.Stop()
	assert.False(t, f.scheduler.IsRunning())

	// Stop on a stopped scheduler is a no-op, and Start works again.
	f.scheduler.Stop()
	require.NoError(t, f.scheduler.Start())
	f.scheduler.Stop()
}
