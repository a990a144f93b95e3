package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BallotDesk/ballotdesk-go/internal/domain/entities/elections"
	"github.com/BallotDesk/ballotdesk-go/internal/domain/entities/notifications"
	"github.com/BallotDesk/ballotdesk-go/internal/domain/entities/voters"
	"github.com/BallotDesk/ballotdesk-go/internal/domain/repositories"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/observability/logging"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/observability/performance"
	"github.com/BallotDesk/ballotdesk-go/pkg/config"
)

// SchedulerService runs the four periodic background tasks: notification
// cleanup, scheduled-notification flush, election reminder sweep and
// election activation sweep. Each task ticks independently; a failing run
// is logged and never stops the ticker. The service is a Start/Stop
// singleton per process: Stop cancels every ticker and waits for in-flight
// runs, after which Start may be called again.
type SchedulerService struct {
	notificationService *NotificationService
	electionRepo        repositories.ElectionRepository
	voterRepo           repositories.VoterRepository
	logger              *logging.ChanneledLogger
	perfTracker         *performance.Tracker
	now                 func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewSchedulerService creates the background scheduler.
func NewSchedulerService(
	notificationService *NotificationService,
	electionRepo repositories.ElectionRepository,
	voterRepo repositories.VoterRepository,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *SchedulerService {
	return &SchedulerService{
		notificationService: notificationService,
		electionRepo:        electionRepo,
		voterRepo:           voterRepo,
		logger:              logger,
		perfTracker:         perfTracker,
		now:                 time.Now,
	}
}

// Start launches the four task loops. Calling Start on a running scheduler
// is an error; Stop must complete first.
func (s *SchedulerService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.running = true

	tasks := []struct {
		name     string
		interval time.Duration
		run      func() error
	}{
		{"notification_cleanup", config.NotificationCleanupInterval, s.runCleanup},
		{"scheduled_flush", config.ScheduledFlushInterval, s.runScheduledFlush},
		{"reminder_sweep", config.ReminderSweepInterval, s.runReminderSweep},
		{"activation_sweep", config.ActivationSweepInterval, s.runActivationSweep},
	}

	for _, task := range tasks {
		s.wg.Add(1)
		go s.loop(ctx, task.name, task.interval, task.run)
	}

	s.logger.Scheduler().Info("Background scheduler started", "tasks", len(tasks))
	return nil
}

// Stop cancels all task tickers and blocks until every in-flight run has
// returned. After Stop, Start is safe to call again.
func (s *SchedulerService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()

	s.mu.Lock()
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	s.logger.Scheduler().Info("Background scheduler stopped")
}

// IsRunning reports whether the task loops are active.
func (s *SchedulerService) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// loop ticks one task until ctx is cancelled. Task errors are logged and
// the ticker keeps going.
func (s *SchedulerService) loop(ctx context.Context, name string, interval time.Duration, run func() error) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := run(); err != nil {
				s.logger.Scheduler().Error("Task run failed", "task", name, "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *SchedulerService) runCleanup() error {
	_, err := s.notificationService.CleanupExpired()
	return err
}

func (s *SchedulerService) runScheduledFlush() error {
	_, err := s.notificationService.ProcessScheduled()
	return err
}

func (s *SchedulerService) runReminderSweep() error {
	_, err := s.RunReminderSweep()
	return err
}

func (s *SchedulerService) runActivationSweep() error {
	_, err := s.RunActivationSweep()
	return err
}

// RunActivationSweep performs one activation pass: every SCHEDULED election
// whose start time has passed is flipped to ACTIVE with a compare-and-set,
// then its ACTIVE voters are told voting has opened. The flip and the
// notification are not transactional; a crash between them means the notice
// is dropped, and a retried flip never fires twice thanks to the CAS.
// Failures are isolated per election.
func (s *SchedulerService) RunActivationSweep() (int, error) {
	marker := s.perfTracker.StartOperation("activation_sweep")
	defer marker.Complete()

	now := s.now()
	due, err := s.electionRepo.FindDueForActivation(now)
	if err != nil {
		marker.SetError(err)
		return 0, fmt.Errorf("failed to find elections due for activation: %w", err)
	}

	activated := 0
	for _, election := range due {
		flipped, err := s.electionRepo.Activate(election.ID, now)
		if err != nil {
			s.logger.Scheduler().Error("Failed to activate election", "error", err, "electionId", election.ID)
			continue
		}
		if !flipped {
			// Another sweep got there first.
			continue
		}

		activated++
		s.logger.Scheduler().Info("Election activated", "electionId", election.ID, "title", election.Title)
		s.notifyActiveVoters(election, notifications.Payload{
			Type:     notifications.TypeElection,
			Category: notifications.CategorySuccess,
			Priority: notifications.PriorityHigh,
			Title:    "Voting is open",
			Message:  fmt.Sprintf("Voting in %q is now open. Cast your ballot before %s.", election.Title, election.EndTime.Format(time.RFC1123)),
			Metadata: map[string]any{"electionId": election.ID},
		}, false)
	}

	marker.SetSuccess(true)
	marker.AddMetadata("activated", activated)
	return activated, nil
}

// RunReminderSweep performs one reminder pass. Elections about to open
// remind every ACTIVE voter; elections about to close remind only ACTIVE
// voters who have not voted. The message is tiered by how close the
// deadline is. Failures are isolated per election.
func (s *SchedulerService) RunReminderSweep() (int, error) {
	marker := s.perfTracker.StartOperation("reminder_sweep")
	defer marker.Complete()

	now := s.now()
	notified := 0

	starting, err := s.electionRepo.FindStartingWithin(now, config.ReminderWindow)
	if err != nil {
		marker.SetError(err)
		return 0, fmt.Errorf("failed to find elections starting soon: %w", err)
	}
	for _, election := range starting {
		notified += s.notifyActiveVoters(election, notifications.Payload{
			Type:     notifications.TypeReminder,
			Category: notifications.CategoryInfo,
			Priority: notifications.PriorityMedium,
			Title:    "Election starting soon",
			Message:  fmt.Sprintf("Voting in %q opens %s.", election.Title, tieredDeadline(election.StartTime.Sub(now))),
			Metadata: map[string]any{"electionId": election.ID},
		}, false)
	}

	ending, err := s.electionRepo.FindEndingWithin(now, config.ReminderWindow)
	if err != nil {
		marker.SetError(err)
		return notified, fmt.Errorf("failed to find elections ending soon: %w", err)
	}
	for _, election := range ending {
		notified += s.notifyActiveVoters(election, notifications.Payload{
			Type:     notifications.TypeReminder,
			Category: notifications.CategoryWarning,
			Priority: notifications.PriorityHigh,
			Title:    "Last chance to vote",
			Message:  fmt.Sprintf("Voting in %q closes %s. You have not cast your ballot yet.", election.Title, tieredDeadline(election.EndTime.Sub(now))),
			Metadata: map[string]any{"electionId": election.ID},
		}, true)
	}

	marker.SetSuccess(true)
	marker.AddMetadata("notified", notified)
	return notified, nil
}

// notifyActiveVoters fans a payload out to an election's ACTIVE voters,
// optionally narrowed to those who have not voted. Returns the number of
// notifications created; failures are logged and reported as zero so one
// election cannot abort a sweep.
func (s *SchedulerService) notifyActiveVoters(election *elections.Election, payload notifications.Payload, onlyNotVoted bool) int {
	var (
		list []*voters.Voter
		err  error
	)
	if onlyNotVoted {
		list, err = s.voterRepo.FindEligibleForEndingReminder(election.ID)
	} else {
		list, err = s.voterRepo.FindByElectionAndStatus(election.ID, voters.StatusActive)
	}
	if err != nil {
		s.logger.Scheduler().Error("Failed to load voters for notification fan-out", "error", err, "electionId", election.ID)
		return 0
	}
	if len(list) == 0 {
		return 0
	}

	recipients := make([]string, len(list))
	for i, voter := range list {
		recipients[i] = voter.ID
	}

	created, err := s.notificationService.CreateBulk(recipients, payload)
	if err != nil {
		s.logger.Scheduler().Error("Notification fan-out failed", "error", err, "electionId", election.ID, "recipients", len(recipients))
		return 0
	}
	return len(created)
}

// tieredDeadline phrases a time-until-deadline the way the reminder copy
// expects: under an hour, under six hours, otherwise tomorrow.
func tieredDeadline(until time.Duration) string {
	switch {
	case until < time.Hour:
		return "in less than an hour"
	case until < 6*time.Hour:
		return "in a few hours"
	default:
		return "tomorrow"
	}
}
