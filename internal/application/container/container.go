// Package container provides dependency injection for all singleton services
package container

import (
	"github.com/BallotDesk/ballotdesk-go/internal/application/services"
	"github.com/BallotDesk/ballotdesk-go/internal/domain/entities/notifications"
	"github.com/BallotDesk/ballotdesk-go/internal/domain/repositories"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/email"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/messaging"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/observability/logging"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/observability/performance"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/persistence/database"
	electionspersistence "github.com/BallotDesk/ballotdesk-go/internal/infrastructure/persistence/elections"
	notificationspersistence "github.com/BallotDesk/ballotdesk-go/internal/infrastructure/persistence/notifications"
	voterspersistence "github.com/BallotDesk/ballotdesk-go/internal/infrastructure/persistence/voters"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Application services (stateless singletons)
	VoterService        *services.VoterService
	ElectionService     *services.ElectionService
	NotificationService *services.NotificationService
	SchedulerService    *services.SchedulerService

	// Repositories
	VoterRepo        repositories.VoterRepository
	ElectionRepo     repositories.ElectionRepository
	NotificationRepo repositories.NotificationRepository

	// Infrastructure
	DB             *database.DB
	Logger         *logging.ChanneledLogger
	PerfTracker    *performance.Tracker
	EmailService   email.Service
	Broadcaster    messaging.Broadcaster
	OpsBroadcaster *messaging.OpsBroadcaster
}

// NewContainer creates and wires all singleton services. emailService may be
// nil when no email provider is configured; the email delivery channel is
// then left unwired and EMAIL notifications fall back to a logged dispatch.
func NewContainer(
	db *database.DB,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
	emailService email.Service,
	voterKeySecret string,
) *Container {
	voterRepo := voterspersistence.NewSQLVoterRepository(db, logger)
	electionRepo := electionspersistence.NewSQLElectionRepository(db, logger)
	notificationRepo := notificationspersistence.NewSQLNotificationRepository(db, logger)

	broadcaster := messaging.NewSSEBroadcaster(logger)
	opsBroadcaster := messaging.NewOpsBroadcaster(electionRepo, voterRepo, notificationRepo, perfTracker, logger)

	channels := map[notifications.DeliveryMethod]services.DeliveryChannel{
		notifications.DeliveryPush: services.NewLogOnlyChannel(notifications.DeliveryPush, logger),
		notifications.DeliverySMS:  services.NewLogOnlyChannel(notifications.DeliverySMS, logger),
	}
	if emailService != nil {
		channels[notifications.DeliveryEmail] = services.NewEmailChannel(emailService)
	} else {
		channels[notifications.DeliveryEmail] = services.NewLogOnlyChannel(notifications.DeliveryEmail, logger)
	}

	notificationService := services.NewNotificationService(notificationRepo, broadcaster, channels, logger, perfTracker)
	voterService := services.NewVoterService(voterRepo, electionRepo, emailService, logger, perfTracker, voterKeySecret)
	electionService := services.NewElectionService(electionRepo, logger)
	schedulerService := services.NewSchedulerService(notificationService, electionRepo, voterRepo, logger, perfTracker)

	return &Container{
		VoterService:        voterService,
		ElectionService:     electionService,
		NotificationService: notificationService,
		SchedulerService:    schedulerService,

		VoterRepo:        voterRepo,
		ElectionRepo:     electionRepo,
		NotificationRepo: notificationRepo,

		DB:             db,
		Logger:         logger,
		PerfTracker:    perfTracker,
		EmailService:   emailService,
		Broadcaster:    broadcaster,
		OpsBroadcaster: opsBroadcaster,
	}
}
