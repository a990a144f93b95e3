package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/BallotDesk/ballotdesk-go/internal/domain/entities/elections"
	"github.com/BallotDesk/ballotdesk-go/internal/domain/entities/notifications"
	"github.com/BallotDesk/ballotdesk-go/internal/domain/entities/voters"
	"github.com/BallotDesk/ballotdesk-go/internal/domain/repositories"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/observability/logging"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/observability/performance"
	"github.com/BallotDesk/ballotdesk-go/pkg/config"
	"github.com/gorilla/websocket"
)

// OpsClient represents a single connected operations dashboard client.
type OpsClient struct {
	Conn *websocket.Conn
	Send chan []byte
}

// OpsSnapshot is the payload pushed to every dashboard client on each tick.
type OpsSnapshot struct {
	Elections     map[elections.Status]int   `json:"elections"`
	Voters        map[voters.Status]int      `json:"voters"`
	Notifications map[notifications.Type]int `json:"notifications"`
	Performance   performance.Stats          `json:"performance"`
	GeneratedAt   time.Time                  `json:"generatedAt"`
}

// OpsBroadcaster manages all connected operations clients and ships them
// periodic aggregate snapshots of the system.
type OpsBroadcaster struct {
	clients    map[*OpsClient]bool
	register   chan *OpsClient
	unregister chan *OpsClient

	electionRepo     repositories.ElectionRepository
	voterRepo        repositories.VoterRepository
	notificationRepo repositories.NotificationRepository
	tracker          *performance.Tracker
	logger           *logging.ChanneledLogger
}

// NewOpsBroadcaster creates a new broadcaster instance.
func NewOpsBroadcaster(
	electionRepo repositories.ElectionRepository,
	voterRepo repositories.VoterRepository,
	notificationRepo repositories.NotificationRepository,
	tracker *performance.Tracker,
	logger *logging.ChanneledLogger,
) *OpsBroadcaster {
	return &OpsBroadcaster{
		clients:          make(map[*OpsClient]bool),
		register:         make(chan *OpsClient),
		unregister:       make(chan *OpsClient),
		electionRepo:     electionRepo,
		voterRepo:        voterRepo,
		notificationRepo: notificationRepo,
		tracker:          tracker,
		logger:           logger,
	}
}

// Run starts the broadcaster's main loop. This should be run as a goroutine;
// it returns when ctx is cancelled.
func (b *OpsBroadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(config.OpsFeedInterval)
	defer ticker.Stop()

	for {
		select {
		case client := <-b.register:
			b.clients[client] = true
			b.logger.System().Info("Ops client registered", "clients", len(b.clients))

		case client := <-b.unregister:
			if _, ok := b.clients[client]; ok {
				delete(b.clients, client)
				close(client.Send)
			}
			b.logger.System().Info("Ops client unregistered", "clients", len(b.clients))

		case <-ticker.C:
			b.broadcastSnapshot()

		case <-ctx.Done():
			for client := range b.clients {
				delete(b.clients, client)
				close(client.Send)
			}
			return
		}
	}
}

// Register queues a client for registration.
func (b *OpsBroadcaster) Register(client *OpsClient) {
	b.register <- client
}

// Unregister queues a client for unregistration.
func (b *OpsBroadcaster) Unregister(client *OpsClient) {
	b.unregister <- client
}

// broadcastSnapshot gathers aggregate counts and sends them to every client.
// Only the Run goroutine touches b.clients, so no locking is needed here.
func (b *OpsBroadcaster) broadcastSnapshot() {
	if len(b.clients) == 0 {
		return
	}

	snapshot, err := b.buildSnapshot()
	if err != nil {
		b.logger.System().Error("Failed to build ops snapshot", "error", err)
		return
	}

	message, err := json.Marshal(snapshot)
	if err != nil {
		b.logger.System().Error("Failed to marshal ops snapshot", "error", err)
		return
	}

	for client := range b.clients {
		select {
		case client.Send <- message:
		default:
		}
	}
}

func (b *OpsBroadcaster) buildSnapshot() (*OpsSnapshot, error) {
	electionCounts, err := b.electionRepo.CountByStatus()
	if err != nil {
		return nil, err
	}

	voterCounts, err := b.voterRepo.CountByStatus()
	if err != nil {
		return nil, err
	}

	notificationCounts, err := b.notificationRepo.CountByType()
	if err != nil {
		return nil, err
	}

	return &OpsSnapshot{
		Elections:     electionCounts,
		Voters:        voterCounts,
		Notifications: notificationCounts,
		Performance:   b.tracker.Snapshot(),
		GeneratedAt:   time.Now().UTC(),
	}, nil
}
