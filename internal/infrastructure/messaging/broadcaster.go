// Package messaging provides the concrete implementation of the SSE broadcaster.
package messaging

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/BallotDesk/ballotdesk-go/internal/domain/entities/notifications"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/observability/logging"
)

// SSEBroadcaster manages recipient-scoped SSE connections for in-app
// notification delivery. A recipient may hold several connections at once
// (multiple tabs); every one of them gets each push.
type SSEBroadcaster struct {
	recipients map[string][]chan string // recipient -> open connections
	mu         sync.Mutex
	logger     *logging.ChanneledLogger
}

var (
	globalBroadcaster *SSEBroadcaster
	once              sync.Once
)

// NewSSEBroadcaster creates the singleton SSEBroadcaster instance.
func NewSSEBroadcaster(logger *logging.ChanneledLogger) *SSEBroadcaster {
	once.Do(func() {
		globalBroadcaster = &SSEBroadcaster{
			recipients: make(map[string][]chan string),
			logger:     logger,
		}
	})
	return globalBroadcaster
}

// AddClient registers a new SSE connection for a recipient.
func (b *SSEBroadcaster) AddClient(recipient string) chan string {
	ch := make(chan string, 10)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.recipients[recipient] = append(b.recipients[recipient], ch)

	b.logger.Notification().Debug("SSE client registered", "recipient", recipient, "connections", len(b.recipients[recipient]))
	return ch
}

// RemoveClient drops a single SSE connection for a recipient.
func (b *SSEBroadcaster) RemoveClient(ch chan string, recipient string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	clients, exists := b.recipients[recipient]
	if !exists {
		return
	}

	remaining := make([]chan string, 0, len(clients)-1)
	for _, client := range clients {
		if client != ch {
			remaining = append(remaining, client)
		}
	}
	if len(remaining) == 0 {
		delete(b.recipients, recipient)
	} else {
		b.recipients[recipient] = remaining
	}

	b.logger.Notification().Debug("SSE client unregistered", "recipient", recipient)
}

// GetConnectionCount returns the number of open connections for a recipient.
func (b *SSEBroadcaster) GetConnectionCount(recipient string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.recipients[recipient])
}

// BroadcastNotification pushes a freshly stored notification to every open
// connection of its recipient. Connections with full buffers are skipped
// rather than blocked on.
func (b *SSEBroadcaster) BroadcastNotification(recipient string, n *notifications.Notification) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Notification().Error("Panic recovered in BroadcastNotification", "error", r, "recipient", recipient)
		}
	}()

	data, err := json.Marshal(n)
	if err != nil {
		b.logger.Notification().Error("Failed to marshal notification for SSE push", "error", err, "notificationId", n.ID)
		return
	}
	message := fmt.Sprintf("event: notification\ndata: %s\n\n", data)

	b.send(recipient, message)
}

// BroadcastUnreadCount pushes the recipient's current unread total so
// connected clients can refresh their badge without polling.
func (b *SSEBroadcaster) BroadcastUnreadCount(recipient string, count int) {
	message := fmt.Sprintf("event: unread_count\ndata: {\"unreadCount\":%d}\n\n", count)
	b.send(recipient, message)
}

func (b *SSEBroadcaster) send(recipient, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.recipients[recipient] {
		select {
		case ch <- message:
		default:
			b.logger.Notification().Warn("SSE channel full, message dropped", "recipient", recipient)
		}
	}
}
