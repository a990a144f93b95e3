// Package messaging defines interfaces for real-time communication.
package messaging

import "github.com/BallotDesk/ballotdesk-go/internal/domain/entities/notifications"

// Broadcaster defines the interface for managing SSE client connections and
// pushing notifications to them.
type Broadcaster interface {
	AddClient(recipient string) chan string
	RemoveClient(ch chan string, recipient string)
	GetConnectionCount(recipient string) int
	BroadcastNotification(recipient string, n *notifications.Notification)
	BroadcastUnreadCount(recipient string, count int)
}
