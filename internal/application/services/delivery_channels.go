package services

import (
	"fmt"
	"strings"

	"github.com/BallotDesk/ballotdesk-go/internal/domain/entities/notifications"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/email"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/observability/logging"
)

// EmailChannel delivers notifications through the transactional email client.
type EmailChannel struct {
	emailService email.Service
}

// NewEmailChannel wraps an email client as a notification delivery channel.
func NewEmailChannel(emailService email.Service) *EmailChannel {
	return &EmailChannel{emailService: emailService}
}

// Deliver sends the notification body as an email. The address comes from
// the notification metadata when present, otherwise the recipient itself
// must be an address.
func (c *EmailChannel) Deliver(n *notifications.Notification) error {
	address := recipientAddress(n)
	if address == "" {
		return fmt.Errorf("no email address for recipient %s", n.Recipient)
	}
	return c.emailService.SendNotificationEmail(address, n.Title, n.Message, n.ActionURL)
}

func recipientAddress(n *notifications.Notification) string {
	if n.Metadata != nil {
		if v, ok := n.Metadata["email"].(string); ok && strings.Contains(v, "@") {
			return v
		}
	}
	if strings.Contains(n.Recipient, "@") {
		return n.Recipient
	}
	return ""
}

// LogOnlyChannel stands in for delivery methods with no wired provider.
// It records the dispatch and reports success so the notification is
// marked delivered.
type LogOnlyChannel struct {
	method notifications.DeliveryMethod
	logger *logging.ChanneledLogger
}

// NewLogOnlyChannel creates a stub channel for the given method.
func NewLogOnlyChannel(method notifications.DeliveryMethod, logger *logging.ChanneledLogger) *LogOnlyChannel {
	return &LogOnlyChannel{method: method, logger: logger}
}

func (c *LogOnlyChannel) Deliver(n *notifications.Notification) error {
	c.logger.Notification().Info("Dispatch recorded (no provider wired)",
		"method", string(c.method), "recipient", n.Recipient, "notificationId", n.ID)
	return nil
}
