// Package services provides application-level services that orchestrate
// business logic and coordinate between repositories and domain entities.
package services

import (
	"fmt"
	"time"

	"github.com/BallotDesk/ballotdesk-go/internal/domain/entities/notifications"
	domainerrors "github.com/BallotDesk/ballotdesk-go/internal/domain/errors"
	"github.com/BallotDesk/ballotdesk-go/internal/domain/repositories"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/messaging"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/observability/logging"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/observability/performance"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/security"
	"github.com/BallotDesk/ballotdesk-go/pkg/config"
)

// DeliveryChannel pushes a notification over one outbound method. A channel
// error means the notification stays undelivered and is retried by the next
// scheduled flush.
type DeliveryChannel interface {
	Deliver(n *notifications.Notification) error
}

// NotificationService creates, schedules and delivers notifications and
// tracks their read/expiry state.
type NotificationService struct {
	repo        repositories.NotificationRepository
	broadcaster messaging.Broadcaster
	channels    map[notifications.DeliveryMethod]DeliveryChannel
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
	now         func() time.Time
}

// NewNotificationService creates a new notification application service.
// broadcaster may be nil when no live push surface is running.
func NewNotificationService(
	repo repositories.NotificationRepository,
	broadcaster messaging.Broadcaster,
	channels map[notifications.DeliveryMethod]DeliveryChannel,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *NotificationService {
	if channels == nil {
		channels = map[notifications.DeliveryMethod]DeliveryChannel{}
	}
	return &NotificationService{
		repo:        repo,
		broadcaster: broadcaster,
		channels:    channels,
		logger:      logger,
		perfTracker: perfTracker,
		now:         time.Now,
	}
}

// Create persists one notification for recipient. A future ScheduledFor
// defers dispatch to the scheduled flush; otherwise delivery is attempted
// immediately. Delivery failure never fails the create.
func (s *NotificationService) Create(recipient string, payload notifications.Payload) (*notifications.Notification, error) {
	marker := s.perfTracker.StartOperation("notification_create")
	defer marker.Complete()

	if recipient == "" {
		marker.SetError(fmt.Errorf("empty recipient"))
		return nil, fmt.Errorf("recipient cannot be empty")
	}

	n := s.buildNotification(recipient, payload)
	if err := s.repo.Store(n); err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("failed to store notification: %w", err)
	}

	if s.isDue(n) {
		s.Deliver(n)
	}

	marker.SetSuccess(true)
	return n, nil
}

// CreateBulk fans one payload out to every recipient as independent rows,
// inserting in batches, then attempts delivery of each row that is already
// due. An insert failure surfaces as ErrBulkCreate for the whole call.
func (s *NotificationService) CreateBulk(recipients []string, payload notifications.Payload) ([]*notifications.Notification, error) {
	marker := s.perfTracker.StartOperation("notification_create_bulk")
	defer marker.Complete()
	marker.AddMetadata("recipients", len(recipients))

	if len(recipients) == 0 {
		marker.SetSuccess(true)
		return []*notifications.Notification{}, nil
	}

	batch := make([]*notifications.Notification, 0, len(recipients))
	for _, recipient := range recipients {
		batch = append(batch, s.buildNotification(recipient, payload))
	}

	// Insert in bounded chunks so one huge fan-out does not become a
	// single enormous statement.
	for start := 0; start < len(batch); start += config.FanoutBatchSize {
		end := start + config.FanoutBatchSize
		if end > len(batch) {
			end = len(batch)
		}
		if err := s.repo.StoreMany(batch[start:end]); err != nil {
			marker.SetError(err)
			return nil, fmt.Errorf("%w: %v", domainerrors.ErrBulkCreate, err)
		}
	}

	for _, n := range batch {
		if s.isDue(n) {
			s.Deliver(n)
		}
	}

	s.logger.Notification().Info("Bulk notifications created", "count", len(batch), "type", string(payload.Type))
	marker.SetSuccess(true)
	return batch, nil
}

// Deliver dispatches n on its delivery method. Channel failures are logged
// and swallowed; the notification stays undelivered and the scheduled flush
// retries it on its next run.
func (s *NotificationService) Deliver(n *notifications.Notification) {
	deliveredAt := s.now()

	if n.DeliveryMethod == notifications.DeliveryInApp {
		if err := s.repo.MarkDelivered(n.ID, deliveredAt); err != nil {
			s.logger.Notification().Error("Failed to mark notification delivered", "error", err, "notificationId", n.ID)
			return
		}
		n.Delivered = true
		n.DeliveredAt = &deliveredAt
		if s.broadcaster != nil {
			s.broadcaster.BroadcastNotification(n.Recipient, n)
		}
		return
	}

	channel, ok := s.channels[n.DeliveryMethod]
	if !ok {
		s.logger.Notification().Warn("No delivery channel configured", "method", string(n.DeliveryMethod), "notificationId", n.ID)
		return
	}

	if err := channel.Deliver(n); err != nil {
		s.logger.Notification().Error("Delivery channel failed; will retry on next flush",
			"error", err, "method", string(n.DeliveryMethod), "notificationId", n.ID)
		return
	}

	if err := s.repo.MarkDelivered(n.ID, deliveredAt); err != nil {
		s.logger.Notification().Error("Failed to mark notification delivered", "error", err, "notificationId", n.ID)
		return
	}
	n.Delivered = true
	n.DeliveredAt = &deliveredAt
}

// List returns recipient's notifications newest-first with offset pagination.
func (s *NotificationService) List(recipient string, filters notifications.ListFilters) ([]*notifications.Notification, *notifications.Pagination, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.Limit < 1 {
		filters.Limit = 20
	}

	items, total, err := s.repo.List(recipient, filters)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	totalPages := total / filters.Limit
	if total%filters.Limit != 0 {
		totalPages++
	}

	return items, &notifications.Pagination{
		Page:       filters.Page,
		Limit:      filters.Limit,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

// MarkRead marks recipient's notifications read. An empty ids slice marks
// all of them. Returns the number of rows updated.
func (s *NotificationService) MarkRead(recipient string, ids []string) (int, error) {
	updated, err := s.repo.MarkRead(recipient, ids, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}

	if updated > 0 && s.broadcaster != nil {
		if count, err := s.repo.CountUnread(recipient, s.now()); err == nil {
			s.broadcaster.BroadcastUnreadCount(recipient, count)
		}
	}
	return updated, nil
}

// GetUnreadCount counts recipient's unread notifications, excluding expired ones.
func (s *NotificationService) GetUnreadCount(recipient string) (int, error) {
	count, err := s.repo.CountUnread(recipient, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// Delete removes a single notification owned by recipient.
func (s *NotificationService) Delete(recipient, id string) error {
	if err := s.repo.Delete(recipient, id); err != nil {
		return fmt.Errorf("failed to delete notification %s: %w", id, err)
	}
	return nil
}

// CleanupExpired hard-deletes every notification whose expiry has passed,
// read or not, and returns the deleted count.
func (s *NotificationService) CleanupExpired() (int, error) {
	marker := s.perfTracker.StartOperation("notification_cleanup")
	defer marker.Complete()

	deleted, err := s.repo.DeleteExpired(s.now())
	if err != nil {
		marker.SetError(err)
		return 0, fmt.Errorf("failed to delete expired notifications: %w", err)
	}

	if deleted > 0 {
		s.logger.Notification().Info("Expired notifications removed", "count", deleted)
	}
	marker.SetSuccess(true)
	return deleted, nil
}

// ProcessScheduled delivers every undelivered notification whose scheduled
// time has arrived. This is both the realization path for future-dated
// notifications and the retry path for failed dispatches.
func (s *NotificationService) ProcessScheduled() (int, error) {
	marker := s.perfTracker.StartOperation("notification_flush")
	defer marker.Complete()

	due, err := s.repo.FindDueScheduled(s.now())
	if err != nil {
		marker.SetError(err)
		return 0, fmt.Errorf("failed to find due notifications: %w", err)
	}

	for _, n := range due {
		s.Deliver(n)
	}

	if len(due) > 0 {
		s.logger.Notification().Info("Scheduled notifications processed", "count", len(due))
	}
	marker.SetSuccess(true)
	return len(due), nil
}

// buildNotification applies payload defaults and stamps identity and
// creation time.
func (s *NotificationService) buildNotification(recipient string, payload notifications.Payload) *notifications.Notification {
	category := payload.Category
	if category == "" {
		category = notifications.CategoryInfo
	}
	priority := payload.Priority
	if priority == "" {
		priority = notifications.PriorityMedium
	}
	method := payload.DeliveryMethod
	if method == "" {
		method = notifications.DeliveryInApp
	}

	return &notifications.Notification{
		ID:             security.GenerateULID(),
		Recipient:      recipient,
		Sender:         payload.Sender,
		Type:           payload.Type,
		Category:       category,
		Priority:       priority,
		Title:          payload.Title,
		Message:        payload.Message,
		ActionURL:      payload.ActionURL,
		ActionText:     payload.ActionText,
		Metadata:       payload.Metadata,
		DeliveryMethod: method,
		ScheduledFor:   payload.ScheduledFor,
		ExpiresAt:      payload.ExpiresAt,
		CreatedAt:      s.now(),
	}
}

// isDue reports whether n should be dispatched now rather than left for the
// scheduled flush.
func (s *NotificationService) isDue(n *notifications.Notification) bool {
	return n.ScheduledFor == nil || !n.ScheduledFor.After(s.now())
}
