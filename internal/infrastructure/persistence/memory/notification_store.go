package memory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/BallotDesk/ballotdesk-go/internal/domain/entities/notifications"
	domainerrors "github.com/BallotDesk/ballotdesk-go/internal/domain/errors"
)

// NotificationStore is an in-memory NotificationRepository.
type NotificationStore struct {
	mu    sync.RWMutex
	items map[string]*notifications.Notification

	// FailNextStoreMany makes the next StoreMany call fail, for testing
	// bulk-create error paths.
	FailNextStoreMany error
}

// NewNotificationStore creates an empty in-memory notification store.
func NewNotificationStore() *NotificationStore {
	return &NotificationStore{items: make(map[string]*notifications.Notification)}
}

func (s *NotificationStore) FindByID(id string) (*notifications.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	return copyNotification(n), nil
}

func (s *NotificationStore) Store(n *notifications.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[n.ID] = copyNotification(n)
	return nil
}

func (s *NotificationStore) StoreMany(batch []*notifications.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailNextStoreMany != nil {
		err := s.FailNextStoreMany
		s.FailNextStoreMany = nil
		return err
	}

	for _, n := range batch {
		s.items[n.ID] = copyNotification(n)
	}
	return nil
}

func (s *NotificationStore) List(recipient string, filters notifications.ListFilters) ([]*notifications.Notification, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*notifications.Notification
	for _, n := range s.items {
		if n.Recipient != recipient {
			continue
		}
		if filters.Read != nil && n.Read != *filters.Read {
			continue
		}
		if filters.Type != nil && n.Type != *filters.Type {
			continue
		}
		if filters.Category != nil && n.Category != *filters.Category {
			continue
		}
		if filters.Priority != nil && n.Priority != *filters.Priority {
			continue
		}
		matched = append(matched, copyNotification(n))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)

	page := filters.Page
	if page < 1 {
		page = 1
	}
	limit := filters.Limit
	if limit < 1 {
		limit = 20
	}

	offset := (page - 1) * limit
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (s *NotificationStore) MarkRead(recipient string, ids []string, readAt time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}

	updated := 0
	for _, n := range s.items {
		if n.Recipient != recipient || n.Read {
			continue
		}
		if len(ids) > 0 && !idSet[n.ID] {
			continue
		}
		n.Read = true
		n.ReadAt = &readAt
		updated++
	}
	return updated, nil
}

func (s *NotificationStore) MarkDelivered(id string, deliveredAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.items[id]
	if !ok {
		return fmt.Errorf("%w: notification %s", domainerrors.ErrNotFound, id)
	}
	n.Delivered = true
	n.DeliveredAt = &deliveredAt
	return nil
}

func (s *NotificationStore) CountUnread(recipient string, now time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.items {
		if n.Recipient != recipient || n.Read {
			continue
		}
		if n.ExpiresAt != nil && !n.ExpiresAt.After(now) {
			continue
		}
		count++
	}
	return count, nil
}

func (s *NotificationStore) FindDueScheduled(now time.Time) ([]*notifications.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []*notifications.Notification
	for _, n := range s.items {
		if n.Delivered {
			continue
		}
		if n.ScheduledFor != nil && n.ScheduledFor.After(now) {
			continue
		}
		due = append(due, copyNotification(n))
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].CreatedAt.Before(due[j].CreatedAt)
	})
	return due, nil
}

func (s *NotificationStore) DeleteExpired(now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, n := range s.items {
		if n.ExpiresAt != nil && n.ExpiresAt.Before(now) {
			delete(s.items, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *NotificationStore) Delete(recipient, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.items[id]
	if !ok || n.Recipient != recipient {
		return fmt.Errorf("%w: notification %s", domainerrors.ErrNotFound, id)
	}
	delete(s.items, id)
	return nil
}

func (s *NotificationStore) CountByType() (map[notifications.Type]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[notifications.Type]int)
	for _, n := range s.items {
		counts[n.Type]++
	}
	return counts, nil
}

func copyNotification(n *notifications.Notification) *notifications.Notification {
	dup := *n
	dup.ReadAt = copyTime(n.ReadAt)
	dup.DeliveredAt = copyTime(n.DeliveredAt)
	dup.ScheduledFor = copyTime(n.ScheduledFor)
	dup.ExpiresAt = copyTime(n.ExpiresAt)
	if n.Metadata != nil {
		dup.Metadata = make(map[string]any, len(n.Metadata))
		for k, v := range n.Metadata {
			dup.Metadata[k] = v
		}
	}
	return &dup
}
