// Package notifications provides the concrete SQL-based implementation of
// the notification domain repository.
package notifications

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/BallotDesk/ballotdesk-go/internal/domain/entities/notifications"
	domainerrors "github.com/BallotDesk/ballotdesk-go/internal/domain/errors"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/observability/logging"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/persistence/database"
	"github.com/BallotDesk/ballotdesk-go/pkg/config"
)

const notificationColumns = `id, recipient, sender, type, category, priority, title, message,
	       action_url, action_text, metadata, read, read_at, delivered, delivered_at,
	       delivery_method, scheduled_for, expires_at, created_at`

// SQLNotificationRepository is the SQL-based implementation of the NotificationRepository.
type SQLNotificationRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLNotificationRepository creates a new instance of the repository.
func NewSQLNotificationRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLNotificationRepository {
	return &SQLNotificationRepository{
		db:     db,
		logger: logger,
	}
}

// FindByID retrieves a notification by its unique identifier.
func (r *SQLNotificationRepository) FindByID(id string) (*notifications.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = ?`

	row := r.db.QueryRow(query, id)
	notification, err := r.scanNotification(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Database().Error("Failed to load notification by ID", "error", err.Error(), "id", id)
		return nil, err
	}
	return notification, nil
}

// Store saves a single notification.
func (r *SQLNotificationRepository) Store(n *notifications.Notification) error {
	start := time.Now()

	args, err := insertArgs(n)
	if err != nil {
		return err
	}

	if _, err := r.db.Exec(insertStatement(1), args...); err != nil {
		r.logger.Database().Error("Failed to insert notification", "error", err.Error(), "id", n.ID)
		return err
	}

	r.checkSlowQuery("INSERT INTO notifications", time.Since(start))
	return nil
}

// StoreMany inserts the batch with one multi-row statement. A failure
// surfaces as a single error; the store provides no partial rollback
// beyond statement atomicity.
func (r *SQLNotificationRepository) StoreMany(batch []*notifications.Notification) error {
	if len(batch) == 0 {
		return nil
	}

	start := time.Now()
	r.logger.Database().Debug("Executing notification batch insert", "count", len(batch))

	args := make([]any, 0, len(batch)*19)
	for _, n := range batch {
		rowArgs, err := insertArgs(n)
		if err != nil {
			return err
		}
		args = append(args, rowArgs...)
	}

	if _, err := r.db.Exec(insertStatement(len(batch)), args...); err != nil {
		r.logger.Database().Error("Failed to batch-insert notifications", "error", err.Error(), "count", len(batch))
		return err
	}

	r.checkSlowQuery("INSERT INTO notifications (batch)", time.Since(start))
	return nil
}

// List returns the recipient's notifications newest-first plus the total
// matching count for pagination. All supplied filters apply conjunctively.
func (r *SQLNotificationRepository) List(recipient string, filters notifications.ListFilters) ([]*notifications.Notification, int, error) {
	where := []string{"recipient = ?"}
	args := []any{recipient}

	if filters.Read != nil {
		where = append(where, "read = ?")
		args = append(args, *filters.Read)
	}
	if filters.Type != nil {
		where = append(where, "type = ?")
		args = append(args, string(*filters.Type))
	}
	if filters.Category != nil {
		where = append(where, "category = ?")
		args = append(args, string(*filters.Category))
	}
	if filters.Priority != nil {
		where = append(where, "priority = ?")
		args = append(args, string(*filters.Priority))
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM notifications WHERE ` + whereClause
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		r.logger.Database().Error("Failed to count notifications", "error", err.Error())
		return nil, 0, err
	}

	page := filters.Page
	if page < 1 {
		page = 1
	}
	limit := filters.Limit
	if limit < 1 {
		limit = 20
	}

	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE ` + whereClause +
		` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, (page-1)*limit)

	start := time.Now()
	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Database().Error("Failed to list notifications", "error", err.Error())
		return nil, 0, err
	}
	defer rows.Close()

	var result []*notifications.Notification
	for rows.Next() {
		n, err := r.scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	r.checkSlowQuery(query, time.Since(start))
	return result, total, nil
}

// MarkRead marks the recipient's notifications read. An empty ids slice
// marks all of them. Returns the number of rows updated.
func (r *SQLNotificationRepository) MarkRead(recipient string, ids []string, readAt time.Time) (int, error) {
	query := `UPDATE notifications SET read = 1, read_at = ? WHERE recipient = ? AND read = 0`
	args := []any{readAt, recipient}

	if len(ids) > 0 {
		query += ` AND id IN (` + placeholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}

	result, err := r.db.Exec(query, args...)
	if err != nil {
		r.logger.Database().Error("Failed to mark notifications read", "error", err.Error())
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// MarkDelivered stamps a notification as delivered.
func (r *SQLNotificationRepository) MarkDelivered(id string, deliveredAt time.Time) error {
	const query = `UPDATE notifications SET delivered = 1, delivered_at = ? WHERE id = ?`

	result, err := r.db.Exec(query, deliveredAt, id)
	if err != nil {
		r.logger.Database().Error("Failed to mark notification delivered", "error", err.Error(), "id", id)
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: notification %s", domainerrors.ErrNotFound, id)
	}
	return nil
}

// CountUnread counts unread notifications, excluding expired ones.
func (r *SQLNotificationRepository) CountUnread(recipient string, now time.Time) (int, error) {
	const query = `
		SELECT COUNT(*) FROM notifications
		WHERE recipient = ? AND read = 0 AND (expires_at IS NULL OR expires_at > ?)`

	var count int
	if err := r.db.QueryRow(query, recipient, now).Scan(&count); err != nil {
		r.logger.Database().Error("Failed to count unread notifications", "error", err.Error())
		return 0, err
	}
	return count, nil
}

// FindDueScheduled returns undelivered notifications whose scheduled time
// is at or before now. This feeds the flush task, which is also the retry
// path for previously failed dispatches.
func (r *SQLNotificationRepository) FindDueScheduled(now time.Time) ([]*notifications.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications
		WHERE delivered = 0 AND (scheduled_for IS NULL OR scheduled_for <= ?) ORDER BY created_at`

	start := time.Now()
	rows, err := r.db.Query(query, now)
	if err != nil {
		r.logger.Database().Error("Failed to query due notifications", "error", err.Error())
		return nil, err
	}
	defer rows.Close()

	var result []*notifications.Notification
	for rows.Next() {
		n, err := r.scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	r.checkSlowQuery(query, time.Since(start))
	return result, nil
}

// DeleteExpired hard-deletes every notification whose expiry has passed,
// regardless of read state. Returns the number of rows removed.
func (r *SQLNotificationRepository) DeleteExpired(now time.Time) (int, error) {
	const query = `DELETE FROM notifications WHERE expires_at IS NOT NULL AND expires_at < ?`

	result, err := r.db.Exec(query, now)
	if err != nil {
		r.logger.Database().Error("Failed to delete expired notifications", "error", err.Error())
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// Delete removes a single notification owned by recipient.
func (r *SQLNotificationRepository) Delete(recipient, id string) error {
	const query = `DELETE FROM notifications WHERE recipient = ? AND id = ?`

	result, err := r.db.Exec(query, recipient, id)
	if err != nil {
		r.logger.Database().Error("Failed to delete notification", "error", err.Error(), "id", id)
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: notification %s", domainerrors.ErrNotFound, id)
	}
	return nil
}

// CountByType returns notification counts grouped by type.
func (r *SQLNotificationRepository) CountByType() (map[notifications.Type]int, error) {
	const query = `SELECT type, COUNT(*) FROM notifications GROUP BY type`

	rows, err := r.db.Query(query)
	if err != nil {
		r.logger.Database().Error("Failed to count notifications by type", "error", err.Error())
		return nil, err
	}
	defer rows.Close()

	counts := make(map[notifications.Type]int)
	for rows.Next() {
		var typ string
		var count int
		if err := rows.Scan(&typ, &count); err != nil {
			return nil, err
		}
		counts[notifications.Type(typ)] = count
	}
	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *SQLNotificationRepository) scanNotification(row scanner) (*notifications.Notification, error) {
	var n notifications.Notification
	var typ, category, priority, deliveryMethod, metadata string
	var readAt, deliveredAt, scheduledFor, expiresAt sql.NullTime

	err := row.Scan(
		&n.ID,
		&n.Recipient,
		&n.Sender,
		&typ,
		&category,
		&priority,
		&n.Title,
		&n.Message,
		&n.ActionURL,
		&n.ActionText,
		&metadata,
		&n.Read,
		&readAt,
		&n.Delivered,
		&deliveredAt,
		&deliveryMethod,
		&scheduledFor,
		&expiresAt,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	n.Type = notifications.Type(typ)
	n.Category = notifications.Category(category)
	n.Priority = notifications.Priority(priority)
	n.DeliveryMethod = notifications.DeliveryMethod(deliveryMethod)
	n.ReadAt = timePtr(readAt)
	n.DeliveredAt = timePtr(deliveredAt)
	n.ScheduledFor = timePtr(scheduledFor)
	n.ExpiresAt = timePtr(expiresAt)

	if metadata != "" && metadata != "{}" {
		if err := json.Unmarshal([]byte(metadata), &n.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal notification metadata: %w", err)
		}
	}
	return &n, nil
}

func (r *SQLNotificationRepository) checkSlowQuery(query string, duration time.Duration) {
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration)
	}
}

func insertStatement(rows int) string {
	row := "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	values := make([]string, rows)
	for i := range values {
		values[i] = row
	}
	return `INSERT INTO notifications (id, recipient, sender, type, category, priority, title, message,
		action_url, action_text, metadata, read, read_at, delivered, delivered_at,
		delivery_method, scheduled_for, expires_at, created_at) VALUES ` + strings.Join(values, ", ")
}

func insertArgs(n *notifications.Notification) ([]any, error) {
	metadata, err := json.Marshal(orEmptyMap(n.Metadata))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification metadata: %w", err)
	}

	return []any{
		n.ID,
		n.Recipient,
		n.Sender,
		string(n.Type),
		string(n.Category),
		string(n.Priority),
		n.Title,
		n.Message,
		n.ActionURL,
		n.ActionText,
		string(metadata),
		n.Read,
		nullableTime(n.ReadAt),
		n.Delivered,
		nullableTime(n.DeliveredAt),
		string(n.DeliveryMethod),
		nullableTime(n.ScheduledFor),
		nullableTime(n.ExpiresAt),
		n.CreatedAt,
	}, nil
}

func placeholders(count int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", count), ", ")
}

func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	value := t.Time
	return &value
}
