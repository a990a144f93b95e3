package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/BallotDesk/ballotdesk-go/internal/application/services"
	"github.com/BallotDesk/ballotdesk-go/internal/domain/entities/notifications"
	domainerrors "github.com/BallotDesk/ballotdesk-go/internal/domain/errors"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/messaging"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/observability/logging"
	"github.com/BallotDesk/ballotdesk-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// CreateNotificationRequest carries an admin-initiated notification.
type CreateNotificationRequest struct {
	Recipient string                `json:"recipient" binding:"required"`
	Payload   notifications.Payload `json:"payload" binding:"required"`
}

// CreateBulkNotificationRequest fans one payload out to many recipients.
type CreateBulkNotificationRequest struct {
	Recipients []string              `json:"recipients" binding:"required"`
	Payload    notifications.Payload `json:"payload" binding:"required"`
}

// MarkReadRequest optionally narrows a mark-read call to specific ids.
type MarkReadRequest struct {
	IDs []string `json:"ids"`
}

// NotificationHandlers contains the recipient-scoped notification handlers
// plus the admin fan-out endpoints.
type NotificationHandlers struct {
	notificationService *services.NotificationService
	broadcaster         messaging.Broadcaster
	logger              *logging.ChanneledLogger
}

// NewNotificationHandlers creates notification handlers with injected dependencies.
func NewNotificationHandlers(notificationService *services.NotificationService, broadcaster messaging.Broadcaster, logger *logging.ChanneledLogger) *NotificationHandlers {
	return &NotificationHandlers{
		notificationService: notificationService,
		broadcaster:         broadcaster,
		logger:              logger,
	}
}

// List returns the authenticated voter's notifications, newest first.
func (h *NotificationHandlers) List(c *gin.Context) {
	session, ok := middleware.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no session"})
		return
	}

	filters := notifications.ListFilters{
		Page:  queryInt(c, "page", 1),
		Limit: queryInt(c, "limit", 20),
	}
	if v := c.Query("read"); v != "" {
		read := v == "true"
		filters.Read = &read
	}
	if v := c.Query("type"); v != "" {
		t := notifications.Type(v)
		filters.Type = &t
	}
	if v := c.Query("category"); v != "" {
		cat := notifications.Category(v)
		filters.Category = &cat
	}
	if v := c.Query("priority"); v != "" {
		p := notifications.Priority(v)
		filters.Priority = &p
	}

	items, pagination, err := h.notificationService.List(session.VoterID, filters)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": items,
		"pagination":    pagination,
	})
}

// UnreadCount returns the voter's unread badge count.
func (h *NotificationHandlers) UnreadCount(c *gin.Context) {
	session, ok := middleware.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no session"})
		return
	}

	count, err := h.notificationService.GetUnreadCount(session.VoterID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unreadCount": count})
}

// MarkRead marks the voter's notifications read; an empty body marks all.
func (h *NotificationHandlers) MarkRead(c *gin.Context) {
	session, ok := middleware.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no session"})
		return
	}

	var req MarkReadRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	updated, err := h.notificationService.MarkRead(session.VoterID, req.IDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// Delete removes one of the voter's own notifications.
func (h *NotificationHandlers) Delete(c *gin.Context) {
	session, ok := middleware.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no session"})
		return
	}

	if err := h.notificationService.Delete(session.VoterID, c.Param("id")); err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// Stream opens an SSE connection that receives the voter's in-app
// notifications as they are delivered.
func (h *NotificationHandlers) Stream(c *gin.Context) {
	session, ok := middleware.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no session"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	ch := h.broadcaster.AddClient(session.VoterID)
	defer h.broadcaster.RemoveClient(ch, session.VoterID)

	fmt.Fprintf(c.Writer, ": connection established\n\n")
	c.Writer.Flush()

	h.logger.Notification().Info("Notification stream opened",
		"recipient", session.VoterID, "connections", h.broadcaster.GetConnectionCount(session.VoterID))

	c.Stream(func(w io.Writer) bool {
		select {
		case message, open := <-ch:
			if !open {
				return false
			}
			fmt.Fprint(w, message)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// Create stores and dispatches a notification for any recipient (admin surface).
func (h *NotificationHandlers) Create(c *gin.Context) {
	var req CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	n, err := h.notificationService.Create(req.Recipient, req.Payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, n)
}

// CreateBulk fans one payload out to many recipients (admin surface).
func (h *NotificationHandlers) CreateBulk(c *gin.Context) {
	var req CreateBulkNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	batch, err := h.notificationService.CreateBulk(req.Recipients, req.Payload)
	if err != nil {
		if errors.Is(err, domainerrors.ErrBulkCreate) {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"created": len(batch)})
}

func queryInt(c *gin.Context, name string, fallback int) int {
	v := c.Query(name)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}
