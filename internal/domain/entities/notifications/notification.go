// Package notifications defines the notification domain entity, its
// classification enums, and the payload/filter types used by the
// notification service.
package notifications

import "time"

// Type classifies the subject area a notification belongs to.
type Type string

const (
	TypeSystem   Type = "SYSTEM"
	TypeElection Type = "ELECTION"
	TypeVoter    Type = "VOTER"
	TypeBallot   Type = "BALLOT"
	TypeSecurity Type = "SECURITY"
	TypeReminder Type = "REMINDER"
)

// Category classifies the tone of a notification.
type Category string

const (
	CategoryInfo        Category = "INFO"
	CategorySuccess     Category = "SUCCESS"
	CategoryWarning     Category = "WARNING"
	CategoryError       Category = "ERROR"
	CategoryDestructive Category = "DESTRUCTIVE"
)

// Priority orders notifications for display.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// DeliveryMethod selects the outbound channel for a notification.
type DeliveryMethod string

const (
	DeliveryInApp DeliveryMethod = "IN_APP"
	DeliveryEmail DeliveryMethod = "EMAIL"
	DeliveryPush  DeliveryMethod = "PUSH"
	DeliverySMS   DeliveryMethod = "SMS"
)

// Notification is a single message addressed to one recipient. Read and
// delete operations are recipient-scoped; any collaborator may create
// notifications for any recipient.
type Notification struct {
	ID        string `json:"id"`
	Recipient string `json:"recipient"`
	Sender    string `json:"sender,omitempty"`

	Type     Type     `json:"type"`
	Category Category `json:"category"`
	Priority Priority `json:"priority"`

	Title      string `json:"title"`
	Message    string `json:"message"`
	ActionURL  string `json:"actionUrl,omitempty"`
	ActionText string `json:"actionText,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`

	Read   bool       `json:"read"`
	ReadAt *time.Time `json:"readAt,omitempty"`

	Delivered      bool           `json:"delivered"`
	DeliveredAt    *time.Time     `json:"deliveredAt,omitempty"`
	DeliveryMethod DeliveryMethod `json:"deliveryMethod"`

	ScheduledFor *time.Time `json:"scheduledFor,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// Payload carries the caller-supplied fields for creating notifications.
// Zero values for Category, Priority and DeliveryMethod default to INFO,
// MEDIUM and IN_APP respectively.
type Payload struct {
	Sender         string         `json:"sender,omitempty"`
	Type           Type           `json:"type"`
	Category       Category       `json:"category,omitempty"`
	Priority       Priority       `json:"priority,omitempty"`
	Title          string         `json:"title"`
	Message        string         `json:"message"`
	ActionURL      string         `json:"actionUrl,omitempty"`
	ActionText     string         `json:"actionText,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	DeliveryMethod DeliveryMethod `json:"deliveryMethod,omitempty"`
	ScheduledFor   *time.Time     `json:"scheduledFor,omitempty"`
	ExpiresAt      *time.Time     `json:"expiresAt,omitempty"`
}

// ListFilters narrows a recipient's notification listing. Filters are
// conjunctive; nil pointer fields are not applied.
type ListFilters struct {
	Page     int
	Limit    int
	Read     *bool
	Type     *Type
	Category *Category
	Priority *Priority
}

// Pagination describes an offset-paginated result set.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}
