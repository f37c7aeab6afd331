package domain

import "time"

// NotificationType controls presentation of an in-app notification.
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

// Notification is an in-app notification record. Only the IsRead flag is
// ever mutated after creation.
type Notification struct {
	ID        int64            `json:"id"`
	UserID    string           `json:"user_id"`
	Title     string           `json:"title"`
	Content   string           `json:"content"`
	Type      NotificationType `json:"type"`
	TicketID  *int64           `json:"ticket_id"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}
