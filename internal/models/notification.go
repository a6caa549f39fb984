package models

import "time"

// NotificationType is the severity of a notification.
type NotificationType string

const (
	NotificationWarning  NotificationType = "warning"
	NotificationExceeded NotificationType = "exceeded"
	NotificationInfo     NotificationType = "info"
)

// Notification is an outbound message for the user, e.g. a crossed time threshold.
type Notification struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	CardID    string           `json:"cardId,omitempty"`
}
