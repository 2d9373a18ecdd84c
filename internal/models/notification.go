// internal/models/notification.go
package models

import "time"

type NotificationType string

const (
	NotificationScoreImprovement NotificationType = "score_improvement"
	NotificationScoreDecline     NotificationType = "score_decline"
)

// Notification is the payload handed to the notification collaborator.
type Notification struct {
	ID        string           `json:"id"`
	SubjectID string           `json:"subjectId"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	OldScore  float64          `json:"oldScore"`
	NewScore  float64          `json:"newScore"`
	Delta     float64          `json:"delta"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Contact carries the delivery addresses of a subject.
type Contact struct {
	SubjectID string `json:"subjectId"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}
