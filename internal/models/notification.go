package models

import "time"

// NotificationType identifies the content event that produced a notification.
type NotificationType string

const (
	NotificationLessonUploaded    NotificationType = "lesson_uploaded"
	NotificationNoteAdded         NotificationType = "note_added"
	NotificationLiveScheduled     NotificationType = "live_scheduled"
	NotificationLiveStarted       NotificationType = "live_started"
	NotificationRecordingUploaded NotificationType = "recording_uploaded"
)

// Notification is written by the fan-out process for each approved enrollee
// of the affected batch. It is only ever mutated to flip read to true.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Type      NotificationType `db:"notification_type" json:"type"`
	Message   string           `db:"message" json:"message"`
	BatchID   *string          `db:"batch_id" json:"batch_id,omitempty"`
	LessonID  *string          `db:"lesson_id" json:"lesson_id,omitempty"`
	Read      bool             `db:"read" json:"read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// NotificationFilter provides filters for listing a user's notifications.
type NotificationFilter struct {
	UnreadOnly bool
	Page       int
	PageSize   int
}
