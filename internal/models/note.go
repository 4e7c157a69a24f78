package models

import "time"

// Note is a downloadable attachment keyed to a lesson.
type Note struct {
	ID          string    `db:"id" json:"id"`
	LessonID    string    `db:"lesson_id" json:"lesson_id"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description,omitempty"`
	FileURL     string    `db:"file_url" json:"file_url"`
	FileKey     string    `db:"file_key" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CreateNoteRequest holds fields for attaching a note to a lesson.
type CreateNoteRequest struct {
	Title       string  `json:"title" validate:"required"`
	Description *string `json:"description,omitempty"`
	FileURL     string  `json:"file_url" validate:"required"`
	FileKey     string  `json:"file_key,omitempty"`
}

// UpdateNoteRequest holds fields for a partial note update.
type UpdateNoteRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}
