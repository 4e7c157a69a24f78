package models

import "time"

// Section groups lessons inside a batch. Position is the sole sort key for
// display ordering; values need not be contiguous or unique.
type Section struct {
	ID        string    `db:"id" json:"id"`
	BatchID   string    `db:"batch_id" json:"batch_id"`
	Title     string    `db:"title" json:"title"`
	Position  int       `db:"position" json:"order"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CreateSectionRequest holds fields for creating a section. A nil Order
// asks the server to append the section after its existing siblings.
type CreateSectionRequest struct {
	Title string `json:"title" validate:"required"`
	Order *int   `json:"order,omitempty"`
}

// UpdateSectionRequest holds fields for a partial section update.
type UpdateSectionRequest struct {
	Title string `json:"title"`
	Order *int   `json:"order,omitempty"`
}

// SectionContent enriches a Section with its ordered lessons and the
// aggregates the frontend renders. Computed on every read, never stored.
type SectionContent struct {
	Section
	Lessons       []Lesson `json:"lessons"`
	LessonCount   int      `json:"lesson_count"`
	TotalDuration int      `json:"total_duration"`
}
