package models

import "time"

// Batch is a top-level course offering owned by the instructor. It is the
// root of one content tree (sections, lessons, notes) and the scope that
// enrollments and content access are granted against.
type Batch struct {
	ID           string    `db:"id" json:"id"`
	Title        string    `db:"title" json:"title"`
	Description  string    `db:"description" json:"description"`
	ThumbnailURL *string   `db:"thumbnail_url" json:"thumbnail_url,omitempty"`
	ThumbnailKey *string   `db:"thumbnail_key" json:"-"`
	InstructorID string    `db:"instructor_id" json:"instructor_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CreateBatchRequest holds fields for creating a batch.
type CreateBatchRequest struct {
	Title        string  `json:"title" validate:"required"`
	Description  string  `json:"description"`
	ThumbnailURL *string `json:"thumbnail_url,omitempty"`
	ThumbnailKey *string `json:"thumbnail_key,omitempty"`
}

// UpdateBatchRequest holds fields for a partial batch update. String fields
// are applied only when non-empty after trimming.
type UpdateBatchRequest struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	ThumbnailURL *string `json:"thumbnail_url,omitempty"`
	ThumbnailKey *string `json:"thumbnail_key,omitempty"`
}

// BatchFilter captures filtering criteria for listing batches.
type BatchFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// CascadeResult reports what a cascading delete removed, including the
// storage keys of files whose backing objects still need cleanup.
type CascadeResult struct {
	BatchID     string   `json:"batch_id,omitempty"`
	SectionIDs  []string `json:"section_ids,omitempty"`
	LessonIDs   []string `json:"lesson_ids,omitempty"`
	NoteIDs     []string `json:"note_ids,omitempty"`
	Enrollments int      `json:"enrollments_removed,omitempty"`
	StorageKeys []string `json:"-"`
}
