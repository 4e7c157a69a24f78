package models

import "time"

// LessonType distinguishes how a lesson was created.
type LessonType string

const (
	LessonTypeRecorded LessonType = "RECORDED"
	LessonTypeLive     LessonType = "LIVE"
)

// LivePlatform enumerates the external platforms a live class can run on.
type LivePlatform string

const (
	LivePlatformZoom    LivePlatform = "zoom"
	LivePlatformYouTube LivePlatform = "youtube"
	LivePlatformOther   LivePlatform = "other"
)

// LiveStatus tracks the lifecycle of a live class.
type LiveStatus string

const (
	LiveStatusScheduled LiveStatus = "scheduled"
	LiveStatusLive      LiveStatus = "live"
	LiveStatusEnded     LiveStatus = "ended"
)

// Lesson is a single unit of content inside a section. A lesson created via
// the recorded path carries a video reference and no live fields; a lesson
// created via the live path carries live metadata and gains a video
// reference only when a recording is uploaded.
type Lesson struct {
	ID              string        `db:"id" json:"id"`
	SectionID       string        `db:"section_id" json:"section_id"`
	Title           string        `db:"title" json:"title"`
	Description     *string       `db:"description" json:"description,omitempty"`
	Type            LessonType    `db:"lesson_type" json:"type"`
	Position        int           `db:"position" json:"order"`
	Duration        int           `db:"duration" json:"duration"`
	VideoURL        *string       `db:"video_url" json:"video_url,omitempty"`
	VideoKey        *string       `db:"video_key" json:"-"`
	LivePlatform    *LivePlatform `db:"live_platform" json:"live_platform,omitempty"`
	LiveJoinURL     *string       `db:"live_join_url" json:"live_join_url,omitempty"`
	LiveScheduledAt *time.Time    `db:"live_scheduled_at" json:"live_scheduled_at,omitempty"`
	LiveStatus      *LiveStatus   `db:"live_status" json:"live_status,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// CreateLessonRequest holds fields for creating a lesson. The recorded path
// requires a video reference; the live path requires platform, join URL and
// schedule. A nil Order appends the lesson after its siblings.
type CreateLessonRequest struct {
	Title           string        `json:"title" validate:"required"`
	Description     *string       `json:"description,omitempty"`
	Type            LessonType    `json:"type" validate:"required,oneof=RECORDED LIVE"`
	Order           *int          `json:"order,omitempty"`
	Duration        int           `json:"duration" validate:"gte=0"`
	VideoURL        string        `json:"video_url"`
	VideoKey        string        `json:"video_key,omitempty"`
	LivePlatform    *LivePlatform `json:"live_platform,omitempty"`
	LiveJoinURL     string        `json:"live_join_url"`
	LiveScheduledAt *time.Time    `json:"live_scheduled_at,omitempty"`
}

// UpdateLessonRequest holds fields for a partial lesson update. Strings are
// applied when non-empty after trimming; numeric pointers are applied
// whenever supplied, zero included.
type UpdateLessonRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Order       *int   `json:"order,omitempty"`
	Duration    *int   `json:"duration,omitempty"`
}

// AttachRecordingRequest carries the uploaded recording reference for a
// live lesson.
type AttachRecordingRequest struct {
	VideoURL string `json:"video_url" validate:"required"`
	VideoKey string `json:"video_key,omitempty"`
}

// DisplayType reports how the lesson should be presented. A live lesson
// that has acquired a recording is shown as recorded regardless of its
// stored live status.
func (l *Lesson) DisplayType() LessonType {
	if l.Type == LessonTypeLive && l.VideoURL != nil && *l.VideoURL != "" {
		return LessonTypeRecorded
	}
	return l.Type
}
