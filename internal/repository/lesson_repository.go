package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/teachhub/teachhub-api/internal/models"
)

const lessonColumns = `id, section_id, title, description, lesson_type, position, duration, video_url, video_key, live_platform, live_join_url, live_scheduled_at, live_status, created_at, updated_at`

// LessonRepository handles persistence for lessons.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs the repository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// ListBySection returns a section's lessons sorted ascending by position.
func (r *LessonRepository) ListBySection(ctx context.Context, sectionID string) ([]models.Lesson, error) {
	query := fmt.Sprintf(`SELECT %s FROM lessons WHERE section_id = $1 ORDER BY position ASC`, lessonColumns)
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, sectionID); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, nil
}

// ListBySectionIDs returns every lesson under the given sections, ordered by
// position. Used to assemble enriched batch content in a single query.
func (r *LessonRepository) ListBySectionIDs(ctx context.Context, sectionIDs []string) ([]models.Lesson, error) {
	if len(sectionIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf(`SELECT %s FROM lessons WHERE section_id IN (?) ORDER BY position ASC`, lessonColumns), sectionIDs)
	if err != nil {
		return nil, fmt.Errorf("build lessons query: %w", err)
	}
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list lessons by sections: %w", err)
	}
	return lessons, nil
}

// FindByID returns a lesson by id.
func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	query := fmt.Sprintf(`SELECT %s FROM lessons WHERE id = $1`, lessonColumns)
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// CountBySection returns the number of lessons under a section.
func (r *LessonRepository) CountBySection(ctx context.Context, sectionID string) (int, error) {
	const query = `SELECT COUNT(*) FROM lessons WHERE section_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, sectionID); err != nil {
		return 0, fmt.Errorf("count lessons: %w", err)
	}
	return count, nil
}

// Create persists a new lesson.
func (r *LessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = now
	}
	lesson.UpdatedAt = now

	const query = `INSERT INTO lessons (id, section_id, title, description, lesson_type, position, duration, video_url, video_key, live_platform, live_join_url, live_scheduled_at, live_status, created_at, updated_at)
        VALUES (:id, :section_id, :title, :description, :lesson_type, :position, :duration, :video_url, :video_key, :live_platform, :live_join_url, :live_scheduled_at, :live_status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}
	return nil
}

// Update modifies a lesson.
func (r *LessonRepository) Update(ctx context.Context, lesson *models.Lesson) error {
	lesson.UpdatedAt = time.Now().UTC()
	const query = `UPDATE lessons SET title = :title, description = :description, position = :position, duration = :duration, video_url = :video_url, video_key = :video_key, live_platform = :live_platform, live_join_url = :live_join_url, live_scheduled_at = :live_scheduled_at, live_status = :live_status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("update lesson: %w", err)
	}
	return nil
}

// UpdateLiveStatus moves a live lesson to the given status.
func (r *LessonRepository) UpdateLiveStatus(ctx context.Context, id string, status models.LiveStatus) error {
	const query = `UPDATE lessons SET live_status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update live status: %w", err)
	}
	return nil
}

// SetVideo attaches a recording to a lesson.
func (r *LessonRepository) SetVideo(ctx context.Context, id, videoURL, videoKey string) error {
	const query = `UPDATE lessons SET video_url = $2, video_key = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, videoURL, videoKey, time.Now().UTC()); err != nil {
		return fmt.Errorf("set lesson video: %w", err)
	}
	return nil
}

// DeleteCascade removes the lesson and its notes inside one transaction,
// notes first.
func (r *LessonRepository) DeleteCascade(ctx context.Context, id string) (result *models.CascadeResult, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin lesson cascade: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var videoKey string
	if err = tx.GetContext(ctx, &videoKey, `SELECT COALESCE(video_key, '') FROM lessons WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("load lesson for cascade: %w", err)
	}

	result = &models.CascadeResult{LessonIDs: []string{id}}
	if videoKey != "" {
		result.StorageKeys = append(result.StorageKeys, videoKey)
	}

	if result.NoteIDs, result.StorageKeys, err = deleteLessonNotes(ctx, tx, result.LessonIDs, result.StorageKeys); err != nil {
		return nil, err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM lessons WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("delete lesson: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit lesson cascade: %w", err)
	}
	return result, nil
}
