package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/teachhub/teachhub-api/internal/models"
)

// BatchRepository handles persistence for batches, including the batch-level
// cascade that removes the whole content tree and its enrollments.
type BatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository creates a new repository instance.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// List returns batches matching filters with pagination metadata.
func (r *BatchRepository) List(ctx context.Context, filter models.BatchFilter) ([]models.Batch, int, error) {
	base := "FROM batches WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(title) LIKE $%d OR LOWER(description) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	allowedSorts := map[string]bool{
		"title":      true,
		"created_at": true,
		"updated_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, title, description, thumbnail_url, thumbnail_key, instructor_id, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", base, sortBy, order, size, offset)
	var batches []models.Batch
	if err := r.db.SelectContext(ctx, &batches, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list batches: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count batches: %w", err)
	}

	return batches, total, nil
}

// FindByID returns a batch by id.
func (r *BatchRepository) FindByID(ctx context.Context, id string) (*models.Batch, error) {
	const query = `SELECT id, title, description, thumbnail_url, thumbnail_key, instructor_id, created_at, updated_at FROM batches WHERE id = $1`
	var batch models.Batch
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		return nil, err
	}
	return &batch, nil
}

// Create persists a new batch.
func (r *BatchRepository) Create(ctx context.Context, batch *models.Batch) error {
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = now
	}
	batch.UpdatedAt = now

	const query = `INSERT INTO batches (id, title, description, thumbnail_url, thumbnail_key, instructor_id, created_at, updated_at)
        VALUES (:id, :title, :description, :thumbnail_url, :thumbnail_key, :instructor_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("create batch: %w", err)
	}
	return nil
}

// Update modifies a batch.
func (r *BatchRepository) Update(ctx context.Context, batch *models.Batch) error {
	batch.UpdatedAt = time.Now().UTC()
	const query = `UPDATE batches SET title = :title, description = :description, thumbnail_url = :thumbnail_url, thumbnail_key = :thumbnail_key, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	return nil
}

// DeleteCascade removes the batch, its sections, their lessons, the lessons'
// notes and every enrollment referencing the batch inside one transaction.
// Children are deleted before parents. The returned result carries the
// storage keys of removed files so callers can clean up stored objects.
func (r *BatchRepository) DeleteCascade(ctx context.Context, id string) (result *models.CascadeResult, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin batch cascade: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists int
	if err = tx.GetContext(ctx, &exists, `SELECT 1 FROM batches WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("load batch for cascade: %w", err)
	}

	result = &models.CascadeResult{BatchID: id}

	if err = tx.SelectContext(ctx, &result.SectionIDs, `SELECT id FROM sections WHERE batch_id = $1`, id); err != nil {
		return nil, fmt.Errorf("collect sections: %w", err)
	}

	if len(result.SectionIDs) > 0 {
		if result.LessonIDs, result.NoteIDs, result.StorageKeys, err = deleteSectionChildren(ctx, tx, result.SectionIDs); err != nil {
			return nil, err
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM sections WHERE batch_id = $1`, id); err != nil {
			return nil, fmt.Errorf("delete sections: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM enrollments WHERE batch_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("delete enrollments: %w", err)
	}
	if affected, affErr := res.RowsAffected(); affErr == nil {
		result.Enrollments = int(affected)
	}

	var thumbKey string
	if err = tx.GetContext(ctx, &thumbKey, `SELECT COALESCE(thumbnail_key, '') FROM batches WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("load batch thumbnail: %w", err)
	}
	if thumbKey != "" {
		result.StorageKeys = append(result.StorageKeys, thumbKey)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM batches WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("delete batch: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch cascade: %w", err)
	}
	return result, nil
}

// deleteSectionChildren removes lessons and notes under the given sections,
// notes first, and returns the ids and file storage keys of everything removed.
func deleteSectionChildren(ctx context.Context, tx *sqlx.Tx, sectionIDs []string) (lessonIDs, noteIDs, storageKeys []string, err error) {
	query, args, err := sqlx.In(`SELECT id, COALESCE(video_key, '') AS video_key FROM lessons WHERE section_id IN (?)`, sectionIDs)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build lessons query: %w", err)
	}
	query = tx.Rebind(query)

	rows, err := tx.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("collect lessons: %w", err)
	}
	for rows.Next() {
		var lessonID, videoKey string
		if err = rows.Scan(&lessonID, &videoKey); err != nil {
			rows.Close()
			return nil, nil, nil, fmt.Errorf("scan lesson: %w", err)
		}
		lessonIDs = append(lessonIDs, lessonID)
		if videoKey != "" {
			storageKeys = append(storageKeys, videoKey)
		}
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		return nil, nil, nil, fmt.Errorf("iterate lessons: %w", err)
	}
	rows.Close()

	if len(lessonIDs) > 0 {
		noteIDs, storageKeys, err = deleteLessonNotes(ctx, tx, lessonIDs, storageKeys)
		if err != nil {
			return nil, nil, nil, err
		}

		query, args, err = sqlx.In(`DELETE FROM lessons WHERE id IN (?)`, lessonIDs)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("build lessons delete: %w", err)
		}
		if _, err = tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return nil, nil, nil, fmt.Errorf("delete lessons: %w", err)
		}
	}

	return lessonIDs, noteIDs, storageKeys, nil
}

// deleteLessonNotes removes all notes belonging to the given lessons and
// appends their file keys to the provided slice.
func deleteLessonNotes(ctx context.Context, tx *sqlx.Tx, lessonIDs, storageKeys []string) ([]string, []string, error) {
	query, args, err := sqlx.In(`SELECT id, file_key FROM notes WHERE lesson_id IN (?)`, lessonIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("build notes query: %w", err)
	}
	query = tx.Rebind(query)

	var noteIDs []string
	rows, err := tx.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("collect notes: %w", err)
	}
	for rows.Next() {
		var noteID, fileKey string
		if err = rows.Scan(&noteID, &fileKey); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("scan note: %w", err)
		}
		noteIDs = append(noteIDs, noteID)
		if fileKey != "" {
			storageKeys = append(storageKeys, fileKey)
		}
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		return nil, nil, fmt.Errorf("iterate notes: %w", err)
	}
	rows.Close()

	if len(noteIDs) > 0 {
		query, args, err = sqlx.In(`DELETE FROM notes WHERE lesson_id IN (?)`, lessonIDs)
		if err != nil {
			return nil, nil, fmt.Errorf("build notes delete: %w", err)
		}
		if _, err = tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return nil, nil, fmt.Errorf("delete notes: %w", err)
		}
	}

	return noteIDs, storageKeys, nil
}
