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

// SectionRepository handles persistence for sections.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// ListByBatch returns the batch's sections sorted ascending by position.
func (r *SectionRepository) ListByBatch(ctx context.Context, batchID string) ([]models.Section, error) {
	const query = `SELECT id, batch_id, title, position, created_at, updated_at FROM sections WHERE batch_id = $1 ORDER BY position ASC`
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query, batchID); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}

// FindByID returns a section by id.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.Section, error) {
	const query = `SELECT id, batch_id, title, position, created_at, updated_at FROM sections WHERE id = $1`
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// CountByBatch returns the number of sections under a batch. Used to
// auto-assign the position of a new section as the current sibling count.
func (r *SectionRepository) CountByBatch(ctx context.Context, batchID string) (int, error) {
	const query = `SELECT COUNT(*) FROM sections WHERE batch_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, batchID); err != nil {
		return 0, fmt.Errorf("count sections: %w", err)
	}
	return count, nil
}

// Create persists a new section.
func (r *SectionRepository) Create(ctx context.Context, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if section.CreatedAt.IsZero() {
		section.CreatedAt = now
	}
	section.UpdatedAt = now

	const query = `INSERT INTO sections (id, batch_id, title, position, created_at, updated_at)
        VALUES (:id, :batch_id, :title, :position, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// Update modifies a section.
func (r *SectionRepository) Update(ctx context.Context, section *models.Section) error {
	section.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sections SET title = :title, position = :position, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("update section: %w", err)
	}
	return nil
}

// DeleteCascade removes the section, its lessons and their notes inside one
// transaction, children first. Enrollments are batch-scoped and untouched.
func (r *SectionRepository) DeleteCascade(ctx context.Context, id string) (result *models.CascadeResult, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin section cascade: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists int
	if err = tx.GetContext(ctx, &exists, `SELECT 1 FROM sections WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("load section for cascade: %w", err)
	}

	result = &models.CascadeResult{SectionIDs: []string{id}}
	if result.LessonIDs, result.NoteIDs, result.StorageKeys, err = deleteSectionChildren(ctx, tx, result.SectionIDs); err != nil {
		return nil, err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM sections WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("delete section: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit section cascade: %w", err)
	}
	return result, nil
}
