package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/teachhub/teachhub-api/internal/models"
)

// NoteRepository handles persistence for lesson notes.
type NoteRepository struct {
	db *sqlx.DB
}

// NewNoteRepository constructs the repository.
func NewNoteRepository(db *sqlx.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// ListByLesson returns the lesson's notes, newest first.
func (r *NoteRepository) ListByLesson(ctx context.Context, lessonID string) ([]models.Note, error) {
	const query = `SELECT id, lesson_id, title, description, file_url, file_key, created_at, updated_at FROM notes WHERE lesson_id = $1 ORDER BY created_at DESC`
	var notes []models.Note
	if err := r.db.SelectContext(ctx, &notes, query, lessonID); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

// FindByID returns a note by id.
func (r *NoteRepository) FindByID(ctx context.Context, id string) (*models.Note, error) {
	const query = `SELECT id, lesson_id, title, description, file_url, file_key, created_at, updated_at FROM notes WHERE id = $1`
	var note models.Note
	if err := r.db.GetContext(ctx, &note, query, id); err != nil {
		return nil, err
	}
	return &note, nil
}

// Create persists a new note.
func (r *NoteRepository) Create(ctx context.Context, note *models.Note) error {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}
	note.UpdatedAt = now

	const query = `INSERT INTO notes (id, lesson_id, title, description, file_url, file_key, created_at, updated_at)
        VALUES (:id, :lesson_id, :title, :description, :file_url, :file_key, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, note); err != nil {
		return fmt.Errorf("create note: %w", err)
	}
	return nil
}

// Update modifies a note.
func (r *NoteRepository) Update(ctx context.Context, note *models.Note) error {
	note.UpdatedAt = time.Now().UTC()
	const query = `UPDATE notes SET title = :title, description = :description, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, note); err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	return nil
}

// Delete removes a note record. Notes are leaves, so no cascade applies.
func (r *NoteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}
