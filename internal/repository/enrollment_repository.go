package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/teachhub/teachhub-api/internal/models"
)

// ErrDuplicateEnrollment is returned when the unique (user, batch) index
// rejects a second enrollment for the same pair.
var ErrDuplicateEnrollment = errors.New("enrollment already exists for user and batch")

const pqUniqueViolation = "23505"

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
LEFT JOIN users u ON u.id = e.user_id
LEFT JOIN batches b ON b.id = e.batch_id`
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("e.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.BatchID != "" {
		conditions = append(conditions, fmt.Sprintf("e.batch_id = $%d", len(args)+1))
		args = append(args, filter.BatchID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at":   "e.created_at",
		"student_name": "u.full_name",
		"batch_title":  "b.title",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "e.created_at"
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

	query := fmt.Sprintf(`SELECT e.id, e.user_id, e.batch_id, e.status, e.created_at, e.updated_at,
        u.full_name AS student_name, u.email AS student_email, b.title AS batch_title
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, user_id, batch_id, status, created_at, updated_at FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindByUserAndBatch returns the enrollment for the pair, any status.
func (r *EnrollmentRepository) FindByUserAndBatch(ctx context.Context, userID, batchID string) (*models.Enrollment, error) {
	const query = `SELECT id, user_id, batch_id, status, created_at, updated_at FROM enrollments WHERE user_id = $1 AND batch_id = $2 LIMIT 1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, userID, batchID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ExistsApproved reports whether the pair has an APPROVED enrollment. This
// is the access gate predicate for non-admin readers.
func (r *EnrollmentRepository) ExistsApproved(ctx context.Context, userID, batchID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE user_id = $1 AND batch_id = $2 AND status = $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, userID, batchID, models.EnrollmentStatusApproved); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check approved enrollment: %w", err)
	}
	return true, nil
}

// Create persists a new enrollment record. Duplicate (user, batch) pairs are
// rejected by the store's unique index and surface as ErrDuplicateEnrollment.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusPending
	}

	const query = `INSERT INTO enrollments (id, user_id, batch_id, status, created_at, updated_at)
        VALUES (:id, :user_id, :batch_id, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return ErrDuplicateEnrollment
		}
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateStatus overwrites the status for an enrollment.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	const query = `UPDATE enrollments SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}

// DeleteByUserAndBatch removes the enrollment for the pair, reporting
// whether a record was actually deleted.
func (r *EnrollmentRepository) DeleteByUserAndBatch(ctx context.Context, userID, batchID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE user_id = $1 AND batch_id = $2`, userID, batchID)
	if err != nil {
		return false, fmt.Errorf("delete enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete enrollment result: %w", err)
	}
	return affected > 0, nil
}

// ListApprovedByBatch returns the approved enrollments for a batch. This is
// the recipient set for notification fan-out and roster exports.
func (r *EnrollmentRepository) ListApprovedByBatch(ctx context.Context, batchID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.user_id, e.batch_id, e.status, e.created_at, e.updated_at,
        u.full_name AS student_name, u.email AS student_email, b.title AS batch_title
        FROM enrollments e
        LEFT JOIN users u ON u.id = e.user_id
        LEFT JOIN batches b ON b.id = e.batch_id
        WHERE e.batch_id = $1 AND e.status = $2
        ORDER BY u.full_name ASC`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, batchID, models.EnrollmentStatusApproved); err != nil {
		return nil, fmt.Errorf("list approved enrollments: %w", err)
	}
	return enrollments, nil
}

// CountByBatch counts enrollments for a batch, optionally by status.
func (r *EnrollmentRepository) CountByBatch(ctx context.Context, batchID string, status models.EnrollmentStatus) (int, error) {
	query := `SELECT COUNT(*) FROM enrollments WHERE batch_id = $1`
	args := []interface{}{batchID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return count, nil
}
