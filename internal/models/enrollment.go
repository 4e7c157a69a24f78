package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusPending  EnrollmentStatus = "PENDING"
	EnrollmentStatusApproved EnrollmentStatus = "APPROVED"
	EnrollmentStatusRejected EnrollmentStatus = "REJECTED"
)

// Enrollment links a student to a batch. An APPROVED enrollment is the sole
// authorization credential for content access; at most one record exists per
// (user, batch) pair, enforced by a database unique index.
type Enrollment struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	BatchID   string           `db:"batch_id" json:"batch_id"`
	Status    EnrollmentStatus `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with student and batch info.
type EnrollmentDetail struct {
	Enrollment
	StudentName  string `db:"student_name" json:"student_name"`
	StudentEmail string `db:"student_email" json:"student_email"`
	BatchTitle   string `db:"batch_title" json:"batch_title"`
}

// DirectEnrollRequest lets an admin enroll a student without the approval
// round-trip.
type DirectEnrollRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	BatchID string `json:"batch_id" validate:"required"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	UserID    string
	BatchID   string
	Status    EnrollmentStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
