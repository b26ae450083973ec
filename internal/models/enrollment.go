package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses. PENDING transitions to CONFIRMED or
// CANCELLED; both are terminal.
const (
	EnrollmentStatusPending   EnrollmentStatus = "PENDING"
	EnrollmentStatusConfirmed EnrollmentStatus = "CONFIRMED"
	EnrollmentStatusCancelled EnrollmentStatus = "CANCELLED"
)

// Enrollment captures one student's attempt to take one course. At most one
// record ever exists per (course, student) pair, regardless of status.
type Enrollment struct {
	ID           string           `db:"id" json:"id"`
	CourseID     string           `db:"course_id" json:"course_id"`
	StudentID    string           `db:"student_id" json:"student_id"`
	RegisteredAt time.Time        `db:"registered_at" json:"registered_at"`
	Status       EnrollmentStatus `db:"status" json:"status"`
}

// EnrollmentDetail enriches Enrollment with course info.
type EnrollmentDetail struct {
	Enrollment
	CourseCode  string       `db:"course_code" json:"course_code"`
	CourseName  string       `db:"course_name" json:"course_name"`
	CourseStart ClockMinutes `db:"course_start" json:"course_start"`
	CourseEnd   ClockMinutes `db:"course_end" json:"course_end"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	CourseID  string
	StudentID string
	Status    EnrollmentStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
