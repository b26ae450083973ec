package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ucampus/portal-academico-api/internal/models"
	"github.com/ucampus/portal-academico-api/pkg/database"
	appErrors "github.com/ucampus/portal-academico-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	Exists(ctx context.Context, courseID, studentID string) (bool, error)
	CountConfirmed(ctx context.Context, courseID string) (int, error)
	ListConfirmedByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// EnrollRequest describes an enrollment attempt payload.
type EnrollRequest struct {
	CourseID string `json:"course_id" validate:"required"`
}

// EnrollmentService decides admission for enrollment attempts and manages
// the enrollment lifecycle.
type EnrollmentService struct {
	repo      enrollmentRepository
	courses   courseReader
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, courses courseReader, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, courses: courses, metrics: metrics, validator: validate, logger: logger}
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	start := time.Now()
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	s.metrics.ObserveQuery("enrollment_list", time.Since(start))
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return enrollments, pagination, nil
}

// Enroll runs the admission checks for (course, student) and creates a
// pending enrollment when all of them pass. Check order is part of the
// contract: missing course, prior attempt, capacity, schedule overlap.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest, studentID string) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing student identity")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	// Status-blind: a cancelled attempt still blocks re-enrollment.
	exists, err := s.repo.Exists(ctx, course.ID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check prior enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolled, "")
	}

	start := time.Now()
	confirmed, err := s.repo.CountConfirmed(ctx, course.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count confirmed enrollments")
	}
	s.metrics.ObserveQuery("enrollment_capacity", time.Since(start))
	if confirmed >= course.Capacity {
		return nil, appErrors.Clone(appErrors.ErrCapacityExceeded, "")
	}

	start = time.Now()
	held, err := s.repo.ListConfirmedByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student schedule")
	}
	s.metrics.ObserveQuery("enrollment_schedule", time.Since(start))
	for _, other := range held {
		if course.Overlaps(other.CourseStart, other.CourseEnd) {
			return nil, appErrors.Clone(appErrors.ErrScheduleConflict, "")
		}
	}

	enrollment := &models.Enrollment{
		CourseID:     course.ID,
		StudentID:    studentID,
		RegisteredAt: time.Now().UTC(),
		Status:       models.EnrollmentStatusPending,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		// Two concurrent first attempts can both pass the existence check;
		// the unique constraint on (course_id, student_id) settles the race.
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolled, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	detail, err := s.repo.FindDetailByID(ctx, enrollment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// Confirm marks an enrollment as confirmed. Capacity and overlap are not
// re-validated at confirmation time.
func (s *EnrollmentService) Confirm(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	return s.transition(ctx, id, models.EnrollmentStatusConfirmed)
}

// Cancel marks an enrollment as cancelled. The (course, student) slot stays
// taken; the student cannot re-enroll in the same course.
func (s *EnrollmentService) Cancel(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	return s.transition(ctx, id, models.EnrollmentStatusCancelled)
}

func (s *EnrollmentService) transition(ctx context.Context, id string, status models.EnrollmentStatus) (*models.EnrollmentDetail, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment status")
	}
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}
