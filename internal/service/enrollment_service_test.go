package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ucampus/portal-academico-api/internal/models"
	appErrors "github.com/ucampus/portal-academico-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	enrollments map[string]models.Enrollment
	confirmed   int
	held        []models.EnrollmentDetail
	createErr   error
	created     *models.Enrollment
	status      map[string]models.EnrollmentStatus
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	return nil, 0, nil
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if e, ok := m.enrollments[id]; ok {
		return &models.EnrollmentDetail{Enrollment: e}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) Exists(ctx context.Context, courseID, studentID string) (bool, error) {
	for _, e := range m.enrollments {
		if e.CourseID == courseID && e.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockEnrollmentRepo) CountConfirmed(ctx context.Context, courseID string) (int, error) {
	return m.confirmed, nil
}

func (m *mockEnrollmentRepo) ListConfirmedByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	return m.held, nil
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.enrollments == nil {
		m.enrollments = make(map[string]models.Enrollment)
	}
	if enrollment.ID == "" {
		enrollment.ID = "new-enroll"
	}
	m.enrollments[enrollment.ID] = *enrollment
	m.created = enrollment
	return nil
}

func (m *mockEnrollmentRepo) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	if m.status == nil {
		m.status = make(map[string]models.EnrollmentStatus)
	}
	m.status[id] = status
	if e, ok := m.enrollments[id]; ok {
		e.Status = status
		m.enrollments[id] = e
	}
	return nil
}

type mockCourseReader struct {
	courses map[string]*models.Course
}

func (m *mockCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func mustClock(t *testing.T, value string) models.ClockMinutes {
	t.Helper()
	cm, err := models.ParseClock(value)
	require.NoError(t, err)
	return cm
}

func mathCourse(t *testing.T) *models.Course {
	t.Helper()
	return &models.Course{
		ID:        "c1",
		Code:      "MAT101",
		Name:      "Matemáticas I",
		Credits:   4,
		Capacity:  30,
		StartTime: mustClock(t, "09:00"),
		EndTime:   mustClock(t, "11:00"),
		Active:    true,
	}
}

func TestEnrollmentServiceEnroll(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	courses := &mockCourseReader{courses: map[string]*models.Course{"c1": mathCourse(t)}}
	svc := NewEnrollmentService(repo, courses, nil, validator.New(), zap.NewNop())

	detail, err := svc.Enroll(context.Background(), EnrollRequest{CourseID: "c1"}, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusPending, detail.Status)
	require.NotNil(t, repo.created)
	assert.Equal(t, "c1", repo.created.CourseID)
	assert.Equal(t, "s1", repo.created.StudentID)
	assert.False(t, repo.created.RegisteredAt.IsZero())
}

func TestEnrollmentServiceEnrollCourseNotFound(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	courses := &mockCourseReader{}
	svc := NewEnrollmentService(repo, courses, nil, validator.New(), zap.NewNop())

	_, err := svc.Enroll(context.Background(), EnrollRequest{CourseID: "missing"}, "s1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceEnrollMissingStudent(t *testing.T) {
	svc := NewEnrollmentService(&mockEnrollmentRepo{}, &mockCourseReader{}, nil, validator.New(), zap.NewNop())

	_, err := svc.Enroll(context.Background(), EnrollRequest{CourseID: "c1"}, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceEnrollAlreadyEnrolled(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"e1": {ID: "e1", CourseID: "c1", StudentID: "s1", Status: models.EnrollmentStatusPending},
	}}
	courses := &mockCourseReader{courses: map[string]*models.Course{"c1": mathCourse(t)}}
	svc := NewEnrollmentService(repo, courses, nil, validator.New(), zap.NewNop())

	_, err := svc.Enroll(context.Background(), EnrollRequest{CourseID: "c1"}, "s1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyEnrolled.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceEnrollCancelledStillBlocks(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"e1": {ID: "e1", CourseID: "c1", StudentID: "s1", Status: models.EnrollmentStatusCancelled},
	}}
	courses := &mockCourseReader{courses: map[string]*models.Course{"c1": mathCourse(t)}}
	svc := NewEnrollmentService(repo, courses, nil, validator.New(), zap.NewNop())

	_, err := svc.Enroll(context.Background(), EnrollRequest{CourseID: "c1"}, "s1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyEnrolled.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceEnrollCapacityExceeded(t *testing.T) {
	course := mathCourse(t)
	course.Capacity = 2
	repo := &mockEnrollmentRepo{confirmed: 2}
	courses := &mockCourseReader{courses: map[string]*models.Course{"c1": course}}
	svc := NewEnrollmentService(repo, courses, nil, validator.New(), zap.NewNop())

	_, err := svc.Enroll(context.Background(), EnrollRequest{CourseID: "c1"}, "s1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCapacityExceeded.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceEnrollLastSeat(t *testing.T) {
	course := mathCourse(t)
	course.Capacity = 2
	repo := &mockEnrollmentRepo{confirmed: 1}
	courses := &mockCourseReader{courses: map[string]*models.Course{"c1": course}}
	svc := NewEnrollmentService(repo, courses, nil, validator.New(), zap.NewNop())

	detail, err := svc.Enroll(context.Background(), EnrollRequest{CourseID: "c1"}, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusPending, detail.Status)
}

func TestEnrollmentServiceEnrollScheduleConflict(t *testing.T) {
	repo := &mockEnrollmentRepo{held: []models.EnrollmentDetail{
		{
			Enrollment:  models.Enrollment{ID: "e9", CourseID: "c9", StudentID: "s1", Status: models.EnrollmentStatusConfirmed},
			CourseStart: mustClock(t, "10:00"),
			CourseEnd:   mustClock(t, "12:00"),
		},
	}}
	courses := &mockCourseReader{courses: map[string]*models.Course{"c1": mathCourse(t)}}
	svc := NewEnrollmentService(repo, courses, nil, validator.New(), zap.NewNop())

	_, err := svc.Enroll(context.Background(), EnrollRequest{CourseID: "c1"}, "s1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrScheduleConflict.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceEnrollTouchingSlotsAllowed(t *testing.T) {
	// Held course ends exactly when the new one starts.
	repo := &mockEnrollmentRepo{held: []models.EnrollmentDetail{
		{
			Enrollment:  models.Enrollment{ID: "e9", CourseID: "c9", StudentID: "s1", Status: models.EnrollmentStatusConfirmed},
			CourseStart: mustClock(t, "07:00"),
			CourseEnd:   mustClock(t, "09:00"),
		},
	}}
	courses := &mockCourseReader{courses: map[string]*models.Course{"c1": mathCourse(t)}}
	svc := NewEnrollmentService(repo, courses, nil, validator.New(), zap.NewNop())

	detail, err := svc.Enroll(context.Background(), EnrollRequest{CourseID: "c1"}, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusPending, detail.Status)
}

func TestEnrollmentServiceEnrollPriorAttemptBeatsCapacity(t *testing.T) {
	course := mathCourse(t)
	course.Capacity = 1
	repo := &mockEnrollmentRepo{
		confirmed: 1,
		enrollments: map[string]models.Enrollment{
			"e1": {ID: "e1", CourseID: "c1", StudentID: "s1", Status: models.EnrollmentStatusConfirmed},
		},
	}
	courses := &mockCourseReader{courses: map[string]*models.Course{"c1": course}}
	svc := NewEnrollmentService(repo, courses, nil, validator.New(), zap.NewNop())

	_, err := svc.Enroll(context.Background(), EnrollRequest{CourseID: "c1"}, "s1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyEnrolled.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceEnrollUniqueViolation(t *testing.T) {
	repo := &mockEnrollmentRepo{createErr: &pq.Error{Code: "23505"}}
	courses := &mockCourseReader{courses: map[string]*models.Course{"c1": mathCourse(t)}}
	svc := NewEnrollmentService(repo, courses, nil, validator.New(), zap.NewNop())

	_, err := svc.Enroll(context.Background(), EnrollRequest{CourseID: "c1"}, "s1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyEnrolled.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceConfirm(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"e1": {ID: "e1", CourseID: "c1", StudentID: "s1", Status: models.EnrollmentStatusPending, RegisteredAt: time.Now()},
	}}
	svc := NewEnrollmentService(repo, &mockCourseReader{}, nil, validator.New(), zap.NewNop())

	detail, err := svc.Confirm(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusConfirmed, detail.Status)
	assert.Equal(t, models.EnrollmentStatusConfirmed, repo.status["e1"])
}

func TestEnrollmentServiceCancel(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"e1": {ID: "e1", CourseID: "c1", StudentID: "s1", Status: models.EnrollmentStatusPending, RegisteredAt: time.Now()},
	}}
	svc := NewEnrollmentService(repo, &mockCourseReader{}, nil, validator.New(), zap.NewNop())

	detail, err := svc.Cancel(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCancelled, detail.Status)
	assert.Equal(t, models.EnrollmentStatusCancelled, repo.status["e1"])
}

func TestEnrollmentServiceConfirmNotFound(t *testing.T) {
	svc := NewEnrollmentService(&mockEnrollmentRepo{}, &mockCourseReader{}, nil, validator.New(), zap.NewNop())

	_, err := svc.Confirm(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceEnrollObservesQueryTiming(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	courses := &mockCourseReader{courses: map[string]*models.Course{"c1": mathCourse(t)}}
	metrics := NewMetricsService()
	svc := NewEnrollmentService(repo, courses, metrics, validator.New(), zap.NewNop())

	_, err := svc.Enroll(context.Background(), EnrollRequest{CourseID: "c1"}, "s1")
	require.NoError(t, err)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(2), snapshot.DBQueryCount)
}
