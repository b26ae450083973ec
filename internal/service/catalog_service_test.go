package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ucampus/portal-academico-api/internal/models"
	appErrors "github.com/ucampus/portal-academico-api/pkg/errors"
)

type stubCacheRepo struct {
	store   map[string][]byte
	deleted []string
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	if s.store == nil {
		return appErrors.ErrCacheMiss
	}
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	s.deleted = append(s.deleted, pattern)
	delete(s.store, pattern)
	return nil
}

type mockCourseRepo struct {
	courses    map[string]*models.Course
	codes      map[string]string
	active     []models.Course
	listCalls  int
	created    *models.Course
	updated    *models.Course
	deactivate []string
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	m.listCalls++
	var list []models.Course
	for _, c := range m.courses {
		list = append(list, *c)
	}
	return list, len(list), nil
}

func (m *mockCourseRepo) ListActive(ctx context.Context) ([]models.Course, error) {
	m.listCalls++
	return m.active, nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error) {
	id, ok := m.codes[code]
	if !ok {
		return false, nil
	}
	return id != excludeID, nil
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if m.courses == nil {
		m.courses = make(map[string]*models.Course)
	}
	if m.codes == nil {
		m.codes = make(map[string]string)
	}
	if course.ID == "" {
		course.ID = "new-course"
	}
	m.courses[course.ID] = course
	m.codes[course.Code] = course.ID
	m.created = course
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	m.courses[course.ID] = course
	m.updated = course
	return nil
}

func (m *mockCourseRepo) SetActive(ctx context.Context, id string, active bool) error {
	if c, ok := m.courses[id]; ok {
		c.Active = active
	}
	m.deactivate = append(m.deactivate, id)
	return nil
}

func newCatalogService(repo *mockCourseRepo, cacheRepo CacheRepository) *CatalogService {
	enabled := cacheRepo != nil
	cacheSvc := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), enabled)
	return NewCatalogService(repo, cacheSvc, nil, validator.New(), zap.NewNop(), time.Minute, 30*time.Minute)
}

func validCreateRequest(t *testing.T) CreateCourseRequest {
	t.Helper()
	return CreateCourseRequest{
		Code:      "mat101",
		Name:      "Matemáticas I",
		Credits:   4,
		Capacity:  30,
		StartTime: mustClock(t, "09:00"),
		EndTime:   mustClock(t, "11:00"),
	}
}

func TestCatalogServiceCreate(t *testing.T) {
	repo := &mockCourseRepo{}
	svc := newCatalogService(repo, nil)

	course, err := svc.Create(context.Background(), validCreateRequest(t))
	require.NoError(t, err)
	assert.Equal(t, "MAT101", course.Code)
	assert.True(t, course.Active)
	require.NotNil(t, repo.created)
}

func TestCatalogServiceCreateDuplicateCode(t *testing.T) {
	repo := &mockCourseRepo{codes: map[string]string{"MAT101": "c1"}}
	svc := newCatalogService(repo, nil)

	_, err := svc.Create(context.Background(), validCreateRequest(t))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateCode.Code, appErrors.FromError(err).Code)
}

func TestCatalogServiceCreateInvalidWindow(t *testing.T) {
	repo := &mockCourseRepo{}
	svc := newCatalogService(repo, nil)

	req := validCreateRequest(t)
	req.StartTime = mustClock(t, "11:00")
	req.EndTime = mustClock(t, "09:00")

	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCatalogServiceCreateNonPositiveCredits(t *testing.T) {
	repo := &mockCourseRepo{}
	svc := newCatalogService(repo, nil)

	req := validCreateRequest(t)
	req.Credits = -1

	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCatalogServiceUpdate(t *testing.T) {
	repo := &mockCourseRepo{
		courses: map[string]*models.Course{"c1": {ID: "c1", Code: "MAT101", Name: "Matemáticas I", Credits: 4, Capacity: 30, StartTime: mustClock(t, "09:00"), EndTime: mustClock(t, "11:00"), Active: true}},
		codes:   map[string]string{"MAT101": "c1"},
	}
	svc := newCatalogService(repo, nil)

	inactive := false
	course, err := svc.Update(context.Background(), "c1", UpdateCourseRequest{
		Code:      "MAT101",
		Name:      "Matemáticas I (Rev)",
		Credits:   5,
		Capacity:  25,
		StartTime: mustClock(t, "09:00"),
		EndTime:   mustClock(t, "11:00"),
		Active:    &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "Matemáticas I (Rev)", course.Name)
	assert.Equal(t, 5, course.Credits)
	assert.False(t, course.Active)
}

func TestCatalogServiceUpdateNotFound(t *testing.T) {
	svc := newCatalogService(&mockCourseRepo{}, nil)

	_, err := svc.Update(context.Background(), "missing", UpdateCourseRequest{
		Code:      "MAT101",
		Name:      "Matemáticas I",
		Credits:   4,
		Capacity:  30,
		StartTime: mustClock(t, "09:00"),
		EndTime:   mustClock(t, "11:00"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCatalogServiceDeactivate(t *testing.T) {
	repo := &mockCourseRepo{
		courses: map[string]*models.Course{"c1": {ID: "c1", Code: "MAT101", Active: true}},
	}
	svc := newCatalogService(repo, nil)

	course, err := svc.Deactivate(context.Background(), "c1")
	require.NoError(t, err)
	assert.False(t, course.Active)
	assert.Contains(t, repo.deactivate, "c1")
}

func TestCatalogServiceListActiveCachesListing(t *testing.T) {
	repo := &mockCourseRepo{active: []models.Course{{ID: "c1", Code: "MAT101", Active: true}}}
	cacheRepo := &stubCacheRepo{}
	svc := newCatalogService(repo, cacheRepo)

	courses, hit, err := svc.ListActive(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, courses, 1)
	assert.Equal(t, 1, repo.listCalls)

	courses, hit, err = svc.ListActive(context.Background())
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Len(t, courses, 1)
	assert.Equal(t, 1, repo.listCalls)
}

func TestCatalogServiceMutationsInvalidateListing(t *testing.T) {
	repo := &mockCourseRepo{}
	cacheRepo := &stubCacheRepo{}
	svc := newCatalogService(repo, cacheRepo)

	_, err := svc.Create(context.Background(), validCreateRequest(t))
	require.NoError(t, err)
	assert.Contains(t, cacheRepo.deleted, "courses:active")
}

func TestCatalogServiceGetRecordsRecentForStudents(t *testing.T) {
	repo := &mockCourseRepo{
		courses: map[string]*models.Course{"c1": {ID: "c1", Code: "MAT101", Active: true}},
	}
	cacheRepo := &stubCacheRepo{}
	svc := newCatalogService(repo, cacheRepo)

	viewer := &models.JWTClaims{UserID: "s1", Role: models.RoleStudent}
	_, err := svc.Get(context.Background(), "c1", viewer)
	require.NoError(t, err)

	recent, err := svc.Recent(context.Background(), viewer)
	require.NoError(t, err)
	assert.Equal(t, "c1", recent.ID)
}

func TestCatalogServiceGetSkipsRecentForCoordinators(t *testing.T) {
	repo := &mockCourseRepo{
		courses: map[string]*models.Course{"c1": {ID: "c1", Code: "MAT101", Active: true}},
	}
	cacheRepo := &stubCacheRepo{}
	svc := newCatalogService(repo, cacheRepo)

	viewer := &models.JWTClaims{UserID: "u1", Role: models.RoleCoordinator}
	_, err := svc.Get(context.Background(), "c1", viewer)
	require.NoError(t, err)

	_, err = svc.Recent(context.Background(), viewer)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCatalogServiceRecentWithoutHistory(t *testing.T) {
	svc := newCatalogService(&mockCourseRepo{}, &stubCacheRepo{})

	_, err := svc.Recent(context.Background(), &models.JWTClaims{UserID: "s1", Role: models.RoleStudent})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCatalogServiceGetNotFound(t *testing.T) {
	svc := newCatalogService(&mockCourseRepo{}, nil)

	_, err := svc.Get(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCatalogServiceListObservesQueryTiming(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]*models.Course{"c1": mathCourse(t)}}
	metrics := NewMetricsService()
	cacheSvc := NewCacheService(nil, nil, time.Minute, zap.NewNop(), false)
	svc := NewCatalogService(repo, cacheSvc, metrics, validator.New(), zap.NewNop(), time.Minute, 30*time.Minute)

	_, _, err := svc.List(context.Background(), models.CourseFilter{})
	require.NoError(t, err)

	_, _, err = svc.ListActive(context.Background())
	require.NoError(t, err)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(2), snapshot.DBQueryCount)
}
