package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ucampus/portal-academico-api/internal/models"
	"github.com/ucampus/portal-academico-api/pkg/database"
	appErrors "github.com/ucampus/portal-academico-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	ListActive(ctx context.Context) ([]models.Course, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	SetActive(ctx context.Context, id string, active bool) error
}

const (
	activeListingCacheKey = "courses:active"
	recentCourseKeyPrefix = "courses:recent:"
)

// CreateCourseRequest captures fields for creating a course.
type CreateCourseRequest struct {
	Code      string              `json:"code" validate:"required,max=50"`
	Name      string              `json:"name" validate:"required,max=200"`
	Credits   int                 `json:"credits" validate:"required"`
	Capacity  int                 `json:"capacity" validate:"required"`
	StartTime models.ClockMinutes `json:"start_time"`
	EndTime   models.ClockMinutes `json:"end_time"`
}

// UpdateCourseRequest modifies course fields.
type UpdateCourseRequest struct {
	Code      string              `json:"code" validate:"required,max=50"`
	Name      string              `json:"name" validate:"required,max=200"`
	Credits   int                 `json:"credits" validate:"required"`
	Capacity  int                 `json:"capacity" validate:"required"`
	StartTime models.ClockMinutes `json:"start_time"`
	EndTime   models.ClockMinutes `json:"end_time"`
	Active    *bool               `json:"active"`
}

// CatalogService handles course catalog workflows and the short-lived
// active-listing cache.
type CatalogService struct {
	repo       courseRepository
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	listingTTL time.Duration
	recentTTL  time.Duration
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(repo courseRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, listingTTL, recentTTL time.Duration) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if listingTTL <= 0 {
		listingTTL = 60 * time.Second
	}
	if recentTTL <= 0 {
		recentTTL = 30 * time.Minute
	}
	return &CatalogService{repo: repo, cache: cache, metrics: metrics, validator: validate, logger: logger, listingTTL: listingTTL, recentTTL: recentTTL}
}

// List returns courses matching the filter with pagination metadata.
// Student-facing callers keep IncludeInactive unset.
func (s *CatalogService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	start := time.Now()
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	s.metrics.ObserveQuery("course_list", time.Since(start))
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return courses, pagination, nil
}

// ListActive returns the plain active-course listing, memoized for the
// configured TTL. The second return reports a cache hit. Works without a
// cache backend, just slower.
func (s *CatalogService) ListActive(ctx context.Context) ([]models.Course, bool, error) {
	var cached []models.Course
	if hit, err := s.cache.Get(ctx, activeListingCacheKey, &cached); err == nil && hit {
		return cached, true, nil
	}

	start := time.Now()
	courses, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active courses")
	}
	s.metrics.ObserveQuery("course_list_active", time.Since(start))
	_ = s.cache.Set(ctx, activeListingCacheKey, courses, s.listingTTL)
	return courses, false, nil
}

// Get returns a course by identifier. When a student views the course it is
// remembered as their most recently viewed one.
func (s *CatalogService) Get(ctx context.Context, id string, viewer *models.JWTClaims) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if viewer != nil && viewer.Role == models.RoleStudent && viewer.UserID != "" {
		_ = s.cache.Set(ctx, recentCourseKeyPrefix+viewer.UserID, course.ID, s.recentTTL)
	}
	return course, nil
}

// Recent returns the viewer's most recently viewed course, if any.
func (s *CatalogService) Recent(ctx context.Context, viewer *models.JWTClaims) (*models.Course, error) {
	if viewer == nil || viewer.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing caller identity")
	}
	var courseID string
	hit, err := s.cache.Get(ctx, recentCourseKeyPrefix+viewer.UserID, &courseID)
	if err != nil || !hit || courseID == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no recently viewed course")
	}
	course, err := s.repo.FindByID(ctx, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no recently viewed course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create adds a new course ensuring code uniqueness and window ordering.
func (s *CatalogService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if err := validateCourseDefinition(req.Credits, req.Capacity, req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))

	exists, err := s.repo.ExistsByCode(ctx, req.Code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateCode, "")
	}

	course := &models.Course{
		Code:      req.Code,
		Name:      req.Name,
		Credits:   req.Credits,
		Capacity:  req.Capacity,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Active:    true,
	}

	if err := s.repo.Create(ctx, course); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateCode, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.invalidateListing(ctx)
	return course, nil
}

// Update modifies an existing course.
func (s *CatalogService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if err := validateCourseDefinition(req.Credits, req.Capacity, req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))

	exists, err := s.repo.ExistsByCode(ctx, req.Code, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateCode, "")
	}

	course.Code = req.Code
	course.Name = req.Name
	course.Credits = req.Credits
	course.Capacity = req.Capacity
	course.StartTime = req.StartTime
	course.EndTime = req.EndTime
	if req.Active != nil {
		course.Active = *req.Active
	}

	if err := s.repo.Update(ctx, course); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateCode, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	s.invalidateListing(ctx)
	return course, nil
}

// Deactivate drops the course from student-facing listings. Historical
// enrollments stay untouched.
func (s *CatalogService) Deactivate(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate course")
	}
	course.Active = false
	s.invalidateListing(ctx)
	return course, nil
}

func (s *CatalogService) invalidateListing(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, activeListingCacheKey); err != nil {
		s.logger.Warn("failed to invalidate course listing cache", zap.Error(err))
	}
}

func validateCourseDefinition(credits, capacity int, start, end models.ClockMinutes) error {
	if credits <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "credits must be greater than zero")
	}
	if capacity <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "capacity must be greater than zero")
	}
	if !start.Valid() || !end.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "time window must fall within a single day")
	}
	if start >= end {
		return appErrors.Clone(appErrors.ErrValidation, "start time must precede end time")
	}
	return nil
}
