package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ucampus/portal-academico-api/internal/middleware"
	"github.com/ucampus/portal-academico-api/internal/models"
	"github.com/ucampus/portal-academico-api/internal/service"
	appErrors "github.com/ucampus/portal-academico-api/pkg/errors"
	"github.com/ucampus/portal-academico-api/pkg/response"
)

// CourseHandler exposes course catalog endpoints.
type CourseHandler struct {
	catalog *service.CatalogService
	exports *service.ExportService
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(catalog *service.CatalogService, exports *service.ExportService) *CourseHandler {
	return &CourseHandler{catalog: catalog, exports: exports}
}

// List godoc
// @Summary List courses
// @Tags Courses
// @Produce json
// @Param search query string false "Name contains"
// @Param min_credits query int false "Minimum credits"
// @Param max_credits query int false "Maximum credits"
// @Param starts_after query string false "Earliest start (HH:MM)"
// @Param ends_before query string false "Latest end (HH:MM)"
// @Param include_inactive query bool false "Coordinators only"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	// The plain unfiltered listing is the hot path and served from cache.
	if c.Request.URL.RawQuery == "" {
		courses, hit, err := h.catalog.ListActive(c.Request.Context())
		if err != nil {
			response.Error(c, err)
			return
		}
		middleware.SetCacheHit(c, hit)
		response.JSON(c, http.StatusOK, courses, nil, middleware.ExtractMeta(c))
		return
	}

	var filter models.CourseFilter
	filter.Search = c.Query("search")
	if v, err := strconv.Atoi(c.DefaultQuery("min_credits", "0")); err == nil {
		filter.MinCredits = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("max_credits", "0")); err == nil {
		filter.MaxCredits = v
	}
	if raw := c.Query("starts_after"); raw != "" {
		parsed, err := models.ParseClock(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid starts_after"))
			return
		}
		filter.StartsAfter = &parsed
	}
	if raw := c.Query("ends_before"); raw != "" {
		parsed, err := models.ParseClock(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid ends_before"))
			return
		}
		filter.EndsBefore = &parsed
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	// Inactive courses stay hidden from students.
	if c.Query("include_inactive") == "true" {
		if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleCoordinator {
			filter.IncludeInactive = true
		}
	}

	courses, pagination, err := h.catalog.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, pagination)
}

// Get godoc
// @Summary Get course detail
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.catalog.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Recent godoc
// @Summary Get the caller's most recently viewed course
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /courses/recent [get]
func (h *CourseHandler) Recent(c *gin.Context) {
	course, err := h.catalog.Recent(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Create godoc
// @Summary Create course
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body service.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req service.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.catalog.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary Update course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.UpdateCourseRequest true "Course payload"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	var req service.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.catalog.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Deactivate godoc
// @Summary Deactivate course
// @Tags Courses
// @Param id path string true "Course ID"
// @Success 204
// @Router /courses/{id} [delete]
func (h *CourseHandler) Deactivate(c *gin.Context) {
	if _, err := h.catalog.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ExportRoster godoc
// @Summary Export course roster
// @Tags Courses
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Course ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /courses/{id}/roster/export [get]
func (h *CourseHandler) ExportRoster(c *gin.Context) {
	roster, err := h.exports.Roster(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+roster.FileName+`"`)
	c.Data(http.StatusOK, roster.ContentType, roster.Content)
}
