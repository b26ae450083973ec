package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ucampus/portal-academico-api/internal/models"
	appErrors "github.com/ucampus/portal-academico-api/pkg/errors"
	"github.com/ucampus/portal-academico-api/pkg/export"
)

type rosterReader interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error)
}

// RosterExport holds the rendered roster document.
type RosterExport struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ExportService renders course rosters into downloadable documents.
type ExportService struct {
	courses     courseReader
	enrollments rosterReader
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(courses courseReader, enrollments rosterReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		courses:     courses,
		enrollments: enrollments,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
	}
}

// Roster renders the enrollment roster for a course as CSV or PDF.
func (s *ExportService) Roster(ctx context.Context, courseID, format string) (*RosterExport, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	enrollments, err := s.enrollments.ListByCourse(ctx, course.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	rows := make([]export.RosterRow, 0, len(enrollments))
	for _, e := range enrollments {
		rows = append(rows, export.RosterRow{
			Student:      e.StudentID,
			Status:       string(e.Status),
			RegisteredAt: e.RegisteredAt.UTC().Format("2006-01-02 15:04"),
		})
	}

	var content []byte
	var contentType string
	switch format {
	case "pdf":
		title := fmt.Sprintf("%s %s", course.Code, course.Name)
		content, err = s.pdf.Render(rows, title)
		contentType = "application/pdf"
	default:
		content, err = s.csv.Render(rows)
		contentType = "text/csv"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}

	return &RosterExport{
		FileName:    fmt.Sprintf("roster_%s.%s", strings.ToLower(course.Code), format),
		ContentType: contentType,
		Content:     content,
	}, nil
}
