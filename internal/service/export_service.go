package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/mentor-assessment-api/internal/dto"
	"github.com/noah-isme/mentor-assessment-api/internal/models"
	appErrors "github.com/noah-isme/mentor-assessment-api/pkg/errors"
	"github.com/noah-isme/mentor-assessment-api/pkg/export"
)

const (
	exportPageSize = 200
	exportMaxRows  = 10000
)

type applicationLister interface {
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.MentorApplication, int, error)
}

var applicationExportHeaders = []string{
	"ID", "Name", "Email", "Specialization", "Experience", "Status", "Attempts", "Final Score", "Retry Allowed At", "Applied At",
}

// ExportFile is a rendered export ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders reviewer application listings to CSV or PDF.
type ExportService struct {
	repo   applicationLister
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs the service.
func NewExportService(repo applicationLister, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{repo: repo, logger: logger, now: time.Now}
}

// Applications renders every application matching query.
func (s *ExportService) Applications(ctx context.Context, format string, query dto.ApplicationQuery) (*ExportFile, error) {
	f := export.Format(strings.ToLower(strings.TrimSpace(format)))
	if f == "" {
		f = export.FormatCSV
	}
	if f != export.FormatCSV && f != export.FormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	filter := models.ApplicationFilter{
		Status:         query.Status,
		Specialization: query.Specialization,
		Search:         strings.TrimSpace(query.Search),
		PageSize:       exportPageSize,
	}
	dataset := export.Dataset{Title: "Mentor Applications", Headers: applicationExportHeaders}
	for page := 1; ; page++ {
		filter.Page = page
		apps, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
		}
		for _, app := range apps {
			dataset.Rows = append(dataset.Rows, applicationRow(app))
		}
		if len(apps) < exportPageSize || page*exportPageSize >= total || len(dataset.Rows) >= exportMaxRows {
			break
		}
	}

	body, err := export.Render(f, dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.logger.Info("applications exported", zap.String("format", string(f)), zap.Int("rows", len(dataset.Rows)))
	return &ExportFile{
		Filename:    fmt.Sprintf("mentor-applications-%s.%s", s.now().UTC().Format("20060102-150405"), f),
		ContentType: f.ContentType(),
		Body:        body,
	}, nil
}

func applicationRow(app models.MentorApplication) map[string]string {
	score := ""
	if app.FinalScore != nil {
		score = strconv.FormatFloat(*app.FinalScore, 'f', 2, 64)
	}
	retry := ""
	if app.RetryAllowedAt != nil {
		retry = app.RetryAllowedAt.UTC().Format(time.RFC3339)
	}
	return map[string]string{
		"ID":               app.ID,
		"Name":             app.FullName,
		"Email":            app.Email,
		"Specialization":   app.Specialization,
		"Experience":       strconv.Itoa(app.YearsOfExperience),
		"Status":           string(app.Status),
		"Attempts":         strconv.Itoa(app.TestAttempts),
		"Final Score":      score,
		"Retry Allowed At": retry,
		"Applied At":       app.CreatedAt.UTC().Format(time.RFC3339),
	}
}
