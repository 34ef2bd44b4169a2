package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-assessment-api/internal/dto"
	"github.com/noah-isme/mentor-assessment-api/internal/models"
	appErrors "github.com/noah-isme/mentor-assessment-api/pkg/errors"
)

type pagedApplicationLister struct {
	total int
	pages []int
}

func (p *pagedApplicationLister) List(ctx context.Context, filter models.ApplicationFilter) ([]models.MentorApplication, int, error) {
	p.pages = append(p.pages, filter.Page)
	start := (filter.Page - 1) * filter.PageSize
	end := start + filter.PageSize
	if end > p.total {
		end = p.total
	}
	var out []models.MentorApplication
	for i := start; i < end; i++ {
		out = append(out, models.MentorApplication{
			ID:        "app",
			FullName:  "Ada",
			Email:     "ada@example.com",
			Status:    models.ApplicationStatusPending,
			CreatedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		})
	}
	return out, p.total, nil
}

func TestExportServiceApplicationsCSV(t *testing.T) {
	lister := &pagedApplicationLister{total: 250}
	svc := NewExportService(lister, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 5, 2, 10, 30, 0, 0, time.UTC) }

	file, err := svc.Applications(context.Background(), "CSV", dto.ApplicationQuery{})
	require.NoError(t, err)
	assert.Equal(t, "mentor-applications-20240502-103000.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, []int{1, 2}, lister.pages)

	lines := strings.Split(strings.TrimSpace(string(file.Body)), "\n")
	assert.Len(t, lines, 251)
	assert.True(t, strings.HasPrefix(lines[0], "ID,Name,Email"))
}

func TestExportServiceApplicationsPDF(t *testing.T) {
	svc := NewExportService(&pagedApplicationLister{total: 3}, zap.NewNop())

	file, err := svc.Applications(context.Background(), "pdf", dto.ApplicationQuery{})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Body), "%PDF"))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(&pagedApplicationLister{}, zap.NewNop())
	_, err := svc.Applications(context.Background(), "xlsx", dto.ApplicationQuery{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
