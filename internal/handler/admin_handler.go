package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/mentor-assessment-api/internal/dto"
	"github.com/noah-isme/mentor-assessment-api/internal/middleware"
	"github.com/noah-isme/mentor-assessment-api/internal/models"
	"github.com/noah-isme/mentor-assessment-api/internal/service"
	appErrors "github.com/noah-isme/mentor-assessment-api/pkg/errors"
	"github.com/noah-isme/mentor-assessment-api/pkg/response"
)

type reviewerApplicationService interface {
	List(ctx context.Context, query dto.ApplicationQuery) ([]models.MentorApplication, *models.Pagination, error)
	Get(ctx context.Context, id string) (*dto.ApplicationDetail, error)
	IssueToken(ctx context.Context, id, actor string) (*dto.IssueTokenResponse, error)
	Reinstate(ctx context.Context, id, actor string, req dto.OverrideRequest) (*models.MentorApplication, error)
	Withdraw(ctx context.Context, id, actor string, req dto.OverrideRequest) (*models.MentorApplication, error)
}

type sessionReviewer interface {
	Review(ctx context.Context, sessionID string) (*dto.SessionReview, error)
}

type applicationExporter interface {
	Applications(ctx context.Context, format string, query dto.ApplicationQuery) (*service.ExportFile, error)
}

// AdminHandler serves reviewer endpoints.
type AdminHandler struct {
	applications reviewerApplicationService
	sessions     sessionReviewer
	exporter     applicationExporter
	validate     *validator.Validate
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(applications reviewerApplicationService, sessions sessionReviewer, exporter applicationExporter, validate *validator.Validate) *AdminHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &AdminHandler{applications: applications, sessions: sessions, exporter: exporter, validate: validate}
}

// List godoc
// @Summary List mentor applications
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param specialization query string false "Specialization"
// @Param search query string false "Name or email contains"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/mentor-applications [get]
func (h *AdminHandler) List(c *gin.Context) {
	query, err := parseApplicationQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	apps, pagination, err := h.applications.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, apps, pagination, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get an application with its history
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/mentor-applications/{id} [get]
func (h *AdminHandler) Get(c *gin.Context) {
	detail, err := h.applications.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, detail)
}

// IssueToken godoc
// @Summary Issue or reissue a test link
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Param id path string true "Application ID"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/mentor-applications/{id}/issue-token [post]
func (h *AdminHandler) IssueToken(c *gin.Context) {
	issued, err := h.applications.IssueToken(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, issued, nil, middleware.ExtractMeta(c))
}

// Reinstate godoc
// @Summary Return a rejected application to pending
// @Tags Admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.OverrideRequest true "Reason"
// @Success 200 {object} response.Envelope
// @Router /admin/mentor-applications/{id}/reinstate [post]
func (h *AdminHandler) Reinstate(c *gin.Context) {
	var req dto.OverrideRequest
	if !bindJSON(c, h.validate, &req) {
		return
	}
	app, err := h.applications.Reinstate(c.Request.Context(), c.Param("id"), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, app)
}

// Withdraw godoc
// @Summary Withdraw an application
// @Tags Admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.OverrideRequest true "Reason"
// @Success 200 {object} response.Envelope
// @Router /admin/mentor-applications/{id}/withdraw [post]
func (h *AdminHandler) Withdraw(c *gin.Context) {
	var req dto.OverrideRequest
	if !bindJSON(c, h.validate, &req) {
		return
	}
	app, err := h.applications.Withdraw(c.Request.Context(), c.Param("id"), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, app)
}

// Export godoc
// @Summary Export applications
// @Tags Admin
// @Security BearerAuth
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Param status query string false "Comma separated statuses"
// @Param specialization query string false "Specialization"
// @Param search query string false "Name or email contains"
// @Success 200 {file} file
// @Router /admin/mentor-applications/export [get]
func (h *AdminHandler) Export(c *gin.Context) {
	query, err := parseApplicationQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exporter.Applications(c.Request.Context(), c.Query("format"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// Review godoc
// @Summary Inspect a finished session with answers
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/test-sessions/{id}/review [get]
func (h *AdminHandler) Review(c *gin.Context) {
	review, err := h.sessions.Review(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, review)
}

func parseApplicationQuery(c *gin.Context) (dto.ApplicationQuery, error) {
	query := dto.ApplicationQuery{
		Specialization: strings.TrimSpace(c.Query("specialization")),
		Search:         strings.TrimSpace(c.Query("search")),
	}
	for _, raw := range strings.Split(c.Query("status"), ",") {
		raw = strings.ToUpper(strings.TrimSpace(raw))
		if raw == "" {
			continue
		}
		query.Status = append(query.Status, models.ApplicationStatus(raw))
	}
	var err error
	if query.Page, err = intQuery(c, "page"); err != nil {
		return query, err
	}
	if query.PageSize, err = intQuery(c, "pageSize"); err != nil {
		return query, err
	}
	return query, nil
}

func intQuery(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, key+" must be a positive integer")
	}
	return v, nil
}
