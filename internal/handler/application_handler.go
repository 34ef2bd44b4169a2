package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentor-assessment-api/internal/dto"
	"github.com/noah-isme/mentor-assessment-api/internal/middleware"
	"github.com/noah-isme/mentor-assessment-api/pkg/response"
)

type publicApplicationService interface {
	ListSpecializations() []string
	Apply(ctx context.Context, req dto.ApplyRequest) (*dto.ApplyResponse, error)
	Status(ctx context.Context, email string) (*dto.ApplicationStatusResponse, error)
}

// ApplicationHandler exposes the public application endpoints.
type ApplicationHandler struct {
	applications publicApplicationService
}

// NewApplicationHandler constructs ApplicationHandler.
func NewApplicationHandler(applications publicApplicationService) *ApplicationHandler {
	return &ApplicationHandler{applications: applications}
}

// Specializations godoc
// @Summary List accepted specializations
// @Tags Applications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /mentor-applications/specializations [get]
func (h *ApplicationHandler) Specializations(c *gin.Context) {
	respondOK(c, h.applications.ListSpecializations())
}

// Apply godoc
// @Summary Apply to become a mentor
// @Description A known email is treated as a reapplication once its cooldown has elapsed.
// @Tags Applications
// @Accept json
// @Produce json
// @Param payload body dto.ApplyRequest true "Applicant profile"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /mentor-applications/apply [post]
func (h *ApplicationHandler) Apply(c *gin.Context) {
	var req dto.ApplyRequest
	if !bindJSON(c, nil, &req) {
		return
	}
	resp, err := h.applications.Apply(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, resp, nil, middleware.ExtractMeta(c))
}

// Status godoc
// @Summary Check application status
// @Tags Applications
// @Produce json
// @Param email path string true "Applicant email"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /mentor-applications/status/{email} [get]
func (h *ApplicationHandler) Status(c *gin.Context) {
	status, err := h.applications.Status(c.Request.Context(), c.Param("email"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, status)
}
