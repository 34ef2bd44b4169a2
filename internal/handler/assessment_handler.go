package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/mentor-assessment-api/internal/dto"
	"github.com/noah-isme/mentor-assessment-api/pkg/response"
)

type tokenVerifier interface {
	Verify(ctx context.Context, raw string) (*dto.VerifyTokenResponse, error)
}

type testSessionService interface {
	Start(ctx context.Context, raw string) (*dto.SessionView, error)
	Resume(ctx context.Context, raw string) (*dto.SessionView, error)
	SubmitByToken(ctx context.Context, raw string, answers []dto.QuestionAnswer) (*dto.TestResultResponse, error)
}

// AssessmentHandler exposes the applicant test endpoints.
type AssessmentHandler struct {
	tokens   tokenVerifier
	sessions testSessionService
	validate *validator.Validate
}

// NewAssessmentHandler constructs AssessmentHandler.
func NewAssessmentHandler(tokens tokenVerifier, sessions testSessionService, validate *validator.Validate) *AssessmentHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &AssessmentHandler{tokens: tokens, sessions: sessions, validate: validate}
}

// Verify godoc
// @Summary Check a test link without using it
// @Tags Assessment
// @Accept json
// @Produce json
// @Param payload body dto.TokenRequest true "Test token"
// @Success 200 {object} response.Envelope
// @Router /mentor-applications/verify-token [post]
func (h *AssessmentHandler) Verify(c *gin.Context) {
	var req dto.TokenRequest
	if !bindJSON(c, h.validate, &req) {
		return
	}
	result, err := h.tokens.Verify(c.Request.Context(), req.Token)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, result)
}

// Start godoc
// @Summary Start the assessment
// @Description Consumes the token and returns the question set. The token cannot start another session.
// @Tags Assessment
// @Accept json
// @Produce json
// @Param payload body dto.TokenRequest true "Test token"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /mentor-applications/start-test [post]
func (h *AssessmentHandler) Start(c *gin.Context) {
	var req dto.TokenRequest
	if !bindJSON(c, h.validate, &req) {
		return
	}
	view, err := h.sessions.Start(c.Request.Context(), req.Token)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, view)
}

// Resume godoc
// @Summary Resume a running assessment
// @Tags Assessment
// @Accept json
// @Produce json
// @Param payload body dto.TokenRequest true "Test token"
// @Success 200 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /mentor-applications/resume-test [post]
func (h *AssessmentHandler) Resume(c *gin.Context) {
	var req dto.TokenRequest
	if !bindJSON(c, h.validate, &req) {
		return
	}
	view, err := h.sessions.Resume(c.Request.Context(), req.Token)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, view)
}

// Submit godoc
// @Summary Submit answers
// @Description Repeated submissions return the first result. Late submissions are recorded as expired.
// @Tags Assessment
// @Accept json
// @Produce json
// @Param payload body dto.SubmitTestRequest true "Answers"
// @Success 200 {object} response.Envelope
// @Router /mentor-applications/submit-test [post]
func (h *AssessmentHandler) Submit(c *gin.Context) {
	var req dto.SubmitTestRequest
	if !bindJSON(c, h.validate, &req) {
		return
	}
	result, err := h.sessions.SubmitByToken(c.Request.Context(), req.Token, req.Answers)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, result)
}
