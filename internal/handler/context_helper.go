package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/mentor-assessment-api/internal/middleware"
	"github.com/noah-isme/mentor-assessment-api/internal/models"
	appErrors "github.com/noah-isme/mentor-assessment-api/pkg/errors"
	"github.com/noah-isme/mentor-assessment-api/pkg/response"
)

// actorFromContext names the reviewer for the audit trail.
func actorFromContext(c *gin.Context) string {
	if claims, ok := middleware.ReviewerClaims(c); ok && claims.UserID != "" {
		return claims.UserID
	}
	return models.SystemActor
}

// bindJSON decodes the body into dest and, when validate is set, checks its tags.
// It writes the error response itself and reports whether the handler may continue.
func bindJSON(c *gin.Context, validate *validator.Validate, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	if validate == nil {
		return true
	}
	if err := validate.Struct(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}

func respondOK(c *gin.Context, data interface{}) {
	response.JSON(c, http.StatusOK, data, nil, middleware.ExtractMeta(c))
}
