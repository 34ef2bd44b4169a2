package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentor-assessment-api/internal/models"
	appErrors "github.com/noah-isme/mentor-assessment-api/pkg/errors"
	"github.com/noah-isme/mentor-assessment-api/pkg/response"
)

// RequireRoles admits only reviewers whose token carries one of roles.
// It must run after JWT.
func RequireRoles(roles ...models.ReviewerRole) gin.HandlerFunc {
	allowed := make(map[models.ReviewerRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims, ok := ReviewerClaims(c)
		if !ok {
			response.Abort(c, appErrors.ErrUnauthorized)
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Abort(c, appErrors.Clone(appErrors.ErrForbidden, "reviewer role required"))
			return
		}
		c.Next()
	}
}
