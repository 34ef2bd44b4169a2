package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentor-assessment-api/internal/models"
	appErrors "github.com/noah-isme/mentor-assessment-api/pkg/errors"
)

func signReviewerToken(t *testing.T, secret string, claims models.JWTClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func reviewerClaims(role models.ReviewerRole, issuer string) models.JWTClaims {
	return models.JWTClaims{
		UserID: "user-1",
		Role:   role,
		Email:  "reviewer@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestTokenValidatorAcceptsReviewer(t *testing.T) {
	validator := NewTokenValidator("secret", "identity")
	claims, err := validator.ValidateToken(signReviewerToken(t, "secret", reviewerClaims(models.RoleReviewer, "identity")))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleReviewer, claims.Role)
}

func TestTokenValidatorRejects(t *testing.T) {
	validator := NewTokenValidator("secret", "identity")

	_, err := validator.ValidateToken(signReviewerToken(t, "other", reviewerClaims(models.RoleAdmin, "identity")))
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	_, err = validator.ValidateToken(signReviewerToken(t, "secret", reviewerClaims(models.RoleAdmin, "someone-else")))
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	expired := reviewerClaims(models.RoleAdmin, "identity")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	_, err = validator.ValidateToken(signReviewerToken(t, "secret", expired))
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	_, err = validator.ValidateToken(signReviewerToken(t, "secret", reviewerClaims("STUDENT", "identity")))
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = validator.ValidateToken("not-a-jwt")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}
