package models

import "github.com/golang-jwt/jwt/v5"

// ReviewerRole represents roles granted by the identity provider.
type ReviewerRole string

const (
	RoleAdmin    ReviewerRole = "ADMIN"
	RoleReviewer ReviewerRole = "REVIEWER"
)

// JWTClaims represents the reviewer access token payload.
type JWTClaims struct {
	UserID   string       `json:"user_id"`
	Role     ReviewerRole `json:"role"`
	Email    string       `json:"email"`
	FullName string       `json:"full_name"`
	jwt.RegisteredClaims
}
