package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims represents the JWT payload issued by the identity provider.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Actor identifies who performs a mutation. Feedback entries and receipt
// decisions are attributed to Actor.ID.
type Actor struct {
	ID   string
	Role UserRole
}

// Actor returns the caller described by the claims.
func (c *JWTClaims) Actor() Actor {
	if c == nil {
		return Actor{}
	}
	return Actor{ID: c.UserID, Role: c.Role}
}

// IsStudent reports whether the actor may only act on their own engagement.
func (a Actor) IsStudent() bool {
	return a.Role == RoleStudent
}
