package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID        string            `json:"id"`
	Username  string            `json:"username"`
	FullName  string            `json:"full_name"`
	Role      UserRole          `json:"role"`
	Student   *StudentProfile   `json:"student,omitempty"`
	Authority *AuthorityProfile `json:"authority,omitempty"`
}

// JWTClaims represents the JWT payload for access tokens. ProfileID carries
// the student ID for students and the employee ID for authorities, so every
// engine call receives an explicit identity rather than ambient session state.
type JWTClaims struct {
	UserID    string   `json:"user_id"`
	Role      UserRole `json:"role"`
	Username  string   `json:"username"`
	ProfileID string   `json:"profile_id"`
	jwt.RegisteredClaims
}
