package models

import "github.com/golang-jwt/jwt/v5"

// UserRole enumerates staff roles recognised by route guards.
type UserRole string

// Staff roles. Token issuance lives in the identity service, not here.
const (
	RoleAdmin     UserRole = "ADMIN"
	RoleDirector  UserRole = "DIRECTOR"
	RoleSecretary UserRole = "SECRETARY"
)

// JWTClaims represents the JWT payload for staff access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Pagination describes list metadata in response envelopes.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
