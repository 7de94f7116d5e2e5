package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// UserRole represents the staff roles recognised on internal routes.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleStaff      UserRole = "STAFF"
	RoleViewer     UserRole = "VIEWER"
)

// JWTClaims represents the payload of staff access tokens issued by the identity service.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	OrgID    string   `json:"org_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
