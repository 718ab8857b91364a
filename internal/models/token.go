package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims are the custom claims embedded in access and refresh tokens.
type JWTClaims struct {
	Email string   `json:"email"`
	Role  UserRole `json:"role"`
	jwt.RegisteredClaims
}
