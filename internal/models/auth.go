package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims are the portal-issued access token claims this service trusts.
// Token issuance lives in the portal's auth service; we only verify.
type JWTClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
