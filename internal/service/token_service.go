package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/studyport/schedule-api/internal/models"
	"github.com/studyport/schedule-api/pkg/config"
	appErrors "github.com/studyport/schedule-api/pkg/errors"
)

// TokenService verifies portal-issued access tokens. Issuance and refresh
// live in the portal's own auth service; this side only checks signatures.
type TokenService struct {
	secret []byte
}

// NewTokenService constructs a token verifier.
func NewTokenService(cfg config.JWTConfig) *TokenService {
	return &TokenService{secret: []byte(cfg.Secret)}
}

// ValidateToken parses and validates an access token returning the claims.
func (s *TokenService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}
