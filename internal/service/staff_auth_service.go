package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/models"
	appErrors "github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/errors"
)

// StaffAuthConfig describes the tokens minted by the identity service.
type StaffAuthConfig struct {
	Secret   string
	Issuer   string
	Audience []string
}

// StaffAuthService verifies staff bearer tokens. Issuing them is the identity service's job.
type StaffAuthService struct {
	config StaffAuthConfig
}

// NewStaffAuthService constructs the verifier.
func NewStaffAuthService(config StaffAuthConfig) *StaffAuthService {
	return &StaffAuthService{config: config}
}

// ValidateToken parses an HS256 token and returns its claims.
func (s *StaffAuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	options := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if s.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(s.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, options...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if !acceptsAudience(claims.Audience, s.config.Audience) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token audience")
	}
	if claims.OrgID == "" || claims.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token missing organisation")
	}
	return claims, nil
}

// acceptsAudience reports whether the token names at least one configured audience.
func acceptsAudience(tokenAud jwt.ClaimStrings, expected []string) bool {
	if len(expected) == 0 {
		return true
	}
	for _, want := range expected {
		for _, got := range tokenAud {
			if got == want {
				return true
			}
		}
	}
	return false
}
