package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/msomdec/field-review/internal/domain"
)

// AuthService verifies the HS256 tokens the hosting platform issues to staff.
// Accounts and passwords live on the platform, not here.
type AuthService struct {
	jwtSecret []byte
}

// NewAuthService creates a new AuthService.
func NewAuthService(jwtSecret string) *AuthService {
	return &AuthService{jwtSecret: []byte(jwtSecret)}
}

// staffClaims mirrors the platform's token payload.
type staffClaims struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	jwt.RegisteredClaims
}

// ValidateToken parses and validates a JWT token string and returns the staff
// member it describes.
func (s *AuthService) ValidateToken(tokenString string) (*domain.Staff, error) {
	claims := &staffClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, domain.ErrUnauthorized
	}
	if claims.Subject == "" {
		return nil, domain.ErrUnauthorized
	}

	name := claims.DisplayName
	if name == "" {
		name = claims.Email
	}
	return &domain.Staff{ID: claims.Subject, Email: claims.Email, DisplayName: name}, nil
}

// IssueToken signs a token for staff. The platform normally does this; the
// server uses it for local development logins and tests.
func (s *AuthService) IssueToken(staff domain.Staff, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := staffClaims{
		Email:       staff.Email,
		DisplayName: staff.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   staff.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
