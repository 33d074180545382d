package service_test

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/msomdec/field-review/internal/domain"
	"github.com/msomdec/field-review/internal/service"
)

const testJWTSecret = "test-secret-key-for-unit-tests-0123456789"

func TestAuthService_IssueAndValidate(t *testing.T) {
	auth := service.NewAuthService(testJWTSecret)

	token, err := auth.IssueToken(domain.Staff{ID: "staff-42", Email: "appraiser@county.gov", DisplayName: "Pat Appraiser"}, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	staff, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if staff.ID != "staff-42" || staff.Email != "appraiser@county.gov" || staff.DisplayName != "Pat Appraiser" {
		t.Fatalf("unexpected staff: %+v", staff)
	}
}

func TestAuthService_DisplayNameFallsBackToEmail(t *testing.T) {
	auth := service.NewAuthService(testJWTSecret)
	token, err := auth.IssueToken(domain.Staff{ID: "7", Email: "a@b.c"}, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	staff, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if staff.DisplayName != "a@b.c" {
		t.Fatalf("expected email as display name, got %q", staff.DisplayName)
	}
}

func TestAuthService_RejectsBadTokens(t *testing.T) {
	auth := service.NewAuthService(testJWTSecret)
	other := service.NewAuthService("a-completely-different-secret-value-123")

	expired, _ := auth.IssueToken(domain.Staff{ID: "1"}, -time.Minute)
	wrongKey, _ := other.IssueToken(domain.Staff{ID: "1"}, time.Hour)
	noSubject, _ := auth.IssueToken(domain.Staff{}, time.Hour)
	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1"}).SignedString([]byte(testJWTSecret))
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1", "exp": time.Now().Add(time.Hour).Unix()}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := map[string]string{
		"garbage":    "not-a-jwt",
		"expired":    expired,
		"wrong key":  wrongKey,
		"no subject": noSubject,
		"no expiry":  noExpiry,
		"alg none":   none,
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := auth.ValidateToken(tok); !errors.Is(err, domain.ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized, got %v", err)
			}
		})
	}
}
