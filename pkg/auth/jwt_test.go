package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/healthflow/healthflow-api/internal/config"
	"github.com/healthflow/healthflow-api/internal/domain"
)

func testManager(ttl time.Duration) *JWTManager {
	return NewJWTManager(config.JWTConfig{
		Secret:         "test-secret-at-least-32-characters!!",
		AccessTokenTTL: ttl,
		Issuer:         "healthflow-identity",
	})
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := testManager(15 * time.Minute)
	doctorID := uuid.New()
	claims := &domain.Claims{
		UserID:   uuid.New(),
		Email:    "dr@example.com",
		Role:     domain.RoleDoctor,
		DoctorID: &doctorID,
	}

	token, expiresAt, err := m.GenerateAccessToken(claims)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Errorf("expiresAt %v is in the past", expiresAt)
	}

	got, err := m.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if got.UserID != claims.UserID || got.Email != claims.Email || got.Role != claims.Role {
		t.Errorf("claims = %+v, want %+v", got, claims)
	}
	if got.DoctorID == nil || *got.DoctorID != doctorID {
		t.Errorf("DoctorID = %v, want %v", got.DoctorID, doctorID)
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	m := testManager(-time.Minute)

	token, _, err := m.GenerateAccessToken(&domain.Claims{UserID: uuid.New(), Role: domain.RolePatient})
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	if _, err := m.ValidateAccessToken(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	good := testManager(15 * time.Minute)
	token, _, err := good.GenerateAccessToken(&domain.Claims{UserID: uuid.New(), Role: domain.RolePatient})
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	bad := NewJWTManager(config.JWTConfig{
		Secret:         "a-different-secret-also-32-chars!!!!",
		AccessTokenTTL: 15 * time.Minute,
		Issuer:         "healthflow-identity",
	})
	if _, err := bad.ValidateAccessToken(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestValidateRejectsWrongIssuer(t *testing.T) {
	other := NewJWTManager(config.JWTConfig{
		Secret:         "test-secret-at-least-32-characters!!",
		AccessTokenTTL: 15 * time.Minute,
		Issuer:         "someone-else",
	})
	token, _, err := other.GenerateAccessToken(&domain.Claims{UserID: uuid.New(), Role: domain.RolePatient})
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	m := testManager(15 * time.Minute)
	if _, err := m.ValidateAccessToken(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	m := testManager(15 * time.Minute)
	for _, tok := range []string{"", "not.a.jwt", "aaaa.bbbb.cccc"} {
		if _, err := m.ValidateAccessToken(tok); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("token %q: err = %v, want ErrTokenInvalid", tok, err)
		}
	}
}
