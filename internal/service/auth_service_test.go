package service

import (
	"context"
	"errors"
	"testing"

	"github.com/tms-next/internal/config"
	"github.com/tms-next/internal/constants"
	"github.com/tms-next/internal/models"
	"github.com/tms-next/internal/repository"
)

func setupAuthService(t *testing.T) (*AuthService, *planningFixture) {
	t.Helper()
	f := setupPlanningFixture(t, PlanningOptions{})
	cfg := &config.Config{JWT: config.JWTConfig{SecretKey: "test-secret", ExpireHours: 1}}
	svc := NewAuthService(cfg, repository.NewUserRepository(f.db))
	return svc, f
}

func createUser(t *testing.T, svc *AuthService, f *planningFixture, username, password string, active bool) *models.User {
	t.Helper()
	hash, err := svc.HashPassword(password)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	user := &models.User{Username: username, PasswordHash: hash, Role: constants.UserRoleAdmin, IsActive: true}
	if err := f.db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	if !active {
		f.db.Model(user).Update("is_active", false)
		user.IsActive = false
	}
	return user
}

func TestAuthLoginAndParse(t *testing.T) {
	svc, f := setupAuthService(t)
	ctx := context.Background()
	createUser(t, svc, f, "dispatcher", "s3cret!", true)

	user, token, expiresAt, err := svc.Login(ctx, " dispatcher ", "s3cret!")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token == "" || expiresAt.IsZero() || user.LastLoginAt == nil {
		t.Fatalf("unexpected login result: token=%q expires=%v", token, expiresAt)
	}
	claims, err := svc.ParseJWT(token)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.UserID != user.ID || claims.Username != "dispatcher" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if _, err := svc.ValidateClaims(ctx, claims); err != nil {
		t.Fatalf("validate claims failed: %v", err)
	}

	f.db.Model(&models.User{}).Where("id = ?", user.ID).Update("token_version", 5)
	if _, err := svc.ValidateClaims(ctx, claims); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("stale token version should be rejected, got %v", err)
	}
}

func TestAuthLoginFailures(t *testing.T) {
	svc, f := setupAuthService(t)
	ctx := context.Background()
	createUser(t, svc, f, "active", "pass-1", true)
	createUser(t, svc, f, "disabled", "pass-2", false)

	if _, _, _, err := svc.Login(ctx, "active", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, _, err := svc.Login(ctx, "missing", "pass-1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
	if _, _, _, err := svc.Login(ctx, "disabled", "pass-2"); !errors.Is(err, ErrUserDisabled) {
		t.Fatalf("expected ErrUserDisabled, got %v", err)
	}
}

func TestAuthParseRejectsForeignTokens(t *testing.T) {
	svc, f := setupAuthService(t)
	user := createUser(t, svc, f, "signer", "pass", true)
	token, _, err := svc.GenerateJWT(user)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	other := NewAuthService(&config.Config{JWT: config.JWTConfig{SecretKey: "other"}}, repository.NewUserRepository(f.db))
	if _, err := other.ParseJWT(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := svc.ParseJWT("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
}
