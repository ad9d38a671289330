package service

import (
	"errors"
	"testing"
	"time"

	"lms_support_backend/internal/config"
	"lms_support_backend/internal/model"
	"lms_support_backend/internal/repository"
	"lms_support_backend/internal/util"
)

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()
	db := newTestDB(t)
	cfg := &config.Config{}
	cfg.JWT.Secret = "unit-test-secret"
	cfg.JWT.ExpireTime = time.Hour
	return NewAuthService(repository.NewUserRepository(db), cfg)
}

func TestRegisterAndLogin(t *testing.T) {
	auth := newTestAuthService(t)

	user, err := auth.Register(&RegisterRequest{
		Email:          "student@example.com",
		Password:       "correct-horse",
		Role:           model.Student,
		CourseCategory: "AI/ML",
		CourseName:     "Machine Learning",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.PasswordHash == "correct-horse" {
		t.Error("password stored in plain text")
	}

	token, loggedIn, err := auth.Login("student@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if loggedIn.ID != user.ID {
		t.Errorf("logged in user id = %d", loggedIn.ID)
	}

	claims, err := util.ParseJWT(token, "unit-test-secret")
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != model.Student {
		t.Errorf("claims = %+v", claims)
	}

	if _, _, err := auth.Login("student@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v", err)
	}
	if _, _, err := auth.Login("nobody@example.com", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email error = %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	auth := newTestAuthService(t)

	if _, err := auth.Register(&RegisterRequest{Email: "a@b.c", Password: "password", Role: "mentor"}); err == nil {
		t.Error("unknown role accepted")
	}
	if _, err := auth.Register(&RegisterRequest{Email: "a@b.c", Password: "password", Role: model.Admin}); err == nil {
		t.Error("admin without admin type accepted")
	}

	if _, err := auth.Register(&RegisterRequest{Email: "dup@b.c", Password: "password", Role: model.Student}); err != nil {
		t.Fatal(err)
	}
	if _, err := auth.Register(&RegisterRequest{Email: "dup@b.c", Password: "password", Role: model.Student}); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate email error = %v", err)
	}
}
