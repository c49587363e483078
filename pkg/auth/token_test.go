package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fasehq/fase-server/pkg/model"
)

func TestTokenRoundTrip(t *testing.T) {
	manager := NewTokenManager([]byte("secret"), time.Hour)
	user := &model.User{
		ID:     uuid.New(),
		Email:  "alice@example.com",
		Role:   model.RoleSupervisor,
		Status: model.UserActive,
	}
	companyID := uuid.New().String()

	token, err := manager.Generate(user, companyID)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	claims, err := manager.Validate(token)
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if claims.UserID != user.ID.String() {
		t.Fatalf("user id = %s, want %s", claims.UserID, user.ID)
	}
	if claims.Role != string(model.RoleSupervisor) {
		t.Fatalf("role = %s, want SUPERVISOR", claims.Role)
	}
	if claims.Status != string(model.UserActive) {
		t.Fatalf("status = %s, want ACTIVE", claims.Status)
	}
	if claims.CompanyID != companyID {
		t.Fatalf("company id = %s, want %s", claims.CompanyID, companyID)
	}
}

func TestValidateRejectsWrongKey(t *testing.T) {
	manager := NewTokenManager([]byte("secret"), time.Hour)
	user := &model.User{ID: uuid.New(), Role: model.RoleUser, Status: model.UserActive}

	token, err := manager.Generate(user, uuid.New().String())
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	other := NewTokenManager([]byte("different"), time.Hour)
	if _, err := other.Validate(token); err == nil {
		t.Fatal("token signed with another key must not validate")
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	manager := NewTokenManager([]byte("secret"), -time.Minute)
	user := &model.User{ID: uuid.New(), Role: model.RoleUser, Status: model.UserActive}

	token, err := manager.Generate(user, uuid.New().String())
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if _, err := manager.Validate(token); err == nil {
		t.Fatal("expired token must not validate")
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	manager := NewTokenManager([]byte("secret"), time.Hour)
	if _, err := manager.Validate("not-a-token"); err == nil {
		t.Fatal("garbage input must not validate")
	}
}
