//go:build integration

package db

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestIntegration_UserLifecycle(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	ctx := context.Background()

	email := "it-" + uuid.New().String() + "@example.com"

	exists, err := db.CheckEmailExists(ctx, email)
	if err != nil {
		t.Fatalf("CheckEmailExists failed: %v", err)
	}
	if exists {
		t.Fatal("Expected email to not exist yet")
	}

	id, err := db.CreateUser(ctx, email, "$2a$10$hash")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if id == uuid.Nil {
		t.Fatal("Expected generated user ID")
	}

	exists, err = db.CheckEmailExists(ctx, email)
	if err != nil {
		t.Fatalf("CheckEmailExists after create failed: %v", err)
	}
	if !exists {
		t.Error("Expected email to exist after create")
	}

	user, err := db.GetUserByEmail(ctx, email)
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if user == nil {
		t.Fatal("Expected user, got nil")
	}
	if user.ID != id {
		t.Errorf("Expected user ID %s, got %s", id, user.ID)
	}
	if user.PasswordHash != "$2a$10$hash" {
		t.Errorf("Expected stored password hash, got %q", user.PasswordHash)
	}

	byID, err := db.GetUser(ctx, id)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if byID == nil || byID.Email != email {
		t.Errorf("Expected user with email %q", email)
	}

	if err := db.UpdatePassword(ctx, id, "$2a$10$newhash"); err != nil {
		t.Fatalf("UpdatePassword failed: %v", err)
	}
	user, err = db.GetUser(ctx, id)
	if err != nil {
		t.Fatalf("GetUser after password update failed: %v", err)
	}
	if user.PasswordHash != "$2a$10$newhash" {
		t.Errorf("Expected updated password hash, got %q", user.PasswordHash)
	}
}

func TestIntegration_GetUserMissing(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	ctx := context.Background()

	user, err := db.GetUser(ctx, uuid.New())
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if user != nil {
		t.Error("Expected nil for unknown user ID")
	}

	user, err = db.GetUserByEmail(ctx, "it-missing@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if user != nil {
		t.Error("Expected nil for unknown email")
	}
}

func TestIntegration_UpdatePasswordMissing(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	err := db.UpdatePassword(context.Background(), uuid.New(), "$2a$10$hash")
	if err == nil {
		t.Error("Expected error updating password of unknown user")
	}
}
