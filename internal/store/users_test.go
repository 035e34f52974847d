package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/erazemk/totetrack/internal/db"
	"github.com/erazemk/totetrack/internal/model"
)

func newAccount(t *testing.T, database *sql.DB, name string) *model.Account {
	t.Helper()
	a, err := CreateAccount(context.Background(), database, name)
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return a
}

func newUser(t *testing.T, database *sql.DB, accountID int64, email string, superuser bool) *model.User {
	t.Helper()
	u, err := CreateUser(context.Background(), database, accountID, email, "Test User", "hash", superuser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	acct := newAccount(t, database, "Team Alpha")

	user, err := CreateUser(ctx, database, acct.ID, "alpha@example.com", "Alpha Owner", "hash123", true)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Email != "alpha@example.com" {
		t.Errorf("expected email 'alpha@example.com', got %q", user.Email)
	}
	if !user.IsActive || !user.IsSuperuser {
		t.Errorf("expected active superuser, got active=%v superuser=%v", user.IsActive, user.IsSuperuser)
	}
	if user.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	got, err := GetAccountUser(ctx, database, acct.ID, user.ID)
	if err != nil {
		t.Fatalf("GetAccountUser: %v", err)
	}
	if got == nil || got.FullName != "Alpha Owner" {
		t.Errorf("unexpected user: %+v", got)
	}
}

func TestGetAccountUserScoped(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	a := newAccount(t, database, "A")
	b := newAccount(t, database, "B")
	u := newUser(t, database, a.ID, "a@example.com", true)

	got, err := GetAccountUser(ctx, database, b.ID, u.ID)
	if err != nil {
		t.Fatalf("GetAccountUser: %v", err)
	}
	if got != nil {
		t.Error("expected nil for user of another account")
	}
}

func TestGetUserByEmailCaseInsensitive(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	acct := newAccount(t, database, "A")
	newUser(t, database, acct.ID, "alice@example.com", true)

	user, err := GetUserByEmail(ctx, database, "ALICE@Example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if user == nil {
		t.Fatal("expected user, got nil")
	}

	missing, err := GetUserByEmail(ctx, database, "bob@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing user")
	}
}

func TestDuplicateEmailIsUniqueViolation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	a := newAccount(t, database, "A")
	b := newAccount(t, database, "B")
	newUser(t, database, a.ID, "dup@example.com", true)

	_, err := CreateUser(ctx, database, b.ID, "DUP@example.com", "", "hash", true)
	if err == nil {
		t.Fatal("expected error for duplicate email")
	}
	if !IsUniqueViolation(err) {
		t.Errorf("expected unique violation, got %v", err)
	}
}

func TestListUsersByAccount(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	a := newAccount(t, database, "A")
	b := newAccount(t, database, "B")
	newUser(t, database, a.ID, "a1@example.com", true)
	newUser(t, database, a.ID, "a2@example.com", false)
	newUser(t, database, b.ID, "b1@example.com", true)

	users, err := ListUsers(ctx, database, a.ID)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("expected 2 users, got %d", len(users))
	}
}

func TestRecoveryTokenColumns(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	acct := newAccount(t, database, "A")
	u := newUser(t, database, acct.ID, "a@example.com", true)

	expires := time.Now().Add(30 * time.Minute).UTC().Truncate(time.Second)
	if err := SetRecoveryToken(ctx, database, u.ID, "bcrypt-hash", "lookup-1", expires); err != nil {
		t.Fatalf("SetRecoveryToken: %v", err)
	}

	got, err := GetUserByRecoveryLookup(ctx, database, "lookup-1")
	if err != nil {
		t.Fatalf("GetUserByRecoveryLookup: %v", err)
	}
	if got == nil || got.ID != u.ID {
		t.Fatalf("expected user %d, got %+v", u.ID, got)
	}
	if got.RecoveryTokenHash != "bcrypt-hash" {
		t.Errorf("unexpected hash %q", got.RecoveryTokenHash)
	}
	if got.RecoveryTokenExpiresAt == nil || !got.RecoveryTokenExpiresAt.Equal(expires) {
		t.Errorf("expected expiry %v, got %v", expires, got.RecoveryTokenExpiresAt)
	}

	if err := ResetUserPassword(ctx, database, u.ID, "new-hash"); err != nil {
		t.Fatalf("ResetUserPassword: %v", err)
	}
	cleared, _ := GetUserByRecoveryLookup(ctx, database, "lookup-1")
	if cleared != nil {
		t.Error("expected recovery token to be cleared")
	}
	after, _ := GetUser(ctx, database, u.ID)
	if after.PasswordHash != "new-hash" || after.RecoveryTokenExpiresAt != nil {
		t.Errorf("unexpected user after reset: %+v", after)
	}
}

func TestDeleteUserRemovesCheckouts(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	acct := newAccount(t, database, "A")
	owner := newUser(t, database, acct.ID, "owner@example.com", true)
	member := newUser(t, database, acct.ID, "member@example.com", false)
	item := newItem(t, database, acct.ID, nil, "Drill")

	if _, err := CreateCheckout(ctx, database, acct.ID, item.ID, member.ID); err != nil {
		t.Fatalf("CreateCheckout: %v", err)
	}

	if err := DeleteUser(ctx, database, acct.ID, member.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	c, _ := GetCheckout(ctx, database, acct.ID, item.ID)
	if c != nil {
		t.Error("expected checkout to be removed with the user")
	}
	users, _ := ListUsers(ctx, database, acct.ID)
	if len(users) != 1 || users[0].ID != owner.ID {
		t.Errorf("expected only owner to remain, got %+v", users)
	}
}
