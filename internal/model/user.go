package model

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

// Account is a tenant. Every other entity belongs to exactly one account.
type Account struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is a member of an account. The account has exactly one superuser.
type User struct {
	ID           int64     `json:"id"`
	AccountID    int64     `json:"account_id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	IsActive     bool      `json:"is_active"`
	IsSuperuser  bool      `json:"is_superuser"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Recovery token state, never serialized.
	RecoveryTokenHash      string     `json:"-"`
	RecoveryTokenExpiresAt *time.Time `json:"-"`
}

// AccountCreate is the input for bootstrapping an account and its owner.
type AccountCreate struct {
	Name          string `json:"name"`
	OwnerEmail    string `json:"owner_email"`
	OwnerFullName string `json:"owner_full_name"`
	OwnerPassword string `json:"owner_password"`
}

// UserCreate is the input for adding a user to an account.
type UserCreate struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

// UserPatch is a partial user update. Nil fields are left untouched.
type UserPatch struct {
	Email       *string `json:"email,omitempty"`
	FullName    *string `json:"full_name,omitempty"`
	Password    *string `json:"password,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
	IsSuperuser *bool   `json:"is_superuser,omitempty"`
}

// TouchesRole reports whether the patch changes role or activation.
func (p UserPatch) TouchesRole() bool {
	return p.IsActive != nil || p.IsSuperuser != nil
}

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// ValidatePassword checks the password policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return errors.New("password must be at least 8 characters")
	}
	// bcrypt only looks at the first 72 bytes.
	if len(password) > 72 {
		return errors.New("password must be at most 72 bytes")
	}
	return nil
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks that email is a bare address.
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errors.New("invalid email address")
	}
	return nil
}
