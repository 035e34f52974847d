// Package tenancy manages accounts and their users, and keeps the
// one-superuser-per-account invariant.
package tenancy

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/erazemk/totetrack/internal/apperr"
	"github.com/erazemk/totetrack/internal/auth"
	"github.com/erazemk/totetrack/internal/model"
	"github.com/erazemk/totetrack/internal/store"
)

// RecoveryMailer delivers password recovery links. It reports whether the
// message was sent.
type RecoveryMailer interface {
	SendPasswordRecovery(to, fullName, link string, validFor time.Duration) bool
}

// FileReleaser deletes stored files, ignoring missing ones.
type FileReleaser interface {
	Delete(path string)
}

// Manager implements account and user operations.
type Manager struct {
	DB          *sql.DB
	Credentials *auth.Service

	// Optional collaborators.
	Mailer    RecoveryMailer
	Files     FileReleaser
	PublicURL string
}

var errBadCredentials = apperr.Unauthorized("incorrect email or password")

func requireSuperuser(actor *model.User) error {
	if actor == nil || !actor.IsSuperuser {
		return apperr.Forbidden("superuser privileges required")
	}
	return nil
}

// reloadActor rereads the actor inside q so the role check and the writes
// that depend on it share one transaction.
func reloadActor(ctx context.Context, q store.Querier, actor *model.User) (*model.User, error) {
	current, err := store.GetAccountUser(ctx, q, actor.AccountID, actor.ID)
	if err != nil {
		return nil, err
	}
	if current == nil || !current.IsActive {
		return nil, apperr.Forbidden("user is no longer active")
	}
	return current, nil
}

// reloadSuperuser is reloadActor for superuser-only operations.
func reloadSuperuser(ctx context.Context, q store.Querier, actor *model.User) (*model.User, error) {
	current, err := reloadActor(ctx, q, actor)
	if err != nil {
		return nil, err
	}
	if err := requireSuperuser(current); err != nil {
		return nil, err
	}
	return current, nil
}

// conflictOnUnique turns a unique constraint failure into a Conflict.
func conflictOnUnique(err error, message string) error {
	if store.IsUniqueViolation(err) {
		return apperr.Wrap(apperr.KindConflict, message, err)
	}
	return err
}

func validateNewUser(email, password string) (string, error) {
	email = model.NormalizeEmail(email)
	if err := model.ValidateEmail(email); err != nil {
		return "", apperr.Validation("%s", err.Error())
	}
	if err := model.ValidatePassword(password); err != nil {
		return "", apperr.Validation("%s", err.Error())
	}
	return email, nil
}

// BootstrapAccount creates an account together with its superuser owner.
func (m *Manager) BootstrapAccount(ctx context.Context, in model.AccountCreate) (*model.Account, *model.User, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, nil, apperr.Validation("account name required")
	}
	email, err := validateNewUser(in.OwnerEmail, in.OwnerPassword)
	if err != nil {
		return nil, nil, err
	}
	hash, err := auth.HashPassword(in.OwnerPassword)
	if err != nil {
		return nil, nil, err
	}

	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	taken, err := store.AccountNameTaken(ctx, tx, name)
	if err != nil {
		return nil, nil, err
	}
	if taken {
		return nil, nil, apperr.Conflict("account name already in use")
	}
	existing, err := store.GetUserByEmail(ctx, tx, email)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return nil, nil, apperr.Conflict("email already registered")
	}

	account, err := store.CreateAccount(ctx, tx, name)
	if err != nil {
		return nil, nil, conflictOnUnique(err, "account name already in use")
	}
	owner, err := store.CreateUser(ctx, tx, account.ID, email, strings.TrimSpace(in.OwnerFullName), hash, true)
	if err != nil {
		return nil, nil, conflictOnUnique(err, "email already registered")
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("committing account: %w", err)
	}

	slog.Info("account created", "account_id", account.ID, "owner_id", owner.ID)
	return account, owner, nil
}

// CreateUser adds a user to the actor's account. Only the superuser may add
// users, and a second superuser is never created.
func (m *Manager) CreateUser(ctx context.Context, actor *model.User, in model.UserCreate, asSuperuser bool) (*model.User, error) {
	if err := requireSuperuser(actor); err != nil {
		return nil, err
	}
	email, err := validateNewUser(in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := reloadSuperuser(ctx, tx, actor); err != nil {
		return nil, err
	}
	existing, err := store.GetUserByEmail(ctx, tx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict("email already registered")
	}
	if asSuperuser {
		current, err := store.GetSuperuser(ctx, tx, actor.AccountID)
		if err != nil {
			return nil, err
		}
		if current != nil {
			return nil, apperr.Conflict("account already has a superuser")
		}
	}

	user, err := store.CreateUser(ctx, tx, actor.AccountID, email, strings.TrimSpace(in.FullName), hash, asSuperuser)
	if err != nil {
		return nil, conflictOnUnique(err, "email already registered")
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing user: %w", err)
	}

	slog.Info("user created", "account_id", user.AccountID, "user_id", user.ID, "by", actor.ID)
	return user, nil
}

// UpdateUser applies patch to a user of the actor's account. Members may
// only change their own email, name and password.
func (m *Manager) UpdateUser(ctx context.Context, actor *model.User, userID int64, patch model.UserPatch) (*model.User, error) {
	if !actor.IsSuperuser && (userID != actor.ID || patch.TouchesRole()) {
		return nil, apperr.Forbidden("superuser privileges required")
	}

	var email string
	if patch.Email != nil {
		email = model.NormalizeEmail(*patch.Email)
		if err := model.ValidateEmail(email); err != nil {
			return nil, apperr.Validation("%s", err.Error())
		}
	}
	var newHash string
	if patch.Password != nil {
		if err := model.ValidatePassword(*patch.Password); err != nil {
			return nil, apperr.Validation("%s", err.Error())
		}
		hash, err := auth.HashPassword(*patch.Password)
		if err != nil {
			return nil, err
		}
		newHash = hash
	}

	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := reloadActor(ctx, tx, actor)
	if err != nil {
		return nil, err
	}
	if !current.IsSuperuser && (userID != current.ID || patch.TouchesRole()) {
		return nil, apperr.Forbidden("superuser privileges required")
	}

	user, err := store.GetAccountUser(ctx, tx, actor.AccountID, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFound("user not found")
	}

	if patch.Email != nil && email != user.Email {
		existing, err := store.GetUserByEmail(ctx, tx, email)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != user.ID {
			return nil, apperr.Conflict("email already registered")
		}
		user.Email = email
	}
	if patch.FullName != nil {
		user.FullName = strings.TrimSpace(*patch.FullName)
	}
	if patch.IsSuperuser != nil && *patch.IsSuperuser != user.IsSuperuser {
		if *patch.IsSuperuser {
			current, err := store.GetSuperuser(ctx, tx, user.AccountID)
			if err != nil {
				return nil, err
			}
			if current != nil {
				return nil, apperr.Conflict("account already has a superuser")
			}
		} else {
			return nil, apperr.Conflict("account must keep exactly one superuser")
		}
		user.IsSuperuser = *patch.IsSuperuser
	}
	if patch.IsActive != nil {
		if !*patch.IsActive && user.IsSuperuser {
			return nil, apperr.Conflict("the superuser cannot be deactivated")
		}
		user.IsActive = *patch.IsActive
	}

	if err := store.UpdateUser(ctx, tx, user); err != nil {
		return nil, conflictOnUnique(err, "email already registered")
	}
	if newHash != "" {
		if err := store.UpdateUserPassword(ctx, tx, user.ID, newHash); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing user: %w", err)
	}

	slog.Info("user updated", "account_id", user.AccountID, "user_id", user.ID, "by", actor.ID)
	return store.GetUser(ctx, m.DB, user.ID)
}

// DeleteUser removes a user of the actor's account together with their
// checkouts. The superuser cannot be deleted.
func (m *Manager) DeleteUser(ctx context.Context, actor *model.User, userID int64) error {
	if err := requireSuperuser(actor); err != nil {
		return err
	}

	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := reloadSuperuser(ctx, tx, actor); err != nil {
		return err
	}
	user, err := store.GetAccountUser(ctx, tx, actor.AccountID, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return apperr.NotFound("user not found")
	}
	if user.IsSuperuser {
		return apperr.Conflict("cannot delete the account's only superuser")
	}

	if err := store.DeleteUser(ctx, tx, user.AccountID, user.ID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing user delete: %w", err)
	}

	slog.Info("user deleted", "account_id", user.AccountID, "user_id", user.ID, "by", actor.ID)
	return nil
}

// Authenticate checks an email and password. Unknown emails, wrong
// passwords and inactive users fail identically.
func (m *Manager) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := store.GetUserByEmail(ctx, m.DB, model.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		auth.VerifyPassword(password, "")
		return nil, errBadCredentials
	}
	if !auth.VerifyPassword(password, user.PasswordHash) || !user.IsActive {
		return nil, errBadCredentials
	}
	return user, nil
}

// Resolve returns the active user an access token was issued to.
func (m *Manager) Resolve(ctx context.Context, token string) (*model.User, error) {
	id, err := m.Credentials.ResolveToken(token)
	if err != nil {
		return nil, err
	}
	user, err := store.GetUser(ctx, m.DB, id)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, apperr.Unauthorized("could not validate credentials")
	}
	return user, nil
}

// GetUser returns a user of the actor's account. Members may only read
// themselves.
func (m *Manager) GetUser(ctx context.Context, actor *model.User, userID int64) (*model.User, error) {
	if !actor.IsSuperuser && userID != actor.ID {
		return nil, apperr.Forbidden("superuser privileges required")
	}
	user, err := store.GetAccountUser(ctx, m.DB, actor.AccountID, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFound("user not found")
	}
	return user, nil
}

// ListUsers returns the users of the actor's account.
func (m *Manager) ListUsers(ctx context.Context, actor *model.User) ([]model.User, error) {
	if err := requireSuperuser(actor); err != nil {
		return nil, err
	}
	return store.ListUsers(ctx, m.DB, actor.AccountID)
}

// TransferSuperuser hands the superuser role from the actor to another
// active user of the account.
func (m *Manager) TransferSuperuser(ctx context.Context, actor *model.User, userID int64) (*model.User, error) {
	if err := requireSuperuser(actor); err != nil {
		return nil, err
	}

	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	target, err := store.GetAccountUser(ctx, tx, actor.AccountID, userID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, apperr.NotFound("user not found")
	}
	if target.IsSuperuser {
		return target, nil
	}
	if !target.IsActive {
		return nil, apperr.Conflict("cannot hand the superuser role to an inactive user")
	}

	current, err := reloadSuperuser(ctx, tx, actor)
	if err != nil {
		return nil, err
	}

	// Demote first: the partial unique index admits one superuser per account.
	current.IsSuperuser = false
	if err := store.UpdateUser(ctx, tx, current); err != nil {
		return nil, err
	}
	target.IsSuperuser = true
	if err := store.UpdateUser(ctx, tx, target); err != nil {
		return nil, conflictOnUnique(err, "account already has a superuser")
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing superuser transfer: %w", err)
	}

	slog.Info("superuser transferred", "account_id", actor.AccountID, "from", actor.ID, "to", target.ID)
	return store.GetUser(ctx, m.DB, target.ID)
}

// ChangePassword replaces the user's password after checking the current
// one.
func (m *Manager) ChangePassword(ctx context.Context, user *model.User, current, newPassword string) error {
	if !auth.VerifyPassword(current, user.PasswordHash) {
		return apperr.Validation("incorrect password")
	}
	if current == newPassword {
		return apperr.Validation("new password cannot be the same as the current one")
	}
	if err := model.ValidatePassword(newPassword); err != nil {
		return apperr.Validation("%s", err.Error())
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return store.UpdateUserPassword(ctx, m.DB, user.ID, hash)
}

// RequestPasswordRecovery issues a recovery token for email and mails a
// reset link. It succeeds whether or not the email is registered.
func (m *Manager) RequestPasswordRecovery(ctx context.Context, email string) error {
	user, err := store.GetUserByEmail(ctx, m.DB, model.NormalizeEmail(email))
	if err != nil {
		return err
	}
	if user == nil || !user.IsActive {
		slog.Info("password recovery requested for unknown or inactive email")
		return nil
	}

	token, err := m.Credentials.IssueRecoveryToken(ctx, user.ID)
	if err != nil {
		return err
	}
	if m.Mailer == nil {
		slog.Warn("password recovery issued without a mailer", "user_id", user.ID)
		return nil
	}

	link := strings.TrimRight(m.PublicURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
	ttl := m.Credentials.RecoveryTTL
	if ttl <= 0 {
		ttl = auth.DefaultRecoveryTTL
	}
	if !m.Mailer.SendPasswordRecovery(user.Email, user.FullName, link, ttl) {
		slog.Warn("password recovery email not sent", "user_id", user.ID)
	}
	return nil
}

// ResetPassword consumes a recovery token and sets a new password.
func (m *Manager) ResetPassword(ctx context.Context, token, newPassword string) (*model.User, error) {
	user, err := m.Credentials.ConsumeRecoveryToken(ctx, token, newPassword)
	if err != nil {
		return nil, err
	}
	slog.Info("password reset", "user_id", user.ID)
	return user, nil
}

// DeleteAccount deletes the actor's account and everything in it. Stored
// images are released after the rows are gone.
func (m *Manager) DeleteAccount(ctx context.Context, actor *model.User) error {
	if err := requireSuperuser(actor); err != nil {
		return err
	}

	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := reloadSuperuser(ctx, tx, actor); err != nil {
		return err
	}
	paths, err := store.ListAccountImagePaths(ctx, tx, actor.AccountID)
	if err != nil {
		return err
	}
	if err := store.DeleteAccount(ctx, tx, actor.AccountID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing account delete: %w", err)
	}

	if m.Files != nil {
		for _, p := range paths {
			m.Files.Delete(p)
		}
	}

	slog.Info("account deleted", "account_id", actor.AccountID, "by", actor.ID)
	return nil
}

