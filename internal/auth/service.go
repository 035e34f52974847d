// Package auth implements the credential and token service: password
// hashing, stateless access tokens and one-time recovery tokens.
package auth

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/totetrack/internal/apperr"
	"github.com/erazemk/totetrack/internal/model"
	"github.com/erazemk/totetrack/internal/store"
)

// Service issues and resolves access and recovery tokens.
type Service struct {
	DB          *sql.DB
	Secret      string
	AccessTTL   time.Duration
	RecoveryTTL time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return DefaultAccessTTL
}

func (s *Service) recoveryTTL() time.Duration {
	if s.RecoveryTTL > 0 {
		return s.RecoveryTTL
	}
	return DefaultRecoveryTTL
}

// IssueAccessToken returns a signed access token for user.
func (s *Service) IssueAccessToken(user *model.User) (string, error) {
	return GenerateToken(s.Secret, user.ID, user.AccountID, s.now(), s.accessTTL())
}

// ResolveToken validates an access token and returns its user ID. Every
// failure is Unauthorized.
func (s *Service) ResolveToken(token string) (int64, error) {
	claims, err := ValidateToken(s.Secret, token, s.now())
	if err != nil {
		return 0, apperr.Wrap(apperr.KindUnauthorized, "could not validate credentials", err)
	}
	id, err := claims.UserID()
	if err != nil {
		return 0, apperr.Wrap(apperr.KindUnauthorized, "could not validate credentials", err)
	}
	return id, nil
}

// IssueRecoveryToken creates a recovery token for a user, replacing any
// previous one, and returns its plaintext. Only derived values are stored.
func (s *Service) IssueRecoveryToken(ctx context.Context, userID int64) (string, error) {
	token, err := NewRecoveryToken()
	if err != nil {
		return "", err
	}
	hash, err := HashPassword(token)
	if err != nil {
		return "", fmt.Errorf("hashing recovery token: %w", err)
	}

	expires := s.now().Add(s.recoveryTTL())
	if err := store.SetRecoveryToken(ctx, s.DB, userID, hash, RecoveryLookup(s.Secret, token), expires); err != nil {
		return "", err
	}
	return token, nil
}

// ConsumeRecoveryToken resets the password of the user holding token and
// invalidates the token. Unknown, expired and already used tokens are all
// NotFound.
func (s *Service) ConsumeRecoveryToken(ctx context.Context, token, newPassword string) (*model.User, error) {
	if err := model.ValidatePassword(newPassword); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	newHash, err := HashPassword(newPassword)
	if err != nil {
		return nil, err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	user, err := store.GetUserByRecoveryLookup(ctx, tx, RecoveryLookup(s.Secret, token))
	if err != nil {
		return nil, err
	}
	if user == nil || user.RecoveryTokenExpiresAt == nil {
		return nil, apperr.NotFound("invalid or expired recovery token")
	}
	if !s.now().Before(*user.RecoveryTokenExpiresAt) {
		return nil, apperr.NotFound("invalid or expired recovery token")
	}
	if !VerifyPassword(token, user.RecoveryTokenHash) {
		return nil, apperr.NotFound("invalid or expired recovery token")
	}

	if err := store.ResetUserPassword(ctx, tx, user.ID, newHash); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing password reset: %w", err)
	}

	return store.GetUser(ctx, s.DB, user.ID)
}
