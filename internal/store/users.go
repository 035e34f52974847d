package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/totetrack/internal/model"
)

const userColumns = `id, account_id, email, full_name, password_hash, is_active, is_superuser,
	recovery_token_hash, recovery_token_expires_at, created_at, updated_at`

func scanUser(s scanner) (*model.User, error) {
	u := &model.User{}
	var recoveryHash sql.NullString
	var recoveryExpires sql.NullTime
	err := s.Scan(&u.ID, &u.AccountID, &u.Email, &u.FullName, &u.PasswordHash,
		&u.IsActive, &u.IsSuperuser, &recoveryHash, &recoveryExpires, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.RecoveryTokenHash = recoveryHash.String
	if recoveryExpires.Valid {
		t := recoveryExpires.Time
		u.RecoveryTokenExpiresAt = &t
	}
	return u, nil
}

func getUser(ctx context.Context, q Querier, what, where string, args ...any) (*model.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user%s: %w", what, err)
	}
	return u, nil
}

// CreateUser creates a new user in an account.
func CreateUser(ctx context.Context, q Querier, accountID int64, email, fullName, passwordHash string, isSuperuser bool) (*model.User, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO users (account_id, email, full_name, password_hash, is_superuser) VALUES (?, ?, ?, ?, ?)`,
		accountID, email, fullName, passwordHash, isSuperuser,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, q, id)
}

// GetUser returns a user by ID regardless of account. It is used to resolve
// token subjects; everything else goes through GetAccountUser.
func GetUser(ctx context.Context, q Querier, id int64) (*model.User, error) {
	return getUser(ctx, q, "", `id = ?`, id)
}

// GetAccountUser returns a user by ID within an account.
func GetAccountUser(ctx context.Context, q Querier, accountID, id int64) (*model.User, error) {
	return getUser(ctx, q, "", `id = ? AND account_id = ?`, id, accountID)
}

// GetUserByEmail returns a user by email, compared case-insensitively.
func GetUserByEmail(ctx context.Context, q Querier, email string) (*model.User, error) {
	return getUser(ctx, q, " by email", `email = ?`, email)
}

// GetSuperuser returns the account's superuser.
func GetSuperuser(ctx context.Context, q Querier, accountID int64) (*model.User, error) {
	return getUser(ctx, q, " by role", `account_id = ? AND is_superuser = 1`, accountID)
}

// GetUserByRecoveryLookup returns the user holding a recovery token with the
// given lookup value.
func GetUserByRecoveryLookup(ctx context.Context, q Querier, lookup string) (*model.User, error) {
	return getUser(ctx, q, " by recovery token", `recovery_token_lookup = ?`, lookup)
}

// ListUsers returns all users of an account.
func ListUsers(ctx context.Context, q Querier, accountID int64) ([]model.User, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE account_id = ? ORDER BY id`, accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateUser writes a user's email, name and flags.
func UpdateUser(ctx context.Context, q Querier, u *model.User) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET email = ?, full_name = ?, is_active = ?, is_superuser = ?,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND account_id = ?`,
		u.Email, u.FullName, u.IsActive, u.IsSuperuser, u.ID, u.AccountID,
	)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	return nil
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, q Querier, id int64, passwordHash string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return nil
}

// SetRecoveryToken stores a recovery token's hash, lookup value and expiry,
// replacing any previous token.
func SetRecoveryToken(ctx context.Context, q Querier, id int64, hash, lookup string, expiresAt time.Time) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET recovery_token_hash = ?, recovery_token_lookup = ?, recovery_token_expires_at = ?
		 WHERE id = ?`,
		hash, lookup, expiresAt.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("storing recovery token: %w", err)
	}
	return nil
}

// ResetUserPassword sets a new password hash and clears the recovery token.
func ResetUserPassword(ctx context.Context, q Querier, id int64, passwordHash string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, recovery_token_hash = NULL, recovery_token_lookup = NULL,
		        recovery_token_expires_at = NULL, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("resetting user password: %w", err)
	}
	return nil
}

// DeleteUser deletes a user and their active checkouts.
func DeleteUser(ctx context.Context, q Querier, accountID, id int64) error {
	_, err := q.ExecContext(ctx,
		`DELETE FROM checked_out_items
		 WHERE user_id IN (SELECT id FROM users WHERE id = ? AND account_id = ?)`,
		id, accountID,
	)
	if err != nil {
		return fmt.Errorf("deleting user checkouts: %w", err)
	}

	_, err = q.ExecContext(ctx, `DELETE FROM users WHERE id = ? AND account_id = ?`, id, accountID)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}
