package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/totetrack/internal/model"
)

// CreateAccount creates a new account.
func CreateAccount(ctx context.Context, q Querier, name string) (*model.Account, error) {
	result, err := q.ExecContext(ctx, `INSERT INTO accounts (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("creating account: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting account id: %w", err)
	}

	return GetAccount(ctx, q, id)
}

// GetAccount returns an account by ID.
func GetAccount(ctx context.Context, q Querier, id int64) (*model.Account, error) {
	a := &model.Account{}
	err := q.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at FROM accounts WHERE id = ?`, id,
	).Scan(&a.ID, &a.Name, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting account: %w", err)
	}
	return a, nil
}

// AccountNameTaken reports whether an account with name exists.
func AccountNameTaken(ctx context.Context, q Querier, name string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts WHERE name = ?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking account name: %w", err)
	}
	return n > 0, nil
}

// ListAccountImagePaths returns the stored image paths of every item in the
// account.
func ListAccountImagePaths(ctx context.Context, q Querier, accountID int64) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT image_path FROM items WHERE account_id = ? AND image_path IS NOT NULL`, accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing image paths: %w", err)
	}
	defer rows.Close()

	return scanStrings(rows)
}

// DeleteAccount deletes an account and everything it owns, children first.
func DeleteAccount(ctx context.Context, q Querier, id int64) error {
	stmts := []struct {
		what  string
		query string
	}{
		{"checkouts", `DELETE FROM checked_out_items
		  WHERE item_id IN (SELECT id FROM items WHERE account_id = ?1)
		     OR user_id IN (SELECT id FROM users WHERE account_id = ?1)`},
		{"items", `DELETE FROM items WHERE account_id = ?1`},
		{"totes", `DELETE FROM totes WHERE account_id = ?1`},
		{"locations", `DELETE FROM locations WHERE account_id = ?1`},
		{"users", `DELETE FROM users WHERE account_id = ?1`},
		{"account", `DELETE FROM accounts WHERE id = ?1`},
	}
	for _, s := range stmts {
		if _, err := q.ExecContext(ctx, s.query, id); err != nil {
			return fmt.Errorf("deleting account %s: %w", s.what, err)
		}
	}
	return nil
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
