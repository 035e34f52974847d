package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/totetrack/internal/model"
)

const checkoutSelect = `SELECT c.id, c.item_id, c.user_id, c.checked_out_at,
	       i.name, i.tote_id, u.email, u.full_name
	FROM checked_out_items c
	JOIN items i ON i.id = c.item_id
	JOIN users u ON u.id = c.user_id`

func scanCheckout(s scanner) (*model.CheckedOutItem, error) {
	c := &model.CheckedOutItem{}
	var toteID sql.NullString
	err := s.Scan(&c.ID, &c.ItemID, &c.UserID, &c.CheckedOutAt,
		&c.ItemName, &toteID, &c.UserEmail, &c.UserFullName)
	if err != nil {
		return nil, err
	}
	if toteID.Valid {
		id := toteID.String
		c.ToteID = &id
	}
	return c, nil
}

// CreateCheckout records that an item is lent to a user. A second record for
// the same item fails with a unique violation.
func CreateCheckout(ctx context.Context, q Querier, accountID int64, itemID string, userID int64) (*model.CheckedOutItem, error) {
	_, err := q.ExecContext(ctx,
		`INSERT INTO checked_out_items (item_id, user_id) VALUES (?, ?)`,
		itemID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("creating checkout: %w", err)
	}
	return GetCheckout(ctx, q, accountID, itemID)
}

// GetCheckout returns the active checkout of an item within an account.
func GetCheckout(ctx context.Context, q Querier, accountID int64, itemID string) (*model.CheckedOutItem, error) {
	c, err := scanCheckout(q.QueryRowContext(ctx,
		checkoutSelect+` WHERE c.item_id = ? AND i.account_id = ?`, itemID, accountID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting checkout: %w", err)
	}
	return c, nil
}

// DeleteCheckout removes the checkout of an item and reports whether one
// existed.
func DeleteCheckout(ctx context.Context, q Querier, accountID int64, itemID string) (bool, error) {
	result, err := q.ExecContext(ctx,
		`DELETE FROM checked_out_items
		 WHERE item_id IN (SELECT id FROM items WHERE id = ? AND account_id = ?)`,
		itemID, accountID,
	)
	if err != nil {
		return false, fmt.Errorf("deleting checkout: %w", err)
	}
	ok, err := affected(result)
	if err != nil {
		return false, fmt.Errorf("deleting checkout: %w", err)
	}
	return ok, nil
}

// ListCheckouts returns the account's active checkouts, newest first. A
// non-zero userID restricts the list to that user.
func ListCheckouts(ctx context.Context, q Querier, accountID, userID int64) ([]model.CheckedOutItem, error) {
	query := checkoutSelect + ` WHERE i.account_id = ?`
	args := []any{accountID}
	if userID > 0 {
		query += ` AND c.user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY c.checked_out_at DESC, c.id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing checkouts: %w", err)
	}
	defer rows.Close()

	var checkouts []model.CheckedOutItem
	for rows.Next() {
		c, err := scanCheckout(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning checkout: %w", err)
		}
		checkouts = append(checkouts, *c)
	}
	return checkouts, rows.Err()
}
